package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tkjaer/bootprobe/internal/resolve"
	"github.com/tkjaer/bootprobe/internal/version"
)

// DefaultPort is the customary DHT port, used when a target omits one
const DefaultPort = 6881

type Args struct {
	// Targets
	Hosts    []resolve.HostPort
	Literals []netip.AddrPort

	// Probing
	Timeout        time.Duration
	Retries        uint
	BufferSize     uint
	ParallelProbes uint
	Interface      string

	// Rounds
	NumRounds uint
	Interval  time.Duration

	// Name resolution
	NoResolve   bool
	Nameserver  string
	DNSCacheTTL time.Duration

	// Output
	Json        bool   // output json to stdout
	JsonFile    string // output json to file alongside text
	MetricsAddr string // serve Prometheus metrics on this address

	// Logging
	Log      string // log file path, empty means stderr
	LogLevel string // log level: debug, info, warn, error
}

func ParseArgs() (Args, error) {
	var args Args
	var showVersion bool

	flag.Usage = func() {
		println("bootprobe - DHT bootstrap node prober")
		println()
		println("Checks which BitTorrent DHT bootstrap nodes answer a KRPC ping.")
		println()
		println("Usage:")
		println("  bootprobe [OPTIONS] [HOST:PORT ...]")
		println()
		println("Without targets the built-in bootstrap node list is probed.")
		println()
		println("Examples:")
		println("  bootprobe                                  # Probe built-in nodes")
		println("  bootprobe router.bittorrent.com:6881       # Probe one node")
		println("  bootprobe -P 8 -J                          # 8 parallel probes, JSON to stdout")
		println("  bootprobe -c 0 -d 1m -m :9469              # Probe every minute, export metrics")
		println()
		println("Options:")
		flag.PrintDefaults()
	}

	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.DurationVarP(&args.Timeout, "timeout", "t", 1500*time.Millisecond, "Reply timeout per attempt")
	flag.UintVarP(&args.Retries, "retries", "r", 2, "Pings sent per target before giving up")
	flag.UintVarP(&args.BufferSize, "buffer-size", "b", 512, "Largest reply read, in bytes")
	flag.UintVarP(&args.ParallelProbes, "parallel-probes", "P", 1, "Number of targets probed at once")
	flag.StringVarP(&args.Interface, "interface", "I", "", "Send probes from this interface's IPv4 address")
	flag.UintVarP(&args.NumRounds, "count", "c", 1, "Number of probe rounds (0 = until interrupted)")
	flag.DurationVarP(&args.Interval, "interval", "d", 30*time.Second, "Delay between probe rounds")
	flag.BoolVarP(&args.NoResolve, "no-resolve", "n", false, "Do not resolve responsive IP addresses to hostnames")
	flag.StringVar(&args.Nameserver, "nameserver", "", "Resolve hostnames with this DNS server instead of the system resolver")
	flag.DurationVar(&args.DNSCacheTTL, "dns-cache-ttl", 5*time.Minute, "How long resolved hostnames are reused across rounds (0 = never)")
	flag.BoolVarP(&args.Json, "json", "J", false, "Write JSON output to stdout")
	flag.StringVarP(&args.JsonFile, "json-file", "j", "", "Write JSON output to file")
	flag.StringVarP(&args.MetricsAddr, "metrics-addr", "m", "", "Serve Prometheus metrics on this address")
	flag.StringVarP(&args.Log, "log", "l", "", "Diagnostic log file (empty = stderr)")
	flag.StringVar(&args.LogLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.Parse()

	if showVersion {
		fmt.Println(version.FullVersion())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		args.Hosts = DefaultHosts()
		args.Literals = DefaultLiterals()
	}
	for _, arg := range flag.Args() {
		host, literal, err := parseTarget(arg)
		if err != nil {
			return args, err
		}
		if literal.IsValid() {
			args.Literals = append(args.Literals, literal)
		} else {
			args.Hosts = append(args.Hosts, host)
		}
	}

	switch {
	case args.Json && args.JsonFile != "":
		return args, errors.New("cannot use both --json and --json-file")
	case args.Timeout <= 0:
		return args, errors.New("timeout must be positive")
	case args.Retries < 1:
		return args, errors.New("retries must be at least 1")
	case args.BufferSize < 1 || args.BufferSize > 65535:
		return args, errors.New("buffer size must be between 1 and 65535")
	case args.ParallelProbes < 1:
		return args, errors.New("parallel probes must be at least 1")
	case args.NumRounds != 1 && args.Interval <= 0:
		return args, errors.New("interval must be positive when probing more than one round")
	case args.DNSCacheTTL < 0:
		return args, errors.New("DNS cache TTL cannot be negative")
	}

	return args, nil
}

// parseTarget splits a HOST[:PORT] argument. An IPv4 host yields a literal,
// anything else a hostname to resolve.
func parseTarget(s string) (resolve.HostPort, netip.AddrPort, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		host, portStr = s, strconv.Itoa(DefaultPort)
		if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	}
	if host == "" {
		return resolve.HostPort{}, netip.AddrPort{}, fmt.Errorf("invalid target %q: missing host", s)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return resolve.HostPort{}, netip.AddrPort{}, fmt.Errorf("invalid target %q: port must be between 1 and 65535", s)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return resolve.HostPort{}, netip.AddrPort{}, fmt.Errorf("invalid target %q: only IPv4 is supported", s)
		}
		return resolve.HostPort{}, netip.AddrPortFrom(addr, uint16(port)), nil
	}

	return resolve.HostPort{Host: host, Port: uint16(port)}, netip.AddrPort{}, nil
}
