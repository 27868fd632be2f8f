package probe

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/tkjaer/bootprobe/internal/krpc"
	"github.com/tkjaer/bootprobe/internal/shared"
)

const (
	DefaultTimeout    = 1500 * time.Millisecond
	DefaultRetries    = 2
	DefaultBufferSize = 512
)

// ListenFunc opens the socket used by a single probe
type ListenFunc func() (net.PacketConn, error)

// UDPListener returns a ListenFunc binding an ephemeral IPv4 UDP port,
// on source if it is valid.
func UDPListener(source netip.Addr) ListenFunc {
	return func() (net.PacketConn, error) {
		laddr := &net.UDPAddr{}
		if source.IsValid() {
			laddr.IP = source.AsSlice()
		}
		return net.ListenUDP("udp4", laddr)
	}
}

// Config holds the per-probe timing and retry settings
type Config struct {
	Timeout    time.Duration // Per-receive timeout
	Retries    int           // Datagrams sent at most per target
	BufferSize int           // Largest reply read
}

// Pinger probes a single target
type Pinger interface {
	Probe(target shared.Target) shared.Outcome
}

// Prober sends DHT pings. Every call to Probe draws its own ids and opens its
// own socket, so a Prober is safe for concurrent use.
type Prober struct {
	config Config
	rand   io.Reader
	listen ListenFunc
}

// NewProber creates a Prober reading ids from random and sockets from listen
func NewProber(cfg Config, random io.Reader, listen ListenFunc) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 1 {
		cfg.Retries = DefaultRetries
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Prober{config: cfg, rand: random, listen: listen}
}

type probeState int

const (
	stateSending probeState = iota
	stateAwaitingReply
	stateRetrying
	stateSucceeded
	stateExhausted
)

func (s probeState) String() string {
	switch s {
	case stateSending:
		return "sending"
	case stateAwaitingReply:
		return "awaiting-reply"
	case stateRetrying:
		return "retrying"
	case stateSucceeded:
		return "succeeded"
	case stateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// attempt carries the state of one probe through the retry loop
type attempt struct {
	conn    net.PacketConn
	dst     net.Addr
	request []byte
	tid     krpc.TransactionID
	buf     []byte
	outcome shared.Outcome
}

// Probe pings target and reports whether it answered. Transport errors are
// never returned; they count as a failed attempt.
func (p *Prober) Probe(target shared.Target) shared.Outcome {
	start := time.Now()

	a, err := p.prepare(target)
	if err != nil {
		slog.Debug("Failed to prepare probe", "target", target, "error", err)
		return shared.Outcome{Elapsed: time.Since(start)}
	}
	defer a.conn.Close()

	state := stateSending
	for state != stateSucceeded && state != stateExhausted {
		next := p.step(state, a)
		slog.Debug("Probe state", "target", target, "from", state, "to", next, "attempt", a.outcome.Attempts)
		state = next
	}

	a.outcome.Responded = state == stateSucceeded
	a.outcome.Elapsed = time.Since(start)
	return a.outcome
}

func (p *Prober) prepare(target shared.Target) (*attempt, error) {
	id, err := krpc.NewNodeID(p.rand)
	if err != nil {
		return nil, err
	}
	tid, err := krpc.NewTransactionID(p.rand)
	if err != nil {
		return nil, err
	}
	request, err := krpc.EncodePing(id, tid)
	if err != nil {
		return nil, err
	}
	conn, err := p.listen()
	if err != nil {
		return nil, err
	}
	return &attempt{
		conn:    conn,
		dst:     net.UDPAddrFromAddrPort(target.AddrPort()),
		request: request,
		tid:     tid,
		buf:     make([]byte, p.config.BufferSize),
	}, nil
}

// step advances the retry loop by one transition
func (p *Prober) step(state probeState, a *attempt) probeState {
	switch state {
	case stateSending:
		a.outcome.Attempts++
		if _, err := a.conn.WriteTo(a.request, a.dst); err != nil {
			slog.Debug("Failed to send ping", "destination", a.dst, "error", err)
			return stateRetrying
		}
		return stateAwaitingReply

	case stateAwaitingReply:
		return p.awaitReply(a)

	case stateRetrying:
		if a.outcome.Attempts >= p.config.Retries {
			return stateExhausted
		}
		return stateSending
	}
	return state
}

func (p *Prober) awaitReply(a *attempt) probeState {
	if err := a.conn.SetReadDeadline(time.Now().Add(p.config.Timeout)); err != nil {
		slog.Debug("Failed to set read deadline", "error", err)
		return stateRetrying
	}

	n, from, err := a.conn.ReadFrom(a.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			slog.Debug("Timed out waiting for reply", "destination", a.dst)
		} else {
			slog.Debug("Failed to receive reply", "destination", a.dst, "error", err)
		}
		return stateRetrying
	}

	reply := a.buf[:n]
	if !krpc.ContainsTransaction(reply, a.tid) {
		slog.Debug("Reply without our transaction id", "from", from, "tid", a.tid)
		return stateRetrying
	}

	if msg, err := krpc.DecodeReply(reply); err == nil {
		if id, err := msg.NodeID(); err == nil {
			a.outcome.NodeID = id
		}
	}
	return stateSucceeded
}
