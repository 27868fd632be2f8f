package probe

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/tkjaer/bootprobe/internal/config"
	"github.com/tkjaer/bootprobe/internal/output"
	"github.com/tkjaer/bootprobe/internal/resolve"
	"github.com/tkjaer/bootprobe/internal/shared"
	"github.com/tkjaer/bootprobe/pkg/iface"
	"github.com/tkjaer/bootprobe/pkg/ptr"
)

type outputConfig struct {
	jsonOutput  bool
	jsonFile    string
	metricsAddr string
}

// ProbeManager resolves the configured targets and probes them, one round at
// a time, reporting every round to the registered outputs.
type ProbeManager struct {
	// Coordination
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	// Shared resources
	resolver   *resolve.Resolver
	pinger     Pinger
	ptrManager *ptr.PtrManager
	stdout     io.Writer

	// Targets
	hosts    []resolve.HostPort
	literals []netip.AddrPort

	// Probe Configuration
	parallelProbes int
	numRounds      uint
	interval       time.Duration
	noResolve      bool

	outputConfig outputConfig
}

// NewProbeManager creates and initializes a probe manager
func NewProbeManager(a config.Args) (*ProbeManager, error) {
	var source netip.Addr
	if a.Interface != "" {
		addr, err := iface.SourceIPv4(a.Interface)
		if err != nil {
			return nil, fmt.Errorf("failed to get source address: %w", err)
		}
		source = addr
		slog.Debug("Using source address", "interface", a.Interface, "source", source)
	}

	lookup := resolve.SystemLookup
	if a.Nameserver != "" {
		lookup = resolve.NameserverLookup(a.Nameserver, a.Timeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pm := &ProbeManager{
		ctx:    ctx,
		cancel: cancel,

		resolver: resolve.NewResolver(lookup, a.DNSCacheTTL),
		pinger: NewProber(Config{
			Timeout:    a.Timeout,
			Retries:    int(a.Retries),
			BufferSize: int(a.BufferSize),
		}, rand.Reader, UDPListener(source)),
		ptrManager: ptr.NewPtrManager(),
		stdout:     os.Stdout,

		hosts:    a.Hosts,
		literals: a.Literals,

		parallelProbes: int(a.ParallelProbes),
		numRounds:      a.NumRounds,
		interval:       a.Interval,
		noResolve:      a.NoResolve,

		outputConfig: outputConfig{
			jsonOutput:  a.Json,
			jsonFile:    a.JsonFile,
			metricsAddr: a.MetricsAddr,
		},
	}

	return pm, nil
}

// Run probes every round and returns once the last round is reported or
// the manager is stopped. An interrupted round is not reported.
func (pm *ProbeManager) Run() error {
	om, err := pm.createOutputs()
	if err != nil {
		return err
	}

	for round := uint(1); pm.numRounds == 0 || round <= pm.numRounds; round++ {
		if round > 1 && !pm.wait(pm.interval) {
			break
		}
		if err := pm.runRound(round, om); err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Debug("Round interrupted", "round", round)
				break
			}
			om.Close()
			return err
		}
	}

	slog.Debug("All rounds finished")
	return om.Close()
}

// wait sleeps for d, returning false if the manager is stopped first
func (pm *ProbeManager) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-pm.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (pm *ProbeManager) runRound(num uint, om *output.OutputManager) error {
	round := &shared.Round{Num: num, Started: time.Now()}

	targets := pm.resolver.Resolve(pm.ctx, pm.hosts, pm.literals)
	slog.Debug("Resolved targets", "round", num, "targets", len(targets))
	om.StartRound(num, targets)

	results, err := probeAll(pm.ctx, pm.pinger, targets, pm.parallelProbes)
	if err != nil {
		return err
	}
	round.Results = results

	if !pm.noResolve {
		pm.lookupPTRs(round)
	}

	round.Completed = time.Now()
	om.CompleteRound(round)
	return nil
}

// lookupPTRs fills in reverse names for the responsive targets of round
func (pm *ProbeManager) lookupPTRs(round *shared.Round) {
	var addrs []netip.Addr
	for _, res := range round.Results {
		if res.Outcome.Responded {
			addrs = append(addrs, res.Target.Addr)
		}
	}
	if len(addrs) == 0 {
		return
	}

	pm.ptrManager.RequestAll(pm.ctx, addrs, pm.parallelProbes)
	for i := range round.Results {
		if name, ok := pm.ptrManager.GetPTR(round.Results[i].Target.Addr); ok && round.Results[i].Outcome.Responded {
			round.Results[i].PTR = name
		}
	}
}

// probeAll probes targets with at most parallel probes in flight and returns
// the results in target order. Once ctx is done no new probe starts.
func probeAll(ctx context.Context, p Pinger, targets []shared.Target, parallel int) ([]shared.Result, error) {
	results := make([]shared.Result, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(max(parallel, 1))
	for i, target := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome := p.Probe(target)
			slog.Info("Probed target", "target", target, "responded", outcome.Responded,
				"attempts", outcome.Attempts, "elapsed", outcome.Elapsed)
			results[i] = shared.Result{Target: target, Outcome: outcome}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Stop cancels the run. In-flight probes finish, no new ones start.
func (pm *ProbeManager) Stop() {
	pm.stopOnce.Do(func() {
		slog.Debug("Stopping ProbeManager")
		pm.cancel()
	})
}

// createOutputs creates and initializes output handlers
func (pm *ProbeManager) createOutputs() (*output.OutputManager, error) {
	om := &output.OutputManager{}

	// If JSON output is enabled, output to stdout instead of text
	if pm.outputConfig.jsonOutput {
		jsonOut, err := output.NewJSONOutput("") // empty string = stdout
		if err != nil {
			return nil, err
		}
		om.Register(jsonOut)
	} else {
		om.Register(output.NewTextOutput(pm.stdout, isTerminal(pm.stdout)))
	}

	// If JSON file output is enabled, write to file alongside text
	if pm.outputConfig.jsonFile != "" {
		jsonOut, err := output.NewJSONOutput(pm.outputConfig.jsonFile)
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("failed to create JSON file output: %w", err)
		}
		om.Register(jsonOut)
	}

	if pm.outputConfig.metricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		metrics := output.NewMetricsOutput(registry)
		if err := metrics.Serve(pm.outputConfig.metricsAddr, registry); err != nil {
			om.Close()
			return nil, fmt.Errorf("failed to start metrics listener: %w", err)
		}
		om.Register(metrics)
	}

	return om, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
