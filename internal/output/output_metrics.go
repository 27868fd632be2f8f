package output

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tkjaer/bootprobe/internal/shared"
)

// MetricsOutput exports the latest round as Prometheus metrics
type MetricsOutput struct {
	targetResponded   *prometheus.GaugeVec
	targetRTT         *prometheus.GaugeVec
	targetAttempts    *prometheus.CounterVec
	targetLastProbe   *prometheus.GaugeVec
	roundsTotal       prometheus.Counter
	responsiveTargets prometheus.Gauge

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// NewMetricsOutput registers the bootprobe metrics with reg
func NewMetricsOutput(reg prometheus.Registerer) *MetricsOutput {
	m := &MetricsOutput{
		targetResponded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bootprobe_target_responded",
				Help: "Whether the target answered the last ping (1 = yes, 0 = no)",
			},
			[]string{"target", "ptr"},
		),
		targetRTT: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bootprobe_target_rtt_ms",
				Help: "Time from first ping to reply in milliseconds",
			},
			[]string{"target", "ptr"},
		),
		targetAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bootprobe_attempts_total",
				Help: "Total number of pings sent",
			},
			[]string{"target"},
		),
		targetLastProbe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bootprobe_last_probe_timestamp",
				Help: "Timestamp of the last completed probe round",
			},
			[]string{"target"},
		),
		roundsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bootprobe_rounds_total",
				Help: "Total number of completed probe rounds",
			},
		),
		responsiveTargets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bootprobe_responsive_targets",
				Help: "Number of targets that answered in the last round",
			},
		),
	}

	reg.MustRegister(m.targetResponded)
	reg.MustRegister(m.targetRTT)
	reg.MustRegister(m.targetAttempts)
	reg.MustRegister(m.targetLastProbe)
	reg.MustRegister(m.roundsTotal)
	reg.MustRegister(m.responsiveTargets)

	return m
}

// Serve exposes gatherer on addr under /metrics until Close is called
func (m *MetricsOutput) Serve(addr string, gatherer prometheus.Gatherer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.mu.Lock()
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.addr = ln.Addr()
	srv := m.server
	m.mu.Unlock()

	slog.Info("Serving metrics", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Serve
func (m *MetricsOutput) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

func (m *MetricsOutput) StartRound(round uint, targets []shared.Target) {
	// Metrics only change when a round completes
}

func (m *MetricsOutput) CompleteRound(round *shared.Round) {
	for _, res := range round.Results {
		target := res.Target.String()

		responded := 0.0
		if res.Outcome.Responded {
			responded = 1.0
		}
		// The ptr label may change between rounds; keep one series per target
		m.targetResponded.DeletePartialMatch(prometheus.Labels{"target": target})
		m.targetRTT.DeletePartialMatch(prometheus.Labels{"target": target})

		m.targetResponded.WithLabelValues(target, res.PTR).Set(responded)
		if res.Outcome.Responded {
			m.targetRTT.WithLabelValues(target, res.PTR).Set(res.Outcome.ElapsedMs())
		}
		m.targetAttempts.WithLabelValues(target).Add(float64(res.Outcome.Attempts))
		m.targetLastProbe.WithLabelValues(target).Set(float64(round.Completed.Unix()))
	}

	m.roundsTotal.Inc()
	m.responsiveTargets.Set(float64(len(round.Responsive())))
	slog.Debug("Updated metrics", "round", round.Num)
}

func (m *MetricsOutput) Close() error {
	m.mu.Lock()
	srv := m.server
	m.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
