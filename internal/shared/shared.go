package shared

import (
	"net/netip"
	"time"
)

// Target is a UDP endpoint to probe. Addr is always an IPv4 address.
type Target struct {
	Addr netip.Addr
	Port uint16
}

// NewTarget builds a Target from an address/port pair, unmapping 4in6 addresses.
func NewTarget(ap netip.AddrPort) Target {
	return Target{Addr: ap.Addr().Unmap(), Port: ap.Port()}
}

func (t Target) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(t.Addr, t.Port)
}

func (t Target) String() string {
	return t.AddrPort().String()
}

// Outcome is the result of probing a single target
type Outcome struct {
	Responded bool
	Elapsed   time.Duration
	Attempts  int    // Datagrams sent
	NodeID    string // Hex node id of the responder, when its reply decoded
}

// ElapsedMs returns the elapsed time in fractional milliseconds
func (o Outcome) ElapsedMs() float64 {
	return float64(o.Elapsed.Microseconds()) / 1000.0
}

// Result pairs a target with its outcome
type Result struct {
	Target  Target
	Outcome Outcome
	PTR     string // Reverse name for responsive targets, if known
}

// Round holds every result of one probing round, in target order
type Round struct {
	Num       uint
	Results   []Result
	Started   time.Time
	Completed time.Time
}

// Responsive returns the results whose targets responded, preserving order
func (r *Round) Responsive() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome.Responded {
			out = append(out, res)
		}
	}
	return out
}

// TargetRecord is the JSON form of a single result
type TargetRecord struct {
	Address   string  `json:"address"`
	Port      uint16  `json:"port"`
	Responded bool    `json:"responded"`
	ElapsedMs float64 `json:"elapsed_ms"`
	Attempts  int     `json:"attempts"`
	NodeID    string  `json:"node_id,omitempty"`
	PTR       string  `json:"ptr,omitempty"`
}

// RoundRecord is the JSON form of a round
type RoundRecord struct {
	Round      uint           `json:"round"`
	Started    time.Time      `json:"started"`
	Completed  time.Time      `json:"completed"`
	Targets    []TargetRecord `json:"targets"`
	Responsive []string       `json:"responsive"`
}

// Record converts a round into its JSON form
func (r *Round) Record() RoundRecord {
	rec := RoundRecord{
		Round:      r.Num,
		Started:    r.Started,
		Completed:  r.Completed,
		Targets:    make([]TargetRecord, 0, len(r.Results)),
		Responsive: []string{},
	}
	for _, res := range r.Results {
		rec.Targets = append(rec.Targets, TargetRecord{
			Address:   res.Target.Addr.String(),
			Port:      res.Target.Port,
			Responded: res.Outcome.Responded,
			ElapsedMs: res.Outcome.ElapsedMs(),
			Attempts:  res.Outcome.Attempts,
			NodeID:    res.Outcome.NodeID,
			PTR:       res.PTR,
		})
		if res.Outcome.Responded {
			rec.Responsive = append(rec.Responsive, res.Target.String())
		}
	}
	return rec
}
