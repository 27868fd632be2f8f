package shared

import (
	"net/netip"
	"testing"
	"time"
)

func TestNewTarget_Unmaps4in6(t *testing.T) {
	ap := netip.MustParseAddrPort("[::ffff:192.0.2.1]:6881")
	target := NewTarget(ap)

	if !target.Addr.Is4() {
		t.Fatalf("NewTarget() addr = %v, want IPv4", target.Addr)
	}
	if got := target.String(); got != "192.0.2.1:6881" {
		t.Errorf("String() = %q, want %q", got, "192.0.2.1:6881")
	}
}

func TestOutcome_ElapsedMs(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"zero", 0, 0},
		{"1ms", time.Millisecond, 1},
		{"1.5s", 1500 * time.Millisecond, 1500},
		{"sub-ms", 250 * time.Microsecond, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Outcome{Elapsed: tt.elapsed}
			if got := o.ElapsedMs(); got != tt.want {
				t.Errorf("ElapsedMs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRound_Responsive(t *testing.T) {
	a := Target{Addr: netip.MustParseAddr("192.0.2.1"), Port: 6881}
	b := Target{Addr: netip.MustParseAddr("192.0.2.2"), Port: 6881}
	c := Target{Addr: netip.MustParseAddr("192.0.2.3"), Port: 25401}

	r := &Round{Results: []Result{
		{Target: a, Outcome: Outcome{Responded: true}},
		{Target: b, Outcome: Outcome{Responded: false}},
		{Target: c, Outcome: Outcome{Responded: true}},
	}}

	got := r.Responsive()
	if len(got) != 2 {
		t.Fatalf("Responsive() returned %d results, want 2", len(got))
	}
	if got[0].Target != a || got[1].Target != c {
		t.Errorf("Responsive() order = [%v %v], want [%v %v]", got[0].Target, got[1].Target, a, c)
	}
}

func TestRound_Record(t *testing.T) {
	a := Target{Addr: netip.MustParseAddr("192.0.2.1"), Port: 6881}
	b := Target{Addr: netip.MustParseAddr("192.0.2.2"), Port: 6881}

	r := &Round{
		Num: 3,
		Results: []Result{
			{Target: a, Outcome: Outcome{Responded: true, Elapsed: 12 * time.Millisecond, Attempts: 1, NodeID: "abcd"}, PTR: "router.example.com"},
			{Target: b, Outcome: Outcome{Responded: false, Elapsed: 3 * time.Second, Attempts: 2}},
		},
	}

	rec := r.Record()
	if rec.Round != 3 {
		t.Errorf("Round = %d, want 3", rec.Round)
	}
	if len(rec.Targets) != 2 {
		t.Fatalf("Targets length = %d, want 2", len(rec.Targets))
	}
	if rec.Targets[0].Address != "192.0.2.1" || rec.Targets[0].ElapsedMs != 12 || rec.Targets[0].PTR != "router.example.com" {
		t.Errorf("Targets[0] = %+v", rec.Targets[0])
	}
	if rec.Targets[1].Responded || rec.Targets[1].Attempts != 2 {
		t.Errorf("Targets[1] = %+v", rec.Targets[1])
	}
	if len(rec.Responsive) != 1 || rec.Responsive[0] != "192.0.2.1:6881" {
		t.Errorf("Responsive = %v, want [192.0.2.1:6881]", rec.Responsive)
	}
}

func TestRound_RecordEmpty(t *testing.T) {
	rec := (&Round{}).Record()
	if rec.Responsive == nil {
		t.Error("Responsive should be an empty slice, not nil")
	}
	if len(rec.Targets) != 0 {
		t.Errorf("Targets length = %d, want 0", len(rec.Targets))
	}
}
