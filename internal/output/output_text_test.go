package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tkjaer/bootprobe/internal/shared"
)

func Test_formatCell(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		width     int
		alignment cellAlignment
		want      string
	}{
		{"left pad", "abc", 6, alignLeft, "abc   "},
		{"right pad", "abc", 6, alignRight, "   abc"},
		{"exact width", "abcdef", 6, alignLeft, "abcdef"},
		{"overflow kept", "abcdefgh", 6, alignRight, "abcdefgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCell(tt.value, tt.width, tt.alignment); got != tt.want {
				t.Errorf("formatCell() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextOutput_StartRound(t *testing.T) {
	tests := []struct {
		name  string
		round uint
		want  string
	}{
		{"first round", 1, "Probing 2 DHT nodes\n"},
		{"later round", 4, "Probing 2 DHT nodes (round 4)\n"},
	}

	targets := []shared.Target{testTarget("192.0.2.1:6881"), testTarget("192.0.2.2:6881")}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTextOutput(&buf, false).StartRound(tt.round, targets)
			if buf.String() != tt.want {
				t.Errorf("StartRound() wrote %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTextOutput_CompleteRound(t *testing.T) {
	var buf bytes.Buffer
	NewTextOutput(&buf, false).CompleteRound(sampleRound())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"192.0.2.1:6881         responded       12.3 ms  router.example.com",
		"192.0.2.2:25401        no response   3000.0 ms",
		"",
		"Responsive nodes (1 of 2)",
		"  192.0.2.1:6881  router.example.com",
	}
	if len(lines) != len(want) {
		t.Fatalf("CompleteRound() wrote %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTextOutput_NoResponsive(t *testing.T) {
	var buf bytes.Buffer
	round := &shared.Round{
		Num: 1,
		Results: []shared.Result{
			{Target: testTarget("192.0.2.9:6881"), Outcome: shared.Outcome{Attempts: 2}},
		},
	}
	NewTextOutput(&buf, false).CompleteRound(round)

	out := buf.String()
	if !strings.Contains(out, "Responsive nodes (0 of 1)") {
		t.Errorf("missing summary header in %q", out)
	}
	if !strings.HasSuffix(out, "  (none)\n") {
		t.Errorf("output should end with the empty marker, got %q", out)
	}
}

func TestTextOutput_Styled(t *testing.T) {
	var buf bytes.Buffer
	o := NewTextOutput(&buf, true)
	o.CompleteRound(sampleRound())

	// Styling must not drop content
	for _, s := range []string{"192.0.2.1:6881", "responded", "no response", "router.example.com"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("styled output missing %q", s)
		}
	}
	if err := o.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
