package output

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/tkjaer/bootprobe/internal/shared"
)

// JSONOutput writes one JSON object per completed round to a file or stdout
type JSONOutput struct {
	mu       sync.Mutex
	file     *os.File
	enc      *json.Encoder
	toStdout bool
}

func NewJSONOutput(filename string) (*JSONOutput, error) {
	if filename == "" {
		// Output to stdout
		return &JSONOutput{
			file:     os.Stdout,
			enc:      json.NewEncoder(os.Stdout),
			toStdout: true,
		}, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &JSONOutput{
		file:     f,
		enc:      json.NewEncoder(f),
		toStdout: false,
	}, nil
}

func (j *JSONOutput) StartRound(round uint, targets []shared.Target) {
	// No-op for JSON, only output on complete round
}

func (j *JSONOutput) CompleteRound(round *shared.Round) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.enc.Encode(round.Record()); err != nil {
		slog.Error("Failed to write JSON output", "error", err)
	}
}

func (j *JSONOutput) Close() error {
	if j.toStdout {
		return nil
	}
	return j.file.Close()
}
