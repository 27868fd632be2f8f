package output

import (
	"errors"

	"github.com/tkjaer/bootprobe/internal/shared"
)

// Output interface for different output types
type Output interface {
	StartRound(round uint, targets []shared.Target)
	CompleteRound(round *shared.Round)
	Close() error
}

// OutputManager manages multiple outputs
type OutputManager struct {
	outputs []Output
}

func (om *OutputManager) Register(o Output) {
	om.outputs = append(om.outputs, o)
}

func (om *OutputManager) StartRound(round uint, targets []shared.Target) {
	for _, o := range om.outputs {
		o.StartRound(round, targets)
	}
}

func (om *OutputManager) CompleteRound(round *shared.Round) {
	for _, o := range om.outputs {
		o.CompleteRound(round)
	}
}

// Close closes every output and returns their joined errors
func (om *OutputManager) Close() error {
	var errs []error
	for _, o := range om.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
