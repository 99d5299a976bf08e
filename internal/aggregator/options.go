package aggregator

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/siglab-monitor/internal/instance"
)

var (
	// ErrConfiguration is wrapped by every cycle-fatal error.
	ErrConfiguration = errors.New("aggregator: configuration error")

	ErrNoInstances       = fmt.Errorf("%w: no instances configured", ErrConfiguration)
	ErrInvalidOptions    = fmt.Errorf("%w: invalid options", ErrConfiguration)
	ErrInvalidInstance   = fmt.Errorf("%w: invalid instance", ErrConfiguration)
	ErrDuplicateInstance = fmt.Errorf("%w: duplicate instance id", ErrInvalidInstance)
)

const defaultDownThreshold = 3

// Options are the timing and fan-out settings of a cycle.
type Options struct {
	ProbeTimeout  time.Duration
	SampleTimeout time.Duration
	// MaxConcurrency caps in-flight calls per fan-out; 0 means one per instance.
	MaxConcurrency int
	// DownThreshold is the number of consecutive failed cycles before an
	// instance is shown as DOWN rather than DEGRADED.
	DownThreshold int
}

func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.ProbeTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&o.SampleTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&o.MaxConcurrency, validation.Min(0)),
		validation.Field(&o.DownThreshold, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.DownThreshold == 0 {
		o.DownThreshold = defaultDownThreshold
	}
	return o
}

// validateInstances checks the instance set handed to a cycle.
func validateInstances(instances []instance.Instance) error {
	if len(instances) == 0 {
		return ErrNoInstances
	}

	seen := make(map[string]struct{}, len(instances))
	for _, inst := range instances {
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidInstance, inst.ID, err)
		}
		if _, dup := seen[inst.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.ID)
		}
		seen[inst.ID] = struct{}{}
	}

	return nil
}
