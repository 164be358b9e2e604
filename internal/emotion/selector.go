package emotion

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every InvalidInputError.
var ErrInvalidInput = errors.New("invalid emotion distribution")

// InvalidInputError is returned when a distribution cannot produce a label.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidInput, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// OverrideThreshold is the probability a boosted label has to exceed.
const OverrideThreshold = 0.25

// Override promotes Label ahead of arg-max when its probability is strictly
// greater than Threshold.
type Override struct {
	Label     Label
	Threshold float64
}

// Policy selects one label from a distribution. Overrides are checked in
// order before falling back to the most likely label.
type Policy struct {
	Overrides []Override
}

// DefaultPolicy boosts fearful, then angry. Both are under-expressed by the
// expression model next to neutral and happy.
var DefaultPolicy = Policy{
	Overrides: []Override{
		{Label: Fearful, Threshold: OverrideThreshold},
		{Label: Angry, Threshold: OverrideThreshold},
	},
}

// Select picks a label from d using DefaultPolicy.
func Select(d Distribution) (Label, error) {
	return DefaultPolicy.Select(d)
}

// Select picks a label from d. An override only fires for a label present in
// d, so the result is always one of d's labels. Among the rest, the first
// label with the strictly greatest probability wins.
func (p Policy) Select(d Distribution) (Label, error) {
	if len(d) == 0 {
		return "", &InvalidInputError{Reason: "empty distribution"}
	}

	for _, o := range p.Overrides {
		if v, ok := d.Get(o.Label); ok && v > o.Threshold {
			return o.Label, nil
		}
	}

	top := d[0]
	for _, s := range d[1:] {
		if s.Probability > top.Probability {
			top = s
		}
	}
	return top.Label, nil
}
