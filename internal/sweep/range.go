package sweep

import (
	"fmt"
	"slices"
)

// ConfigError reports an unusable sweep definition
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid sweep: " + e.Reason
}

// Range is an inclusive span of gain values
type Range struct {
	Min uint8 `json:"min"`
	Max uint8 `json:"max"`
}

// NewRange validates min <= max
func NewRange(min, max uint8) (Range, error) {
	if min > max {
		return Range{}, &ConfigError{Reason: fmt.Sprintf("range %d..%d is empty", min, max)}
	}
	return Range{Min: min, Max: max}, nil
}

// RangeFromValues spans the smallest to the largest supplied value.
// Every integer in between is swept, whether or not it was supplied.
func RangeFromValues(values []uint8) (Range, error) {
	if len(values) == 0 {
		return Range{}, &ConfigError{Reason: "no gain values supplied"}
	}
	return Range{Min: slices.Min(values), Max: slices.Max(values)}, nil
}

// Len returns the number of values in the range
func (r Range) Len() int {
	if r.Min > r.Max {
		return 0
	}
	return int(r.Max) - int(r.Min) + 1
}

// Values lists the range in ascending order
func (r Range) Values() []uint8 {
	values := make([]uint8, 0, r.Len())
	for v := int(r.Min); v <= int(r.Max); v++ {
		values = append(values, uint8(v))
	}
	return values
}

func (r Range) String() string {
	return fmt.Sprintf("%d..%d", r.Min, r.Max)
}
