package transform

import (
	"fmt"

	"github.com/matzehuels/covidchart/pkg/errors"
)

// AxisMode selects what the x axis measures.
type AxisMode string

const (
	// AxisCalendar plots x as UTC epoch milliseconds.
	AxisCalendar AxisMode = "calendar"
	// AxisRelative plots x as days since the country crossed the threshold.
	AxisRelative AxisMode = "relative"
)

// Scaling selects how y values are normalized.
type Scaling string

const (
	ScalingAbsolute  Scaling = "absolute"
	ScalingPerCapita Scaling = "per-capita"
	ScalingSamePeak  Scaling = "same-peak"
)

// DefaultThreshold is the number of active cases that starts day 1 on the
// relative axis.
const DefaultThreshold = 100.0

// PerCapitaBase is the population unit of per-capita scaling.
const PerCapitaBase = 1_000_000.0

// SamePeakHeight is the height every peak is scaled to in same-peak mode.
const SamePeakHeight = 100.0

// Options configures [Apply].
type Options struct {
	Axis      AxisMode `json:"axis"`
	Scaling   Scaling  `json:"scaling"`
	Threshold float64  `json:"threshold,omitempty"`
}

// SetDefaults fills empty fields.
func (o *Options) SetDefaults() {
	if o.Axis == "" {
		o.Axis = AxisCalendar
	}
	if o.Scaling == "" {
		o.Scaling = ScalingAbsolute
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
}

// Validate checks the enumerations.
func (o Options) Validate() error {
	switch o.Axis {
	case AxisCalendar, AxisRelative:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid axis: %q (must be one of: calendar, relative)", o.Axis)
	}
	if err := ValidateScaling(o.Scaling); err != nil {
		return err
	}
	if o.Threshold < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "threshold must not be negative: %v", o.Threshold)
	}
	return nil
}

// ValidateScaling checks a scaling name.
func ValidateScaling(s Scaling) error {
	switch s {
	case ScalingAbsolute, ScalingPerCapita, ScalingSamePeak:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "invalid scaling: %q (must be one of: absolute, per-capita, same-peak)", s)
}

// IsRelative reports whether the x axis counts days.
func (o Options) IsRelative() bool { return o.Axis == AxisRelative }

func (o Options) String() string {
	return fmt.Sprintf("axis=%s scaling=%s threshold=%v", o.Axis, o.Scaling, o.Threshold)
}
