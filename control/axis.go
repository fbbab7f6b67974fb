package control

import (
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// PIDGains are the proportional, integral and derivative gains of a controller.
type PIDGains struct {
	Kp float64
	Ki float64
	Kd float64
}

// AxisProfile fully describes a profiled PID controller for one axis of motion.
type AxisProfile struct {
	Gains       PIDGains
	Constraints Constraints
	Tolerance   float64
	// Continuous marks a heading axis whose input wraps over (-π, π].
	Continuous bool
}

// Validate ensures the axis is usable, reporting problems against path.
func (a AxisProfile) Validate(path string) error {
	if !nonNegative(a.Gains.Kp) || !nonNegative(a.Gains.Ki) || !nonNegative(a.Gains.Kd) {
		return goutils.NewConfigValidationError(path, errors.New("gains cannot be negative"))
	}
	if !positive(a.Tolerance) {
		return goutils.NewConfigValidationError(path, errors.Errorf("tolerance must be positive, got %v", a.Tolerance))
	}
	if err := a.Constraints.Validate(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// positive is false for NaN and infinities.
func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 1)
}
