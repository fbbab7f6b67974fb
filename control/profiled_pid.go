package control

import (
	"math"
	"time"

	"go.viam.com/swerve/spatialmath"
)

// ProfiledPID is a PID controller whose setpoint follows a trapezoid profile toward the
// goal instead of jumping to it.
type ProfiledPID struct {
	pid       *PID
	profile   TrapezoidProfile
	tolerance float64

	goal     State
	setpoint State
}

// NewProfiledPID builds a controller for one axis. Heading axes wrap over (-π, π].
func NewProfiledPID(axis AxisProfile, period time.Duration) (*ProfiledPID, error) {
	if err := axis.Validate("axis"); err != nil {
		return nil, err
	}
	pid, err := NewPID(axis.Gains, period)
	if err != nil {
		return nil, err
	}
	if axis.Continuous {
		pid.EnableContinuousInput(-math.Pi, math.Pi)
	}
	return &ProfiledPID{
		pid:       pid,
		profile:   NewTrapezoidProfile(axis.Constraints),
		tolerance: axis.Tolerance,
	}, nil
}

// EnableContinuousInput makes the controller treat minimum and maximum as the same point.
func (c *ProfiledPID) EnableContinuousInput(minimum, maximum float64) {
	c.pid.EnableContinuousInput(minimum, maximum)
}

// SetGoal sets a goal position at rest.
func (c *ProfiledPID) SetGoal(position float64) {
	c.goal = State{Position: position}
}

// Goal returns the current goal.
func (c *ProfiledPID) Goal() State {
	return c.goal
}

// Setpoint returns the latest intermediate profile state.
func (c *ProfiledPID) Setpoint() State {
	return c.setpoint
}

// Tolerance returns the position tolerance used by AtGoal.
func (c *ProfiledPID) Tolerance() float64 {
	return c.tolerance
}

// Reset clears the PID history and restarts the profile from measurement at rest.
func (c *ProfiledPID) Reset(measurement float64) {
	c.pid.Reset()
	c.setpoint = State{Position: measurement}
}

// Calculate advances the profile by one period and returns the control output for
// measurement.
func (c *ProfiledPID) Calculate(measurement float64) float64 {
	if c.pid.IsContinuousInputEnabled() {
		// Keep goal and setpoint within half a turn of the measurement so the profile
		// takes the short way around.
		bound := (c.pid.maxInput - c.pid.minInput) / 2
		goalMin := c.goal.Position - measurement
		setpointMin := c.setpoint.Position - measurement
		c.goal.Position = spatialmath.InputModulus(goalMin, -bound, bound) + measurement
		c.setpoint.Position = spatialmath.InputModulus(setpointMin, -bound, bound) + measurement
	}
	c.setpoint = c.profile.Calculate(c.pid.Period().Seconds(), c.setpoint, c.goal)
	return c.pid.Calculate(measurement, c.setpoint.Position)
}

// PositionError returns the distance from measurement to the goal, wrapped for heading
// axes.
func (c *ProfiledPID) PositionError(measurement float64) float64 {
	return c.pid.Error(measurement, c.goal.Position)
}

// AtGoal reports whether measurement is within tolerance of the goal.
func (c *ProfiledPID) AtGoal(measurement float64) bool {
	return math.Abs(c.PositionError(measurement)) <= c.tolerance
}
