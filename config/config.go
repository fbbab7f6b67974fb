// Package config defines the robot's configuration and reads it from a flat properties
// file. A Config is a snapshot: it is read once at startup and never reloaded.
package config

import (
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/swerve/control"
	"go.viam.com/swerve/drivetrain"
)

// Config describes a whole robot.
type Config struct {
	// Period is how often the robot ticks.
	Period      time.Duration
	Drivetrain  Drivetrain
	PID         PID
	Roller      Roller
	Controllers Controllers
	Simulation  Simulation
}

// Drivetrain describes the swerve drive.
type Drivetrain struct {
	DiscretizationDelta time.Duration
	Envelope            drivetrain.Envelope
	// MaxModuleSpeed is the fastest any single wheel may turn, in m/s.
	MaxModuleSpeed float64
	Modules        Modules
}

// Modules holds the position of each swerve module relative to the robot center, in
// meters, with x forward and y left.
type Modules struct {
	FrontLeft  r2.Point
	FrontRight r2.Point
	BackLeft   r2.Point
	BackRight  r2.Point
}

// Locations returns the module positions in front-left, front-right, back-left,
// back-right order.
func (m Modules) Locations() []r2.Point {
	return []r2.Point{m.FrontLeft, m.FrontRight, m.BackLeft, m.BackRight}
}

// PID holds the translational (x and y) and rotational (heading) controller settings.
// Rotational values are in radians.
type PID struct {
	Translational control.AxisProfile
	Rotational    control.AxisProfile
}

// Roller describes the roller mechanism.
type Roller struct {
	IntakeSpeed float64
	OutputSpeed float64
	IdleSpeed   float64
	LEDPort     int
	IntakeColor colorful.Color
	OutputColor colorful.Color
}

// Controllers describes the driver's gamepad handling.
type Controllers struct {
	RumbleIntensity       float64
	TranslationalDeadband float64
	RotationalDeadband    float64
}

// Simulation describes the simulated hardware.
type Simulation struct {
	LoopHz float64
}

// Period returns how often the simulation steps.
func (s Simulation) Period() time.Duration {
	return time.Duration(float64(time.Second) / s.LoopHz)
}

// Validate ensures every value is in range.
func (c *Config) Validate(path string) error {
	if c.Period <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "robot.period.s")
	}
	if err := c.Drivetrain.Validate(join(path, "drivetrain")); err != nil {
		return err
	}
	if err := c.PID.Validate(join(path, "pid")); err != nil {
		return err
	}
	if err := c.Roller.Validate(join(path, "roller")); err != nil {
		return err
	}
	if err := c.Controllers.Validate(join(path, "controllers")); err != nil {
		return err
	}
	return c.Simulation.Validate(join(path, "simulation"))
}

// Validate ensures the drivetrain is physically sensible.
func (d Drivetrain) Validate(path string) error {
	if d.DiscretizationDelta <= 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "discretization.delta.s")
	}
	if err := d.Envelope.Validate(join(path, "constants")); err != nil {
		return err
	}
	if !(d.MaxModuleSpeed > 0) || math.IsInf(d.MaxModuleSpeed, 1) {
		return goutils.NewConfigValidationError(join(path, "constants"),
			errors.Errorf("max module speed must be positive, got %v", d.MaxModuleSpeed))
	}
	seen := map[r2.Point]bool{}
	for _, loc := range d.Modules.Locations() {
		if seen[loc] {
			return goutils.NewConfigValidationError(join(path, "modules"),
				errors.Errorf("two modules share location %v", loc))
		}
		seen[loc] = true
	}
	return nil
}

// Validate ensures both axes are usable.
func (p PID) Validate(path string) error {
	if err := p.Translational.Validate(join(path, "translational")); err != nil {
		return err
	}
	return p.Rotational.Validate(join(path, "rotational"))
}

// Validate ensures the LED sits on a PWM port and every speed is a real number.
func (r Roller) Validate(path string) error {
	for _, speed := range []float64{r.IntakeSpeed, r.OutputSpeed, r.IdleSpeed} {
		if math.IsNaN(speed) || math.IsInf(speed, 0) {
			return goutils.NewConfigValidationError(join(path, "motor"),
				errors.Errorf("roller speeds must be finite, got %v", speed))
		}
	}
	if r.LEDPort < 0 || r.LEDPort > 9 {
		return goutils.NewConfigValidationError(join(path, "led"),
			errors.Errorf("LED port must be a PWM port between 0 and 9, got %d", r.LEDPort))
	}
	return nil
}

// Validate ensures intensity and deadbands are fractions.
func (c Controllers) Validate(path string) error {
	if !(c.RumbleIntensity >= 0 && c.RumbleIntensity <= 1) {
		return goutils.NewConfigValidationError(join(path, "rumble"),
			errors.Errorf("rumble intensity must be between 0 and 1, got %v", c.RumbleIntensity))
	}
	for _, band := range []float64{c.TranslationalDeadband, c.RotationalDeadband} {
		if !(band >= 0 && band < 1) {
			return goutils.NewConfigValidationError(join(path, "driver"),
				errors.Errorf("deadband must be in [0, 1), got %v", band))
		}
	}
	return nil
}

// Validate ensures the simulation loop runs.
func (s Simulation) Validate(path string) error {
	if !(s.LoopHz > 0) || math.IsInf(s.LoopHz, 1) {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("loop update rate must be positive, got %v", s.LoopHz))
	}
	return nil
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
