package config

import (
	"io"
	"math"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"go.viam.com/swerve/control"
	"go.viam.com/swerve/spatialmath"
)

const metersPerInch = 0.0254

var (
	defaultIntakeColor = colorful.Color{R: 0, G: 0, B: 1}
	defaultOutputColor = colorful.Color{R: 0, G: 1, B: 0}
)

// Read reads and validates a config from the properties file at filePath.
func Read(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "cannot read property file %q", filePath)
	}
	return fromViper(v)
}

// FromReader reads and validates a config from properties text.
func FromReader(r io.Reader) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, errors.Wrap(err, "cannot parse properties")
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	p := &properties{v: v}
	cfg := &Config{
		Period: p.seconds("robot.period.s"),
		Drivetrain: Drivetrain{
			DiscretizationDelta: p.seconds("drivetrain.discretization.delta.s"),
			MaxModuleSpeed:      p.float("drivetrain.constants.max.module.speed.mps"),
			Modules: Modules{
				FrontLeft:  p.location("front.left"),
				FrontRight: p.location("front.right"),
				BackLeft:   p.location("back.left"),
				BackRight:  p.location("back.right"),
			},
		},
		PID: PID{
			Translational: p.axis("translational"),
			Rotational:    p.axis("rotational"),
		},
		Roller: Roller{
			IntakeSpeed: p.float("roller.motor.intake.speed"),
			OutputSpeed: p.float("roller.motor.output.speed"),
			IdleSpeed:   p.float("roller.motor.idle.speed"),
			LEDPort:     p.int("roller.led.port"),
			IntakeColor: p.color("roller.led.intake.color", defaultIntakeColor),
			OutputColor: p.color("roller.led.output.color", defaultOutputColor),
		},
		Controllers: Controllers{
			RumbleIntensity:       p.float("controllers.rumble.intensity"),
			TranslationalDeadband: p.float("controllers.driver.translational.deadband"),
			RotationalDeadband:    p.float("controllers.driver.rotational.deadband"),
		},
		Simulation: Simulation{
			LoopHz: p.float("simulation.loop.update.hz"),
		},
	}
	cfg.Drivetrain.Envelope.MaxLinearSpeed = p.float("drivetrain.constants.max.linear.speed.mps")
	cfg.Drivetrain.Envelope.MaxAngularSpeed = spatialmath.DegToRad(p.float("drivetrain.constants.max.angular.speed.dps"))

	// rotational constraints are written in degrees
	rot := &cfg.PID.Rotational
	rot.Tolerance = spatialmath.DegToRad(rot.Tolerance)
	rot.Constraints.MaxVelocity = spatialmath.DegToRad(rot.Constraints.MaxVelocity)
	rot.Constraints.MaxAcceleration = spatialmath.DegToRad(rot.Constraints.MaxAcceleration)
	rot.Continuous = true

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// properties reads typed values out of viper, collecting every missing or malformed
// key instead of stopping at the first.
type properties struct {
	v   *viper.Viper
	err error
}

func (p *properties) raw(key string) (string, bool) {
	if !p.v.IsSet(key) {
		p.err = multierr.Append(p.err, errors.Errorf("property %q not found", key))
		return "", false
	}
	value := strings.TrimSpace(p.v.GetString(key))
	if value == "" {
		p.err = multierr.Append(p.err, errors.Errorf("property %q is empty", key))
		return "", false
	}
	return value, true
}

func (p *properties) float(key string) float64 {
	s, ok := p.raw(key)
	if !ok {
		return 0
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		p.err = multierr.Append(p.err, errors.Wrapf(err, "property %q", key))
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		p.err = multierr.Append(p.err, errors.Errorf("property %q must be a finite number, got %q", key, s))
		return 0
	}
	return f
}

func (p *properties) int(key string) int {
	s, ok := p.raw(key)
	if !ok {
		return 0
	}
	i, err := cast.ToIntE(s)
	if err != nil {
		p.err = multierr.Append(p.err, errors.Wrapf(err, "property %q", key))
	}
	return i
}

func (p *properties) seconds(key string) time.Duration {
	return time.Duration(math.Round(p.float(key) * float64(time.Second)))
}

func (p *properties) color(key string, def colorful.Color) colorful.Color {
	if !p.v.IsSet(key) {
		return def
	}
	c, err := colorful.Hex(p.v.GetString(key))
	if err != nil {
		p.err = multierr.Append(p.err, errors.Wrapf(err, "property %q", key))
		return def
	}
	return c
}

func (p *properties) location(module string) r2.Point {
	prefix := "drivetrain.modules." + module + ".location."
	return r2.Point{
		X: p.float(prefix+"x.inches") * metersPerInch,
		Y: p.float(prefix+"y.inches") * metersPerInch,
	}
}

func (p *properties) axis(kind string) control.AxisProfile {
	prefix := "pid." + kind + "."
	return control.AxisProfile{
		Gains: control.PIDGains{
			Kp: p.float(prefix + "kp"),
			Ki: p.float(prefix + "ki"),
			Kd: p.float(prefix + "kd"),
		},
		Constraints: control.Constraints{
			MaxVelocity:     p.float(prefix + "max.v"),
			MaxAcceleration: p.float(prefix + "max.a"),
		},
		Tolerance: p.float(prefix + "tolerance"),
	}
}
