package config_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/swerve/config"
)

const testFile = "testdata/robot.properties"

func readWith(t *testing.T, old, replacement string) (*config.Config, error) {
	t.Helper()
	raw, err := os.ReadFile(testFile)
	test.That(t, err, test.ShouldBeNil)
	text := string(raw)
	test.That(t, text, test.ShouldContainSubstring, old)
	return config.FromReader(strings.NewReader(strings.Replace(text, old, replacement, 1)))
}

func TestRead(t *testing.T) {
	cfg, err := config.Read(testFile)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.Period, test.ShouldEqual, 20*time.Millisecond)

	dt := cfg.Drivetrain
	test.That(t, dt.DiscretizationDelta, test.ShouldEqual, 20*time.Millisecond)
	test.That(t, dt.Envelope.MaxLinearSpeed, test.ShouldEqual, 4.0)
	test.That(t, dt.Envelope.MaxAngularSpeed, test.ShouldAlmostEqual, 2*math.Pi)
	test.That(t, dt.MaxModuleSpeed, test.ShouldEqual, 4.5)
	test.That(t, dt.Modules.FrontLeft.X, test.ShouldAlmostEqual, 0.3048)
	test.That(t, dt.Modules.FrontLeft.Y, test.ShouldAlmostEqual, 0.3048)
	test.That(t, dt.Modules.FrontRight.Y, test.ShouldAlmostEqual, -0.3048)
	test.That(t, dt.Modules.BackLeft.X, test.ShouldAlmostEqual, -0.3048)
	test.That(t, dt.Modules.BackRight.X, test.ShouldAlmostEqual, -0.3048)
	test.That(t, dt.Modules.BackRight.Y, test.ShouldAlmostEqual, -0.3048)
	test.That(t, len(dt.Modules.Locations()), test.ShouldEqual, 4)

	trans := cfg.PID.Translational
	test.That(t, trans.Gains.Kp, test.ShouldEqual, 5.0)
	test.That(t, trans.Tolerance, test.ShouldEqual, 0.05)
	test.That(t, trans.Constraints.MaxVelocity, test.ShouldEqual, 2.0)
	test.That(t, trans.Continuous, test.ShouldBeFalse)

	rot := cfg.PID.Rotational
	test.That(t, rot.Gains.Kp, test.ShouldEqual, 5.0)
	test.That(t, rot.Tolerance, test.ShouldAlmostEqual, math.Pi/180)
	test.That(t, rot.Constraints.MaxVelocity, test.ShouldAlmostEqual, math.Pi)
	test.That(t, rot.Constraints.MaxAcceleration, test.ShouldAlmostEqual, 2*math.Pi)
	test.That(t, rot.Continuous, test.ShouldBeTrue)

	test.That(t, cfg.Roller.IntakeSpeed, test.ShouldEqual, 0.5)
	test.That(t, cfg.Roller.OutputSpeed, test.ShouldEqual, -0.5)
	test.That(t, cfg.Roller.IdleSpeed, test.ShouldEqual, 0.0)
	test.That(t, cfg.Roller.LEDPort, test.ShouldEqual, 0)
	test.That(t, cfg.Roller.IntakeColor, test.ShouldResemble, colorful.Color{R: 0, G: 0, B: 1})
	test.That(t, cfg.Roller.OutputColor, test.ShouldResemble, colorful.Color{R: 0, G: 1, B: 0})

	test.That(t, cfg.Controllers.RumbleIntensity, test.ShouldEqual, 0.5)
	test.That(t, cfg.Controllers.TranslationalDeadband, test.ShouldEqual, 0.1)
	test.That(t, cfg.Controllers.RotationalDeadband, test.ShouldEqual, 0.1)

	test.That(t, cfg.Simulation.LoopHz, test.ShouldEqual, 50.0)
	test.That(t, cfg.Simulation.Period(), test.ShouldEqual, 20*time.Millisecond)
}

func TestReadMissingFile(t *testing.T) {
	_, err := config.Read("testdata/nope.properties")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "nope.properties")
}

func TestReadReportsEveryMissingKey(t *testing.T) {
	_, err := config.FromReader(strings.NewReader("robot.period.s=0.02\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 32)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"pid.rotational.max.a" not found`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"drivetrain.modules.back.right.location.y.inches" not found`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"simulation.loop.update.hz" not found`)
	test.That(t, err.Error(), test.ShouldNotContainSubstring, "robot.period.s")
	test.That(t, err.Error(), test.ShouldNotContainSubstring, "color")
}

func TestReadInvalid(t *testing.T) {
	for _, tc := range []struct {
		name        string
		old         string
		replacement string
		expected    string
	}{
		{"malformed number", "pid.translational.kp=5", "pid.translational.kp=five", `"pid.translational.kp"`},
		{"malformed color", "roller.led.output.color=#00ff00", "roller.led.output.color=green", `"roller.led.output.color"`},
		{"led port", "roller.led.port=0", "roller.led.port=12", "LED port"},
		{"rumble", "controllers.rumble.intensity=0.5", "controllers.rumble.intensity=1.5", "rumble intensity"},
		{"deadband", "controllers.driver.rotational.deadband=0.1", "controllers.driver.rotational.deadband=1", "deadband"},
		{"negative gain", "pid.rotational.kd=0", "pid.rotational.kd=-1", "gains cannot be negative"},
		{"zero tolerance", "pid.translational.tolerance=0.05", "pid.translational.tolerance=0", "tolerance"},
		{"zero speed", "drivetrain.constants.max.linear.speed.mps=4", "drivetrain.constants.max.linear.speed.mps=0", "linear"},
		{"module speed", "drivetrain.constants.max.module.speed.mps=4.5", "drivetrain.constants.max.module.speed.mps=-1", "module speed"},
		{"shared location", "drivetrain.modules.front.right.location.y.inches=-12", "drivetrain.modules.front.right.location.y.inches=12", "share location"},
		{"zero period", "robot.period.s=0.02", "robot.period.s=0", "robot.period.s"},
		{"zero loop rate", "simulation.loop.update.hz=50", "simulation.loop.update.hz=0", "loop update rate"},
		{"NaN tolerance", "pid.translational.tolerance=0.05", "pid.translational.tolerance=NaN", "finite"},
		{"NaN max velocity", "pid.rotational.max.v=180", "pid.rotational.max.v=NaN", "finite"},
		{"infinite speed", "drivetrain.constants.max.linear.speed.mps=4", "drivetrain.constants.max.linear.speed.mps=+Inf", "finite"},
		{"NaN roller speed", "roller.motor.idle.speed=0", "roller.motor.idle.speed=NaN", "finite"},
		{"empty value", "pid.translational.kp=5", "pid.translational.kp=", `"pid.translational.kp" is empty`},
		{"malformed port", "roller.led.port=0", "roller.led.port=zero", `"roller.led.port"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := readWith(t, tc.old, tc.replacement)
			test.That(t, cfg, test.ShouldBeNil)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
}

func TestValidateRejectsNonFinite(t *testing.T) {
	for name, mutate := range map[string]func(c *config.Config){
		"tolerance":     func(c *config.Config) { c.PID.Translational.Tolerance = math.NaN() },
		"max velocity":  func(c *config.Config) { c.PID.Rotational.Constraints.MaxVelocity = math.NaN() },
		"module speed":  func(c *config.Config) { c.Drivetrain.MaxModuleSpeed = math.Inf(1) },
		"angular speed": func(c *config.Config) { c.Drivetrain.Envelope.MaxAngularSpeed = math.NaN() },
		"rumble":        func(c *config.Config) { c.Controllers.RumbleIntensity = math.NaN() },
		"deadband":      func(c *config.Config) { c.Controllers.TranslationalDeadband = math.NaN() },
		"intake speed":  func(c *config.Config) { c.Roller.IntakeSpeed = math.Inf(-1) },
		"loop rate":     func(c *config.Config) { c.Simulation.LoopHz = math.Inf(1) },
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Read(testFile)
			test.That(t, err, test.ShouldBeNil)
			mutate(cfg)
			test.That(t, cfg.Validate("robot"), test.ShouldNotBeNil)
		})
	}
}

func TestReadPropertiesExtensions(t *testing.T) {
	raw, err := os.ReadFile(testFile)
	test.That(t, err, test.ShouldBeNil)
	for _, ext := range []string{"props", "prop"} {
		path := filepath.Join(t.TempDir(), "robot."+ext)
		test.That(t, os.WriteFile(path, raw, 0o600), test.ShouldBeNil)
		cfg, err := config.Read(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.Period, test.ShouldEqual, 20*time.Millisecond)
	}
}

func TestReadConflictingKeys(t *testing.T) {
	_, err := config.FromReader(strings.NewReader("robot.period=1\nrobot.period.s=0.02\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"robot.period.s" is nested under a value`)

	_, err = config.FromReader(strings.NewReader("robot.period.s=0.02\nrobot.period=1\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"robot.period" is also a prefix`)
}

func TestReadIgnoresComments(t *testing.T) {
	raw, err := os.ReadFile(testFile)
	test.That(t, err, test.ShouldBeNil)
	cfg, err := config.FromReader(strings.NewReader("# robot\n! tuned on the practice field\n" + string(raw)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Roller.OutputColor, test.ShouldResemble, colorful.Color{R: 0, G: 1, B: 0})
}

func TestValidatePaths(t *testing.T) {
	cfg, err := config.Read(testFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Validate("robot"), test.ShouldBeNil)

	cfg.Roller.LEDPort = -1
	err = cfg.Validate("robot")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "robot.roller.led")
}
