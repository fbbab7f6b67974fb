package teleop_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/drivetrain"
	dtfake "go.viam.com/swerve/drivetrain/fake"
	"go.viam.com/swerve/roller"
	rollerfake "go.viam.com/swerve/roller/fake"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
	"go.viam.com/swerve/teleop"
)

var (
	envelope = drivetrain.Envelope{MaxLinearSpeed: 4, MaxAngularSpeed: 2 * math.Pi}
	settings = config.Controllers{
		RumbleIntensity:       0.5,
		TranslationalDeadband: 0.1,
		RotationalDeadband:    0.1,
	}
)

type gamepad struct {
	leftX, leftY, rightX float64
	leftBumper           bool
	rightBumper          bool
	rumble               float64
	rumbleErr            error
}

func (g *gamepad) LeftX() float64    { return g.leftX }
func (g *gamepad) LeftY() float64    { return g.leftY }
func (g *gamepad) RightX() float64   { return g.rightX }
func (g *gamepad) LeftBumper() bool  { return g.leftBumper }
func (g *gamepad) RightBumper() bool { return g.rightBumper }

func (g *gamepad) SetRumble(intensity float64) error {
	if g.rumbleErr != nil {
		return g.rumbleErr
	}
	g.rumble = intensity
	return nil
}

func TestSpeeds(t *testing.T) {
	for _, tc := range []struct {
		name     string
		pad      gamepad
		vx, vy   float64
		omega    float64
		moving   bool
		spinning bool
	}{
		{name: "at rest"},
		{name: "forward", pad: gamepad{leftY: -0.5}, vx: 2, moving: true},
		{name: "left", pad: gamepad{leftX: -1}, vy: 4, moving: true},
		{name: "tiny translation", pad: gamepad{leftX: -0.05, leftY: -0.05}},
		{name: "combined past deadband", pad: gamepad{leftX: 0.08, leftY: 0.08}, vx: -0.32, vy: -0.32, moving: true},
		{name: "tiny rotation", pad: gamepad{rightX: 0.05}},
		{name: "rotation", pad: gamepad{rightX: -0.5}, omega: math.Pi, spinning: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pad := tc.pad
			speeds := teleop.Speeds(&pad, envelope, settings)
			test.That(t, speeds.VX, test.ShouldAlmostEqual, tc.vx)
			test.That(t, speeds.VY, test.ShouldAlmostEqual, tc.vy)
			test.That(t, speeds.Omega, test.ShouldAlmostEqual, tc.omega)
			test.That(t, speeds.VX != 0 || speeds.VY != 0, test.ShouldEqual, tc.moving)
			test.That(t, speeds.Omega != 0, test.ShouldEqual, tc.spinning)
		})
	}
}

func TestDriveTaskAsDefault(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	sim, err := dtfake.NewDrivetrain(4.5, spatialmath.Pose2D{},
		r2.Point{X: 0.3, Y: 0.3}, r2.Point{X: 0.3, Y: -0.3},
		r2.Point{X: -0.3, Y: 0.3}, r2.Point{X: -0.3, Y: -0.3},
	)
	test.That(t, err, test.ShouldBeNil)
	core, err := drivetrain.NewCore(sim, envelope, 20*time.Millisecond, logger)
	test.That(t, err, test.ShouldBeNil)

	pad := &gamepad{leftY: -0.5}
	sched := scheduler.New(logger)
	drive := teleop.DriveTask(pad, core, settings, logger)
	test.That(t, drive.Name(), test.ShouldEqual, "DriveWithController")
	test.That(t, sched.SetDefaultTask(core.Resource(), drive), test.ShouldBeNil)

	sched.Run(ctx)
	test.That(t, sched.Owner(core.Resource()), test.ShouldEqual, drive)
	sched.Run(ctx)
	cmd := sim.LastCommand()
	test.That(t, cmd.Frame, test.ShouldEqual, drivetrain.FieldRelative)
	test.That(t, cmd.Speeds.VX, test.ShouldAlmostEqual, 2)

	// a one-shot task takes the drivetrain, then the sticks get it back
	stop := scheduler.RunOnce("Stop", func(ctx context.Context) {
		test.That(t, core.Stop(ctx), test.ShouldBeNil)
	}, core.Resource())
	test.That(t, sched.Schedule(ctx, stop), test.ShouldBeTrue)
	test.That(t, sim.LastCommand().Frame, test.ShouldEqual, drivetrain.RobotRelative)
	sched.Run(ctx)
	test.That(t, sched.Owner(core.Resource()), test.ShouldEqual, drive)
	pad.leftY = 0
	pad.rightX = 1
	sched.Run(ctx)
	test.That(t, sim.LastCommand().Speeds.Omega, test.ShouldAlmostEqual, -2*math.Pi)
}

func TestRumbleTask(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	pad := &gamepad{}
	sched := scheduler.New(logger)
	rumble := teleop.RumbleTask(pad, 0.7, logger)
	test.That(t, rumble.Requirements(), test.ShouldBeEmpty)

	test.That(t, sched.Schedule(ctx, rumble), test.ShouldBeTrue)
	sched.Run(ctx)
	test.That(t, pad.rumble, test.ShouldEqual, 0.7)
	sched.Cancel(ctx, rumble)
	test.That(t, pad.rumble, test.ShouldEqual, 0.0)

	// failures are logged, not fatal
	pad.rumbleErr = errors.New("unplugged")
	test.That(t, sched.Schedule(ctx, rumble), test.ShouldBeTrue)
	sched.Run(ctx)
	test.That(t, sched.IsScheduled(rumble), test.ShouldBeTrue)
}

func TestOperatorBindings(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	motor := &rollerfake.Motor{}
	r, err := roller.New(config.Roller{IntakeSpeed: 0.5, OutputSpeed: -0.5}, motor, &rollerfake.LED{}, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	operator, driver := &gamepad{}, &gamepad{}
	sched := scheduler.New(logger)
	bindings := teleop.NewOperator(sched, r, operator, driver, settings.RumbleIntensity, logger)
	sched.RegisterPeriodic(bindings.Poll)
	sched.RegisterPeriodic(func(ctx context.Context) {
		test.That(t, r.Periodic(ctx), test.ShouldBeNil)
	})

	sched.Run(ctx)
	test.That(t, r.State(), test.ShouldEqual, roller.Idle)

	operator.rightBumper = true
	sched.Run(ctx)
	test.That(t, r.State(), test.ShouldEqual, roller.Reverse)
	test.That(t, motor.PowerPct(), test.ShouldEqual, -0.5)
	test.That(t, driver.rumble, test.ShouldEqual, 0.5)
	sched.Run(ctx)
	test.That(t, driver.rumble, test.ShouldEqual, 0.5)

	operator.rightBumper = false
	sched.Run(ctx)
	test.That(t, driver.rumble, test.ShouldEqual, 0.0)
	test.That(t, r.State(), test.ShouldEqual, roller.Idle)

	operator.leftBumper = true
	sched.Run(ctx)
	test.That(t, r.State(), test.ShouldEqual, roller.Forward)
	operator.leftBumper = false
	sched.Run(ctx)
	test.That(t, r.State(), test.ShouldEqual, roller.Forward)
}
