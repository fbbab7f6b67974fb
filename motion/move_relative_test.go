package motion_test

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/test"

	"go.viam.com/swerve/motion"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
)

// scriptedDrive reports whatever pose the test sets and counts commands.
type scriptedDrive struct {
	resource *scheduler.Resource
	pose     spatialmath.Pose2D
	poseErr  error
	driveErr error
	drives   int
	stops    int
}

func newScriptedDrive() *scriptedDrive {
	return &scriptedDrive{resource: scheduler.NewResource("drivetrain")}
}

func (d *scriptedDrive) Pose(ctx context.Context) (spatialmath.Pose2D, error) {
	return d.pose, d.poseErr
}

func (d *scriptedDrive) DriveFieldRelative(ctx context.Context, vx, vy, omega float64) error {
	d.drives++
	return d.driveErr
}

func (d *scriptedDrive) Stop(ctx context.Context) error {
	d.stops++
	return nil
}

func (d *scriptedDrive) LogPose(ctx context.Context) {}

func (d *scriptedDrive) Resource() *scheduler.Resource {
	return d.resource
}

func TestFinishesOnlyWhenEveryAxisIsAtGoal(t *testing.T) {
	ctx := context.Background()
	drive := newScriptedDrive()
	move, err := motion.NewMoveRelative(drive, spatialmath.NewTransform2D(1, 1, math.Pi/2), pid, period, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, move.Requirements(), test.ShouldResemble, []*scheduler.Resource{drive.resource})
	test.That(t, move.InterruptionBehavior(), test.ShouldEqual, scheduler.CancelSelf)

	test.That(t, move.IsFinished(), test.ShouldBeFalse)
	move.End(ctx, true)
	test.That(t, drive.stops, test.ShouldEqual, 0)

	move.Activate(ctx)
	test.That(t, move.State(), test.ShouldEqual, motion.Tracking)
	goal := move.Goal()
	test.That(t, goal.X(), test.ShouldAlmostEqual, 1)
	test.That(t, goal.Y(), test.ShouldAlmostEqual, 1)
	test.That(t, goal.Heading, test.ShouldAlmostEqual, math.Pi/2)

	for _, tc := range []struct {
		name string
		pose spatialmath.Pose2D
	}{
		{"x only", spatialmath.NewPose2D(1, 0, 0)},
		{"y only", spatialmath.NewPose2D(0, 1, 0)},
		{"heading only", spatialmath.NewPose2D(0, 0, math.Pi/2)},
		{"x and y", spatialmath.NewPose2D(1, 1, 0)},
		{"x and heading", spatialmath.NewPose2D(1.04, 0.9, math.Pi/2)},
		{"y and heading", spatialmath.NewPose2D(0.9, 0.96, math.Pi/2+0.01)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			drive.pose = tc.pose
			move.Tick(ctx)
			test.That(t, move.IsFinished(), test.ShouldBeFalse)
		})
	}

	drive.pose = spatialmath.NewPose2D(1.04, 0.96, math.Pi/2-0.01)
	move.Tick(ctx)
	test.That(t, move.IsFinished(), test.ShouldBeTrue)
	test.That(t, drive.drives, test.ShouldEqual, 7)
	test.That(t, drive.stops, test.ShouldEqual, 0)

	move.End(ctx, false)
	test.That(t, move.State(), test.ShouldEqual, motion.Done)
	test.That(t, drive.stops, test.ShouldEqual, 1)
	move.End(ctx, false)
	test.That(t, drive.stops, test.ShouldEqual, 1)

	// a fresh activation stops again when it ends
	move.Activate(ctx)
	move.End(ctx, true)
	test.That(t, move.State(), test.ShouldEqual, motion.Interrupted)
	test.That(t, drive.stops, test.ShouldEqual, 2)
}

func TestGoalIsRelativeToActivationPose(t *testing.T) {
	ctx := context.Background()
	drive := newScriptedDrive()
	drive.pose = spatialmath.NewPose2D(2, -1, math.Pi)
	move, err := motion.NewMoveRelative(drive, spatialmath.NewTransform2D(1, 0.5, -math.Pi/2), pid, period, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	move.Activate(ctx)
	goal := move.Goal()
	test.That(t, goal.X(), test.ShouldAlmostEqual, 1)
	test.That(t, goal.Y(), test.ShouldAlmostEqual, -1.5)
	test.That(t, goal.Heading, test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, move.Transform(), test.ShouldResemble, spatialmath.NewTransform2D(1, 0.5, -math.Pi/2))

	// the heading error wraps instead of spanning the seam
	drive.pose = spatialmath.NewPose2D(1, -1.5, -math.Pi+0.1)
	move.Tick(ctx)
	_, _, heading := move.AxisErrors()
	test.That(t, heading, test.ShouldAlmostEqual, -math.Pi/2-0.1, 1e-9)
}

func TestDriveFailure(t *testing.T) {
	ctx := context.Background()
	drive := newScriptedDrive()
	move, err := motion.NewMoveRelative(drive, spatialmath.NewTransform2D(1, 0, 0), pid, period, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	move.Activate(ctx)
	drive.driveErr = errors.New("bus off")
	move.Tick(ctx)
	test.That(t, move.State(), test.ShouldEqual, motion.Failed)
	test.That(t, move.IsFinished(), test.ShouldBeTrue)
	test.That(t, move.Err().Error(), test.ShouldContainSubstring, "bus off")

	move.End(ctx, false)
	test.That(t, move.State(), test.ShouldEqual, motion.Failed)
	test.That(t, drive.stops, test.ShouldEqual, 1)
}

func TestStateString(t *testing.T) {
	for state, name := range map[motion.State]string{
		motion.Idle:         "idle",
		motion.Initializing: "initializing",
		motion.Tracking:     "tracking",
		motion.Done:         "done",
		motion.Interrupted:  "interrupted",
		motion.Failed:       "failed",
		motion.State(42):    "unknown",
	} {
		test.That(t, state.String(), test.ShouldEqual, name)
	}
}
