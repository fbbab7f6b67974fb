// Package motion drives the robot through relative moves using three profiled PID
// controllers, one per axis of the field pose.
package motion

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/control"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
)

// State is where a MoveRelative is in its lifecycle.
type State int

// Done, Interrupted and Failed are terminal for an activation.
const (
	Idle State = iota
	Initializing
	Tracking
	Done
	Interrupted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Tracking:
		return "tracking"
	case Done:
		return "done"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Drivetrain is what a relative move needs from the drivetrain gate.
type Drivetrain interface {
	Pose(ctx context.Context) (spatialmath.Pose2D, error)
	DriveFieldRelative(ctx context.Context, vx, vy, omega float64) error
	Stop(ctx context.Context) error
	LogPose(ctx context.Context)
	Resource() *scheduler.Resource
}

// NewTranslationController returns a controller for the x or y axis.
func NewTranslationController(pid config.PID, period time.Duration) (*control.ProfiledPID, error) {
	return control.NewProfiledPID(pid.Translational, period)
}

// NewRotationController returns a controller for the heading axis, whose input wraps
// over (-π, π].
func NewRotationController(pid config.PID, period time.Duration) (*control.ProfiledPID, error) {
	axis := pid.Rotational
	axis.Continuous = true
	return control.NewProfiledPID(axis, period)
}

// MoveRelative is a task that moves the robot by a transform expressed in the robot's
// frame at the moment the task is activated. It finishes once x, y and heading are all
// within tolerance of the goal in the same tick.
type MoveRelative struct {
	logger    logging.Logger
	drive     Drivetrain
	transform spatialmath.Transform2D
	behavior  scheduler.InterruptionBehavior

	x       *control.ProfiledPID
	y       *control.ProfiledPID
	heading *control.ProfiledPID

	state    State
	err      error
	goal     spatialmath.Pose2D
	lastPose spatialmath.Pose2D
	atGoal   bool
	ended    bool
}

// NewMoveRelative returns a task that moves drive by transform.
func NewMoveRelative(
	drive Drivetrain,
	transform spatialmath.Transform2D,
	pid config.PID,
	period time.Duration,
	logger logging.Logger,
) (*MoveRelative, error) {
	x, err := NewTranslationController(pid, period)
	if err != nil {
		return nil, errors.Wrap(err, "x controller")
	}
	y, err := NewTranslationController(pid, period)
	if err != nil {
		return nil, errors.Wrap(err, "y controller")
	}
	heading, err := NewRotationController(pid, period)
	if err != nil {
		return nil, errors.Wrap(err, "heading controller")
	}
	return &MoveRelative{
		logger:    logger,
		drive:     drive,
		transform: transform,
		behavior:  scheduler.CancelSelf,
		x:         x,
		y:         y,
		heading:   heading,
	}, nil
}

// SetInterruptionBehavior changes how the move reacts to a competing task.
func (m *MoveRelative) SetInterruptionBehavior(b scheduler.InterruptionBehavior) {
	m.behavior = b
}

// Name describes the move.
func (m *MoveRelative) Name() string {
	return fmt.Sprintf("MoveRelative(%.3fm, %.3fm, %.2f deg)",
		m.transform.Translation.X, m.transform.Translation.Y, spatialmath.RadToDeg(m.transform.Rotation))
}

// Requirements is the drivetrain.
func (m *MoveRelative) Requirements() []*scheduler.Resource {
	return []*scheduler.Resource{m.drive.Resource()}
}

// InterruptionBehavior defaults to CancelSelf.
func (m *MoveRelative) InterruptionBehavior() scheduler.InterruptionBehavior {
	return m.behavior
}

// Activate composes the current pose with the transform and aims every axis at the
// result.
func (m *MoveRelative) Activate(ctx context.Context) {
	m.state = Initializing
	m.err = nil
	m.atGoal = false
	m.ended = false

	pose, err := m.drive.Pose(ctx)
	if err != nil {
		m.fail(err)
		return
	}
	m.lastPose = pose
	m.goal = pose.TransformBy(m.transform)

	m.x.Reset(pose.X())
	m.x.SetGoal(m.goal.X())
	m.y.Reset(pose.Y())
	m.y.SetGoal(m.goal.Y())
	m.heading.Reset(pose.Heading)
	m.heading.SetGoal(m.goal.Heading)

	m.logger.Debugw("move activated", "transform", m.transform, "from", pose, "goal", m.goal)
	m.state = Tracking
}

// Tick commands one period of field-relative motion toward the goal.
func (m *MoveRelative) Tick(ctx context.Context) {
	if m.state != Tracking {
		return
	}
	pose, err := m.drive.Pose(ctx)
	if err != nil {
		m.fail(err)
		return
	}
	m.lastPose = pose

	vx := m.x.Calculate(pose.X())
	vy := m.y.Calculate(pose.Y())
	omega := m.heading.Calculate(pose.Heading)
	if err := m.drive.DriveFieldRelative(ctx, vx, vy, omega); err != nil {
		m.fail(err)
		return
	}

	xDone := m.x.AtGoal(pose.X())
	yDone := m.y.AtGoal(pose.Y())
	headingDone := m.heading.AtGoal(pose.Heading)
	m.logger.Debugw("move goals", "x", xDone, "y", yDone, "rot", headingDone)
	m.atGoal = xDone && yDone && headingDone
}

// IsFinished reports whether every axis reached its goal on the last tick, or the move
// failed.
func (m *MoveRelative) IsFinished() bool {
	return m.state == Failed || (m.state == Tracking && m.atGoal)
}

// End stops the drivetrain and records how the move ended. Calls after the first for
// the same activation do nothing.
func (m *MoveRelative) End(ctx context.Context, interrupted bool) {
	if m.ended || m.state == Idle {
		return
	}
	m.ended = true
	if m.state != Failed {
		if interrupted {
			m.state = Interrupted
		} else {
			m.state = Done
		}
	}
	if err := m.drive.Stop(ctx); err != nil {
		m.logger.Errorw("cannot stop drivetrain", "error", err)
		if m.err == nil {
			m.err = errors.Wrap(err, "stop")
		}
	}
	m.logger.Debugw("move ended", "transform", m.transform, "state", m.state, "interrupted", interrupted)
}

func (m *MoveRelative) fail(err error) {
	m.logger.Errorw("move failed", "transform", m.transform, "error", err)
	m.state = Failed
	m.err = err
}

// State returns the lifecycle state.
func (m *MoveRelative) State() State {
	return m.state
}

// Err returns what made the move fail, if it did.
func (m *MoveRelative) Err() error {
	return m.err
}

// Goal returns the absolute pose the move is aiming for.
func (m *MoveRelative) Goal() spatialmath.Pose2D {
	return m.goal
}

// Transform returns the relative displacement.
func (m *MoveRelative) Transform() spatialmath.Transform2D {
	return m.transform
}

// AxisErrors returns the distance to goal on each axis as of the last pose read. The
// heading error is the shortest signed angle.
func (m *MoveRelative) AxisErrors() (x, y, heading float64) {
	return m.x.PositionError(m.lastPose.X()),
		m.y.PositionError(m.lastPose.Y()),
		m.heading.PositionError(m.lastPose.Heading)
}
