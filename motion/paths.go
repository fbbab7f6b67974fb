package motion

import (
	"time"

	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
)

// Mover builds relative moves that share one drivetrain, one set of gains and one
// control period.
type Mover struct {
	drive  Drivetrain
	pid    config.PID
	period time.Duration
	logger logging.Logger
}

// NewMover returns a Mover, failing early if pid cannot build controllers.
func NewMover(drive Drivetrain, pid config.PID, period time.Duration, logger logging.Logger) (*Mover, error) {
	if _, err := NewMoveRelative(drive, spatialmath.Transform2D{}, pid, period, logger); err != nil {
		return nil, err
	}
	return &Mover{drive: drive, pid: pid, period: period, logger: logger}, nil
}

// MoveRelative returns a task that moves the robot by transform.
func (m *Mover) MoveRelative(transform spatialmath.Transform2D) (*MoveRelative, error) {
	return NewMoveRelative(m.drive, transform, m.pid, m.period, m.logger)
}

// LogPose returns a task that logs the drivetrain pose once.
func (m *Mover) LogPose() scheduler.Task {
	return scheduler.RunOnce("LogPose", m.drive.LogPose, m.drive.Resource())
}

func (m *Mover) moves(transforms ...spatialmath.Transform2D) ([]scheduler.Task, error) {
	steps := []scheduler.Task{m.LogPose()}
	for _, t := range transforms {
		move, err := m.MoveRelative(t)
		if err != nil {
			return nil, err
		}
		steps = append(steps, move, m.LogPose())
	}
	return steps, nil
}

// Square drives leg, turns by turn, and repeats until four legs are driven, logging the
// pose after every step. With a quarter turn the robot traces a closed square.
func (m *Mover) Square(leg, turn spatialmath.Transform2D) (*scheduler.SequenceTask, error) {
	steps, err := m.moves(leg, turn, leg, turn, leg, turn, leg)
	if err != nil {
		return nil, err
	}
	return scheduler.Sequence(steps...), nil
}

// Consolidated drives four legs that each translate and turn at the same time.
func (m *Mover) Consolidated(leg spatialmath.Transform2D) (*scheduler.SequenceTask, error) {
	steps, err := m.moves(leg, leg, leg, leg)
	if err != nil {
		return nil, err
	}
	return scheduler.Sequence(steps...), nil
}

// Shuttle drives distance forward and back again, forever.
func (m *Mover) Shuttle(distance float64) (*scheduler.RepeatTask, error) {
	there, err := m.MoveRelative(spatialmath.NewTransform2D(distance, 0, 0))
	if err != nil {
		return nil, err
	}
	back, err := m.MoveRelative(spatialmath.NewTransform2D(-distance, 0, 0))
	if err != nil {
		return nil, err
	}
	return scheduler.Repeatedly(scheduler.Sequence(there, back)), nil
}
