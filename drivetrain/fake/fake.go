// Package fake implements a simulated swerve drivetrain that integrates the last command
// it was given.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/swerve/drivetrain"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/spatialmath"
)

// Command is one request the drivetrain received.
type Command struct {
	Frame      drivetrain.Frame
	Speeds     kinematics.ChassisSpeeds
	Desaturate bool
	Idle       bool
}

// Drivetrain is an ideal swerve drive: modules reach their commanded state instantly and
// the pose follows the resulting chassis motion exactly.
type Drivetrain struct {
	mu             sync.Mutex
	kinematics     *kinematics.SwerveKinematics
	maxModuleSpeed float64
	pose           spatialmath.Pose2D
	current        Command
	history        []Command
	poseErr        error
	StepCount      int
}

// NewDrivetrain returns a drivetrain at pose whose modules sit at moduleLocations and
// can each reach maxModuleSpeed.
func NewDrivetrain(maxModuleSpeed float64, pose spatialmath.Pose2D, moduleLocations ...r2.Point) (*Drivetrain, error) {
	if maxModuleSpeed <= 0 {
		return nil, errors.Errorf("max module speed must be positive, got %v", maxModuleSpeed)
	}
	k, err := kinematics.NewSwerveKinematics(moduleLocations...)
	if err != nil {
		return nil, err
	}
	return &Drivetrain{
		kinematics:     k,
		maxModuleSpeed: maxModuleSpeed,
		pose:           pose,
		current:        Command{Idle: true},
	}, nil
}

// Pose returns the simulated pose.
func (d *Drivetrain) Pose(ctx context.Context) (spatialmath.Pose2D, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.poseErr != nil {
		return spatialmath.Pose2D{}, d.poseErr
	}
	return d.pose, nil
}

// ApplyRobotRelative records a robot-relative command.
func (d *Drivetrain) ApplyRobotRelative(ctx context.Context, speeds kinematics.ChassisSpeeds, desaturate bool) error {
	d.apply(Command{Frame: drivetrain.RobotRelative, Speeds: speeds, Desaturate: desaturate})
	return nil
}

// ApplyFieldRelative records a field-relative command.
func (d *Drivetrain) ApplyFieldRelative(ctx context.Context, speeds kinematics.ChassisSpeeds, desaturate bool) error {
	d.apply(Command{Frame: drivetrain.FieldRelative, Speeds: speeds, Desaturate: desaturate})
	return nil
}

// ApplyIdle records an idle request.
func (d *Drivetrain) ApplyIdle(ctx context.Context) error {
	d.apply(Command{Idle: true})
	return nil
}

func (d *Drivetrain) apply(cmd Command) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = cmd
	d.history = append(d.history, cmd)
}

// Step advances the simulation by dt, holding the most recent command.
func (d *Drivetrain) Step(dt time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.StepCount++
	if d.current.Idle {
		return nil
	}
	actual, err := d.kinematics.ToChassisSpeeds(d.moduleStates())
	if err != nil {
		return err
	}

	seconds := dt.Seconds()
	d.pose = d.pose.Exp(spatialmath.Twist2D{
		DX:     actual.VX * seconds,
		DY:     actual.VY * seconds,
		DTheta: actual.Omega * seconds,
	})
	return nil
}

// SetPose teleports the robot.
func (d *Drivetrain) SetPose(pose spatialmath.Pose2D) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pose = pose
}

// SetPoseError makes Pose fail with err until it is cleared with nil.
func (d *Drivetrain) SetPoseError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poseErr = err
}

// LastCommand returns the most recent command.
func (d *Drivetrain) LastCommand() Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Commands returns every command received so far.
func (d *Drivetrain) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.history...)
}

// ModuleStates returns the module states the current command maps to.
func (d *Drivetrain) ModuleStates() []kinematics.ModuleState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current.Idle {
		return make([]kinematics.ModuleState, d.kinematics.NumModules())
	}
	return d.moduleStates()
}

func (d *Drivetrain) moduleStates() []kinematics.ModuleState {
	speeds := d.current.Speeds
	if d.current.Frame == drivetrain.FieldRelative {
		speeds = drivetrain.FromFieldRelative(speeds, d.pose.Heading)
	}
	states := d.kinematics.ToModuleStates(speeds)
	if d.current.Desaturate {
		states = kinematics.DesaturateWheelSpeeds(states, d.maxModuleSpeed)
	}
	return states
}
