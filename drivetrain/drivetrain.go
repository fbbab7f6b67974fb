// Package drivetrain is the single gate every velocity command passes through on its
// way to the swerve hardware. It clamps commands to the robot's envelope, discretizes
// them over one control period and dispatches them in the requested frame.
package drivetrain

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/spatialmath"
)

// Frame is the coordinate frame a velocity command is expressed in.
type Frame int

const (
	// RobotRelative speeds are along the robot's own forward and left axes.
	RobotRelative Frame = iota
	// FieldRelative speeds are along the fixed field axes, independent of heading.
	FieldRelative
)

func (f Frame) String() string {
	switch f {
	case RobotRelative:
		return "robot-relative"
	case FieldRelative:
		return "field-relative"
	default:
		return "unknown"
	}
}

// Envelope holds the physical velocity limits of the robot.
type Envelope struct {
	MaxLinearSpeed  float64 // m/s
	MaxAngularSpeed float64 // rad/s
}

// Validate ensures both limits are strictly positive and finite.
func (e Envelope) Validate(path string) error {
	if !(e.MaxLinearSpeed > 0) || math.IsInf(e.MaxLinearSpeed, 1) {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("max linear speed must be positive, got %v", e.MaxLinearSpeed))
	}
	if !(e.MaxAngularSpeed > 0) || math.IsInf(e.MaxAngularSpeed, 1) {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("max angular speed must be positive, got %v", e.MaxAngularSpeed))
	}
	return nil
}

// Provider estimates the robot pose and turns chassis speeds into module commands. It
// is the boundary to the drive hardware, real or simulated.
type Provider interface {
	// Pose returns the current field pose estimate.
	Pose(ctx context.Context) (spatialmath.Pose2D, error)
	// ApplyRobotRelative commands robot-relative speeds, scaling every module down
	// together when desaturate is set and one would exceed its maximum.
	ApplyRobotRelative(ctx context.Context, speeds kinematics.ChassisSpeeds, desaturate bool) error
	// ApplyFieldRelative is ApplyRobotRelative for field-relative speeds.
	ApplyFieldRelative(ctx context.Context, speeds kinematics.ChassisSpeeds, desaturate bool) error
	// ApplyIdle releases the modules without commanding any speed.
	ApplyIdle(ctx context.Context) error
}

// Discretize returns the speeds that, held for dt under the robot's own rotation, end at
// the pose a continuous-time controller would reach by applying speeds for dt.
func Discretize(speeds kinematics.ChassisSpeeds, dt time.Duration) kinematics.ChassisSpeeds {
	seconds := dt.Seconds()
	if seconds <= 0 {
		return speeds
	}
	desired := spatialmath.NewPose2D(speeds.VX*seconds, speeds.VY*seconds, speeds.Omega*seconds)
	twist := spatialmath.Pose2D{}.Log(desired)
	return kinematics.ChassisSpeeds{
		VX:    twist.DX / seconds,
		VY:    twist.DY / seconds,
		Omega: twist.DTheta / seconds,
	}
}

// FromFieldRelative converts field-relative speeds to robot-relative speeds for a robot
// with the given heading.
func FromFieldRelative(speeds kinematics.ChassisSpeeds, heading float64) kinematics.ChassisSpeeds {
	v := spatialmath.Rotate(r2.Point{X: speeds.VX, Y: speeds.VY}, -heading)
	return kinematics.ChassisSpeeds{VX: v.X, VY: v.Y, Omega: speeds.Omega}
}
