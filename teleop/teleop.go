// Package teleop turns gamepad input into scheduler tasks: field-relative driving from
// the sticks, rumble feedback and roller bindings on the bumpers.
package teleop

import (
	"context"
	"math"

	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/drivetrain"
	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/scheduler"
)

// Controller is a gamepad. Stick axes are in [-1, 1] with up and left negative.
type Controller interface {
	LeftX() float64
	LeftY() float64
	RightX() float64
	LeftBumper() bool
	RightBumper() bool
	SetRumble(intensity float64) error
}

// Drivetrain is what driving from the sticks needs from the drivetrain gate.
type Drivetrain interface {
	Drive(ctx context.Context, frame drivetrain.Frame, speeds kinematics.ChassisSpeeds) error
	Envelope() drivetrain.Envelope
	Resource() *scheduler.Resource
}

// Speeds maps the sticks onto field-relative speeds scaled to envelope. Translation
// below the translational deadband, measured on the combined stick magnitude, and
// rotation below the rotational deadband are dropped. Deadbands are fractions of the
// envelope.
func Speeds(c Controller, envelope drivetrain.Envelope, settings config.Controllers) kinematics.ChassisSpeeds {
	speeds := kinematics.ChassisSpeeds{
		VX:    -c.LeftY() * envelope.MaxLinearSpeed,
		VY:    -c.LeftX() * envelope.MaxLinearSpeed,
		Omega: -c.RightX() * envelope.MaxAngularSpeed,
	}
	if math.Hypot(speeds.VX, speeds.VY) < settings.TranslationalDeadband*envelope.MaxLinearSpeed {
		speeds.VX, speeds.VY = 0, 0
	}
	if math.Abs(speeds.Omega) < settings.RotationalDeadband*envelope.MaxAngularSpeed {
		speeds.Omega = 0
	}
	return speeds
}

// DriveTask returns a task that drives from the sticks every tick. It never finishes,
// which makes it suitable as the drivetrain's default task.
func DriveTask(c Controller, drive Drivetrain, settings config.Controllers, logger logging.Logger) scheduler.Task {
	return scheduler.Run("DriveWithController", func(ctx context.Context) {
		speeds := Speeds(c, drive.Envelope(), settings)
		if err := drive.Drive(ctx, drivetrain.FieldRelative, speeds); err != nil {
			logger.Warnw("cannot drive from controller", "speeds", speeds, "error", err)
		}
	}, drive.Resource())
}

// RumbleTask returns a task that rumbles the controller at intensity until it is ended.
func RumbleTask(c Controller, intensity float64, logger logging.Logger) scheduler.Task {
	set := func(value float64) {
		if err := c.SetRumble(value); err != nil {
			logger.Warnw("cannot set rumble", "intensity", value, "error", err)
		}
	}
	return scheduler.RunEnd("Rumble",
		func(context.Context) { set(intensity) },
		func(context.Context) { set(0) },
	)
}
