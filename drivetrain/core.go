package drivetrain

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/kinematics"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
)

// ResourceName names the drivetrain resource tasks require.
const ResourceName = "drivetrain"

// Core owns the velocity envelope and forwards safe, discretized commands to a
// Provider. It holds no motion state of its own.
type Core struct {
	logger              logging.Logger
	provider            Provider
	envelope            Envelope
	discretizationDelta time.Duration
	resource            *scheduler.Resource
}

// NewCore returns a gate in front of provider.
func NewCore(
	provider Provider,
	envelope Envelope,
	discretizationDelta time.Duration,
	logger logging.Logger,
) (*Core, error) {
	if provider == nil {
		return nil, errors.New("drivetrain needs a provider")
	}
	if err := envelope.Validate("drivetrain.constants"); err != nil {
		return nil, err
	}
	if discretizationDelta <= 0 {
		return nil, errors.Errorf("discretization delta must be positive, got %v", discretizationDelta)
	}
	return &Core{
		logger:              logger,
		provider:            provider,
		envelope:            envelope,
		discretizationDelta: discretizationDelta,
		resource:            scheduler.NewResource(ResourceName),
	}, nil
}

// Resource returns the handle tasks must require to command the drivetrain.
func (c *Core) Resource() *scheduler.Resource {
	return c.resource
}

// Envelope returns the velocity limits.
func (c *Core) Envelope() Envelope {
	return c.envelope
}

// ClampLinear saturates v to the linear speed limit.
func (c *Core) ClampLinear(v float64) float64 {
	return clamp(v, -c.envelope.MaxLinearSpeed, c.envelope.MaxLinearSpeed)
}

// ClampAngular saturates omega to the angular speed limit.
func (c *Core) ClampAngular(omega float64) float64 {
	return clamp(omega, -c.envelope.MaxAngularSpeed, c.envelope.MaxAngularSpeed)
}

// DriveRobotRelative commands speeds along the robot's own axes.
func (c *Core) DriveRobotRelative(ctx context.Context, vx, vy, omega float64) error {
	return c.Drive(ctx, RobotRelative, kinematics.ChassisSpeeds{VX: vx, VY: vy, Omega: omega})
}

// DriveFieldRelative commands speeds along the field axes.
func (c *Core) DriveFieldRelative(ctx context.Context, vx, vy, omega float64) error {
	return c.Drive(ctx, FieldRelative, kinematics.ChassisSpeeds{VX: vx, VY: vy, Omega: omega})
}

// Drive clamps every component of speeds, discretizes them over one period and hands
// them to the provider in frame with desaturation requested.
func (c *Core) Drive(ctx context.Context, frame Frame, speeds kinematics.ChassisSpeeds) error {
	clamped := kinematics.ChassisSpeeds{
		VX:    c.ClampLinear(speeds.VX),
		VY:    c.ClampLinear(speeds.VY),
		Omega: c.ClampAngular(speeds.Omega),
	}
	target := Discretize(clamped, c.discretizationDelta)
	switch frame {
	case RobotRelative:
		return c.provider.ApplyRobotRelative(ctx, target, true)
	case FieldRelative:
		return c.provider.ApplyFieldRelative(ctx, target, true)
	default:
		return errors.Errorf("unknown frame %d", frame)
	}
}

// Stop commands zero robot-relative speed.
func (c *Core) Stop(ctx context.Context) error {
	return c.DriveRobotRelative(ctx, 0, 0, 0)
}

// Idle releases the modules.
func (c *Core) Idle(ctx context.Context) error {
	return c.provider.ApplyIdle(ctx)
}

// Pose returns the provider's pose estimate.
func (c *Core) Pose(ctx context.Context) (spatialmath.Pose2D, error) {
	return c.provider.Pose(ctx)
}

// LogPose logs the current pose estimate.
func (c *Core) LogPose(ctx context.Context) {
	pose, err := c.provider.Pose(ctx)
	if err != nil {
		c.logger.Warnw("cannot read pose", "error", err)
		return
	}
	c.logger.Infof("Drivetrain @ %v", pose)
}

func clamp(value, lower, upper float64) float64 {
	return math.Min(math.Max(lower, value), upper)
}
