// Package robot wires the drivetrain, roller, motion and teleop packages into one robot
// driven by a fixed-period loop. Everything the robot owns is reachable from a Robot
// value; there is no global state.
package robot

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/control"
	"go.viam.com/swerve/drivetrain"
	"go.viam.com/swerve/motion"
	"go.viam.com/swerve/roller"
	"go.viam.com/swerve/scheduler"
	"go.viam.com/swerve/spatialmath"
	"go.viam.com/swerve/teleop"
)

// Simulator is hardware that only moves when time is advanced explicitly.
type Simulator interface {
	Step(dt time.Duration) error
}

// Hardware is everything the robot commands. Driver, Operator, Simulator and Clock are
// optional.
type Hardware struct {
	Drivetrain  drivetrain.Provider
	RollerMotor roller.Actuator
	RollerLED   roller.Indicator
	// Driver, when set, drives the robot whenever no other task owns the drivetrain.
	Driver teleop.Controller
	// Operator, when set along with Driver, runs the roller from the bumpers.
	Operator  teleop.Controller
	Simulator Simulator
	Clock     clock.Clock
}

// Robot is a configured robot.
type Robot struct {
	logger logging.Logger
	cfg    *config.Config
	clk    clock.Clock
	sim    Simulator

	drive  *drivetrain.Core
	roller *roller.Roller
	mover  *motion.Mover

	mu    sync.Mutex
	sched *scheduler.Scheduler
	loop  *control.Loop
}

// New builds a robot from cfg on top of hw.
func New(cfg *config.Config, hw Hardware, logger logging.Logger) (*Robot, error) {
	if cfg == nil {
		return nil, errors.New("robot needs a config")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	clk := hw.Clock
	if clk == nil {
		clk = clock.New()
	}

	drive, err := drivetrain.NewCore(hw.Drivetrain, cfg.Drivetrain.Envelope, cfg.Drivetrain.DiscretizationDelta, logger)
	if err != nil {
		return nil, errors.Wrap(err, "drivetrain")
	}
	rol, err := roller.New(cfg.Roller, hw.RollerMotor, hw.RollerLED, clk, logger)
	if err != nil {
		return nil, errors.Wrap(err, "roller")
	}
	mover, err := motion.NewMover(drive, cfg.PID, cfg.Period, logger)
	if err != nil {
		return nil, errors.Wrap(err, "motion")
	}

	r := &Robot{
		logger: logger,
		cfg:    cfg,
		clk:    clk,
		sim:    hw.Simulator,
		drive:  drive,
		roller: rol,
		mover:  mover,
		sched:  scheduler.New(logger),
	}

	if hw.Driver != nil {
		if err := r.sched.SetDefaultTask(drive.Resource(), teleop.DriveTask(hw.Driver, drive, cfg.Controllers, logger)); err != nil {
			return nil, err
		}
		if hw.Operator != nil {
			op := teleop.NewOperator(r.sched, rol, hw.Operator, hw.Driver, cfg.Controllers.RumbleIntensity, logger)
			r.sched.RegisterPeriodic(op.Poll)
		}
	}
	r.sched.RegisterPeriodic(func(ctx context.Context) {
		if err := rol.Periodic(ctx); err != nil {
			logger.Warnw("roller update failed", "error", err)
		}
	})
	return r, nil
}

// Config returns the configuration the robot was built from.
func (r *Robot) Config() *config.Config {
	return r.cfg
}

// Drivetrain returns the drivetrain gate.
func (r *Robot) Drivetrain() *drivetrain.Core {
	return r.drive
}

// Roller returns the roller.
func (r *Robot) Roller() *roller.Roller {
	return r.roller
}

// Mover returns the factory for relative moves.
func (r *Robot) Mover() *motion.Mover {
	return r.mover
}

// Scheduler returns the task scheduler. It is not safe to use directly while the loop
// is running; use Schedule and Cancel instead.
func (r *Robot) Scheduler() *scheduler.Scheduler {
	return r.sched
}

// MoveRelative returns a task that moves the robot by transform, relative to wherever
// it is when the task starts.
func (r *Robot) MoveRelative(transform spatialmath.Transform2D) (*motion.MoveRelative, error) {
	return r.mover.MoveRelative(transform)
}

// Schedule schedules task, reporting whether it was accepted.
func (r *Robot) Schedule(ctx context.Context, task scheduler.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sched.Schedule(ctx, task)
}

// Cancel interrupts task if it is scheduled.
func (r *Robot) Cancel(ctx context.Context, task scheduler.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sched.Cancel(ctx, task)
}

// IsScheduled reports whether task is scheduled.
func (r *Robot) IsScheduled(task scheduler.Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sched.IsScheduled(task)
}

// Tick runs one control period, then advances simulated hardware by the same amount.
func (r *Robot) Tick(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sched.Run(ctx)
	if r.sim == nil {
		return nil
	}
	step := r.cfg.Simulation.Period()
	for elapsed := time.Duration(0); elapsed < r.cfg.Period; elapsed += step {
		if err := r.sim.Step(min(step, r.cfg.Period-elapsed)); err != nil {
			return errors.Wrap(err, "simulation")
		}
	}
	return nil
}

// Start ticks the robot every configured period until ctx is done or Close is called.
func (r *Robot) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.loop == nil {
		loop, err := control.NewLoop(r.logger, r.cfg.Period, r.clk, func(ctx context.Context) {
			if err := r.Tick(ctx); err != nil {
				r.logger.Errorw("tick failed", "error", err)
			}
		})
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.loop = loop
	}
	loop := r.loop
	r.mu.Unlock()
	return loop.Start(ctx)
}

// Close stops the loop, interrupts every task and leaves the hardware stopped and idle.
func (r *Robot) Close(ctx context.Context) error {
	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop != nil {
		loop.Stop()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sched.CancelAll(ctx)
	return multierr.Combine(
		r.drive.Stop(ctx),
		r.roller.Close(ctx),
		r.drive.Idle(ctx),
	)
}
