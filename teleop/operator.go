package teleop

import (
	"context"

	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/roller"
	"go.viam.com/swerve/scheduler"
)

// Operator binds the operator's bumpers to the roller. While the right bumper is held
// the roller outputs and the driver's controller rumbles; releasing it idles the
// roller. Holding the left bumper intakes.
type Operator struct {
	logger    logging.Logger
	sched     *scheduler.Scheduler
	operator  Controller
	output    scheduler.Task
	intake    scheduler.Task
	idle      scheduler.Task
	leftHeld  bool
	rightHeld bool
}

// NewOperator returns bindings for operator. The driver controller rumbles while the
// roller outputs.
func NewOperator(
	sched *scheduler.Scheduler,
	r *roller.Roller,
	operator, driver Controller,
	rumbleIntensity float64,
	logger logging.Logger,
) *Operator {
	return &Operator{
		logger:   logger,
		sched:    sched,
		operator: operator,
		output:   scheduler.Parallel(r.ReverseTask(roller.Untimed()), RumbleTask(driver, rumbleIntensity, logger)),
		intake:   r.ForwardTask(roller.Untimed()),
		idle:     r.IdleTask(),
	}
}

// Poll reads the bumpers and schedules or cancels tasks on press and release. Register
// it as a scheduler periodic hook.
func (o *Operator) Poll(ctx context.Context) {
	right := o.operator.RightBumper()
	switch {
	case right && !o.rightHeld:
		o.schedule(ctx, o.output)
	case !right && o.rightHeld:
		o.sched.Cancel(ctx, o.output)
		o.schedule(ctx, o.idle)
	}
	o.rightHeld = right

	left := o.operator.LeftBumper()
	switch {
	case left && !o.leftHeld:
		o.schedule(ctx, o.intake)
	case !left && o.leftHeld:
		o.sched.Cancel(ctx, o.intake)
	}
	o.leftHeld = left
}

func (o *Operator) schedule(ctx context.Context, task scheduler.Task) {
	if !o.sched.Schedule(ctx, task) {
		o.logger.Debugw("binding rejected", "task", task.Name())
	}
}
