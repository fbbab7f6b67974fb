// Package roller runs the intake roller: a motor that idles, spins forward to intake
// or in reverse to output, with an LED that shows which.
package roller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"

	"go.viam.com/swerve/config"
	"go.viam.com/swerve/scheduler"
)

// ResourceName names the roller resource tasks require.
const ResourceName = "roller"

// State is what the roller is doing.
type State int

const (
	// Idle runs the motor at idle speed with the LED off.
	Idle State = iota
	// Forward intakes.
	Forward
	// Reverse outputs.
	Reverse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// Budget is how long a state may last before the roller falls back to Idle. The zero
// value is untimed.
type Budget struct {
	d     time.Duration
	timed bool
}

// Untimed returns a budget that never runs out.
func Untimed() Budget {
	return Budget{}
}

// For returns a budget of d.
func For(d time.Duration) Budget {
	return Budget{d: d, timed: true}
}

// Duration returns the budget and whether there is one.
func (b Budget) Duration() (time.Duration, bool) {
	return b.d, b.timed
}

func (b Budget) String() string {
	if !b.timed {
		return "untimed"
	}
	return b.d.String()
}

// Actuator is the roller motor.
type Actuator interface {
	SetPower(ctx context.Context, powerPct float64) error
}

// Indicator is the roller LED strip.
type Indicator interface {
	SetColor(ctx context.Context, c colorful.Color) error
	Off(ctx context.Context) error
}

// Roller is the roller state machine. State changes take effect on the next Periodic
// call, which applies the motor speed and LED color for the current state every time.
type Roller struct {
	logger    logging.Logger
	clk       clock.Clock
	settings  config.Roller
	actuator  Actuator
	indicator Indicator
	resource  *scheduler.Resource

	mu     sync.Mutex
	state  State
	budget Budget
	since  time.Time
}

// New returns an idle roller. A nil clk uses the wall clock.
func New(settings config.Roller, actuator Actuator, indicator Indicator, clk clock.Clock, logger logging.Logger) (*Roller, error) {
	if actuator == nil {
		return nil, errors.New("roller needs an actuator")
	}
	if indicator == nil {
		return nil, errors.New("roller needs an indicator")
	}
	if err := settings.Validate("roller"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Roller{
		logger:    logger,
		clk:       clk,
		settings:  settings,
		actuator:  actuator,
		indicator: indicator,
		resource:  scheduler.NewResource(ResourceName),
		since:     clk.Now(),
	}, nil
}

// Resource returns the handle tasks must require to command the roller.
func (r *Roller) Resource() *scheduler.Resource {
	return r.resource
}

// Forward intakes, for at most budget.
func (r *Roller) Forward(budget Budget) {
	r.set(Forward, budget)
}

// Reverse outputs, for at most budget.
func (r *Roller) Reverse(budget Budget) {
	r.set(Reverse, budget)
}

// Idle stops intaking or outputting.
func (r *Roller) Idle() {
	r.set(Idle, Untimed())
}

func (r *Roller) set(state State, budget Budget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debugw("roller state", "from", r.state, "to", state, "budget", budget)
	r.state = state
	r.budget = budget
	r.since = r.clk.Now()
}

// State returns the current state.
func (r *Roller) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Periodic falls back to Idle once a budget has been exceeded, then drives the motor
// and LED for the current state.
func (r *Roller) Periodic(ctx context.Context) error {
	r.mu.Lock()
	if d, timed := r.budget.Duration(); timed && r.clk.Since(r.since) > d {
		r.logger.Debugw("roller budget spent", "state", r.state, "budget", r.budget)
		r.state = Idle
		r.budget = Untimed()
		r.since = r.clk.Now()
	}
	state := r.state
	r.mu.Unlock()

	switch state {
	case Forward:
		return multierr.Combine(
			r.actuator.SetPower(ctx, r.settings.IntakeSpeed),
			r.indicator.SetColor(ctx, r.settings.IntakeColor),
		)
	case Reverse:
		return multierr.Combine(
			r.actuator.SetPower(ctx, r.settings.OutputSpeed),
			r.indicator.SetColor(ctx, r.settings.OutputColor),
		)
	default:
		return multierr.Combine(
			r.actuator.SetPower(ctx, r.settings.IdleSpeed),
			r.indicator.Off(ctx),
		)
	}
}

// Close idles the motor and turns the LED off.
func (r *Roller) Close(ctx context.Context) error {
	r.Idle()
	return r.Periodic(ctx)
}

// ForwardTask returns a task that starts intaking.
func (r *Roller) ForwardTask(budget Budget) scheduler.Task {
	return scheduler.RunOnce(taskName("RollerForward", budget), func(context.Context) { r.Forward(budget) }, r.resource)
}

// ReverseTask returns a task that starts outputting.
func (r *Roller) ReverseTask(budget Budget) scheduler.Task {
	return scheduler.RunOnce(taskName("RollerReverse", budget), func(context.Context) { r.Reverse(budget) }, r.resource)
}

// IdleTask returns a task that idles the roller.
func (r *Roller) IdleTask() scheduler.Task {
	return scheduler.RunOnce("RollerIdle", func(context.Context) { r.Idle() }, r.resource)
}

func taskName(base string, budget Budget) string {
	if _, timed := budget.Duration(); !timed {
		return base
	}
	return fmt.Sprintf("%s(%v)", base, budget)
}
