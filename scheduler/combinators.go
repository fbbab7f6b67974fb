package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// group holds the children of a composite task. The children are driven by the
// composite and are never scheduled on their own.
type group struct {
	name         string
	children     []Task
	requirements []*Resource
	behavior     InterruptionBehavior
}

func newGroup(kind string, children []Task) group {
	g := group{children: children, behavior: CancelIncoming}
	names := make([]string, 0, len(children))
	seen := map[*Resource]struct{}{}
	for _, c := range children {
		names = append(names, c.Name())
		for _, r := range c.Requirements() {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			g.requirements = append(g.requirements, r)
		}
		// a group can only refuse interruption if every child does
		if c.InterruptionBehavior() == CancelSelf {
			g.behavior = CancelSelf
		}
	}
	g.name = fmt.Sprintf("%s(%s)", kind, strings.Join(names, ", "))
	return g
}

func (g *group) Name() string                               { return g.name }
func (g *group) Requirements() []*Resource                  { return g.requirements }
func (g *group) InterruptionBehavior() InterruptionBehavior { return g.behavior }

// SequenceTask runs its children one after another.
type SequenceTask struct {
	group
	index int
}

// Sequence returns a task that runs tasks in order, activating each one on the tick its
// predecessor finishes.
func Sequence(tasks ...Task) *SequenceTask {
	return &SequenceTask{group: newGroup("Sequence", tasks)}
}

// Activate starts the first child.
func (s *SequenceTask) Activate(ctx context.Context) {
	s.index = 0
	if len(s.children) > 0 {
		s.children[0].Activate(ctx)
	}
}

// Tick advances the current child, moving to the next one when it finishes.
func (s *SequenceTask) Tick(ctx context.Context) {
	if s.index >= len(s.children) {
		return
	}
	current := s.children[s.index]
	current.Tick(ctx)
	if !current.IsFinished() {
		return
	}
	current.End(ctx, false)
	s.index++
	if s.index < len(s.children) {
		s.children[s.index].Activate(ctx)
	}
}

// IsFinished reports whether every child has finished.
func (s *SequenceTask) IsFinished() bool {
	return s.index >= len(s.children)
}

// End interrupts the running child, if any.
func (s *SequenceTask) End(ctx context.Context, interrupted bool) {
	if interrupted && s.index < len(s.children) {
		s.children[s.index].End(ctx, true)
	}
	s.index = len(s.children)
}

// Current returns the index of the running child.
func (s *SequenceTask) Current() int {
	return s.index
}

// ParallelTask runs its children together until all have finished.
type ParallelTask struct {
	group
	running []bool
}

// Parallel returns a task that runs tasks at the same time and finishes when all of
// them have. Children must not share resources.
func Parallel(tasks ...Task) *ParallelTask {
	return &ParallelTask{group: newGroup("Parallel", tasks)}
}

// Activate starts every child.
func (p *ParallelTask) Activate(ctx context.Context) {
	p.running = make([]bool, len(p.children))
	for i, c := range p.children {
		c.Activate(ctx)
		p.running[i] = true
	}
}

// Tick ticks every running child and ends those that finish.
func (p *ParallelTask) Tick(ctx context.Context) {
	for i, c := range p.children {
		if !p.running[i] {
			continue
		}
		c.Tick(ctx)
		if c.IsFinished() {
			c.End(ctx, false)
			p.running[i] = false
		}
	}
}

// IsFinished reports whether no child is still running.
func (p *ParallelTask) IsFinished() bool {
	for _, r := range p.running {
		if r {
			return false
		}
	}
	return true
}

// End interrupts every child still running.
func (p *ParallelTask) End(ctx context.Context, interrupted bool) {
	for i, running := range p.running {
		if running {
			p.children[i].End(ctx, interrupted)
			p.running[i] = false
		}
	}
}

// RaceTask runs its children together until any one finishes.
type RaceTask struct {
	group
	finished bool
}

// Race returns a task that runs tasks at the same time and finishes as soon as one of
// them does; the others are interrupted.
func Race(tasks ...Task) *RaceTask {
	return &RaceTask{group: newGroup("Race", tasks)}
}

// Activate starts every child.
func (r *RaceTask) Activate(ctx context.Context) {
	r.finished = false
	for _, c := range r.children {
		c.Activate(ctx)
	}
}

// Tick ticks every child until one finishes.
func (r *RaceTask) Tick(ctx context.Context) {
	for _, c := range r.children {
		c.Tick(ctx)
		if c.IsFinished() {
			r.finished = true
		}
	}
}

// IsFinished reports whether any child has finished.
func (r *RaceTask) IsFinished() bool {
	return r.finished
}

// End ends every child, marking the ones that did not finish as interrupted.
func (r *RaceTask) End(ctx context.Context, interrupted bool) {
	for _, c := range r.children {
		c.End(ctx, interrupted || !c.IsFinished())
	}
}

// RepeatTask restarts its child every time it finishes.
type RepeatTask struct {
	group
	ended bool
}

// Repeatedly returns a task that runs task forever, reactivating it on the tick after
// it finishes.
func Repeatedly(task Task) *RepeatTask {
	return &RepeatTask{group: newGroup("Repeatedly", []Task{task})}
}

// Activate starts the child.
func (r *RepeatTask) Activate(ctx context.Context) {
	r.ended = false
	r.children[0].Activate(ctx)
}

// Tick ticks the child, restarting it if it finished on an earlier tick.
func (r *RepeatTask) Tick(ctx context.Context) {
	child := r.children[0]
	if r.ended {
		r.ended = false
		child.Activate(ctx)
	}
	child.Tick(ctx)
	if child.IsFinished() {
		child.End(ctx, false)
		r.ended = true
	}
}

// IsFinished is always false.
func (r *RepeatTask) IsFinished() bool {
	return false
}

// End interrupts the child if it is running.
func (r *RepeatTask) End(ctx context.Context, interrupted bool) {
	if !r.ended {
		r.children[0].End(ctx, interrupted)
	}
	r.ended = true
}

// WaitTask finishes once a duration has elapsed since activation.
type WaitTask struct {
	clk      clock.Clock
	duration time.Duration
	start    time.Time
}

// Wait returns a task that does nothing for d, measured on clk.
func Wait(clk clock.Clock, d time.Duration) *WaitTask {
	return &WaitTask{clk: clk, duration: d}
}

// Name returns the task name.
func (w *WaitTask) Name() string { return fmt.Sprintf("Wait(%v)", w.duration) }

// Requirements is empty.
func (w *WaitTask) Requirements() []*Resource { return nil }

// InterruptionBehavior is CancelSelf.
func (w *WaitTask) InterruptionBehavior() InterruptionBehavior { return CancelSelf }

// Activate starts the timer.
func (w *WaitTask) Activate(ctx context.Context) { w.start = w.clk.Now() }

// Tick does nothing.
func (w *WaitTask) Tick(ctx context.Context) {}

// IsFinished reports whether the duration has elapsed.
func (w *WaitTask) IsFinished() bool { return w.clk.Since(w.start) >= w.duration }

// End does nothing.
func (w *WaitTask) End(ctx context.Context, interrupted bool) {}

// WithTimeout races task against a timer, interrupting it once d has elapsed.
func WithTimeout(task Task, clk clock.Clock, d time.Duration) *RaceTask {
	return Race(task, Wait(clk, d))
}
