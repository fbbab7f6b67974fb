package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

type scheduled struct {
	task Task
	id   uuid.UUID
}

// Scheduler ticks scheduled tasks in the order they were scheduled and arbitrates
// resource ownership between them.
type Scheduler struct {
	logger logging.Logger

	active   []*scheduled
	owners   map[*Resource]*scheduled
	defaults map[*Resource]Task
	// defaultOrder keeps default task scheduling deterministic.
	defaultOrder []*Resource
	periodic     []func(ctx context.Context)
}

// New returns an empty scheduler.
func New(logger logging.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		owners:   map[*Resource]*scheduled{},
		defaults: map[*Resource]Task{},
	}
}

// RegisterPeriodic adds a hook that runs at the start of every Run, before any task
// ticks.
func (s *Scheduler) RegisterPeriodic(fn func(ctx context.Context)) {
	s.periodic = append(s.periodic, fn)
}

// SetDefaultTask sets the task scheduled whenever resource has no owner. The task must
// require resource and must not finish on its own.
func (s *Scheduler) SetDefaultTask(resource *Resource, task Task) error {
	if !requires(task, resource) {
		return errors.Errorf("default task %q must require %s", task.Name(), resource)
	}
	if _, ok := s.defaults[resource]; !ok {
		s.defaultOrder = append(s.defaultOrder, resource)
	}
	s.defaults[resource] = task
	return nil
}

// DefaultTask returns the default task for resource, if any.
func (s *Scheduler) DefaultTask(resource *Resource) Task {
	return s.defaults[resource]
}

// Schedule activates task right away, interrupting the current owners of any resource
// it requires. It returns false, leaving everything untouched, when one of those owners
// rejects incoming tasks. Scheduling a task that is already scheduled does nothing.
func (s *Scheduler) Schedule(ctx context.Context, task Task) bool {
	if s.IsScheduled(task) {
		return true
	}

	var toInterrupt []*scheduled
	for _, r := range task.Requirements() {
		owner, ok := s.owners[r]
		if !ok {
			continue
		}
		if owner.task.InterruptionBehavior() == CancelIncoming {
			s.logger.Debugw("task rejected", "task", task.Name(), "resource", r.Name(), "owner", owner.task.Name())
			return false
		}
		if !containsEntry(toInterrupt, owner) {
			toInterrupt = append(toInterrupt, owner)
		}
	}
	for _, owner := range toInterrupt {
		s.end(ctx, owner, true)
	}

	entry := &scheduled{task: task, id: uuid.New()}
	s.active = append(s.active, entry)
	for _, r := range task.Requirements() {
		s.owners[r] = entry
	}
	s.logger.Debugw("task scheduled", "task", task.Name(), "id", entry.id)
	task.Activate(ctx)
	return true
}

// Cancel interrupts task if it is scheduled.
func (s *Scheduler) Cancel(ctx context.Context, task Task) {
	if entry := s.find(task); entry != nil {
		s.end(ctx, entry, true)
	}
}

// CancelAll interrupts every scheduled task.
func (s *Scheduler) CancelAll(ctx context.Context) {
	for len(s.active) > 0 {
		s.end(ctx, s.active[0], true)
	}
}

// IsScheduled reports whether task is currently scheduled.
func (s *Scheduler) IsScheduled(task Task) bool {
	return s.find(task) != nil
}

// Owner returns the task owning resource, or nil.
func (s *Scheduler) Owner(resource *Resource) Task {
	if owner, ok := s.owners[resource]; ok {
		return owner.task
	}
	return nil
}

// ActivationID returns the id assigned to task when it was last scheduled.
func (s *Scheduler) ActivationID(task Task) (uuid.UUID, bool) {
	if entry := s.find(task); entry != nil {
		return entry.id, true
	}
	return uuid.Nil, false
}

// Run performs one period: periodic hooks, then one tick of every scheduled task in
// scheduling order, ending those that finish, and finally scheduling default tasks for
// idle resources.
func (s *Scheduler) Run(ctx context.Context) {
	for _, fn := range s.periodic {
		fn(ctx)
	}

	// Tasks may schedule or cancel others while ticking.
	snapshot := append([]*scheduled(nil), s.active...)
	for _, entry := range snapshot {
		if !s.isActive(entry) {
			continue
		}
		entry.task.Tick(ctx)
		if !s.isActive(entry) {
			continue
		}
		if entry.task.IsFinished() {
			s.end(ctx, entry, false)
		}
	}

	for _, r := range s.defaultOrder {
		if _, owned := s.owners[r]; owned {
			continue
		}
		s.Schedule(ctx, s.defaults[r])
	}
}

func (s *Scheduler) end(ctx context.Context, entry *scheduled, interrupted bool) {
	s.remove(entry)
	s.logger.Debugw("task ended", "task", entry.task.Name(), "id", entry.id, "interrupted", interrupted)
	entry.task.End(ctx, interrupted)
}

func (s *Scheduler) remove(entry *scheduled) {
	for i, e := range s.active {
		if e == entry {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	for r, owner := range s.owners {
		if owner == entry {
			delete(s.owners, r)
		}
	}
}

func (s *Scheduler) find(task Task) *scheduled {
	for _, e := range s.active {
		if e.task == task {
			return e
		}
	}
	return nil
}

func (s *Scheduler) isActive(entry *scheduled) bool {
	for _, e := range s.active {
		if e == entry {
			return true
		}
	}
	return false
}

func containsEntry(entries []*scheduled, entry *scheduled) bool {
	for _, e := range entries {
		if e == entry {
			return true
		}
	}
	return false
}

func requires(task Task, resource *Resource) bool {
	for _, r := range task.Requirements() {
		if r == resource {
			return true
		}
	}
	return false
}
