// Package scheduler runs cooperative periodic tasks that claim exclusive ownership of
// named resources. It is single threaded: every method must be called from the goroutine
// that drives Run.
package scheduler

import "context"

// Resource is a singleton piece of hardware (a drivetrain, a roller) that at most one
// scheduled task may own at a time. Resources are compared by identity.
type Resource struct {
	name string
}

// NewResource returns a new resource handle.
func NewResource(name string) *Resource {
	return &Resource{name: name}
}

// Name returns the resource name.
func (r *Resource) Name() string {
	return r.name
}

func (r *Resource) String() string {
	return r.name
}

// InterruptionBehavior decides who loses when a newly scheduled task needs a resource
// this task owns.
type InterruptionBehavior int

const (
	// CancelSelf lets the incoming task interrupt this one.
	CancelSelf InterruptionBehavior = iota
	// CancelIncoming rejects the incoming task and keeps this one running.
	CancelIncoming
)

func (b InterruptionBehavior) String() string {
	switch b {
	case CancelSelf:
		return "cancel self"
	case CancelIncoming:
		return "cancel incoming"
	default:
		return "unknown"
	}
}

// A Task is driven by the Scheduler through Activate, then Tick and IsFinished once per
// period, and finally End exactly once. End is called with interrupted set when the task
// did not finish on its own.
type Task interface {
	Name() string
	Requirements() []*Resource
	InterruptionBehavior() InterruptionBehavior
	Activate(ctx context.Context)
	Tick(ctx context.Context)
	IsFinished() bool
	End(ctx context.Context, interrupted bool)
}

// Func is a Task assembled from optional callbacks. A nil Finished never finishes.
type Func struct {
	TaskName   string
	Requires   []*Resource
	Behavior   InterruptionBehavior
	OnActivate func(ctx context.Context)
	OnTick     func(ctx context.Context)
	OnEnd      func(ctx context.Context, interrupted bool)
	Finished   func() bool
}

// Name returns the task name.
func (f *Func) Name() string {
	return f.TaskName
}

// Requirements returns the resources the task claims.
func (f *Func) Requirements() []*Resource {
	return f.Requires
}

// InterruptionBehavior returns the configured behavior.
func (f *Func) InterruptionBehavior() InterruptionBehavior {
	return f.Behavior
}

// Activate calls OnActivate.
func (f *Func) Activate(ctx context.Context) {
	if f.OnActivate != nil {
		f.OnActivate(ctx)
	}
}

// Tick calls OnTick.
func (f *Func) Tick(ctx context.Context) {
	if f.OnTick != nil {
		f.OnTick(ctx)
	}
}

// IsFinished calls Finished.
func (f *Func) IsFinished() bool {
	return f.Finished != nil && f.Finished()
}

// End calls OnEnd.
func (f *Func) End(ctx context.Context, interrupted bool) {
	if f.OnEnd != nil {
		f.OnEnd(ctx, interrupted)
	}
}

// RunOnce returns a task that calls action on activation and finishes immediately.
func RunOnce(name string, action func(ctx context.Context), requirements ...*Resource) Task {
	return &Func{
		TaskName:   name,
		Requires:   requirements,
		OnActivate: action,
		Finished:   func() bool { return true },
	}
}

// Run returns a task that calls action every tick and never finishes.
func Run(name string, action func(ctx context.Context), requirements ...*Resource) Task {
	return &Func{TaskName: name, Requires: requirements, OnTick: action}
}

// RunEnd returns a task that calls run every tick and end when it is ended.
func RunEnd(name string, run, end func(ctx context.Context), requirements ...*Resource) Task {
	return &Func{
		TaskName: name,
		Requires: requirements,
		OnTick:   run,
		OnEnd: func(ctx context.Context, _ bool) {
			if end != nil {
				end(ctx)
			}
		},
	}
}
