package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable is a long running task, typically an interrupt handler
// or a driver, started alongside a Loop.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted into a Loop from outside the core,
// e.g. a request from the shell. It is consumed by tasks.
type Message interface{}

// Task is a cooperatively scheduled unit of work. Poll runs to
// completion and must not block.
type Task interface {
	Poll(TaskContext) error
}

// TaskFunc is the func form of Task.
type TaskFunc func(TaskContext) error

// Poll implements Task.
func (f TaskFunc) Poll(tc TaskContext) error {
	return f(tc)
}

// TimeSource provides the time of the current iteration.
type TimeSource interface {
	Time() time.Time
}

// TaskContext is the context of one iteration.
type TaskContext interface {
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// PriorityLevel gets the priority level being polled.
	PriorityLevel() int
	// Messages retrieves messages posted before this iteration started.
	Messages() MessageStore

	Scheduler
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefined priority levels. Lower levels are polled first.
const (
	PrLvTop  int = 0
	PrLvHigh int = 4
	PrLvApp  int = 8
	PrLvLow  int = 12
	PrLvIdle int = PriorityLevels - 1

	// PrLvTransport is for tasks pumping a cross-core transport.
	PrLvTransport = PrLvHigh
	// PrLvHousekeeping is for statistics and heartbeats.
	PrLvHousekeeping = PrLvLow
)

// Scheduler exposes access to the running Loop.
type Scheduler interface {
	// PostMessage enqueues a message for the next iteration.
	PostMessage(Message)
	// Wake schedules the next iteration immediately. Multiple calls
	// before the iteration starts collapse into one.
	Wake()
}

// MessageStore gives tasks access to pending messages.
type MessageStore interface {
	// ProcessMessages calls fn for each pending message in order.
	// Messages for which fn returns true are removed, the others are
	// kept for later tasks and iterations.
	ProcessMessages(fn func(Message) bool)
}
