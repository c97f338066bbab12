package framework

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Loop is the single-threaded cooperative scheduler of one core.
// Tasks are polled in priority order on each iteration. Iterations
// happen on every Interval tick and whenever Wake is called.
// Runnables run in their own goroutines and talk to the loop only
// through Scheduler.
type Loop struct {
	Name     string
	Interval time.Duration

	tasks   [PriorityLevels][]Task
	runners []Runnable

	messages []Message
	lock     sync.Mutex

	iterations uint64
	wakeUpCh   chan struct{}
}

// LoopAdder installs tasks and runnables into a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtxKeyType struct{}

var loopCtxKey loopCtxKeyType

type iteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      []Message
}

// SchedulerFrom gets the Scheduler of the loop running the context.
// It returns nil outside a loop.
func SchedulerFrom(ctx context.Context) Scheduler {
	s, _ := ctx.Value(loopCtxKey).(Scheduler)
	return s
}

// NewLoop creates a Loop.
func NewLoop(name string) *Loop {
	return &Loop{
		Name:     name,
		Interval: 100 * time.Millisecond,
		wakeUpCh: make(chan struct{}, 1),
	}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddTask registers tasks at a priority level. A task also
// implementing Runnable is started with the loop.
func (l *Loop) AddTask(priorityLevel int, tasks ...Task) *Loop {
	l.tasks[priorityLevel] = append(l.tasks[priorityLevel], tasks...)
	for _, task := range tasks {
		if runner, ok := task.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() uint64 {
	return atomic.LoadUint64(&l.iterations)
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, Scheduler(l)))
	runner.Go(l.runners...)

	interval := l.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	glog.V(4).Infof("Loop[%s] started", l.Name)
	for {
		select {
		case <-ctx.Done():
			cancel()
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case <-runner.Done():
			// a runnable failed, the core is unusable.
			cancel()
			return runner.Wait()
		case <-ticker.C:
			l.runIteration(ctx)
		case <-l.wakeUpCh:
			l.runIteration(ctx)
		}
	}
}

// PostMessage implements Scheduler.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.messages = append(l.messages, msg)
	l.lock.Unlock()
	l.Wake()
}

// Wake implements Scheduler.
func (l *Loop) Wake() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) runIteration(ctx context.Context) {
	iter := &iteration{Loop: l, time: time.Now()}
	l.lock.Lock()
	iter.messages, l.messages = l.messages, nil
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey, Scheduler(l))
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, task := range l.tasks[i] {
			if err := task.Poll(iter); err != nil {
				glog.Errorf("Loop[%s] task error: %v", l.Name, err)
			}
		}
	}
	if len(iter.messages) > 0 {
		// unclaimed messages stay in order before newly posted ones.
		l.lock.Lock()
		l.messages = append(iter.messages, l.messages...)
		l.lock.Unlock()
	}
	atomic.AddUint64(&l.iterations, 1)
}

func (t *iteration) Context() context.Context {
	return t.ctx
}

func (t *iteration) Time() time.Time {
	return t.time
}

func (t *iteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *iteration) Messages() MessageStore {
	return t
}

func (t *iteration) ProcessMessages(fn func(Message) bool) {
	remains := t.messages[:0]
	for _, msg := range t.messages {
		if !fn(msg) {
			remains = append(remains, msg)
		}
	}
	for n := len(remains); n < len(t.messages); n++ {
		t.messages[n] = nil
	}
	t.messages = remains
}
