// Package appcore is the firmware of the application core. It owns
// the boot handoff and consumes records produced by the network core.
package appcore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/openeeg/headband.go/pkg/framework"
	"github.com/openeeg/headband.go/pkg/ipc"
	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/lifecycle"
	"github.com/openeeg/headband.go/pkg/memguard"
	"github.com/openeeg/headband.go/pkg/ring"
)

// Hardware is what the image needs from the application core.
type Hardware interface {
	ipc.Channels
	Layout() *layout.Layout
	SecurityUnit() memguard.SecurityUnit
	NetworkReset() lifecycle.ResetControl
	MapShared(base, size uint32) (*ring.Segment, error)
}

// Record is posted to the loop for every dequeued record.
type Record struct {
	Value uint64
}

// Image is the application core firmware.
type Image struct {
	Config   Config
	Sink     Sink
	Notifier lifecycle.StateNotifier

	lock    sync.RWMutex
	primary *lifecycle.Primary
	queue   *ring.Queue

	received   uint64
	sinkErrors uint64
}

// Primary returns the lifecycle controller of the running image.
func (img *Image) Primary() *lifecycle.Primary {
	img.lock.RLock()
	defer img.lock.RUnlock()
	return img.primary
}

// Queue returns the view of the consumed queue.
func (img *Image) Queue() *ring.Queue {
	img.lock.RLock()
	defer img.lock.RUnlock()
	return img.queue
}

// Received returns the number of records handed to the sink.
func (img *Image) Received() uint64 {
	return atomic.LoadUint64(&img.received)
}

// SinkErrors returns the number of records the sink failed on.
func (img *Image) SinkErrors() uint64 {
	return atomic.LoadUint64(&img.sinkErrors)
}

// Run boots the system and consumes records until ctx is done.
func (img *Image) Run(ctx context.Context, hw Hardware) error {
	l := hw.Layout()
	q, ok := l.Queue(img.Config.Queue)
	if !ok {
		return fmt.Errorf("%w: no queue %q", layout.ErrInvalidLayout, img.Config.Queue)
	}
	base, size := l.QueueAddr(q)
	seg, err := hw.MapShared(base, size)
	if err != nil {
		return err
	}
	queue, err := ring.Open(seg, q.Capacity)
	if err != nil {
		return err
	}

	guard := memguard.New(hw.SecurityUnit())
	guard.RAMBase, guard.Granularity = l.RAMBase, l.Granularity
	primary := &lifecycle.Primary{
		Guard:      guard,
		Peer:       hw.NetworkReset(),
		Transports: []lifecycle.Resetter{queue},
		Ready:      hw.Event(l.Channels.PeerReady),
		Ack:        ipc.ChannelTrigger(hw, l.Channels.BootAck),
		Region:     l.Shared.Range(),
		Notifier:   img.Notifier,
	}
	img.lock.Lock()
	img.primary, img.queue = primary, queue
	img.lock.Unlock()

	if err := primary.Boot(ctx); err != nil {
		return err
	}

	data := ipc.NewSignal("data-available", hw, l.Channels.DataAvailable)
	changes, err := data.Changed()
	if err != nil {
		return err
	}
	consumer, err := queue.Consumer(changes)
	if err != nil {
		return err
	}

	loop := fx.NewLoop("app")
	loop.Interval = img.Config.Interval
	loop.Add(&pump{data: data, consumer: consumer})
	loop.AddTask(fx.PrLvApp, fx.TaskFunc(img.deliver))
	if img.Config.StatsInterval > 0 {
		loop.AddTask(fx.PrLvHousekeeping, &statsTask{img: img, queue: queue})
	}
	glog.Infof("app core consuming %q (%d slots at %v)", q.Name, q.Capacity, seg)
	return loop.Run(ctx)
}

// pump moves records from the queue into the loop. The ipc handler
// feeds the consumer's wakeups.
type pump struct {
	data     *ipc.Signal
	consumer *ring.Consumer
}

func (p *pump) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(p.data.Bridge(), fx.NamedRun("consumer", fx.RunFunc(p.run)))
}

func (p *pump) run(ctx context.Context) error {
	s := fx.SchedulerFrom(ctx)
	for {
		v, err := p.consumer.Recv(ctx)
		if err != nil {
			return err
		}
		s.PostMessage(Record{Value: v})
	}
}

func (img *Image) deliver(tc fx.TaskContext) error {
	tc.Messages().ProcessMessages(func(msg fx.Message) bool {
		rec, ok := msg.(Record)
		if !ok {
			return false
		}
		if err := img.Sink.HandleRecord(tc.Context(), rec.Value); err != nil {
			atomic.AddUint64(&img.sinkErrors, 1)
			glog.Warningf("sink error on record %#x: %v", rec.Value, err)
		}
		atomic.AddUint64(&img.received, 1)
		return true
	})
	return nil
}

type statsTask struct {
	img   *Image
	queue *ring.Queue
	last  uint64
	next  int64
}

func (t *statsTask) Poll(tc fx.TaskContext) error {
	now := tc.Time().UnixNano()
	if now < t.next {
		return nil
	}
	t.next = now + int64(t.img.Config.StatsInterval)
	received := t.img.Received()
	glog.Infof("app core: %d records (+%d), %d queued, %d sink errors",
		received, received-t.last, t.queue.Len(), t.img.SinkErrors())
	t.last = received
	return nil
}
