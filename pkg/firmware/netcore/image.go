// Package netcore is the firmware of the network core. It signals
// ready once released and produces records for the application core.
package netcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/openeeg/headband.go/pkg/framework"
	"github.com/openeeg/headband.go/pkg/ipc"
	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/lifecycle"
	"github.com/openeeg/headband.go/pkg/ring"
)

// Hardware is what the image needs from the network core.
type Hardware interface {
	ipc.Channels
	Layout() *layout.Layout
	MapShared(base, size uint32) (*ring.Segment, error)
}

// Source produces records, typically the radio stack.
type Source interface {
	// Poll returns the next record if one is available.
	Poll() (uint64, bool)
}

// Inject is posted to the loop to send records ahead of the source.
type Inject []uint64

// Image is the network core firmware.
type Image struct {
	Config   Config
	Source   Source
	Notifier lifecycle.StateNotifier

	lock sync.RWMutex
	peer *lifecycle.Peer
	loop *fx.Loop

	sent    uint64
	dropped uint64
	full    uint64
}

// Sent returns the number of records enqueued.
func (img *Image) Sent() uint64 {
	return atomic.LoadUint64(&img.sent)
}

// Dropped returns the number of records discarded on a full queue.
func (img *Image) Dropped() uint64 {
	return atomic.LoadUint64(&img.dropped)
}

// FullHits returns how many sends found the queue full.
func (img *Image) FullHits() uint64 {
	return atomic.LoadUint64(&img.full)
}

// State returns the lifecycle state of the running image.
func (img *Image) State() lifecycle.State {
	img.lock.RLock()
	peer := img.peer
	img.lock.RUnlock()
	if peer == nil {
		return lifecycle.StateBoot
	}
	return peer.State()
}

// Inject queues records to send. It returns false if the image is
// not operational.
func (img *Image) Inject(values ...uint64) bool {
	img.lock.RLock()
	loop := img.loop
	img.lock.RUnlock()
	if loop == nil {
		return false
	}
	loop.PostMessage(Inject(append([]uint64(nil), values...)))
	return true
}

// Run is the entry point after the core is released.
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
	dataAvailable := ipc.ChannelTrigger(hw, l.Channels.DataAvailable)
	producer, err := queue.Producer(dataAvailable)
	if err != nil {
		return err
	}

	peer := &lifecycle.Peer{
		Ready:         ipc.ChannelTrigger(hw, l.Channels.PeerReady),
		Ack:           hw.Event(l.Channels.BootAck),
		RetryInterval: img.Config.ReadyRetry,
		Notifier:      img.Notifier,
	}
	img.lock.Lock()
	img.peer = peer
	img.lock.Unlock()
	if err := peer.Start(ctx); err != nil {
		return err
	}

	loop := fx.NewLoop("net")
	loop.Interval = img.Config.Interval
	loop.AddTask(fx.PrLvTransport, &producerTask{img: img, producer: producer})
	if img.Config.HeartbeatInterval > 0 {
		loop.AddTask(fx.PrLvHousekeeping, &heartbeatTask{
			trigger:  dataAvailable,
			interval: img.Config.HeartbeatInterval,
		})
	}
	img.lock.Lock()
	img.loop = loop
	img.lock.Unlock()
	defer func() {
		img.lock.Lock()
		img.loop = nil
		img.lock.Unlock()
	}()

	glog.Infof("net core producing into %q at %v", q.Name, seg)
	return loop.Run(ctx)
}

type producerTask struct {
	img      *Image
	producer *ring.Producer
	backlog  []uint64
}

func (t *producerTask) Poll(tc fx.TaskContext) error {
	tc.Messages().ProcessMessages(func(msg fx.Message) bool {
		values, ok := msg.(Inject)
		if ok {
			t.backlog = append(t.backlog, values...)
		}
		return ok
	})
	if src := t.img.Source; src != nil && len(t.backlog) == 0 {
		for n := 0; n < t.img.Config.Batch; n++ {
			v, ok := src.Poll()
			if !ok {
				break
			}
			t.backlog = append(t.backlog, v)
		}
	}
	return t.flush()
}

func (t *producerTask) flush() error {
	sent := 0
	for sent < len(t.backlog) {
		err := t.producer.Send(t.backlog[sent])
		if err == nil {
			sent++
			atomic.AddUint64(&t.img.sent, 1)
			continue
		}
		var full *ring.FullError
		if !errors.As(err, &full) {
			return err
		}
		atomic.AddUint64(&t.img.full, 1)
		if t.img.Config.OnFull == Retry {
			break
		}
		glog.V(2).Infof("net core: queue full, dropping %#x", full.Value)
		atomic.AddUint64(&t.img.dropped, 1)
		t.backlog = append(t.backlog[:sent], t.backlog[sent+1:]...)
	}
	t.backlog = append(t.backlog[:0], t.backlog[sent:]...)
	return nil
}

type heartbeatTask struct {
	trigger  ipc.Trigger
	interval time.Duration
	next     time.Time
}

func (t *heartbeatTask) Poll(tc fx.TaskContext) error {
	now := tc.Time()
	if now.Before(t.next) {
		return nil
	}
	t.next = now.Add(t.interval)
	t.trigger.Trigger()
	return nil
}
