package ring

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openeeg/headband.go/pkg/fault"
	"github.com/openeeg/headband.go/pkg/ipc"
)

const testBase = 0x20040000

type testRing struct {
	t        *testing.T
	watch    *ipc.Watch
	producer *Producer
	consumer *Consumer
	prodView *Queue
	consView *Queue
}

func mustAlloc(t *testing.T, size uint64) *Segment {
	seg, err := Alloc(testBase, size)
	require.NoError(t, err)
	return seg
}

// newTestRing opens two views of the same memory, one per core, and
// resets from the consumer's view.
func newTestRing(t *testing.T, capacity uint32) *testRing {
	seg := mustAlloc(t, Size(capacity))
	rand.New(rand.NewSource(1)).Read(seg.Bytes())

	r := &testRing{t: t, watch: ipc.NewWatch(0)}
	var err error
	r.consView, err = Open(seg, capacity)
	require.NoError(t, err)
	r.prodView, err = Open(seg, capacity)
	require.NoError(t, err)
	require.NoError(t, r.consView.Reset())

	recv, err := r.watch.Receiver()
	require.NoError(t, err)
	r.consumer, err = r.consView.Consumer(recv)
	require.NoError(t, err)
	r.producer, err = r.prodView.Producer(r.watch)
	require.NoError(t, err)
	return r
}

func (r *testRing) recv() uint64 {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	v, err := r.consumer.Recv(ctx)
	require.NoError(r.t, err)
	return v
}

func TestOpenValidation(t *testing.T) {
	seg := mustAlloc(t, 64)
	_, err := Open(seg, 3)
	require.True(t, errors.Is(err, ErrBadCapacity))
	_, err = Open(seg, 8)
	require.True(t, errors.Is(err, ErrBadSegment))
	q, err := Open(seg, 4)
	require.NoError(t, err)
	require.Equal(t, 4, q.Cap())
	require.Equal(t, fault.Fatal, fault.KindOf(ErrBadCapacity))

	_, err = NewSegment(testBase+4, make([]byte, 16))
	require.True(t, errors.Is(err, ErrBadSegment))
	_, err = seg.Sub(60, 8)
	require.True(t, errors.Is(err, ErrBadSegment))
	sub, err := seg.Sub(16, 16)
	require.NoError(t, err)
	require.Equal(t, uint32(testBase+16), sub.Base)
	require.Equal(t, "0x20040010-0x20040020", sub.String())
}

func TestAllocBounds(t *testing.T) {
	for _, size := range []uint64{0, MaxAlloc + 1, Size(1 << 27), Size(MaxCapacity)} {
		_, err := Alloc(testBase, size)
		require.True(t, errors.Is(err, ErrBadSegment), "size 0x%x", size)
	}
	// the end address must stay representable
	_, err := Alloc(0xfffffff8, 8)
	require.True(t, errors.Is(err, ErrBadSegment))
	seg, err := Alloc(0xfffffff0, 8)
	require.NoError(t, err)
	require.Equal(t, 8, seg.Len())
}

func TestUninitializedQueue(t *testing.T) {
	seg := mustAlloc(t, Size(16))
	for i := range seg.Bytes() {
		seg.Bytes()[i] = 0xa5
	}
	q, err := Open(seg, 16)
	require.NoError(t, err)
	require.False(t, q.Initialized())
	_, err = q.Consumer(nil)
	require.Equal(t, ErrUninitialized, err)
	_, err = q.Producer(nil)
	require.Equal(t, ErrUninitialized, err)

	// a failed acquisition does not consume the token.
	require.NoError(t, q.Reset())
	_, err = q.Consumer(nil)
	require.NoError(t, err)

	// another view sized differently does not match the header.
	other, err := Open(seg, 8)
	require.NoError(t, err)
	require.False(t, other.Initialized())
}

func TestOneShotTokens(t *testing.T) {
	r := newTestRing(t, 16)
	require.Equal(t, ErrAlreadyReset, r.consView.Reset())
	_, err := r.consView.Consumer(nil)
	require.Equal(t, ErrAlreadyAcquired, err)
	_, err = r.prodView.Producer(nil)
	require.Equal(t, ErrAlreadyAcquired, err)
	require.Equal(t, fault.Discipline, fault.KindOf(err))

	// tokens are per view: the producer's core may still take its consumer.
	_, err = r.prodView.Consumer(nil)
	require.NoError(t, err)
}

func TestScenarioA(t *testing.T) {
	r := newTestRing(t, 1024)
	for _, v := range []uint64{1, 2, 3} {
		require.NoError(t, r.producer.Send(v))
		r.watch.Publish()
	}
	require.Equal(t, uint64(1), r.recv())
	require.Equal(t, uint64(2), r.recv())
	require.Equal(t, uint64(3), r.recv())
}

func TestScenarioB(t *testing.T) {
	r := newTestRing(t, 1024)
	values := make([]uint64, 1024)
	rng := rand.New(rand.NewSource(42))
	for i := range values {
		values[i] = rng.Uint64()
		require.NoError(t, r.producer.Send(values[i]))
	}
	require.Equal(t, 0, r.producer.Free())
	require.Equal(t, 1024, r.consView.Len())

	x := uint64(0xdeadbeefcafef00d)
	err := r.producer.Send(x)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFull))
	var full *FullError
	require.True(t, errors.As(err, &full))
	require.Equal(t, x, full.Value)
	require.Equal(t, fault.Transient, fault.KindOf(err))
	require.Equal(t, 1024, r.consumer.Len())

	for i := range values {
		require.Equal(t, values[i], r.recv())
	}
	v, ok, err := r.consumer.TryRecv()
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, v)
}

func TestFIFOAcrossWrap(t *testing.T) {
	r := newTestRing(t, 8)
	next, expect := uint64(0), uint64(0)
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		for n := rng.Intn(9); n > 0; n-- {
			if err := r.producer.Send(next); err != nil {
				require.True(t, errors.Is(err, ErrFull))
				break
			}
			next++
		}
		for n := rng.Intn(9); n > 0 && expect < next; n-- {
			require.Equal(t, expect, r.recv())
			expect++
		}
	}
	for expect < next {
		require.Equal(t, expect, r.recv())
		expect++
	}
}

func TestRecvWaitsForSend(t *testing.T) {
	r := newTestRing(t, 16)

	// a notification without data is not a record.
	r.watch.Publish()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	_, err := r.consumer.Recv(ctx)
	cancel()
	require.Equal(t, context.DeadlineExceeded, err)

	resultCh := make(chan uint64, 1)
	go func() { resultCh <- r.recv() }()
	time.Sleep(10 * time.Millisecond)
	r.watch.Publish()
	r.watch.Publish()
	select {
	case <-resultCh:
		t.Fatal("recv returned before send")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, r.producer.Send(77))
	select {
	case v := <-resultCh:
		require.Equal(t, uint64(77), v)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("recv not woken")
	}
}

func TestCoalescedWakeupSeesAllSends(t *testing.T) {
	seg := mustAlloc(t, Size(64))
	q, err := Open(seg, 64)
	require.NoError(t, err)
	require.NoError(t, q.Reset())
	watch := ipc.NewWatch(0)
	recv, err := watch.Receiver()
	require.NoError(t, err)
	consumer, err := q.Consumer(recv)
	require.NoError(t, err)
	producer, err := q.Producer(nil)
	require.NoError(t, err)

	for v := uint64(1); v <= 10; v++ {
		require.NoError(t, producer.Send(v))
	}
	for i := 0; i < 5; i++ {
		watch.Publish()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, recv.Changed(ctx))
	require.False(t, recv.Pending())
	for v := uint64(1); v <= 10; v++ {
		got, err := consumer.Recv(ctx)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	r := newTestRing(t, 32)
	const total = 20000
	go func() {
		for v := uint64(1); v <= total; {
			if err := r.producer.Send(v); err != nil {
				time.Sleep(10 * time.Microsecond)
				continue
			}
			v++
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for v := uint64(1); v <= total; v++ {
		got, err := r.consumer.Recv(ctx)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestCorruptedIndices(t *testing.T) {
	r := newTestRing(t, 4)
	r.consView.hdr.head = 100
	r.consView.hdr.tail = 100
	_, _, err := r.consumer.TryRecv()
	require.Equal(t, ErrCorrupted, err)
	require.Equal(t, ErrCorrupted, r.producer.Send(1))
}

func TestRecvWithoutSignal(t *testing.T) {
	seg := mustAlloc(t, Size(4))
	q, err := Open(seg, 4)
	require.NoError(t, err)
	require.NoError(t, q.Reset())
	c, err := q.Consumer(nil)
	require.NoError(t, err)
	_, err = c.Recv(context.Background())
	require.Equal(t, ErrNoSignal, err)
}

func TestRecvReturnsQueuedWithoutWaiting(t *testing.T) {
	r := newTestRing(t, 4)
	require.NoError(t, r.producer.Send(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := r.consumer.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(5), v)
	_, err = r.consumer.Recv(ctx)
	require.Equal(t, context.Canceled, err)
}
