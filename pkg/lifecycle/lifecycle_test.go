package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openeeg/headband.go/pkg/fault"
	"github.com/openeeg/headband.go/pkg/ipc"
	"github.com/openeeg/headband.go/pkg/memguard"
)

type recorder struct {
	lock   sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.lock.Lock()
	r.events = append(r.events, ev)
	r.lock.Unlock()
}

func (r *recorder) get() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.events...)
}

type mockGuard struct {
	mock.Mock
}

func (m *mockGuard) GrantSharedAccess(r memguard.Range) error {
	return m.Called(r).Error(0)
}

func (m *mockGuard) Covered(r memguard.Range) bool {
	return m.Called(r).Bool(0)
}

type mockResetControl struct {
	mock.Mock
}

func (m *mockResetControl) Hold() error {
	return m.Called().Error(0)
}

func (m *mockResetControl) Release() error {
	return m.Called().Error(0)
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Reset() error {
	return m.Called().Error(0)
}

type primaryFixture struct {
	rec       *recorder
	guard     *mockGuard
	reset     *mockResetControl
	transport *mockTransport
	ready     *ipc.Latch
	primary   *Primary
	states    []State
}

func newPrimaryFixture() *primaryFixture {
	f := &primaryFixture{
		rec:       &recorder{},
		guard:     &mockGuard{},
		reset:     &mockResetControl{},
		transport: &mockTransport{},
		ready:     ipc.NewLatch(),
	}
	f.primary = &Primary{
		Guard:      f.guard,
		Peer:       f.reset,
		Transports: []Resetter{f.transport},
		Ready:      f.ready,
		Ack:        ipc.TriggerFunc(func() { f.rec.add("ack") }),
		Region:     memguard.SharedWindow,
		Notifier: StateChangedFunc(func(track Track, s State) {
			f.states = append(f.states, s)
		}),
	}
	return f
}

func (f *primaryFixture) expectGrant() {
	f.guard.On("GrantSharedAccess", memguard.SharedWindow).
		Run(func(mock.Arguments) { f.rec.add("grant") }).
		Return(nil)
	f.guard.On("Covered", memguard.SharedWindow).Return(true)
}

func (f *primaryFixture) expectHoldAndReset() {
	f.reset.On("Hold").
		Run(func(mock.Arguments) { f.rec.add("hold") }).
		Return(nil)
	f.transport.On("Reset").
		Run(func(mock.Arguments) { f.rec.add("reset") }).
		Return(nil)
}

func TestPrimaryHandshakeOrdering(t *testing.T) {
	f := newPrimaryFixture()
	f.expectGrant()
	f.expectHoldAndReset()
	f.reset.On("Release").
		Run(func(mock.Arguments) {
			f.rec.add("release")
			go func() {
				time.Sleep(5 * time.Millisecond)
				f.rec.add("ready")
				f.ready.Raise()
			}()
		}).
		Return(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.primary.Boot(ctx))
	require.Equal(t, []string{"grant", "hold", "reset", "release", "ready", "ack"}, f.rec.get())
	require.Equal(t, StateOperational, f.primary.State())
	require.Equal(t, BootReleased, f.primary.BootState())
	require.False(t, f.primary.Cycle().IsNil())
	require.Equal(t, []State{
		StateGranted, StateHeld, StateTransportReset, StateReleased, StateAwaitingReady, StateOperational,
	}, f.states)
	f.guard.AssertExpectations(t)
	f.reset.AssertExpectations(t)
	f.transport.AssertExpectations(t)

	// transitions are one-directional.
	err := f.primary.Boot(ctx)
	require.True(t, errors.Is(err, ErrOrdering))
}

func TestPrimaryDiscardsReadyWhileHeld(t *testing.T) {
	f := newPrimaryFixture()
	f.expectGrant()
	f.reset.On("Hold").
		Run(func(mock.Arguments) {
			f.rec.add("hold")
			f.ready.Raise()
		}).
		Return(nil)
	f.transport.On("Reset").Return(nil)
	f.reset.On("Release").
		Run(func(mock.Arguments) { f.rec.add("release") }).
		Return(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, f.primary.Boot(ctx))
	require.Equal(t, StateAwaitingReady, f.primary.State())
	require.Equal(t, []string{"grant", "hold", "release"}, f.rec.get())

	// a ready after release is accepted on retry.
	f.ready.Raise()
	require.NoError(t, f.primary.AwaitReady(context.Background()))
	require.Equal(t, []string{"grant", "hold", "release", "ack"}, f.rec.get())
}

func TestPrimaryOutOfOrder(t *testing.T) {
	f := newPrimaryFixture()

	err := f.primary.Release()
	require.True(t, errors.Is(err, ErrOrdering))
	require.Equal(t, fault.Fatal, fault.KindOf(err))
	var oe *OrderError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, "release", oe.Step)
	require.Equal(t, StateTransportReset, oe.Requires)
	require.Equal(t, StateBoot, oe.State)
	require.Equal(t, "primary: release requires transport-reset, current state is boot", err.Error())

	require.True(t, errors.Is(f.primary.Hold(), ErrOrdering))
	require.True(t, errors.Is(f.primary.ResetTransport(), ErrOrdering))
	require.True(t, errors.Is(f.primary.AwaitReady(context.Background()), ErrOrdering))
	require.Equal(t, StateBoot, f.primary.State())
	require.Equal(t, BootHeld, f.primary.BootState())
	f.reset.AssertNotCalled(t, "Release")
	f.reset.AssertNotCalled(t, "Hold")
	f.guard.AssertNotCalled(t, "GrantSharedAccess", mock.Anything)
}

func TestPrimaryReleaseRequiresGrantedRegion(t *testing.T) {
	f := newPrimaryFixture()
	f.guard.On("GrantSharedAccess", memguard.SharedWindow).Return(nil)
	f.guard.On("Covered", memguard.SharedWindow).Return(false)
	f.expectHoldAndReset()

	require.NoError(t, f.primary.Grant())
	require.NoError(t, f.primary.Hold())
	require.NoError(t, f.primary.ResetTransport())
	err := f.primary.Release()
	require.True(t, errors.Is(err, ErrRegionNotGranted))
	require.Equal(t, StateTransportReset, f.primary.State())
	f.reset.AssertNotCalled(t, "Release")
}

func TestPrimaryGrantFailure(t *testing.T) {
	f := newPrimaryFixture()
	f.guard.On("GrantSharedAccess", memguard.SharedWindow).Return(errors.New("locked"))
	err := f.primary.Boot(context.Background())
	require.Error(t, err)
	require.Equal(t, "grant: locked", err.Error())
	require.Equal(t, StateBoot, f.primary.State())
}

func TestPeerRetriesUntilAck(t *testing.T) {
	var lock sync.Mutex
	var readies int
	ack := ipc.NewLatch()
	ack.Raise() // stale, from an earlier cycle
	var states []State
	p := &Peer{
		Ready: ipc.TriggerFunc(func() {
			lock.Lock()
			readies++
			lock.Unlock()
		}),
		Ack:           ack,
		RetryInterval: 10 * time.Millisecond,
		Notifier: StateChangedFunc(func(track Track, s State) {
			require.Equal(t, TrackPeer, track)
			states = append(states, s)
		}),
	}
	doneCh := make(chan error, 1)
	go func() { doneCh <- p.Start(context.Background()) }()

	time.Sleep(45 * time.Millisecond)
	select {
	case <-doneCh:
		t.Fatal("stale ack accepted")
	default:
	}
	lock.Lock()
	require.True(t, readies >= 3, "readies=%d", readies)
	lock.Unlock()

	ack.Raise()
	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("ack not observed")
	}
	require.Equal(t, StateOperational, p.State())
	require.Equal(t, []State{StateReadySignaled, StateOperational}, states)
	require.False(t, ack.Pending())

	require.True(t, errors.Is(p.Start(context.Background()), ErrOrdering))
}

func TestPeerCancelled(t *testing.T) {
	p := &Peer{Ready: ipc.TriggerFunc(func() {}), Ack: ipc.NewLatch()}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, p.Start(ctx))
	require.Equal(t, StateReadySignaled, p.State())
}

func TestHandshakeBetweenTracks(t *testing.T) {
	ready, ack := ipc.NewLatch(), ipc.NewLatch()
	peer := &Peer{Ready: ipc.TriggerFunc(ready.Raise), Ack: ack, RetryInterval: 5 * time.Millisecond}
	peerDone := make(chan error, 1)

	f := newPrimaryFixture()
	f.primary.Ready = ready
	f.primary.Ack = ipc.TriggerFunc(ack.Raise)
	f.expectGrant()
	f.expectHoldAndReset()
	f.reset.On("Release").
		Run(func(mock.Arguments) {
			go func() { peerDone <- peer.Start(context.Background()) }()
		}).
		Return(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.primary.Boot(ctx))
	select {
	case err := <-peerDone:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("peer not operational")
	}
	require.Equal(t, StateOperational, peer.State())
}
