package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openeeg/headband.go/pkg/fault"
	"github.com/openeeg/headband.go/pkg/layout"
	"github.com/openeeg/headband.go/pkg/memguard"
	"github.com/openeeg/headband.go/pkg/ring"
)

func newTestBoard(t *testing.T) *Board {
	b, err := NewBoard(layout.Default())
	require.NoError(t, err)
	b.Seed = 1
	b.PowerOn()
	return b
}

func TestNetCoreFaultsBeforeGrant(t *testing.T) {
	b := newTestBoard(t)
	app, net := b.Core(layout.App), b.Core(layout.Net)

	_, err := app.MapShared(memguard.SharedStart, 0x100)
	require.NoError(t, err)

	_, err = net.MapShared(memguard.SharedStart, 0x100)
	var af *AccessFault
	require.True(t, errors.As(err, &af))
	require.Equal(t, layout.Net, af.Core)
	require.Equal(t, memguard.SharedStart, af.Addr)
	require.Equal(t, fault.Fatal, fault.KindOf(err))
	require.Equal(t, "net core: write access fault at 0x20040000", err.Error())

	require.NoError(t, memguard.New(app.SecurityUnit()).GrantSharedAccess(memguard.SharedWindow))
	seg, err := net.MapShared(memguard.SharedStart+0x10, 0x100)
	require.NoError(t, err)
	require.Equal(t, memguard.SharedStart+0x10, seg.Base)

	// outside the granted window
	_, err = net.MapShared(memguard.SharedStart-0x10, 0x20)
	require.True(t, errors.As(err, &af))
	require.Equal(t, memguard.SharedStart-0x10, af.Addr)

	// outside RAM
	_, err = app.MapShared(memguard.SharedEnd-8, 16)
	require.True(t, errors.As(err, &af))

	require.Nil(t, net.SecurityUnit())
	require.Nil(t, net.NetworkReset())
}

func TestSPULockedRegion(t *testing.T) {
	spu := NewSPU(memguard.RAMBase, memguard.RAMSize, memguard.Granularity)
	require.Len(t, spu.Regions(), 64)
	require.NoError(t, spu.SetRAMRegionPerm(33, memguard.Perm{Read: true, Lock: true}))
	err := spu.SetRAMRegionPerm(33, memguard.SharedAccess)
	require.True(t, errors.Is(err, ErrRegionLocked))
	_, err = spu.RAMRegionPerm(64)
	require.True(t, errors.Is(err, ErrNoRegion))

	// read-only cell faults on write
	err = spu.Check(layout.Net, memguard.SharedStart+0x2000, 8, true)
	require.Error(t, err)
	require.NoError(t, spu.Check(layout.Net, memguard.SharedStart+0x2000, 8, false))

	spu.Reset()
	perm, err := spu.RAMRegionPerm(33)
	require.NoError(t, err)
	require.Equal(t, memguard.Perm{}, perm)
}

func TestIPCCrossesCores(t *testing.T) {
	b := newTestBoard(t)
	app, net := b.Core(layout.App), b.Core(layout.Net)
	net.Trigger(0)
	net.Trigger(0)
	require.True(t, app.Event(0).Pending())
	require.False(t, net.Event(0).Pending())
	require.Equal(t, uint64(2), net.Port().Triggered(0))
	require.Equal(t, uint64(2), app.Port().Latch(0).Raised())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Event(0).Wait(ctx))
	b.IPC.Reset()
	require.False(t, app.Event(0).Pending())
}

func TestBoardRunReleasesNetCore(t *testing.T) {
	b := newTestBoard(t)
	started := make(chan layout.Core, 1)
	stopped := make(chan struct{})
	net := func(ctx context.Context, hw *Core) error {
		started <- hw.ID
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	}
	app := func(ctx context.Context, hw *Core) error {
		require.True(t, b.NetReset.Held())
		require.NoError(t, hw.NetworkReset().Release())
		select {
		case id := <-started:
			require.Equal(t, layout.Net, id)
		case <-time.After(500 * time.Millisecond):
			t.Fatal("net core not started")
		}
		// releasing twice is a no-op
		require.NoError(t, hw.NetworkReset().Release())
		require.Equal(t, 1, b.NetReset.Releases())
		return nil
	}
	require.NoError(t, b.Run(context.Background(), app, net))
	<-stopped
	require.True(t, b.NetReset.Held())
	require.NoError(t, b.NetReset.Err())
}

func TestNetCoreHaltRecorded(t *testing.T) {
	b := newTestBoard(t)
	halt := errors.New("hard fault")
	b.NetReset.Attach(context.Background(), func(context.Context) error { return halt })
	require.NoError(t, b.NetReset.Release())
	deadline := time.Now().Add(500 * time.Millisecond)
	for b.NetReset.Err() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, b.NetReset.Hold())
	require.Equal(t, halt, b.NetReset.Err())
}

func TestReleaseWithoutImage(t *testing.T) {
	b := newTestBoard(t)
	require.Equal(t, ErrNoImage, b.NetReset.Release())
}

func TestSamplePacking(t *testing.T) {
	for _, s := range []Sample{
		{Channel: 0, Seq: 0, Value: 0},
		{Channel: 7, Seq: 0xabcdef, Value: -8388608},
		{Channel: 255, Seq: 1, Value: 8388607},
	} {
		require.Equal(t, s, UnpackSample(s.Pack()))
	}
}

func TestSampleSourcePacing(t *testing.T) {
	now := time.Unix(1000, 0)
	src := NewSampleSource(2)
	src.now = func() time.Time { return now }

	var got []Sample
	for {
		v, ok := src.Poll()
		if !ok {
			break
		}
		got = append(got, UnpackSample(v))
	}
	require.Equal(t, []uint8{0, 1}, []uint8{got[0].Channel, got[1].Channel})
	require.Len(t, got, 2)

	now = now.Add(20 * time.Millisecond)
	n := 0
	for {
		if _, ok := src.Poll(); !ok {
			break
		}
		n++
	}
	require.Equal(t, 10, n)
}

func TestCounterSource(t *testing.T) {
	src := &CounterSource{Limit: 3}
	for _, expected := range []uint64{1, 2, 3} {
		v, ok := src.Poll()
		require.True(t, ok)
		require.Equal(t, expected, v)
	}
	_, ok := src.Poll()
	require.False(t, ok)
}

func TestBoardRejectsUnallocatableRAM(t *testing.T) {
	l := layout.Default()
	l.RAMBase, l.RAMSize = 0, 0x80000000
	require.NoError(t, l.Validate())
	_, err := NewBoard(l)
	require.True(t, errors.Is(err, ring.ErrBadSegment))
	require.Equal(t, fault.Fatal, fault.KindOf(err))
}
