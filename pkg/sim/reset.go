package sim

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// NetworkReset is the force-off line of the network core. The core
// powers up held. Release starts its firmware, Hold stops it.
type NetworkReset struct {
	lock     sync.Mutex
	held     bool
	ctx      context.Context
	image    func(context.Context) error
	cancel   context.CancelFunc
	doneCh   chan struct{}
	releases int
	err      error
}

func newNetworkReset() *NetworkReset {
	return &NetworkReset{held: true, ctx: context.Background()}
}

// Attach sets the firmware started on release.
func (r *NetworkReset) Attach(ctx context.Context, image func(context.Context) error) {
	r.lock.Lock()
	r.ctx, r.image = ctx, image
	r.lock.Unlock()
}

// Hold implements lifecycle.ResetControl. It returns once the
// network core firmware stopped.
func (r *NetworkReset) Hold() error {
	r.lock.Lock()
	if r.held {
		r.lock.Unlock()
		return nil
	}
	r.held = true
	cancel, doneCh := r.cancel, r.doneCh
	r.lock.Unlock()
	cancel()
	<-doneCh
	glog.Info("net core held in reset")
	return nil
}

// Release implements lifecycle.ResetControl.
func (r *NetworkReset) Release() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.held {
		return nil
	}
	if r.image == nil {
		return ErrNoImage
	}
	r.held = false
	r.releases++
	r.err = nil
	ctx, cancel := context.WithCancel(r.ctx)
	doneCh := make(chan struct{})
	r.cancel, r.doneCh = cancel, doneCh
	go func(image func(context.Context) error) {
		defer close(doneCh)
		err := image(ctx)
		if err != nil && ctx.Err() == nil {
			glog.Errorf("net core halted: %v", err)
			r.lock.Lock()
			r.err = err
			r.lock.Unlock()
		}
	}(r.image)
	glog.Info("net core released")
	return nil
}

// Held reports whether the network core is held.
func (r *NetworkReset) Held() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.held
}

// Releases counts releases since creation.
func (r *NetworkReset) Releases() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.releases
}

// Err returns the error the network core firmware halted with.
func (r *NetworkReset) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.err
}
