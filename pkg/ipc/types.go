// Package ipc turns hardware inter-processor events into coalesced
// software notifications.
package ipc

import "context"

// Trigger raises a cross-core event. It is fire-and-forget.
type Trigger interface {
	Trigger()
}

// TriggerFunc is the func form of Trigger.
type TriggerFunc func()

// Trigger implements Trigger.
func (f TriggerFunc) Trigger() {
	f()
}

// Event is the local view of a hardware event line. Any number of
// raises before an observation collapse into one.
type Event interface {
	// Wait returns once the event is pending.
	Wait(ctx context.Context) error
	// Clear acknowledges the event.
	Clear()
	// Pending reports whether the event is raised and not cleared.
	Pending() bool
}

// Channels is a hardware IPC peripheral seen from one core.
type Channels interface {
	// Trigger raises channel ch on the other core.
	Trigger(ch int)
	// Event returns the event of channel ch on this core.
	Event(ch int) Event
}

// ChannelTrigger binds a Trigger to one channel.
func ChannelTrigger(c Channels, ch int) Trigger {
	return TriggerFunc(func() { c.Trigger(ch) })
}
