package clipboard

import (
	"sync"
	"time"
)

// DefaultAckDuration is how long a copy acknowledgment stays visible
const DefaultAckDuration = 2 * time.Second

// AckState is the visible state of the copy control
type AckState string

const (
	AckIdle   AckState = "idle"
	AckCopied AckState = "copied"
	AckFailed AckState = "failed"
)

// Label returns the text shown for the state
func (s AckState) Label() string {
	switch s {
	case AckCopied:
		return "Copied!"
	case AckFailed:
		return "Copy failed"
	default:
		return "Copy"
	}
}

// Ack holds a transient acknowledgment that reverts to idle after a fixed interval.
// A new signal restarts the interval.
type Ack struct {
	mu       sync.Mutex
	state    AckState
	hold     time.Duration
	timer    *time.Timer
	onRevert func()
}

// NewAck returns an idle acknowledgment that reverts after hold
func NewAck(hold time.Duration) *Ack {
	if hold <= 0 {
		hold = DefaultAckDuration
	}

	return &Ack{state: AckIdle, hold: hold}
}

// OnRevert registers fn to run after the state returns to idle
func (a *Ack) OnRevert(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.onRevert = fn
}

// Signal records the outcome of a copy and schedules the revert
func (a *Ack) Signal(err error) AckState {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = AckCopied
	if err != nil {
		a.state = AckFailed
	}

	if a.timer != nil {
		a.timer.Stop()
	}

	var timer *time.Timer

	timer = time.AfterFunc(a.hold, func() {
		a.mu.Lock()
		if a.timer != timer {
			a.mu.Unlock()
			return
		}

		a.state = AckIdle
		a.timer = nil
		fn := a.onRevert
		a.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
	a.timer = timer

	return a.state
}

// State returns the current state
func (a *Ack) State() AckState {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

// Hold returns the revert interval
func (a *Ack) Hold() time.Duration {
	return a.hold
}

// Stop cancels a pending revert and resets to idle
func (a *Ack) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	a.state = AckIdle
}
