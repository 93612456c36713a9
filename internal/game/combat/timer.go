package combat

import (
	"sync"
	"time"
)

// TurnTimer fires a callback after a configurable duration unless re-armed or stopped.
// Each Arm supersedes the previous one, so a callback from an earlier arming
// never runs once a later one has been made. It is safe for concurrent use.
type TurnTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewTurnTimer returns an idle timer.
func NewTurnTimer() *TurnTimer {
	return &TurnTimer{}
}

// Arm cancels any pending callback and schedules onFire after duration.
// onFire is called in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: onFire will be called after duration from now unless Arm or Stop is called first.
func (t *TurnTimer) Arm(duration time.Duration, onFire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	t.stopped = false
	gen := t.gen
	t.timer = time.AfterFunc(duration, func() {
		t.mu.Lock()
		live := !t.stopped && t.gen == gen
		t.mu.Unlock()
		if live {
			onFire()
		}
	})
}

// Stop prevents any pending callback from firing. Safe to call multiple times.
//
// Postcondition: no callback armed before Stop will be called after Stop returns.
func (t *TurnTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
