package study

import (
	"sync"
	"time"
)

// AutoAdvance is a single cancellable countdown with periodic progress ticks.
//
// Arm replaces any pending countdown. Cancel stops both the expiry callback
// and the tick loop and may be called any number of times. Once Cancel or a
// later Arm returns, a superseded countdown no longer ticks, and its expiry
// runs only if it had already claimed the countdown.
type AutoAdvance struct {
	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	stop     chan struct{}
	deadline time.Time
	total    time.Duration
}

// Arm starts a countdown of d. onTick receives the remaining time every tick;
// onExpire runs once when the countdown elapses. Either callback may be nil.
func (a *AutoAdvance) Arm(d, tick time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	gen := a.gen
	stop := make(chan struct{})
	a.stop = stop
	a.total = d
	a.deadline = time.Now().Add(d)

	a.timer = time.AfterFunc(d, func() {
		if !a.fire(gen) {
			return
		}
		if onExpire != nil {
			onExpire()
		}
	})

	if onTick != nil && tick > 0 {
		go a.tickLoop(gen, tick, stop, onTick)
	}
}

// Cancel stops the pending countdown, if any.
func (a *AutoAdvance) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

// Pending reports whether a countdown is armed and has not yet fired.
func (a *AutoAdvance) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Remaining is the time left on the pending countdown, zero if none.
func (a *AutoAdvance) Remaining() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		return 0
	}
	left := time.Until(a.deadline)
	if left < 0 {
		return 0
	}
	return left
}

// Total is the duration of the most recently armed countdown.
func (a *AutoAdvance) Total() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// fire claims the expiry for generation gen. It returns false if the
// countdown was cancelled or replaced in the meantime.
func (a *AutoAdvance) fire(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen || a.timer == nil {
		return false
	}
	a.timer = nil
	close(a.stop)
	a.stop = nil
	a.gen++
	return true
}

func (a *AutoAdvance) tickLoop(gen uint64, tick time.Duration, stop <-chan struct{}, onTick func(time.Duration)) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			a.mu.Lock()
			live := a.gen == gen && a.timer != nil
			left := time.Until(a.deadline)
			a.mu.Unlock()
			if !live {
				return
			}
			if left < 0 {
				left = 0
			}
			onTick(left)
		}
	}
}

func (a *AutoAdvance) cancelLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.gen++
}
