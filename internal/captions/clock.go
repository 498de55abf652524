package captions

import (
	"sync"
	"time"
)

// Clock abstracts timer creation so tests can drive debounce windows
// deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// debouncer coalesces rapid events per key: arming a key cancels its
// pending timer and starts a new one, so only the last event in a burst
// fires. Coalescing, not queueing.
type debouncer struct {
	clock Clock

	mu     sync.Mutex
	timers map[string]Timer
}

func newDebouncer(clock Clock) *debouncer {
	return &debouncer{
		clock:  clock,
		timers: make(map[string]Timer),
	}
}

func (d *debouncer) Arm(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

func (d *debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

func (d *debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
