package wire

import (
	"testing"
	"time"
)

// fakeClock drives the meter without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) step(d time.Duration) { c.t = c.t.Add(d) }

func TestRateMeterSumsWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newRateMeterAt(clock.now)

	for i := 0; i < 5; i++ {
		m.Add(100)
		clock.step(100 * time.Millisecond)
	}

	if got := m.PerSecond(); got != 500 {
		t.Errorf("PerSecond = %v, want 500", got)
	}
}

func TestRateMeterExpiresOldBuckets(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newRateMeterAt(clock.now)

	m.Add(1000)
	clock.step(500 * time.Millisecond)
	m.Add(200)

	// The first burst is still inside the window.
	if got := m.PerSecond(); got != 1200 {
		t.Errorf("PerSecond = %v, want 1200", got)
	}

	// Step past one full second since the first burst; only the second
	// burst remains.
	clock.step(600 * time.Millisecond)
	if got := m.PerSecond(); got != 200 {
		t.Errorf("PerSecond after expiry = %v, want 200", got)
	}
}

func TestRateMeterResetsAfterLongIdle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newRateMeterAt(clock.now)

	m.Add(5000)
	clock.step(5 * time.Second)

	if got := m.PerSecond(); got != 0 {
		t.Errorf("PerSecond after idle = %v, want 0", got)
	}
}
