package wire

import (
	"sync"
	"time"
)

const (
	meterBuckets    = 10
	meterBucketSpan = 100 * time.Millisecond
)

// RateMeter counts bytes over a sliding one-second window split into
// fixed 100ms buckets. Add is called by the wire layer on each successful
// send; PerSecond is read by whoever owns the sink.
type RateMeter struct {
	mu      sync.Mutex
	buckets [meterBuckets]int64
	slot    int
	slotAt  time.Time
	now     func() time.Time
}

func NewRateMeter() *RateMeter {
	return newRateMeterAt(time.Now)
}

func newRateMeterAt(now func() time.Time) *RateMeter {
	return &RateMeter{slotAt: now(), now: now}
}

// Add records n bytes written.
func (m *RateMeter) Add(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	m.buckets[m.slot] += int64(n)
}

// PerSecond returns the byte rate over the window.
func (m *RateMeter) PerSecond() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	var total int64
	for _, b := range m.buckets {
		total += b
	}
	return float32(total)
}

// advance rotates expired buckets forward to the current slot. Caller
// holds mu.
func (m *RateMeter) advance() {
	elapsed := m.now().Sub(m.slotAt)
	steps := int(elapsed / meterBucketSpan)
	if steps <= 0 {
		return
	}
	if steps >= meterBuckets {
		for i := range m.buckets {
			m.buckets[i] = 0
		}
		m.slot = 0
		m.slotAt = m.now()
		return
	}
	for i := 0; i < steps; i++ {
		m.slot = (m.slot + 1) % meterBuckets
		m.buckets[m.slot] = 0
	}
	m.slotAt = m.slotAt.Add(time.Duration(steps) * meterBucketSpan)
}
