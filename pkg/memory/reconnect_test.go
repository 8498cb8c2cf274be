package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a controllable clock for idle-reconnect tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestReconnectorRebuildsAfterIdle(t *testing.T) {
	clock := newFakeClock()
	rebuilds := 0
	r := newReconnector("test", 240*time.Second, clock.Now, func() { rebuilds++ })

	// Fresh service: no rebuild.
	r.ensureFresh()
	r.touch()
	assert.Equal(t, 0, rebuilds)

	// Still inside the idle window.
	clock.Advance(239 * time.Second)
	r.ensureFresh()
	r.touch()
	assert.Equal(t, 0, rebuilds)

	// Past the threshold: exactly one rebuild before the call proceeds.
	clock.Advance(300 * time.Second)
	r.ensureFresh()
	assert.Equal(t, 1, rebuilds)
	r.touch()

	// Immediately after, no further rebuild.
	r.ensureFresh()
	r.touch()
	assert.Equal(t, 1, rebuilds)
}

func TestReconnectorTouchOnFailureStillCountsAsActivity(t *testing.T) {
	clock := newFakeClock()
	rebuilds := 0
	r := newReconnector("test", 240*time.Second, clock.Now, func() { rebuilds++ })

	// A failed operation still updates the activity timestamp.
	clock.Advance(200 * time.Second)
	r.ensureFresh()
	r.touch() // operation failed, timestamp updated anyway

	clock.Advance(200 * time.Second)
	r.ensureFresh()
	assert.Equal(t, 0, rebuilds, "400s total but only 200s since last activity")
}

func TestSemanticServiceReconnectsClientExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	svc := NewSemantic(SemanticConfig{
		BaseURL:       "http://localhost:1", // never reached before assertion
		DefaultUserID: "u",
		SearchLimit:   5,
		IdleReconnect: 240 * time.Second,
		Clock:         clock.Now,
	})
	first := svc.client

	clock.Advance(300 * time.Second)
	svc.recon.ensureFresh()

	assert.NotSame(t, first, svc.client, "client must be reconstructed after idle threshold")

	second := svc.client
	svc.recon.touch()
	svc.recon.ensureFresh()
	assert.Same(t, second, svc.client, "no rebuild while activity is recent")
}
