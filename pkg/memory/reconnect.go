package memory

import (
	"log/slog"
	"sync"
	"time"
)

// Clock supplies monotonic time. Production code uses the real clock;
// tests inject a controllable one.
type Clock func() time.Time

// reconnector tracks client activity and preemptively rebuilds the
// underlying provider client after an idle threshold, so pooled
// connections never hit server-side timeouts mid-call.
//
// The semantic and graph providers each hold one and call ensureFresh on
// entry and touch on exit (success or failure) of every method that
// reaches the provider, so the lifecycle is identical across them. The
// in-process stub has no client to rebuild and does not use one.
type reconnector struct {
	mu           sync.Mutex
	clock        Clock
	idle         time.Duration
	lastActivity time.Time
	rebuild      func() // reconstructs the client from stored construction params
	provider     string
}

func newReconnector(provider string, idle time.Duration, clock Clock, rebuild func()) *reconnector {
	if clock == nil {
		clock = time.Now
	}
	return &reconnector{
		clock:        clock,
		idle:         idle,
		lastActivity: clock(),
		rebuild:      rebuild,
		provider:     provider,
	}
}

// ensureFresh reconstructs the client if the service has been idle past
// the threshold. Runs before the operation is dispatched.
func (r *reconnector) ensureFresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clock().Sub(r.lastActivity) > r.idle {
		slog.Info("memory.client.reconnect",
			"provider", r.provider,
			"idle", r.clock().Sub(r.lastActivity).Round(time.Second))
		r.rebuild()
		r.lastActivity = r.clock()
	}
}

// touch records activity at the end of every operation, successful or not.
func (r *reconnector) touch() {
	r.mu.Lock()
	r.lastActivity = r.clock()
	r.mu.Unlock()
}
