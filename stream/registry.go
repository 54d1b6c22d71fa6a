package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry holds at most one State per session key. A new Create for an
// existing key evicts the old entry first, which is the only concurrency
// control two overlapping sends on the same session need: last writer wins
// at the registry, and the evicted state resolves immediately so its waiter
// unblocks. Late timeout or abort paths against an evicted entry are inert.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*State
	staleAge time.Duration
	logger   *zap.Logger
}

func NewRegistry(staleAge time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		entries:  make(map[string]*State),
		staleAge: staleAge,
		logger:   logger,
	}
}

// Create registers a fresh State for sessionKey and arms its timeout. Any
// existing entry is evicted first and resolved with whatever content it
// accumulated, the same soft-finalize shape the timeout path uses, so the
// evicted sender's wait on its completion signal unblocks instead of hanging
// on a signal nobody will ever fire. Resolution stops the old timer, keeping
// the previously-scheduled timeout inert. Stale entries are swept before
// every create so a leaked entry never blocks a new stream on the same key.
func (r *Registry) Create(sessionKey, agentID string, timeout time.Duration) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepStaleLocked()

	if old, ok := r.entries[sessionKey]; ok {
		delete(r.entries, sessionKey)
		old.ResolveAborted(old.Content())
		r.logger.Warn("Evicted in-flight stream for new send",
			zap.String("session_key", sessionKey))
	}

	st := newState(sessionKey, agentID)
	st.armTimeout(timeout)
	r.entries[sessionKey] = st
	return st
}

// Get returns the State for sessionKey if one is streaming.
func (r *Registry) Get(sessionKey string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.entries[sessionKey]
	return st, ok
}

// Release removes st only if it is still the registered entry for its key.
// A state that was evicted by a newer Create cleans up without touching the
// replacement.
func (r *Registry) Release(st *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[st.SessionKey()]; ok && cur == st {
		cur.cancelTimeout()
		delete(r.entries, st.SessionKey())
	}
}

// SweepStale evicts entries older than the stale ceiling, resolving each so
// any waiter still parked on one unblocks. A backstop against a stream that
// never reached finalize, abort, or timeout; not the primary cleanup
// mechanism. Returns the number evicted.
func (r *Registry) SweepStale() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepStaleLocked()
}

func (r *Registry) sweepStaleLocked() int {
	if r.staleAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-r.staleAge)
	evicted := 0
	for key, st := range r.entries {
		if st.CreatedAt().Before(cutoff) {
			delete(r.entries, key)
			st.ResolveAborted(st.Content())
			evicted++
			r.logger.Warn("Swept stale stream state",
				zap.String("session_key", key),
				zap.Time("created_at", st.CreatedAt()))
		}
	}
	return evicted
}

// IsStreaming reports whether a session currently has an in-flight response.
func (r *Registry) IsStreaming(sessionKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[sessionKey]
	return ok
}

// Len returns the number of in-flight streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
