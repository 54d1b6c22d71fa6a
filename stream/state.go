package stream

import (
	"strings"
	"sync"
	"time"
)

// TimeoutPlaceholder is the finalize value when a stream times out with no
// accumulated content.
const TimeoutPlaceholder = "Response timed out."

// Outcome records which transition resolved a stream's completion signal.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeFinalized
	OutcomeTimedOut
	OutcomeAborted
)

// State tracks one in-flight response for one session. Content and thinking
// deltas accumulate append-only; the completion signal resolves exactly once,
// by whichever of finalize, timeout, or abort happens first.
type State struct {
	sessionKey string
	agentID    string
	createdAt  time.Time

	mu       sync.Mutex
	content  strings.Builder
	thinking strings.Builder
	runID    string
	usage    bool
	outcome  Outcome
	timer    *time.Timer

	resolveOnce sync.Once
	done        chan string
}

func newState(sessionKey, agentID string) *State {
	return &State{
		sessionKey: sessionKey,
		agentID:    agentID,
		createdAt:  time.Now(),
		done:       make(chan string, 1),
	}
}

func (s *State) SessionKey() string { return s.sessionKey }

// AgentID is the agent that was active when the stream started. Finalize
// compares it against the currently active agent to detect stale streams.
func (s *State) AgentID() string { return s.agentID }

func (s *State) CreatedAt() time.Time { return s.createdAt }

// AppendContent grows the final-answer accumulator. Deltas never resolve the
// completion signal; they only feed a later resolution.
func (s *State) AppendContent(delta string) {
	s.mu.Lock()
	s.content.WriteString(delta)
	s.mu.Unlock()
}

// AppendThinking grows the reasoning-trace accumulator.
func (s *State) AppendThinking(delta string) {
	s.mu.Lock()
	s.thinking.WriteString(delta)
	s.mu.Unlock()
}

func (s *State) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content.String()
}

func (s *State) Thinking() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thinking.String()
}

// SetRunID records the backend-assigned run identifier once the send
// acknowledgement arrives. May never be called if the ack never returns.
func (s *State) SetRunID(id string) {
	s.mu.Lock()
	s.runID = id
	s.mu.Unlock()
}

func (s *State) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// MarkUsageRecorded notes that real usage numbers were fed to the meter for
// this stream, suppressing the character-count estimator at finalize.
func (s *State) MarkUsageRecorded() {
	s.mu.Lock()
	s.usage = true
	s.mu.Unlock()
}

func (s *State) UsageRecorded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Outcome reports which transition resolved the stream, or OutcomePending.
func (s *State) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Done is the completion signal. Exactly one value is ever delivered; the
// orchestrator path that created the stream is its sole consumer.
func (s *State) Done() <-chan string {
	return s.done
}

// Resolve completes the stream with the final answer text. Returns true if
// this call won the resolution race; a losing call is a no-op, not an error.
func (s *State) Resolve(text string) bool {
	return s.resolve(text, OutcomeFinalized)
}

// ResolveAborted completes the stream on user abort with whatever content
// accumulated so far.
func (s *State) ResolveAborted(text string) bool {
	return s.resolve(text, OutcomeAborted)
}

func (s *State) resolve(text string, outcome Outcome) bool {
	won := false
	s.resolveOnce.Do(func() {
		s.mu.Lock()
		s.outcome = outcome
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.mu.Unlock()
		s.done <- text
		won = true
	})
	return won
}

// armTimeout schedules the fallback resolution so a stalled stream can never
// leave the UI waiting forever. Fires with accumulated content, or the
// timeout placeholder when nothing arrived.
func (s *State) armTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = time.AfterFunc(d, func() {
		text := s.Content()
		if text == "" {
			text = TimeoutPlaceholder
		}
		s.resolve(text, OutcomeTimedOut)
	})
}

// cancelTimeout makes any pending timeout inert. Idempotent; safe on an
// already-resolved or already-evicted state.
func (s *State) cancelTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
