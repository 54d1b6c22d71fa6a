package session

import (
	"context"
	"strings"
	"sync"

	"agenthub/agents"
	"agenthub/config"
	"agenthub/database"
	"agenthub/engine"
	apperrors "agenthub/errors"
	"agenthub/meter"
	"agenthub/stream"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Placeholder texts shown in place of an answer when a stream resolves with
// nothing usable.
const (
	NoResponsePlaceholder       = "No response received."
	AbortedPlaceholder          = "Response canceled."
	TransportFailurePlaceholder = "Failed to reach the engine. Please try again."
)

// PrefStore is the durable preference surface the orchestrator needs:
// the agent-to-last-session mapping plus pending group definitions.
// Constructor-injected so tests can swap an in-memory store.
type PrefStore interface {
	AgentSession(ctx context.Context, agentID string) (string, error)
	SetAgentSession(ctx context.Context, agentID, sessionKey string) error
	PendingGroups(ctx context.Context) ([]database.PendingGroup, error)
	PutPendingGroup(ctx context.Context, g database.PendingGroup) error
	DeletePendingGroup(ctx context.Context, sessionKey string) error
}

// SendResult is the terminal value of one send: the answer text or a
// placeholder, plus which transition produced it.
type SendResult struct {
	SessionKey string `json:"session_key"`
	Text       string `json:"text"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	Aborted    bool   `json:"aborted,omitempty"`
	// Dropped means the stream finalized after the user switched agents;
	// the text must not be injected into the live view.
	Dropped bool `json:"dropped,omitempty"`
}

// Orchestrator coordinates the stream registry, token meter, conversation
// aggregation, and the engine client in response to user actions. It owns
// the moving "current agent / current session" target that stream
// bookkeeping must not corrupt.
type Orchestrator struct {
	cfg      *config.Config
	logger   *zap.Logger
	engine   engine.Client
	registry *stream.Registry
	meter    *meter.Meter
	agents   *agents.Registry
	prefs    PrefStore
	history  *lru.Cache

	mu            sync.Mutex
	activeAgent   string
	activeSession string
	unread        map[string]int
	subs          map[int]chan DeltaEvent
	nextSub       int
}

func NewOrchestrator(
	cfg *config.Config,
	logger *zap.Logger,
	engineClient engine.Client,
	registry *stream.Registry,
	m *meter.Meter,
	roster *agents.Registry,
	prefs PrefStore,
) (*Orchestrator, error) {
	size := cfg.HistoryCacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, apperrors.WrapError(err, "create history cache")
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		engine:   engineClient,
		registry: registry,
		meter:    m,
		agents:   roster,
		prefs:    prefs,
		history:  cache,
		unread:   make(map[string]int),
		subs:     make(map[int]chan DeltaEvent),
	}, nil
}

// Start restores the active agent and its last-used session from the
// preference store. Creates a fresh session for the default agent when no
// mapping exists yet.
func (o *Orchestrator) Start(ctx context.Context) error {
	def := o.agents.Default()
	key, err := o.prefs.AgentSession(ctx, def.ID)
	if err != nil {
		o.logger.Warn("Could not restore last session, starting fresh",
			zap.String("agent_id", def.ID), zap.Error(err))
	}
	if key == "" {
		key = newSessionKey()
		if err := o.prefs.SetAgentSession(ctx, def.ID, key); err != nil {
			o.logger.Warn("Could not persist initial session mapping", zap.Error(err))
		}
	}

	o.mu.Lock()
	o.activeAgent = def.ID
	o.activeSession = key
	o.mu.Unlock()

	o.meter.SetModel(def.Model)
	o.logger.Info("Session orchestrator started",
		zap.String("agent_id", def.ID),
		zap.String("session_key", key))
	return nil
}

// SendMessage fires a chat request for the active session and blocks until
// the stream resolves through finalize, timeout, abort, or eviction by a
// newer send on the same session. The returned result carries either the
// answer or a well-defined failure placeholder; nothing here propagates as
// an unhandled error except empty input.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) (SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return SendResult{}, apperrors.ErrInvalidInput
	}

	o.mu.Lock()
	agentID := o.activeAgent
	sessionKey := o.activeSession
	o.mu.Unlock()

	agentMeta, _ := o.agents.Get(agentID)
	st := o.registry.Create(sessionKey, agentID, o.cfg.StreamTimeout)

	// The acknowledgement path runs detached from the request context: the
	// send must survive the caller unblocking early (abort, timeout).
	go o.fireSend(st, text, engine.SendOptions{
		AgentID:  agentID,
		Model:    agentMeta.Model,
		Thinking: true,
	})

	final := <-st.Done()
	o.registry.Release(st)
	o.history.Remove(sessionKey)

	outcome := st.Outcome()
	if final == "" {
		switch outcome {
		case stream.OutcomeAborted:
			final = AbortedPlaceholder
		default:
			final = o.lastAssistantFallback(ctx, sessionKey)
		}
	}

	// Some backends never report usage; approximate from character counts
	// so the meter still moves.
	if !st.UsageRecorded() && !isPlaceholder(final) {
		o.meter.RecordEstimate(text, final)
	}

	res := SendResult{
		SessionKey: sessionKey,
		Text:       final,
		// A timeout with partial content is a soft finalize; only an empty
		// one is surfaced to the user as a timeout.
		TimedOut: outcome == stream.OutcomeTimedOut && final == stream.TimeoutPlaceholder,
		Aborted:  outcome == stream.OutcomeAborted,
	}

	o.mu.Lock()
	if st.AgentID() != o.activeAgent {
		// Agent switched mid-stream: the answer belongs to a view the user
		// is no longer looking at. Drop it from the live UI; cleanup above
		// already happened.
		res.Dropped = true
	}
	if sessionKey != o.activeSession {
		o.unread[sessionKey]++
	}
	o.mu.Unlock()

	if res.Dropped {
		o.logger.Info("Dropped stale-agent finalize",
			zap.String("session_key", sessionKey),
			zap.String("stream_agent", st.AgentID()))
	}
	return res, nil
}

func (o *Orchestrator) fireSend(st *stream.State, text string, opts engine.SendOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.EngineRequestTimeout)
	defer cancel()

	ack, err := o.engine.SendChat(ctx, st.SessionKey(), text, opts)
	if err != nil {
		o.logger.Error("Chat send failed",
			zap.String("session_key", st.SessionKey()),
			zap.Error(err))
		// Keep any partial content that streamed in before the failure.
		if partial := st.Content(); partial != "" {
			st.Resolve(partial)
		} else {
			st.Resolve(TransportFailurePlaceholder)
		}
		return
	}

	if ack.RunID != "" {
		st.SetRunID(ack.RunID)
	}
	if len(ack.Usage) > 0 {
		if o.meter.RecordUsage(ack.Usage) {
			st.MarkUsageRecorded()
		}
	}
	// Backends that answer synchronously skip the delta channel entirely.
	if ack.Text != "" {
		st.Resolve(ack.Text)
	}
}

// HandleContentDelta appends an answer chunk to the session's stream and
// forwards it to subscribers when the session is the one on display.
// Deltas for unknown sessions are ignored; the stream may already have
// resolved or been evicted.
func (o *Orchestrator) HandleContentDelta(sessionKey, text string) {
	st, ok := o.registry.Get(sessionKey)
	if !ok {
		o.logger.Debug("Content delta for unknown stream", zap.String("session_key", sessionKey))
		return
	}
	st.AppendContent(text)
	o.forward(DeltaEvent{SessionKey: sessionKey, Type: DeltaContent, Text: text})
}

// HandleThinkingDelta appends a reasoning-trace chunk. Same tolerance rules
// as content deltas.
func (o *Orchestrator) HandleThinkingDelta(sessionKey, text string) {
	st, ok := o.registry.Get(sessionKey)
	if !ok {
		return
	}
	st.AppendThinking(text)
	o.forward(DeltaEvent{SessionKey: sessionKey, Type: DeltaThinking, Text: text})
}

// HandleFinalize resolves a stream with its definitive answer. Usage, when
// present, reaches the meter before resolution completes. Finalize for a
// session with no registered stream is tolerated silently.
func (o *Orchestrator) HandleFinalize(sessionKey, text string, usage map[string]interface{}) {
	st, ok := o.registry.Get(sessionKey)
	if !ok {
		o.logger.Debug("Finalize for unknown stream", zap.String("session_key", sessionKey))
		return
	}
	if len(usage) > 0 {
		if o.meter.RecordUsage(usage) {
			st.MarkUsageRecorded()
		}
	}
	if text == "" {
		text = st.Content()
	}
	st.Resolve(text)
}

// Abort resolves the local stream immediately with whatever accumulated and
// asks the backend, best-effort, to stop generating. The stop request is
// not waited on.
func (o *Orchestrator) Abort(sessionKey string) error {
	st, ok := o.registry.Get(sessionKey)
	if !ok {
		return apperrors.ErrStreamNotFound
	}
	st.ResolveAborted(st.Content())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.EngineRequestTimeout)
		defer cancel()
		if err := o.engine.AbortChat(ctx, sessionKey); err != nil {
			o.logger.Warn("Backend abort request failed",
				zap.String("session_key", sessionKey),
				zap.Error(err))
		}
	}()
	return nil
}

// lastAssistantFallback re-queries persisted history for the most recent
// assistant message. Covers backends whose streaming channel silently
// dropped but whose persistence layer still recorded the answer.
func (o *Orchestrator) lastAssistantFallback(ctx context.Context, sessionKey string) string {
	msgs, err := o.engine.FetchHistory(ctx, sessionKey, o.cfg.HistoryFetchLimit)
	if err != nil {
		o.logger.Warn("History fallback failed",
			zap.String("session_key", sessionKey),
			zap.Error(err))
		return NoResponsePlaceholder
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "assistant" && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return NoResponsePlaceholder
}

func isPlaceholder(text string) bool {
	switch text {
	case NoResponsePlaceholder, AbortedPlaceholder, TransportFailurePlaceholder, stream.TimeoutPlaceholder:
		return true
	}
	return false
}
