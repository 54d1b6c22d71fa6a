package session

import (
	"context"

	"agenthub/conversations"
	"agenthub/engine"
	apperrors "agenthub/errors"
	"agenthub/meter"

	"go.uber.org/zap"
)

// Delta event types forwarded to presentation subscribers.
const (
	DeltaContent  = "content"
	DeltaThinking = "thinking"
)

// DeltaEvent is one incremental chunk for the currently-displayed session.
type DeltaEvent struct {
	SessionKey string `json:"session_key"`
	Type       string `json:"type"`
	Text       string `json:"text"`
}

// Subscribe registers a delta consumer. Only events for the currently active
// session are delivered; a slow consumer drops events rather than stalling
// stream bookkeeping.
func (o *Orchestrator) Subscribe() (int, <-chan DeltaEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	ch := make(chan DeltaEvent, 64)
	o.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a delta consumer. Idempotent.
func (o *Orchestrator) Unsubscribe(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ch, ok := o.subs[id]; ok {
		delete(o.subs, id)
		close(ch)
	}
}

func (o *Orchestrator) forward(ev DeltaEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ev.SessionKey != o.activeSession {
		return
	}
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Conversations builds the sorted, filtered conversation index: engine
// session records plus pending groups, denormalized against the agent
// roster.
func (o *Orchestrator) Conversations(ctx context.Context, tab conversations.Tab, query string) ([]conversations.Entry, error) {
	records, err := o.sessionRecords(ctx)
	if err != nil {
		return nil, err
	}

	entries := conversations.BuildEntries(records, o.buildContext())
	entries = conversations.FilterByTab(entries, tab)
	entries = conversations.FilterConversations(entries, query)
	return conversations.SortConversations(entries), nil
}

// ConversationGroups returns the per-agent aggregation of direct entries.
func (o *Orchestrator) ConversationGroups(ctx context.Context) ([]conversations.AgentGroup, error) {
	records, err := o.sessionRecords(ctx)
	if err != nil {
		return nil, err
	}
	entries := conversations.SortConversations(conversations.BuildEntries(records, o.buildContext()))
	return conversations.GroupByAgent(entries), nil
}

func (o *Orchestrator) sessionRecords(ctx context.Context) ([]conversations.SessionRecord, error) {
	sessions, err := o.engine.ListSessions(ctx, o.cfg.SessionListLimit)
	if err != nil {
		return nil, apperrors.WrapError(err, "list sessions")
	}

	records := make([]conversations.SessionRecord, 0, len(sessions))
	seen := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		seen[s.SessionKey] = true
		records = append(records, conversations.SessionRecord{
			SessionKey:  s.SessionKey,
			AgentID:     s.AgentID,
			Kind:        s.Kind,
			Label:       s.Label,
			LastMessage: s.LastMessage,
			LastRole:    s.LastRole,
			LastTs:      s.LastTs,
			Pinned:      s.Pinned,
			Members:     s.Members,
		})
	}

	// Pending groups have no engine session yet but still belong in the
	// index. Degrade gracefully when the preference store is unavailable.
	pending, err := o.prefs.PendingGroups(ctx)
	if err != nil {
		o.logger.Warn("Could not load pending groups", zap.Error(err))
		return records, nil
	}
	for _, g := range pending {
		if seen[g.SessionKey] {
			continue
		}
		records = append(records, conversations.SessionRecord{
			SessionKey: g.SessionKey,
			Kind:       "group",
			Label:      g.Name,
			Members:    g.Members,
		})
	}
	return records, nil
}

func (o *Orchestrator) buildContext() conversations.BuildContext {
	return conversations.BuildContext{
		AgentLookup: func(agentID string) (conversations.AgentInfo, bool) {
			a, ok := o.agents.Get(agentID)
			if !ok {
				return conversations.AgentInfo{}, false
			}
			return conversations.AgentInfo{Name: a.Name, Avatar: a.Avatar, Color: a.Color}, true
		},
		ActiveSessionKey: o.ActiveSession(),
		IsStreaming:      o.registry.IsStreaming,
		UnreadCount:      o.unreadCount,
		PreviewMaxLen:    o.cfg.PreviewMaxLength,
	}
}

func (o *Orchestrator) unreadCount(sessionKey string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unread[sessionKey]
}

// History returns the persisted messages for a session, cached per key until
// the next finalize on that session invalidates it.
func (o *Orchestrator) History(ctx context.Context, sessionKey string) ([]engine.Message, error) {
	if v, ok := o.history.Get(sessionKey); ok {
		return v.([]engine.Message), nil
	}
	msgs, err := o.engine.FetchHistory(ctx, sessionKey, o.cfg.HistoryFetchLimit)
	if err != nil {
		return nil, apperrors.WrapError(err, "fetch history")
	}
	o.history.Add(sessionKey, msgs)
	return msgs, nil
}

// MeterSnapshot exposes the current token/cost state for display.
func (o *Orchestrator) MeterSnapshot() meter.Snapshot {
	return o.meter.Snapshot()
}

// DismissCompaction suppresses the compaction warning for the current
// session.
func (o *Orchestrator) DismissCompaction() {
	o.meter.DismissCompaction()
}

// SweepStaleStreams evicts leaked stream states; run from housekeeping.
func (o *Orchestrator) SweepStaleStreams() int {
	return o.registry.SweepStale()
}
