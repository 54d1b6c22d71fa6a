package session

import (
	"context"

	"agenthub/database"
	apperrors "agenthub/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newSessionKey() string {
	return uuid.New().String()
}

// ActiveAgent returns the currently active agent id.
func (o *Orchestrator) ActiveAgent() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeAgent
}

// ActiveSession returns the currently active session key.
func (o *Orchestrator) ActiveSession() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeSession
}

// SwitchAgent makes agentID active, restoring its last-used session or
// creating a fresh one. Any stream still running for the previous session is
// left alone: it keeps accumulating and its finalize will be dropped from
// the live view if the agent no longer matches. The meter resets and
// retargets the new agent's model.
func (o *Orchestrator) SwitchAgent(ctx context.Context, agentID string) (string, error) {
	agent, ok := o.agents.Get(agentID)
	if !ok {
		return "", apperrors.WrapErrorf(apperrors.ErrNotFound, "agent %q", agentID)
	}

	key, err := o.prefs.AgentSession(ctx, agentID)
	if err != nil {
		o.logger.Warn("Could not read last session for agent",
			zap.String("agent_id", agentID), zap.Error(err))
	}
	if key == "" {
		key = newSessionKey()
	}
	if err := o.prefs.SetAgentSession(ctx, agentID, key); err != nil {
		o.logger.Warn("Could not persist agent session mapping",
			zap.String("agent_id", agentID), zap.Error(err))
	}

	o.mu.Lock()
	o.activeAgent = agentID
	o.activeSession = key
	delete(o.unread, key)
	o.mu.Unlock()

	o.meter.Reset()
	o.meter.SetModel(agent.Model)

	o.logger.Info("Switched agent",
		zap.String("agent_id", agentID),
		zap.String("session_key", key))
	return key, nil
}

// SwitchSession makes sessionKey the displayed session for the current
// agent. The meter resets; the session's unread count drops to zero.
func (o *Orchestrator) SwitchSession(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return apperrors.ErrInvalidInput
	}

	o.mu.Lock()
	agentID := o.activeAgent
	o.activeSession = sessionKey
	delete(o.unread, sessionKey)
	o.mu.Unlock()

	if err := o.prefs.SetAgentSession(ctx, agentID, sessionKey); err != nil {
		o.logger.Warn("Could not persist session switch",
			zap.String("agent_id", agentID),
			zap.String("session_key", sessionKey),
			zap.Error(err))
	}

	o.meter.Reset()
	return nil
}

// NewChat starts a fresh session for the current agent and kicks off
// fire-and-forget pruning of old empty sessions, sparing the new key.
func (o *Orchestrator) NewChat(ctx context.Context) (string, error) {
	key := newSessionKey()

	o.mu.Lock()
	agentID := o.activeAgent
	o.activeSession = key
	o.mu.Unlock()

	if err := o.prefs.SetAgentSession(ctx, agentID, key); err != nil {
		o.logger.Warn("Could not persist new chat session",
			zap.String("agent_id", agentID), zap.Error(err))
	}

	o.meter.Reset()

	go func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), o.cfg.EngineRequestTimeout)
		defer cancel()
		count, err := o.engine.PruneEmptySessions(pruneCtx, o.cfg.PruneMaxAge, key)
		if err != nil {
			o.logger.Warn("Session pruning failed", zap.Error(err))
			return
		}
		if count > 0 {
			o.logger.Info("Pruned empty sessions", zap.Int("count", count))
		}
	}()

	return key, nil
}

// ClearSession wipes the meter for the current session without changing
// which session is active.
func (o *Orchestrator) ClearSession() {
	o.meter.Reset()
}

// CreateGroupChat records a pending group chat: a name and member set the
// backend has not created a session for yet. It appears in the conversation
// index immediately.
func (o *Orchestrator) CreateGroupChat(ctx context.Context, name string, members []string) (string, error) {
	if name == "" || len(members) == 0 {
		return "", apperrors.ErrInvalidInput
	}
	key := "group-" + newSessionKey()
	g := database.PendingGroup{SessionKey: key, Name: name, Members: members}
	if err := o.prefs.PutPendingGroup(ctx, g); err != nil {
		return "", apperrors.WrapError(err, "persist pending group")
	}
	o.logger.Info("Created pending group chat",
		zap.String("session_key", key),
		zap.String("name", name),
		zap.Int("members", len(members)))
	return key, nil
}
