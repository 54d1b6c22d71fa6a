package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PendingGroup is a group chat the user configured before the backend
// created its session.
type PendingGroup struct {
	SessionKey string
	Name       string
	Members    []string
}

// AgentSession returns the last-used session key for an agent, or "" when
// none is recorded.
func (s *PostgresStore) AgentSession(ctx context.Context, agentID string) (string, error) {
	var sessionKey string
	err := s.DB.QueryRowContext(ctx,
		`SELECT session_key FROM agent_sessions WHERE agent_id = $1`, agentID,
	).Scan(&sessionKey)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read agent session: %w", err)
	}
	return sessionKey, nil
}

// AgentSessions returns the full agent-to-session mapping, read at startup.
func (s *PostgresStore) AgentSessions(ctx context.Context) (map[string]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT agent_id, session_key FROM agent_sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var agentID, sessionKey string
		if err := rows.Scan(&agentID, &sessionKey); err != nil {
			return nil, fmt.Errorf("failed to scan agent session row: %w", err)
		}
		out[agentID] = sessionKey
	}
	return out, rows.Err()
}

// SetAgentSession records the last-used session for an agent, written after
// every successful switch or creation.
func (s *PostgresStore) SetAgentSession(ctx context.Context, agentID, sessionKey string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO agent_sessions (agent_id, session_key, updated_at)
         VALUES ($1, $2, NOW())
         ON CONFLICT (agent_id) DO UPDATE SET session_key = EXCLUDED.session_key, updated_at = NOW()`,
		agentID, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to upsert agent session: %w", err)
	}
	return nil
}

// PendingGroups returns every not-yet-created group chat.
func (s *PostgresStore) PendingGroups(ctx context.Context) ([]PendingGroup, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT session_key, name, members FROM pending_groups ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending groups: %w", err)
	}
	defer rows.Close()

	var groups []PendingGroup
	for rows.Next() {
		var g PendingGroup
		if err := rows.Scan(&g.SessionKey, &g.Name, pq.Array(&g.Members)); err != nil {
			return nil, fmt.Errorf("failed to scan pending group row: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// PutPendingGroup stores or replaces a pending group definition.
func (s *PostgresStore) PutPendingGroup(ctx context.Context, g PendingGroup) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO pending_groups (session_key, name, members)
         VALUES ($1, $2, $3)
         ON CONFLICT (session_key) DO UPDATE SET name = EXCLUDED.name, members = EXCLUDED.members`,
		g.SessionKey, g.Name, pq.Array(g.Members))
	if err != nil {
		return fmt.Errorf("failed to upsert pending group: %w", err)
	}
	return nil
}

// DeletePendingGroup removes a pending group once the backend has created
// the real session. Idempotent.
func (s *PostgresStore) DeletePendingGroup(ctx context.Context, sessionKey string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM pending_groups WHERE session_key = $1`, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to delete pending group: %w", err)
	}
	return nil
}
