package conversations

// Kind classifies a conversation entry for tab filtering.
type Kind string

const (
	KindDirect  Kind = "direct"
	KindGroup   Kind = "group"
	KindGlobal  Kind = "global"
	KindUnknown Kind = "unknown"
)

// Entry is a presentation-ready summary of one session. Agent display fields
// are denormalized from the roster at aggregation time, not stored here
// authoritatively.
type Entry struct {
	SessionKey  string   `json:"session_key"`
	AgentID     string   `json:"agent_id"`
	AgentName   string   `json:"agent_name"`
	AgentAvatar string   `json:"agent_avatar"`
	AgentColor  string   `json:"agent_color"`
	LastMessage string   `json:"last_message"`
	LastRole    string   `json:"last_role"`
	LastTs      int64    `json:"last_ts"`
	Unread      int      `json:"unread"`
	IsStreaming bool     `json:"is_streaming"`
	Pinned      bool     `json:"pinned"`
	Kind        Kind     `json:"kind"`
	Label       string   `json:"label"`
	Members     []string `json:"members,omitempty"`
}

// AgentGroup is the aggregation of all direct entries sharing an agent.
// Derived on demand, never persisted.
type AgentGroup struct {
	AgentID     string  `json:"agent_id"`
	Entries     []Entry `json:"entries"`
	TotalUnread int     `json:"total_unread"`
	LatestTs    int64   `json:"latest_ts"`
}

// SessionRecord is the raw per-session input to aggregation, as the engine
// reports it.
type SessionRecord struct {
	SessionKey  string
	AgentID     string
	Kind        string
	Label       string
	LastMessage string
	LastRole    string
	LastTs      int64
	Pinned      bool
	Members     []string
}

// AgentInfo is the display metadata aggregation denormalizes per entry.
type AgentInfo struct {
	Name   string
	Avatar string
	Color  string
}

// BuildContext carries the lookups BuildEntries needs from the orchestrator.
type BuildContext struct {
	AgentLookup      func(agentID string) (AgentInfo, bool)
	ActiveSessionKey string
	IsStreaming      func(sessionKey string) bool
	UnreadCount      func(sessionKey string) int
	PreviewMaxLen    int
}

// BuildEntries normalizes raw session records into presentation entries.
// Unread is forced to zero for the active session; previews are stripped of
// markdown and truncated.
func BuildEntries(records []SessionRecord, bc BuildContext) []Entry {
	maxLen := bc.PreviewMaxLen
	if maxLen <= 0 {
		maxLen = 60
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entry := Entry{
			SessionKey:  rec.SessionKey,
			AgentID:     rec.AgentID,
			LastMessage: TruncatePreview(PlainPreview(rec.LastMessage), maxLen),
			LastRole:    rec.LastRole,
			LastTs:      rec.LastTs,
			Pinned:      rec.Pinned,
			Kind:        classifyKind(rec.Kind),
			Label:       rec.Label,
			Members:     rec.Members,
		}

		if bc.AgentLookup != nil {
			if info, ok := bc.AgentLookup(rec.AgentID); ok {
				entry.AgentName = info.Name
				entry.AgentAvatar = info.Avatar
				entry.AgentColor = info.Color
			}
		}
		if entry.AgentName == "" {
			entry.AgentName = rec.AgentID
		}

		if bc.IsStreaming != nil {
			entry.IsStreaming = bc.IsStreaming(rec.SessionKey)
		}
		if rec.SessionKey != bc.ActiveSessionKey && bc.UnreadCount != nil {
			entry.Unread = bc.UnreadCount(rec.SessionKey)
		}

		entries = append(entries, entry)
	}
	return entries
}

func classifyKind(kind string) Kind {
	switch kind {
	case "direct":
		return KindDirect
	case "group":
		return KindGroup
	case "global":
		return KindGlobal
	default:
		return KindUnknown
	}
}
