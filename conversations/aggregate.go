package conversations

import (
	"sort"
	"strings"
)

// Tab selects a subset of the conversation index.
type Tab string

const (
	TabAll    Tab = "all"
	TabUnread Tab = "unread"
	TabAgents Tab = "agents"
	TabGroups Tab = "groups"
)

// SortConversations orders pinned entries first (stable among themselves),
// then by last activity descending. Equal timestamps keep insertion order.
func SortConversations(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].LastTs > out[j].LastTs
	})
	return out
}

// FilterByTab narrows entries to the selected tab. Unknown tabs behave as
// TabAll.
func FilterByTab(entries []Entry, tab Tab) []Entry {
	switch tab {
	case TabUnread:
		return filter(entries, func(e Entry) bool { return e.Unread > 0 })
	case TabAgents:
		return filter(entries, func(e Entry) bool { return e.Kind == KindDirect })
	case TabGroups:
		return filter(entries, func(e Entry) bool { return e.Kind == KindGroup })
	default:
		return entries
	}
}

// FilterConversations keeps entries whose agent name, label, or preview
// contains the query, case-insensitively. An empty or whitespace-only query
// returns the input unchanged.
func FilterConversations(entries []Entry, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entries
	}
	return filter(entries, func(e Entry) bool {
		return strings.Contains(strings.ToLower(e.AgentName), q) ||
			strings.Contains(strings.ToLower(e.Label), q) ||
			strings.Contains(strings.ToLower(e.LastMessage), q)
	})
}

// GroupByAgent partitions direct entries by agent, accumulating unread totals
// and the latest activity per group. Groups come back in first-seen order;
// callers sort them separately if they need to.
func GroupByAgent(entries []Entry) []AgentGroup {
	index := make(map[string]int)
	var groups []AgentGroup
	for _, e := range entries {
		if e.Kind == KindGroup {
			continue
		}
		i, ok := index[e.AgentID]
		if !ok {
			i = len(groups)
			index[e.AgentID] = i
			groups = append(groups, AgentGroup{AgentID: e.AgentID})
		}
		groups[i].Entries = append(groups[i].Entries, e)
		groups[i].TotalUnread += e.Unread
		if e.LastTs > groups[i].LatestTs {
			groups[i].LatestTs = e.LastTs
		}
	}
	return groups
}

// TruncatePreview collapses whitespace runs, trims, and cuts over-long text
// at the last word boundary that is not too early (at least 60% of maxLen),
// otherwise hard-cuts at maxLen. Appends an ellipsis whenever it truncated.
func TruncatePreview(text string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= maxLen {
		return collapsed
	}

	cut := runes[:maxLen]
	// Rune indices on both sides: a last space landing early in rune terms
	// must not pass the threshold on byte position alone.
	if idx := lastSpaceIndex(cut); idx >= maxLen*60/100 {
		cut = cut[:idx]
	}
	return string(cut) + "…"
}

func lastSpaceIndex(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

func filter(entries []Entry, keep func(Entry) bool) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
