package conversations

import (
	"testing"
	"unicode/utf8"
)

func TestSortConversations(t *testing.T) {
	entries := []Entry{
		{SessionKey: "a", LastTs: 100},
		{SessionKey: "b", LastTs: 300},
		{SessionKey: "c", LastTs: 200, Pinned: true},
		{SessionKey: "d", LastTs: 50, Pinned: true},
		{SessionKey: "e", LastTs: 300},
	}

	sorted := SortConversations(entries)

	wantOrder := []string{"c", "d", "b", "e", "a"}
	for i, want := range wantOrder {
		if sorted[i].SessionKey != want {
			t.Errorf("position %d = %q, want %q", i, sorted[i].SessionKey, want)
		}
	}

	// Input must not be reordered in place.
	if entries[0].SessionKey != "a" {
		t.Error("SortConversations mutated its input")
	}
}

func TestSortConversationsStableOnEqualTs(t *testing.T) {
	entries := []Entry{
		{SessionKey: "first", LastTs: 100},
		{SessionKey: "second", LastTs: 100},
		{SessionKey: "third", LastTs: 100},
	}

	sorted := SortConversations(entries)
	for i, want := range []string{"first", "second", "third"} {
		if sorted[i].SessionKey != want {
			t.Errorf("position %d = %q, want %q", i, sorted[i].SessionKey, want)
		}
	}
}

func TestFilterByTab(t *testing.T) {
	entries := []Entry{
		{SessionKey: "d1", Kind: KindDirect, Unread: 2},
		{SessionKey: "d2", Kind: KindDirect},
		{SessionKey: "g1", Kind: KindGroup, Unread: 1},
		{SessionKey: "x1", Kind: KindGlobal},
	}

	tests := []struct {
		name string
		tab  Tab
		want []string
	}{
		{"all", TabAll, []string{"d1", "d2", "g1", "x1"}},
		{"unread", TabUnread, []string{"d1", "g1"}},
		{"agents", TabAgents, []string{"d1", "d2"}},
		{"groups", TabGroups, []string{"g1"}},
		{"unknown_tab_behaves_as_all", Tab("bogus"), []string{"d1", "d2", "g1", "x1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByTab(entries, tt.tab)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if got[i].SessionKey != want {
					t.Errorf("position %d = %q, want %q", i, got[i].SessionKey, want)
				}
			}
		})
	}
}

func TestFilterConversations(t *testing.T) {
	entries := []Entry{
		{SessionKey: "a", AgentName: "Research Bot", Label: "", LastMessage: "draft ready"},
		{SessionKey: "b", AgentName: "Coder", Label: "API rewrite", LastMessage: "done"},
		{SessionKey: "c", AgentName: "Coder", Label: "", LastMessage: "checking the RESEARCH paper"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"matches_name_and_message", "research", []string{"a", "c"}},
		{"matches_label", "api", []string{"b"}},
		{"case_insensitive", "CODER", []string{"b", "c"}},
		{"no_match", "zzz", []string{}},
		{"empty_query_returns_all", "", []string{"a", "b", "c"}},
		{"whitespace_query_returns_all", "   ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterConversations(entries, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if got[i].SessionKey != want {
					t.Errorf("position %d = %q, want %q", i, got[i].SessionKey, want)
				}
			}
		})
	}
}

func TestGroupByAgent(t *testing.T) {
	entries := []Entry{
		{SessionKey: "s1", AgentID: "coder", Kind: KindDirect, Unread: 2, LastTs: 100},
		{SessionKey: "s2", AgentID: "writer", Kind: KindDirect, Unread: 0, LastTs: 300},
		{SessionKey: "s3", AgentID: "coder", Kind: KindDirect, Unread: 1, LastTs: 200},
		{SessionKey: "g1", AgentID: "coder", Kind: KindGroup, Unread: 5, LastTs: 400},
	}

	groups := GroupByAgent(entries)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	// First-seen order.
	if groups[0].AgentID != "coder" || groups[1].AgentID != "writer" {
		t.Errorf("group order = [%s, %s], want [coder, writer]", groups[0].AgentID, groups[1].AgentID)
	}

	coder := groups[0]
	if len(coder.Entries) != 2 {
		t.Errorf("coder entries = %d, want 2 (group sessions excluded)", len(coder.Entries))
	}
	if coder.TotalUnread != 3 {
		t.Errorf("coder TotalUnread = %d, want 3", coder.TotalUnread)
	}
	if coder.LatestTs != 200 {
		t.Errorf("coder LatestTs = %d, want 200", coder.LatestTs)
	}
}

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{
			name:   "short_text_unchanged",
			text:   "hello world",
			maxLen: 60,
			want:   "hello world",
		},
		{
			name:   "whitespace_collapsed",
			text:   "hello\n\n  world\ttabs",
			maxLen: 60,
			want:   "hello world tabs",
		},
		{
			name:   "cut_at_word_boundary",
			text:   "the quick brown fox jumps over",
			maxLen: 20,
			want:   "the quick brown fox…",
		},
		{
			name:   "hard_cut_when_boundary_too_early",
			text:   "go 0123456789012345678901234567890123456789",
			maxLen: 20,
			want:   "go 01234567890123456…",
		},
		{
			name:   "exactly_max_unchanged",
			text:   "12345678901234567890",
			maxLen: 20,
			want:   "12345678901234567890",
		},
		{
			// The space sits at rune 3 of 10 (below the 60% line) but at
			// byte 6 of 19; the early-boundary check must measure in runes.
			name:   "multibyte_boundary_measured_in_runes",
			text:   "ééé xxxxxxxxxxxxxxxxxxxx",
			maxLen: 10,
			want:   "ééé xxxxxx…",
		},
		{
			name:   "multibyte_word_boundary_kept",
			text:   "héllo wörld again and again",
			maxLen: 14,
			want:   "héllo wörld…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncatePreview(tt.text, tt.maxLen)
			if got != tt.want {
				t.Errorf("TruncatePreview() = %q, want %q", got, tt.want)
			}
			if n := utf8.RuneCountInString(got); n > tt.maxLen+1 {
				t.Errorf("result is %d runes, want at most maxLen+1 = %d", n, tt.maxLen+1)
			}
		})
	}
}

func TestBuildEntries(t *testing.T) {
	records := []SessionRecord{
		{SessionKey: "active", AgentID: "coder", Kind: "direct", LastMessage: "**bold** answer", LastTs: 100},
		{SessionKey: "other", AgentID: "ghost", Kind: "direct", LastMessage: "plain", LastTs: 200},
		{SessionKey: "grp", AgentID: "", Kind: "group", Label: "Planning", LastTs: 300},
	}

	bc := BuildContext{
		AgentLookup: func(agentID string) (AgentInfo, bool) {
			if agentID == "coder" {
				return AgentInfo{Name: "Coder", Avatar: "c.png", Color: "#123"}, true
			}
			return AgentInfo{}, false
		},
		ActiveSessionKey: "active",
		IsStreaming:      func(key string) bool { return key == "other" },
		UnreadCount:      func(key string) int { return 7 },
		PreviewMaxLen:    60,
	}

	entries := BuildEntries(records, bc)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	active := entries[0]
	if active.AgentName != "Coder" || active.AgentColor != "#123" {
		t.Errorf("roster lookup not applied: %+v", active)
	}
	if active.LastMessage != "bold answer" {
		t.Errorf("markdown not stripped from preview: %q", active.LastMessage)
	}
	if active.Unread != 0 {
		t.Errorf("active session Unread = %d, want 0", active.Unread)
	}

	other := entries[1]
	if other.AgentName != "ghost" {
		t.Errorf("unknown agent name = %q, want fallback to id", other.AgentName)
	}
	if other.Unread != 7 {
		t.Errorf("other session Unread = %d, want 7", other.Unread)
	}
	if !other.IsStreaming {
		t.Error("other session IsStreaming = false, want true")
	}

	if entries[2].Kind != KindGroup {
		t.Errorf("group record Kind = %q, want %q", entries[2].Kind, KindGroup)
	}
}
