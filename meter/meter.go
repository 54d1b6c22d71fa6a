package meter

import (
	"fmt"
	"sync"

	"agenthub/config"

	"go.uber.org/zap"
)

// Snapshot is the presentation-ready view of the meter.
type Snapshot struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	TokensUsed          int     `json:"tokens_used"`
	Cost                float64 `json:"cost"`
	ContextLimit        int     `json:"context_limit"`
	Percent             float64 `json:"percent"`
	CompactionWarning   string  `json:"compaction_warning,omitempty"`
	CompactionCritical  bool    `json:"compaction_critical,omitempty"`
	BudgetWarning       string  `json:"budget_warning,omitempty"`
	BudgetExceeded      bool    `json:"budget_exceeded,omitempty"`
	CompactionDismissed bool    `json:"compaction_dismissed,omitempty"`
}

// Meter is the running token and cost accounting for the active session.
// Input tokens are replaced on every report (each turn reports the full
// running prompt), output tokens are summed (each completion is a true
// delta). Total used is always recomputed from those two; backend-reported
// totals may reflect a different turn boundary and are never trusted
// directly.
type Meter struct {
	mu sync.Mutex

	logger      *zap.Logger
	warnPct     float64
	criticalPct float64
	budgetLimit float64

	model               string
	inputTokens         int
	outputTokens        int
	cost                float64
	contextLimit        int
	defaultLimit        int
	compactionDismissed bool
}

func New(cfg *config.Config, logger *zap.Logger) *Meter {
	return &Meter{
		logger:       logger,
		warnPct:      cfg.CompactionWarnPercent,
		criticalPct:  cfg.CompactionCriticalPercent,
		budgetLimit:  cfg.BudgetLimitUSD,
		contextLimit: cfg.DefaultContextLength,
		defaultLimit: cfg.DefaultContextLength,
	}
}

// RecordUsage probes a heterogeneous usage payload and accumulates whatever
// it yields. Returns false when no known field variant produced a non-zero
// count, in which case nothing changes.
func (m *Meter) RecordUsage(payload map[string]interface{}) bool {
	input := probeTokens(payload, inputFields)
	output := probeTokens(payload, outputFields)
	total := probeTokens(payload, totalFields)

	if input == 0 && output == 0 && total == 0 {
		return false
	}

	// A payload carrying only a total is treated as a prompt-size report;
	// every backend that reports totals derives them input-first.
	if input == 0 && output == 0 {
		input = total
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(input, output)
	return true
}

// RecordEstimate approximates one turn's usage from character counts when the
// backend never reported any. Feeds the same accumulation path as real usage.
func (m *Meter) RecordEstimate(userText, answerText string) {
	input := estimateTokens(userText)
	output := estimateTokens(answerText)
	if input == 0 && output == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(input, output)
	m.logger.Debug("Recorded estimated usage",
		zap.Int("input_tokens", input),
		zap.Int("output_tokens", output))
}

// apply holds the replace-input / sum-output contract. Callers hold m.mu.
func (m *Meter) apply(input, output int) {
	if input > 0 {
		m.inputTokens = input
	}
	m.outputTokens += output

	tier := ratesFor(m.model)
	m.cost += float64(input)*tier.input/1e6 + float64(output)*tier.output/1e6
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// SetModel retargets the rate tier and context limit for a new active model.
func (m *Meter) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
	if window := contextWindowFor(model); window > 0 {
		m.contextLimit = window
	}
	// No prefix match leaves the previous limit untouched.
}

// SetContextLimitForModel adjusts only the context window.
func (m *Meter) SetContextLimitForModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if window := contextWindowFor(model); window > 0 {
		m.contextLimit = window
	}
}

// DismissCompaction suppresses the compaction warning until the next reset.
func (m *Meter) DismissCompaction() {
	m.mu.Lock()
	m.compactionDismissed = true
	m.mu.Unlock()
}

// Reset zeroes all counters and un-dismisses the compaction warning. Called
// on session switch, agent switch, new chat, and explicit clear.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputTokens = 0
	m.outputTokens = 0
	m.cost = 0
	m.compactionDismissed = false
}

// Snapshot returns the current state for display.
func (m *Meter) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.inputTokens + m.outputTokens
	limit := m.contextLimit
	if limit <= 0 {
		limit = m.defaultLimit
	}
	percent := float64(used) / float64(limit) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	snap := Snapshot{
		InputTokens:         m.inputTokens,
		OutputTokens:        m.outputTokens,
		TokensUsed:          used,
		Cost:                m.cost,
		ContextLimit:        limit,
		Percent:             percent,
		CompactionDismissed: m.compactionDismissed,
	}

	if !m.compactionDismissed && percent >= m.warnPct {
		if percent >= m.criticalPct {
			snap.CompactionCritical = true
			snap.CompactionWarning = fmt.Sprintf("Context nearly exhausted (%.0f%% used). The next turn may compact older messages.", percent)
		} else {
			snap.CompactionWarning = fmt.Sprintf("Context is %.0f%% full. Older messages will be compacted soon.", percent)
		}
	}

	if m.budgetLimit > 0 {
		switch {
		case m.cost > m.budgetLimit:
			snap.BudgetExceeded = true
			snap.BudgetWarning = fmt.Sprintf("Budget exceeded: $%.2f spent of the $%.2f ceiling.", m.cost, m.budgetLimit)
		case m.cost >= 0.8*m.budgetLimit:
			snap.BudgetWarning = fmt.Sprintf("Spending has reached $%.2f of the $%.2f budget.", m.cost, m.budgetLimit)
		}
	}

	return snap
}
