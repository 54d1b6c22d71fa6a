package meter

import (
	"strings"
	"testing"

	"agenthub/config"

	"go.uber.org/zap"
)

func newTestMeter() *Meter {
	logger, _ := zap.NewDevelopment()
	cfg := &config.Config{
		CompactionWarnPercent:     75,
		CompactionCriticalPercent: 95,
		BudgetLimitUSD:            10,
		DefaultContextLength:      32000,
	}
	return New(cfg, logger)
}

func TestRecordUsagePayloadVariants(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]interface{}
		wantOK     bool
		wantInput  int
		wantOutput int
	}{
		{
			name:       "top_level_anthropic_names",
			payload:    map[string]interface{}{"input_tokens": float64(120), "output_tokens": float64(45)},
			wantOK:     true,
			wantInput:  120,
			wantOutput: 45,
		},
		{
			name: "nested_usage_openai_names",
			payload: map[string]interface{}{
				"usage": map[string]interface{}{"prompt_tokens": float64(300), "completion_tokens": float64(80)},
			},
			wantOK:     true,
			wantInput:  300,
			wantOutput: 80,
		},
		{
			name: "response_usage_google_names",
			payload: map[string]interface{}{
				"response": map[string]interface{}{
					"usage": map[string]interface{}{"promptTokenCount": float64(64), "candidatesTokenCount": float64(16)},
				},
			},
			wantOK:     true,
			wantInput:  64,
			wantOutput: 16,
		},
		{
			name:       "only_total_counts_as_input",
			payload:    map[string]interface{}{"total_tokens": float64(500)},
			wantOK:     true,
			wantInput:  500,
			wantOutput: 0,
		},
		{
			name:    "unrecognized_fields",
			payload: map[string]interface{}{"tokens": float64(42), "spent": float64(7)},
			wantOK:  false,
		},
		{
			name:    "zero_counts_are_no_data",
			payload: map[string]interface{}{"input_tokens": float64(0), "output_tokens": float64(0)},
			wantOK:  false,
		},
		{
			name:    "nil_payload",
			payload: nil,
			wantOK:  false,
		},
		{
			name:       "integer_typed_counts",
			payload:    map[string]interface{}{"input_tokens": 33, "output_tokens": int64(11)},
			wantOK:     true,
			wantInput:  33,
			wantOutput: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMeter()
			gotOK := m.RecordUsage(tt.payload)
			if gotOK != tt.wantOK {
				t.Fatalf("RecordUsage() = %v, want %v", gotOK, tt.wantOK)
			}
			snap := m.Snapshot()
			if !tt.wantOK {
				if snap.InputTokens != 0 || snap.OutputTokens != 0 {
					t.Errorf("rejected payload changed counters: input=%d output=%d", snap.InputTokens, snap.OutputTokens)
				}
				return
			}
			if snap.InputTokens != tt.wantInput {
				t.Errorf("InputTokens = %d, want %d", snap.InputTokens, tt.wantInput)
			}
			if snap.OutputTokens != tt.wantOutput {
				t.Errorf("OutputTokens = %d, want %d", snap.OutputTokens, tt.wantOutput)
			}
		})
	}
}

func TestReplaceInputSumOutput(t *testing.T) {
	m := newTestMeter()

	turns := []map[string]interface{}{
		{"input_tokens": float64(100), "output_tokens": float64(20)},
		{"input_tokens": float64(150), "output_tokens": float64(30)},
		{"input_tokens": float64(210), "output_tokens": float64(25)},
	}
	for _, payload := range turns {
		if !m.RecordUsage(payload) {
			t.Fatal("RecordUsage() returned false for a valid payload")
		}
	}

	snap := m.Snapshot()
	if snap.InputTokens != 210 {
		t.Errorf("InputTokens = %d, want 210 (last turn's full prompt)", snap.InputTokens)
	}
	if snap.OutputTokens != 75 {
		t.Errorf("OutputTokens = %d, want 75 (sum of deltas)", snap.OutputTokens)
	}
	if snap.TokensUsed != 285 {
		t.Errorf("TokensUsed = %d, want 285", snap.TokensUsed)
	}
}

func TestRecordUsageCostAccrual(t *testing.T) {
	m := newTestMeter()
	m.SetModel("claude-sonnet-4-5")

	// claude-sonnet tier: $3/M input, $15/M output.
	m.RecordUsage(map[string]interface{}{
		"input_tokens":  float64(1_000_000),
		"output_tokens": float64(1_000_000),
	})

	snap := m.Snapshot()
	if snap.Cost < 17.99 || snap.Cost > 18.01 {
		t.Errorf("Cost = %v, want 18.0", snap.Cost)
	}
}

func TestRecordEstimate(t *testing.T) {
	m := newTestMeter()

	// (len+3)/4: "hello" is 5 chars -> 2 tokens, 9 chars -> 3 tokens.
	m.RecordEstimate("hello", "nine char")

	snap := m.Snapshot()
	if snap.InputTokens != 2 {
		t.Errorf("InputTokens = %d, want 2", snap.InputTokens)
	}
	if snap.OutputTokens != 3 {
		t.Errorf("OutputTokens = %d, want 3", snap.OutputTokens)
	}

	// Empty texts are a no-op.
	m.RecordEstimate("", "")
	snap = m.Snapshot()
	if snap.InputTokens != 2 || snap.OutputTokens != 3 {
		t.Errorf("empty estimate changed counters: input=%d output=%d", snap.InputTokens, snap.OutputTokens)
	}
}

func TestContextWindowFor(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"claude-sonnet-4-5", 200_000},
		{"claude-opus-4", 200_000},
		{"gpt-4o-mini", 128_000},
		{"gpt-4-turbo-2024", 128_000},
		{"gpt-4-0613", 8_192},
		{"gpt-3.5-turbo", 16_384},
		{"gemini-2.0-flash", 1_048_576},
		{"o1-mini", 128_000},
		{"o1-preview", 200_000},
		{"llama3.2:3b", 8_192},
		{"llama-70b", 128_000},
		{"qwen2.5-coder", 128_000},
		{"qwen-max", 32_000},
		{"some-unknown-model", 0},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := contextWindowFor(tt.model); got != tt.want {
				t.Errorf("contextWindowFor(%q) = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}

func TestSetModelKeepsLimitOnUnknown(t *testing.T) {
	m := newTestMeter()

	m.SetModel("claude-sonnet-4-5")
	if got := m.Snapshot().ContextLimit; got != 200_000 {
		t.Fatalf("ContextLimit = %d, want 200000", got)
	}

	// An unrecognized model keeps the previous window.
	m.SetModel("mystery-model-9000")
	if got := m.Snapshot().ContextLimit; got != 200_000 {
		t.Errorf("ContextLimit = %d, want 200000 after unknown model", got)
	}
}

func TestSnapshotCompactionWarnings(t *testing.T) {
	tests := []struct {
		name         string
		used         int
		dismiss      bool
		wantWarning  bool
		wantCritical bool
	}{
		{"below_threshold", 20_000, false, false, false},
		{"warn_band", 25_000, false, true, false},
		{"critical_band", 31_000, false, true, true},
		{"dismissed_warn", 25_000, true, false, false},
		{"dismissed_critical", 31_000, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMeter() // 32000 default window
			m.RecordUsage(map[string]interface{}{"input_tokens": float64(tt.used)})
			if tt.dismiss {
				m.DismissCompaction()
			}

			snap := m.Snapshot()
			if (snap.CompactionWarning != "") != tt.wantWarning {
				t.Errorf("CompactionWarning = %q, wantWarning=%v", snap.CompactionWarning, tt.wantWarning)
			}
			if snap.CompactionCritical != tt.wantCritical {
				t.Errorf("CompactionCritical = %v, want %v", snap.CompactionCritical, tt.wantCritical)
			}
		})
	}
}

func TestSnapshotPercentClamped(t *testing.T) {
	m := newTestMeter()
	m.RecordUsage(map[string]interface{}{"input_tokens": float64(64_000)}) // double the window

	snap := m.Snapshot()
	if snap.Percent != 100 {
		t.Errorf("Percent = %v, want 100", snap.Percent)
	}
}

func TestSnapshotBudgetWarnings(t *testing.T) {
	m := newTestMeter()
	m.SetModel("claude-opus-4") // $15/M input, $75/M output

	// $7.50: below the 80% warn line of the $10 budget.
	m.RecordUsage(map[string]interface{}{"input_tokens": float64(500_000)})
	if snap := m.Snapshot(); snap.BudgetWarning != "" {
		t.Errorf("BudgetWarning = %q, want empty at $7.50", snap.BudgetWarning)
	}

	// +$0.75 output -> $8.25, inside the warn band.
	m.RecordUsage(map[string]interface{}{"output_tokens": float64(10_000)})
	snap := m.Snapshot()
	if snap.BudgetWarning == "" || snap.BudgetExceeded {
		t.Errorf("want warn without exceeded, got warning=%q exceeded=%v", snap.BudgetWarning, snap.BudgetExceeded)
	}

	// +$3.00 output -> $11.25, over the ceiling.
	m.RecordUsage(map[string]interface{}{"output_tokens": float64(40_000)})
	snap = m.Snapshot()
	if !snap.BudgetExceeded {
		t.Error("BudgetExceeded = false, want true over the ceiling")
	}
	if !strings.Contains(snap.BudgetWarning, "exceeded") {
		t.Errorf("BudgetWarning = %q, want exceeded message", snap.BudgetWarning)
	}
}

func TestReset(t *testing.T) {
	m := newTestMeter()
	m.SetModel("claude-sonnet-4-5")
	m.RecordUsage(map[string]interface{}{"input_tokens": float64(150_000), "output_tokens": float64(2_000)})
	m.DismissCompaction()

	m.Reset()

	snap := m.Snapshot()
	if snap.InputTokens != 0 || snap.OutputTokens != 0 || snap.Cost != 0 {
		t.Errorf("counters survived reset: %+v", snap)
	}
	if snap.CompactionDismissed {
		t.Error("CompactionDismissed survived reset")
	}
	if snap.ContextLimit != 200_000 {
		t.Errorf("ContextLimit = %d, want 200000 preserved across reset", snap.ContextLimit)
	}
}

func TestRatesForDefaultTier(t *testing.T) {
	tier := ratesFor("unknown-local-model")
	if tier.input != defaultRate.input || tier.output != defaultRate.output {
		t.Errorf("ratesFor(unknown) = %+v, want default tier %+v", tier, defaultRate)
	}
}
