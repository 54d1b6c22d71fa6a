package meter

import "strings"

// rate is USD per million tokens.
type rate struct {
	input  float64
	output float64
}

// defaultRate is the fallback tier for unrecognized models.
var defaultRate = rate{input: 1.0, output: 3.0}

// costRates maps model-name prefixes to rate tiers; first match wins, same
// semantics as the context window table.
var costRates = []struct {
	prefix string
	tier   rate
}{
	{"claude-opus", rate{15.0, 75.0}},
	{"claude-sonnet", rate{3.0, 15.0}},
	{"claude-haiku", rate{0.8, 4.0}},
	{"claude-", rate{3.0, 15.0}},
	{"o1", rate{15.0, 60.0}},
	{"o3", rate{10.0, 40.0}},
	{"gpt-4o-mini", rate{0.15, 0.6}},
	{"gpt-4o", rate{2.5, 10.0}},
	{"gpt-4", rate{30.0, 60.0}},
	{"gpt-3.5", rate{0.5, 1.5}},
	{"gemini-", rate{1.25, 5.0}},
	{"deepseek-", rate{0.27, 1.1}},
	{"mistral-large", rate{2.0, 6.0}},
	{"grok-", rate{3.0, 15.0}},
}

func ratesFor(model string) rate {
	norm := strings.ToLower(strings.TrimSpace(model))
	for _, entry := range costRates {
		if strings.HasPrefix(norm, entry.prefix) {
			return entry.tier
		}
	}
	return defaultRate
}
