package meter

import "strings"

// contextWindows maps model-name prefixes to context window sizes. Ordered by
// specificity: the first matching prefix wins, so date-suffixed IDs like
// "claude-sonnet-4-5-20260203" still resolve. An unrecognized model leaves
// the previous limit untouched.
var contextWindows = []struct {
	prefix string
	window int
}{
	{"claude-", 200_000},
	{"o4-mini", 200_000},
	{"o3", 200_000},
	{"o1-mini", 128_000},
	{"o1", 200_000},
	{"gpt-4o", 128_000},
	{"gpt-4-turbo", 128_000},
	{"gpt-4", 8_192},
	{"gpt-3.5-turbo", 16_384},
	{"gemini-", 1_048_576},
	{"deepseek-", 128_000},
	{"mistral-large", 128_000},
	{"mixtral", 32_000},
	{"mistral", 32_000},
	{"grok-", 131_072},
	{"llama3.2", 8_192},
	{"llama", 128_000},
	{"qwen2.5", 128_000},
	{"qwen", 32_000},
}

// contextWindowFor returns the context window for a model name, or 0 when no
// prefix matches.
func contextWindowFor(model string) int {
	norm := strings.ToLower(strings.TrimSpace(model))
	for _, entry := range contextWindows {
		if strings.HasPrefix(norm, entry.prefix) {
			return entry.window
		}
	}
	return 0
}
