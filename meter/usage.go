package meter

// Usage payloads arrive in heterogeneous shapes depending on which backend
// produced them: token counts may sit at the top level, under "usage", or
// under "response.usage", and each concept goes by at least three names
// (OpenAI-style snake_case, Anthropic-style input/output, Google-style
// camelCase counts). The probe tables below are evaluated in priority order;
// the first non-zero match wins.

var usagePaths = [][]string{
	nil,
	{"usage"},
	{"response", "usage"},
}

var inputFields = []string{
	"input_tokens",
	"prompt_tokens",
	"promptTokenCount",
}

var outputFields = []string{
	"output_tokens",
	"completion_tokens",
	"candidatesTokenCount",
}

var totalFields = []string{
	"total_tokens",
	"totalTokens",
	"totalTokenCount",
}

// probeTokens walks every (path, field) candidate in order and returns the
// first non-zero count, or 0 when no variant matches.
func probeTokens(payload map[string]interface{}, fields []string) int {
	if payload == nil {
		return 0
	}
	for _, path := range usagePaths {
		node := dig(payload, path)
		if node == nil {
			continue
		}
		for _, field := range fields {
			if v, ok := node[field]; ok {
				if n := asTokenCount(v); n > 0 {
					return n
				}
			}
		}
	}
	return 0
}

func dig(payload map[string]interface{}, path []string) map[string]interface{} {
	node := payload
	for _, key := range path {
		child, ok := node[key]
		if !ok {
			return nil
		}
		m, ok := child.(map[string]interface{})
		if !ok {
			return nil
		}
		node = m
	}
	return node
}

// asTokenCount coerces the numeric types JSON decoding can produce.
// Anything unparseable counts as zero, which falls through to "no usage
// data this turn" rather than an error.
func asTokenCount(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}
