package conversations

import (
	"strings"
	"testing"
)

func TestPlainPreview(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want string
	}{
		{"plain_text", "just a sentence", "just a sentence"},
		{"emphasis_stripped", "this is **very** important", "this is very important"},
		{"heading_stripped", "# Results\nAll tests passed", "Results All tests passed"},
		{"link_text_kept", "see [the docs](https://example.com) first", "see the docs first"},
		{"inline_code_kept", "run `go vet` before pushing", "run go vet before pushing"},
		{"empty", "", ""},
		{"whitespace_only", "   \n\t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainPreview(tt.md)
			// Leaf literals join with single spaces; collapse runs the same
			// way the preview pipeline does before comparing.
			got = strings.Join(strings.Fields(got), " ")
			if got != tt.want {
				t.Errorf("PlainPreview(%q) = %q, want %q", tt.md, got, tt.want)
			}
		})
	}
}
