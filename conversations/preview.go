package conversations

import (
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// PlainPreview strips markdown structure from a message body, leaving the
// literal text for preview truncation. Message bodies are stored as
// markdown, and headings, emphasis markers, and link targets read badly in a
// one-line preview.
func PlainPreview(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	// Parser instances are single-use.
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))

	var b strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := node.AsLeaf(); leaf != nil && len(leaf.Literal) > 0 {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})

	if b.Len() == 0 {
		return md
	}
	return b.String()
}
