package markdownify

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// Summary is a lightweight structural profile of a rendered Markdown
// document, attached to its archival artifact record.
type Summary struct {
	HeadingCount   int
	CodeBlockCount int
	TableCount     int
	HasH1          bool
}

// Summarize parses content's Markdown AST and counts its structural
// elements, without enforcing any document-shape invariant on it; the
// archival artifact is a best-effort snapshot, not a validated document.
func Summarize(content string) Summary {
	doc := markdown.Parse([]byte(content), parser.New())

	var s Summary
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.Heading:
			s.HeadingCount++
			if n.Level == 1 {
				s.HasH1 = true
			}
		case *ast.CodeBlock:
			s.CodeBlockCount++
		case *ast.Table:
			s.TableCount++
		}
		return ast.GoToNext
	})
	return s
}
