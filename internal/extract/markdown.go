package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown walks the goldmark AST and collects visible text, dropping
// markup. Block boundaries become paragraph breaks so downstream chunking
// can split on them.
func extractMarkdown(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("content is not valid utf-8")
	}
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.FencedCodeBlock:
			var code strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				code.Write(line.Value(data))
			}
			if code.Len() > 0 {
				parts = append(parts, strings.TrimRight(code.String(), "\n"))
			}
		default:
			if txt := nodeText(node, data); txt != "" {
				parts = append(parts, txt)
			}
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).SoftLineBreak() || node.(*ast.Text).HardLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func init() {
	register(extractMarkdown, ".md", ".markdown")
}
