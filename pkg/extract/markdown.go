package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block found in markdown.
type CodeBlock struct {
	Lang    string
	Content string
}

// CodeBlocks returns every fenced code block in source, in document order.
func CodeBlocks(source string) []CodeBlock {
	src := []byte(source)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))

	var blocks []CodeBlock
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fenced.Info != nil {
			info := strings.Fields(string(fenced.Info.Text(src)))
			if len(info) > 0 {
				block.Lang = strings.ToLower(info[0])
			}
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(src))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

var diffLangs = map[string]bool{
	"diff":  true,
	"patch": true,
	"udiff": true,
}

// FencedDiff collects hunks from fenced blocks tagged as a diff, or from any
// untagged-as-json block that holds a hunk header line.
func FencedDiff(text string) ([]string, bool) {
	var hunks []string
	for _, block := range CodeBlocks(text) {
		if block.Lang == "json" {
			continue
		}
		if !diffLangs[block.Lang] && !hasHunkHeaderLine(block.Content) {
			continue
		}
		if found, ok := headedHunks(block.Content); ok {
			hunks = append(hunks, found...)
		}
	}
	return hunks, len(hunks) > 0
}
