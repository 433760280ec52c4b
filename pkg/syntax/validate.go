package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"

	"github.com/replicatedhq/patchsmith/pkg/logger"
)

// Validate reports whether code is plausibly well-formed for lang. Procedural
// code gets a full parse, declarative code gets heuristic checks, and any
// other language is accepted without looking at it.
func Validate(ctx context.Context, code string, lang Language) (bool, string) {
	var (
		ok  bool
		msg string
	)
	switch lang {
	case Procedural:
		ok, msg = validateProcedural(ctx, code)
	case Declarative:
		ok, msg = validateDeclarative(code)
	default:
		ok, msg = true, fmt.Sprintf("no validation for language %q", lang)
	}

	logger.Debug("syntax validation",
		zap.String("language", lang.String()),
		zap.Bool("valid", ok),
		zap.String("message", msg))
	return ok, msg
}

func validateProcedural(ctx context.Context, code string) (bool, string) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		return false, fmt.Sprintf("parse failed: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return true, "syntax ok"
	}

	node := firstErrorNode(root)
	if node == nil {
		return false, "syntax error"
	}

	pos := node.StartPoint()
	if node.IsMissing() {
		return false, fmt.Sprintf("missing %q at line %d, column %d", node.Type(), pos.Row+1, pos.Column+1)
	}
	return false, fmt.Sprintf("syntax error at line %d, column %d", pos.Row+1, pos.Column+1)
}

// firstErrorNode returns the first ERROR or MISSING node in document order.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

var statementKeywords = map[string]bool{
	"select": true, "with": true, "insert": true, "update": true, "delete": true,
	"merge": true, "create": true, "alter": true, "drop": true, "truncate": true,
	"replace": true, "grant": true, "revoke": true, "use": true, "set": true,
	"show": true, "describe": true, "explain": true, "optimize": true, "vacuum": true,
	"cache": true, "uncache": true, "refresh": true, "analyze": true, "msck": true,
	"copy": true, "values": true,
}

func validateDeclarative(code string) (bool, string) {
	stripped, err := stripSQL(code)
	if err != nil {
		return false, err.Error()
	}
	if strings.TrimSpace(stripped) == "" {
		return true, "nothing to validate"
	}

	depth := 0
	line := 1
	for _, r := range stripped {
		switch r {
		case '\n':
			line++
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false, fmt.Sprintf("unbalanced parentheses: unexpected ')' at line %d", line)
			}
		}
	}
	if depth > 0 {
		return false, fmt.Sprintf("unbalanced parentheses: %d unclosed '('", depth)
	}

	for _, stmt := range strings.Split(stripped, ";") {
		fields := strings.Fields(strings.TrimLeft(stmt, "( \t\r\n"))
		if len(fields) > 0 && statementKeywords[strings.ToLower(fields[0])] {
			return true, "syntax ok"
		}
	}
	return false, "no statement keyword found"
}

// stripSQL removes comments and blanks out string literals and quoted
// identifiers, keeping newlines so positions stay countable.
func stripSQL(code string) (string, error) {
	var b strings.Builder
	b.Grow(len(code))

	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '-' && i+1 < len(code) && code[i+1] == '-':
			for i < len(code) && code[i] != '\n' {
				i++
			}
			if i < len(code) {
				b.WriteByte('\n')
			}

		case c == '/' && i+1 < len(code) && code[i+1] == '*':
			end := strings.Index(code[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment")
			}
			b.WriteString(strings.Repeat("\n", strings.Count(code[i:i+2+end+2], "\n")))
			i += 2 + end + 1

		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for ; j < len(code); j++ {
				if code[j] == '\\' && c != '`' {
					j++
					continue
				}
				if code[j] == c {
					if j+1 < len(code) && code[j+1] == c {
						j++
						continue
					}
					break
				}
			}
			if j >= len(code) {
				return "", fmt.Errorf("unterminated quoted literal")
			}
			b.WriteByte('_')
			b.WriteString(strings.Repeat("\n", strings.Count(code[i:j], "\n")))
			i = j

		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
