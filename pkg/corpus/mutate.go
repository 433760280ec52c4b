package corpus

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/replicatedhq/patchsmith/pkg/syntax"
)

// EditType is one kind of random edit a Mutator makes.
type EditType string

const (
	EditAddLine     EditType = "add-line"
	EditChangeLine  EditType = "change-line"
	EditRemoveLine  EditType = "remove-line"
	EditAddBlock    EditType = "add-block"
	EditComment     EditType = "comment"
	EditIndentation EditType = "indentation"
)

// LineType categorizes a source line.
type LineType int

const (
	LineTypeEmpty LineType = iota
	LineTypeComment
	LineTypeCode
	LineTypeBlockStart
)

type sourceLine struct {
	Content  string
	LineType LineType
	Indent   int
}

// Mutator makes random line-level edits to a source.
type Mutator struct {
	rng           *rand.Rand
	lines         []string
	commentPrefix string
	editTypes     []EditType
}

func NewMutator(rng *rand.Rand, source string, lang syntax.Language) *Mutator {
	m := &Mutator{
		rng:           rng,
		lines:         strings.Split(strings.TrimSuffix(source, "\n"), "\n"),
		commentPrefix: "#",
		editTypes: []EditType{
			EditAddLine,
			EditChangeLine,
			EditRemoveLine,
			EditAddBlock,
			EditComment,
			EditIndentation,
		},
	}
	if lang == syntax.Declarative {
		m.commentPrefix = "--"
	}
	return m
}

// Lines returns the current, edited lines.
func (m *Mutator) Lines() []string {
	return m.lines
}

// Mutate applies n random edits and returns the kinds that were made.
func (m *Mutator) Mutate(n int) []EditType {
	made := make([]EditType, 0, n)
	for len(made) < n {
		editType := m.editTypes[m.rng.Intn(len(m.editTypes))]
		if m.apply(editType) {
			made = append(made, editType)
		}
	}
	return made
}

func (m *Mutator) apply(editType EditType) bool {
	parsed := m.parse()
	switch editType {
	case EditAddLine:
		at := m.rng.Intn(len(m.lines) + 1)
		indent := 0
		if at > 0 {
			indent = parsed[at-1].Indent
			if parsed[at-1].LineType == LineTypeBlockStart {
				indent += 4
			}
		}
		m.insert(at, strings.Repeat(" ", indent)+m.randomStatement())
		return true

	case EditChangeLine:
		candidates := m.linesOfType(parsed, LineTypeCode)
		if len(candidates) == 0 {
			return false
		}
		i := pick(m.rng, candidates)
		m.lines[i] = fmt.Sprintf("%s  %s changed %d", m.lines[i], m.commentPrefix, m.rng.Intn(1000))
		return true

	case EditRemoveLine:
		candidates := m.linesOfType(parsed, LineTypeCode, LineTypeComment)
		if len(candidates) < 2 {
			return false
		}
		i := pick(m.rng, candidates)
		m.lines = append(m.lines[:i], m.lines[i+1:]...)
		return true

	case EditAddBlock:
		at := m.rng.Intn(len(m.lines) + 1)
		block := m.randomBlock()
		for j := len(block) - 1; j >= 0; j-- {
			m.insert(at, block[j])
		}
		return true

	case EditComment:
		candidates := m.linesOfType(parsed, LineTypeComment)
		if len(candidates) > 0 && m.rng.Float32() < 0.3 {
			i := pick(m.rng, candidates)
			m.lines[i] = fmt.Sprintf("%s%s %s", strings.Repeat(" ", parsed[i].Indent), m.commentPrefix, m.randomComment())
			return true
		}
		candidates = m.linesOfType(parsed, LineTypeCode, LineTypeBlockStart)
		if len(candidates) == 0 {
			return false
		}
		i := pick(m.rng, candidates)
		m.insert(i, fmt.Sprintf("%s%s %s", strings.Repeat(" ", parsed[i].Indent), m.commentPrefix, m.randomComment()))
		return true

	case EditIndentation:
		candidates := m.linesOfType(parsed, LineTypeComment)
		if len(candidates) == 0 {
			return false
		}
		i := pick(m.rng, candidates)
		m.lines[i] = "    " + m.lines[i]
		return true
	}
	return false
}

func (m *Mutator) insert(at int, line string) {
	m.lines = append(m.lines, "")
	copy(m.lines[at+1:], m.lines[at:])
	m.lines[at] = line
}

func (m *Mutator) parse() []sourceLine {
	parsed := make([]sourceLine, 0, len(m.lines))
	for _, line := range m.lines {
		trimmed := strings.TrimSpace(line)
		sl := sourceLine{
			Content: line,
			Indent:  len(line) - len(strings.TrimLeft(line, " \t")),
		}
		switch {
		case trimmed == "":
			sl.LineType = LineTypeEmpty
		case strings.HasPrefix(trimmed, m.commentPrefix):
			sl.LineType = LineTypeComment
		case strings.HasSuffix(trimmed, ":"), strings.HasSuffix(trimmed, "("):
			sl.LineType = LineTypeBlockStart
		default:
			sl.LineType = LineTypeCode
		}
		parsed = append(parsed, sl)
	}
	return parsed
}

func (m *Mutator) linesOfType(parsed []sourceLine, types ...LineType) []int {
	var out []int
	for i, sl := range parsed {
		for _, t := range types {
			if sl.LineType == t {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func (m *Mutator) randomStatement() string {
	if m.commentPrefix == "--" {
		return fmt.Sprintf("-- %s", m.randomComment())
	}
	return fmt.Sprintf("%s_%d = %d", pick(m.rng, randomColumns), m.rng.Intn(100), m.rng.Intn(1000))
}

func (m *Mutator) randomBlock() []string {
	table := pick(m.rng, randomTables)
	if m.commentPrefix == "--" {
		return []string{
			fmt.Sprintf("CREATE VIEW IF NOT EXISTS mart.v_%s_%d AS", table, m.rng.Intn(100)),
			fmt.Sprintf("SELECT * FROM mart.%s", table),
			fmt.Sprintf("WHERE %s;", pick(m.rng, randomFilters)),
			"",
		}
	}
	return []string{
		fmt.Sprintf("def audit_%s_%d(df):", table, m.rng.Intn(100)),
		fmt.Sprintf("    return df.filter(\"%s\").count()", pick(m.rng, randomFilters)),
		"",
	}
}

var commentTemplates = []string{
	"Load step for %s",
	"Filters applied to %s",
	"Default handling for %s",
	"Review %s thresholds",
	"Required for %s reporting",
	"Controls how %s is deduplicated",
	"%s settings - adjust as needed",
}

func (m *Mutator) randomComment() string {
	return fmt.Sprintf(pick(m.rng, commentTemplates), pick(m.rng, randomTables))
}
