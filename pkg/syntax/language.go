package syntax

import (
	"path/filepath"
	"strings"
)

// Language is the family a validator is chosen by.
type Language string

const (
	Procedural  Language = "procedural"
	Declarative Language = "declarative"
	Scala       Language = "scala"
	R           Language = "r"
)

func (l Language) String() string {
	return string(l)
}

var languageTags = map[string]Language{
	"procedural":  Procedural,
	"python":      Procedural,
	"py":          Procedural,
	"pyspark":     Procedural,
	"declarative": Declarative,
	"sql":         Declarative,
	"scala":       Scala,
	"r":           R,
}

// ParseLanguage maps a caller-supplied tag to a language family. Unknown tags
// are kept as they are and validate as always valid.
func ParseLanguage(tag string) Language {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if l, ok := languageTags[tag]; ok {
		return l
	}
	return Language(tag)
}

// DetectLanguage guesses the language of a file from its extension, then from
// its content, and falls back to Procedural.
func DetectLanguage(path string, source string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql":
		return Declarative
	case ".py":
		return Procedural
	case ".scala":
		return Scala
	case ".r":
		return R
	}

	lower := strings.ToLower(source)
	switch {
	case strings.Contains(lower, "spark.sql"), strings.Contains(lower, "pyspark"), strings.Contains(lower, "import "):
		return Procedural
	case strings.Contains(lower, "select "), strings.Contains(lower, "create table"):
		return Declarative
	}

	return Procedural
}
