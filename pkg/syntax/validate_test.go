package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProcedural(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		valid   bool
		message string
	}{
		{
			name:  "valid module",
			code:  "import os\n\ndef main():\n    return os.getcwd()\n",
			valid: true,
		},
		{
			name:  "empty",
			code:  "",
			valid: true,
		},
		{
			name:    "unclosed call",
			code:    "def main():\n    print('x'\n",
			valid:   false,
			message: "line",
		},
		{
			name:    "stray token",
			code:    "x = 1\ny = = 2\n",
			valid:   false,
			message: "line 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := Validate(context.Background(), tt.code, Procedural)
			assert.Equal(t, tt.valid, ok, msg)
			if tt.message != "" {
				assert.Contains(t, msg, tt.message)
			}
		})
	}
}

func TestValidateDeclarative(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		valid   bool
		message string
	}{
		{name: "select", code: "SELECT a, count(*) FROM t GROUP BY a;", valid: true},
		{name: "cte", code: "-- header\nWITH x AS (SELECT 1)\nSELECT * FROM x", valid: true},
		{name: "parens in literal", code: "select '(' as p from t", valid: true},
		{name: "parens in comment", code: "/* ( */ select 1", valid: true},
		{name: "blank", code: "  \n", valid: true},
		{name: "unclosed paren", code: "select count(* from t", valid: false, message: "unclosed"},
		{name: "extra close", code: "select 1)\nfrom t", valid: false, message: "line 1"},
		{name: "no keyword", code: "foo bar baz", valid: false, message: "no statement keyword"},
		{name: "unterminated literal", code: "select 'abc", valid: false, message: "unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := Validate(context.Background(), tt.code, Declarative)
			assert.Equal(t, tt.valid, ok, msg)
			if tt.message != "" {
				assert.Contains(t, msg, tt.message)
			}
		})
	}
}

func TestValidateOtherLanguagesAlwaysPass(t *testing.T) {
	for _, lang := range []Language{Scala, R, "haskell"} {
		ok, _ := Validate(context.Background(), "}{ not code at all", lang)
		assert.True(t, ok, lang)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path   string
		source string
		want   Language
	}{
		{path: "q.sql", want: Declarative},
		{path: "job.PY", want: Procedural},
		{path: "Main.scala", want: Scala},
		{path: "model.r", want: R},
		{source: "df = spark.sql('select 1')", want: Procedural},
		{source: "SELECT * FROM t", want: Declarative},
		{source: "create table t (a int)", want: Declarative},
		{source: "x = 1", want: Procedural},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.path, tt.source), "%s %q", tt.path, tt.source)
	}
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, Procedural, ParseLanguage("PySpark"))
	assert.Equal(t, Procedural, ParseLanguage("python"))
	assert.Equal(t, Declarative, ParseLanguage(" sql "))
	assert.Equal(t, Language("cobol"), ParseLanguage("cobol"))
}
