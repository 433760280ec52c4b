package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const applySource = "a\nb\nc\nd\n"

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	t.Setenv("USE_EC2_PARAMETERS", "")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	root := RootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	hunk := filepath.Join(dir, "change.diff")
	response := filepath.Join(dir, "response.md")
	require.NoError(t, os.WriteFile(src, []byte(applySource), 0644))
	require.NoError(t, os.WriteFile(hunk, []byte("@@ -2,1 +2,1 @@\n-b\n+B\n"), 0644))
	require.NoError(t, os.WriteFile(response, []byte("Sure:\n```diff\n@@ -4,1 +4,1 @@\n-d\n+D\n```\n"), 0644))

	stdout, stderr, err := runRoot(t, "apply", "--file", src, "--hunks", hunk, "--response", response, "--no-external")
	require.NoError(t, err)
	assert.Equal(t, "a\nB\nc\nD\n", stdout)
	assert.Contains(t, stderr, "chunks=2/2")

	stdout, _, err = runRoot(t, "apply", "--file", src, "--hunks", hunk, "--json", "--no-external")
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "a\nB\nc\nd\n", out["text"])
	assert.Equal(t, true, out["success"])
}

func TestApplyCommandRequiresHunks(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.txt")
	require.NoError(t, os.WriteFile(src, []byte(applySource), 0644))

	_, _, err := runRoot(t, "apply", "--file", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no hunks given")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.sql")
	bad := filepath.Join(dir, "bad.sql")
	require.NoError(t, os.WriteFile(good, []byte("SELECT id FROM users;\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("SELECT count(id FROM users;\n"), 0644))

	stdout, _, err := runRoot(t, "validate", "--file", good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "declarative")

	_, _, err = runRoot(t, "validate", "--file", bad)
	require.Error(t, err)
}

func TestCorpusSynthesizeAndEval(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cases")

	stdout, _, err := runRoot(t, "corpus", "synthesize", "--language", "python", "--complexity", "low", "--out", out, "--count", "3", "--seed", "11")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 3 cases")

	stdout, _, err = runRoot(t, "corpus", "eval", out, "--no-external", "--fail")
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 cases, 3 passed, 0 failed")
}
