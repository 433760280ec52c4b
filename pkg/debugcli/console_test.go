package debugcli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicatedhq/patchsmith/pkg/diff"
)

const consoleSource = `import os

def main():
    print("hello")

main()
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testConsole(t *testing.T) (*DebugConsole, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return newConsole(context.Background(), ConsoleOptions{
		EngineOptions: diff.Options{DisableExternal: true},
		Out:           out,
	}), out
}

func TestConsoleApplyFlow(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "job.py", consoleSource)
	hunk := writeFile(t, dir, "change.diff", "@@ -3,2 +3,2 @@\n def main():\n-    print(\"hello\")\n+    print(\"goodbye\")\n")
	saved := filepath.Join(dir, "out.py")

	c, out := testConsole(t)

	require.NoError(t, c.executeCommand("load", []string{src}))
	assert.Contains(t, out.String(), "procedural")

	require.NoError(t, c.executeCommand("hunk", []string{hunk}))
	assert.Len(t, c.hunks, 1)

	require.NoError(t, c.executeCommand("apply", []string{"--commit", "--output=" + saved}))
	require.NotNil(t, c.result)
	assert.True(t, c.result.Success)
	assert.Contains(t, c.source, `print("goodbye")`)
	assert.Empty(t, c.hunks)

	written, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, c.result.Text, string(written))

	out.Reset()
	require.NoError(t, c.executeCommand("validate", nil))
	assert.Contains(t, out.String(), "OK")
}

func TestConsoleExtractsHunksFromResponse(t *testing.T) {
	dir := t.TempDir()
	response := writeFile(t, dir, "response.md", "Here is the fix:\n\n```diff\n@@ -1,1 +1,1 @@\n-import os\n+import sys\n```\n")

	c, out := testConsole(t)
	require.NoError(t, c.executeCommand("hunks", []string{response}))
	require.Len(t, c.hunks, 1)

	out.Reset()
	require.NoError(t, c.executeCommand("show", []string{"hunks"}))
	assert.Contains(t, out.String(), "+import sys")

	require.NoError(t, c.executeCommand("clear", nil))
	assert.Empty(t, c.hunks)
}

func TestConsoleRandomAndMutate(t *testing.T) {
	c, _ := testConsole(t)

	require.NoError(t, c.executeCommand("random", []string{"--complexity=low", "--language=sql"}))
	assert.NotEmpty(t, c.source)
	assert.Equal(t, "declarative", c.language.String())

	require.NoError(t, c.executeCommand("mutate", []string{"--edits=2", "--seed=7"}))
	assert.NotEmpty(t, c.hunks)

	require.NoError(t, c.executeCommand("apply", nil))
	assert.Equal(t, c.result.ChunksTotal, c.result.ChunksApplied)
}

func TestConsoleErrors(t *testing.T) {
	c, _ := testConsole(t)

	tests := []struct {
		cmd  string
		args []string
		want string
	}{
		{"apply", nil, "no source loaded"},
		{"load", nil, "usage"},
		{"random", []string{"--complexity=extreme"}, "invalid complexity"},
		{"show", []string{"result"}, "nothing applied"},
		{"bogus", nil, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			err := c.executeCommand(tt.cmd, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunConsoleNonInteractive(t *testing.T) {
	out := &bytes.Buffer{}
	err := RunConsole(context.Background(), ConsoleOptions{
		NonInteractive: true,
		Command:        []string{"tiers"},
		Out:            out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "manual")

	err = RunConsole(context.Background(), ConsoleOptions{NonInteractive: true})
	assert.Error(t, err)
}
