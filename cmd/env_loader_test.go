package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFilesExtraFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.env")
	require.NoError(t, os.WriteFile(path, []byte("PATCHSMITH_FUZZY_WINDOW=12\nPATCHSMITH_LOG_LEVEL=warn\n"), 0644))

	t.Setenv("PATCHSMITH_ENV_FILE", path)
	t.Setenv("PATCHSMITH_FUZZY_WINDOW", "")
	require.NoError(t, os.Unsetenv("PATCHSMITH_FUZZY_WINDOW"))
	t.Setenv("PATCHSMITH_LOG_LEVEL", "debug")

	loadEnvFiles()

	assert.Contains(t, loadedEnvFiles, path)
	assert.Equal(t, "12", os.Getenv("PATCHSMITH_FUZZY_WINDOW"))
	assert.Equal(t, "debug", os.Getenv("PATCHSMITH_LOG_LEVEL"), "the environment wins over files")
	assert.Len(t, envFiles, 2)
}
