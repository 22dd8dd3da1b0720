package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/vaultindex/internal/config"
)

func TestIndexCmd_HasFlags(t *testing.T) {
	cmd := NewRootCmd()

	indexCmd, _, err := cmd.Find([]string{"index"})
	require.NoError(t, err)

	assert.NotNil(t, indexCmd.Flags().Lookup("pattern"))
	assert.NotNil(t, indexCmd.Flags().Lookup("backend"))
	assert.NotNil(t, indexCmd.Flags().Lookup("no-tui"))
}

func TestRunIndex_IndexesMatchingFiles(t *testing.T) {
	vault := newStaticVault(t)
	require.NoError(t, os.WriteFile(filepath.Join(vault, "a.md"), []byte("first note about rockets"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vault, "b.md"), []byte("second note about apples"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vault, "ignored.txt"), []byte("not a note"), 0o644))

	var buf bytes.Buffer
	cmd := newIndexCmd()
	cmd.SetOut(&buf)

	err := runIndex(context.Background(), cmd, vault, "*.md", true)
	require.NoError(t, err)

	cfg, err := config.Load(vault)
	require.NoError(t, err)
	st, err := buildStack(context.Background(), cfg, vault)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.Store.AllEntries()
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	files := map[string]bool{}
	for _, e := range entries {
		files[filepath.Base(e.Metadata.FilePath)] = true
	}
	assert.True(t, files["a.md"])
	assert.True(t, files["b.md"])
	assert.False(t, files["ignored.txt"])
}

func TestRunIndex_RejectsNonDirectory(t *testing.T) {
	vault := newStaticVault(t)
	file := filepath.Join(vault, "plain.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	var buf bytes.Buffer
	cmd := newIndexCmd()
	cmd.SetOut(&buf)

	err := runIndex(context.Background(), cmd, file, "", true)
	assert.Error(t, err)
}
