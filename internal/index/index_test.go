package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sdguide/internal/discover"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadKeepsOrderAndParses(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeFile(t, dir, "a.sd", "schema a {\n  document a {}\n}\n")
	writeFile(t, dir, "B.java", "class B { String s = \"a\"; }\n")
	writeFile(t, dir, "services.xml", "<services><documents><document type=\"a\"/></documents></services>\n")
	writeFile(t, dir, "broken.sd", "schema broken {\n")

	entries, err := discover.Files(dir, discover.Options{})
	require.NoError(t, err)

	ix, err := Load(context.Background(), dir, entries, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, ix.Files, 4)

	for i, e := range entries {
		assert.Equal(t, e.Path, ix.Files[i].Path)
	}

	xml, ok := ix.File("services.xml")
	require.True(t, ok)
	assert.Nil(t, xml.Tree)
	assert.NotEmpty(t, xml.Source)

	java, ok := ix.File("B.java")
	require.True(t, ok)
	require.NotNil(t, java.Tree)
	assert.Equal(t, "java", java.Tree.Language)

	broken, ok := ix.File("broken.sd")
	require.True(t, ok)
	require.NotNil(t, broken.Tree)
	assert.NotEmpty(t, broken.Diagnostics)

	assert.Len(t, ix.ByLanguage("sd"), 2)
}

func TestLoadSkipsLargeFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	writeFile(t, dir, "small.sd", "schema s {}\n")
	writeFile(t, dir, "large.sd", "schema l {}\n# padding padding padding\n")

	entries := []discover.FileEntry{
		{Path: "large.sd", Language: "sd"},
		{Path: "small.sd", Language: "sd"},
	}
	ix, err := Load(context.Background(), dir, entries, Options{MaxFileSize: 20})
	require.NoError(t, err)
	require.Len(t, ix.Files, 1)
	assert.Equal(t, "small.sd", ix.Files[0].Path)
}

func TestLoadNothingLoaded(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Load(context.Background(), dir, []discover.FileEntry{{Path: "missing.sd", Language: "sd"}}, Options{})
	assert.Error(t, err)

	ix, err := Load(context.Background(), dir, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, ix.Files)
}

func TestLoadCancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.sd", "schema a {}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, dir, []discover.FileEntry{{Path: "a.sd", Language: "sd"}}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
