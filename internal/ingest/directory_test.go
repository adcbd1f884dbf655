package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "%PDF b")
	writeFile(t, filepath.Join(root, "a.PDF"), "%PDF a")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, ".hidden.pdf"), "%PDF h")
	writeFile(t, filepath.Join(root, ".cache", "c.pdf"), "%PDF c")
	writeFile(t, filepath.Join(root, "sub", "d.pdf"), "%PDF d")

	files, stats, err := CollectDirectory(root, true)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.Equal(t, "application/pdf", f.MIMEType)
	}
	assert.Equal(t, []string{"a.PDF", "b.pdf", "d.pdf"}, names)
	assert.Equal(t, uint32(3), stats.Matched)

	all, _, err := CollectDirectory(root, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestCollectDirectory_Errors(t *testing.T) {
	_, _, err := CollectDirectory("", true)
	assert.Error(t, err)

	_, _, err = CollectDirectory(filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "x.pdf")
	writeFile(t, file, "%PDF")
	_, _, err = CollectDirectory(file, true)
	assert.Error(t, err)
}

func TestCollectPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "one.pdf"), "%PDF 1")
	single := filepath.Join(root, "two.pdf")
	writeFile(t, single, "%PDF 2")
	missing := filepath.Join(root, "three.pdf")

	files, stats, err := CollectPaths([]string{single, filepath.Join(root, "dir"), missing}, true)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "two.pdf", files[0].Name)
	assert.Equal(t, "one.pdf", files[1].Name)
	assert.Equal(t, "three.pdf", files[2].Name)
	assert.Equal(t, uint32(3), stats.Matched)

	_, err = files[2].Open()
	assert.Error(t, err)
}

func TestFilters(t *testing.T) {
	assert.True(t, allowedExt(".pdf"))
	assert.True(t, allowedExt("PDF"))
	assert.False(t, allowedExt(".png"))
	assert.True(t, hidden("/tmp/.git"))
	assert.False(t, hidden("/tmp/report.pdf"))
}
