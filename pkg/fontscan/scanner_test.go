package fontscan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("font"), 0o644))
}

func TestScanner_FindsFontsRecursively(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "wp-content/uploads/fonts/roboto/Roboto-Regular.woff2"))
	touch(t, filepath.Join(root, "wp-content/uploads/fonts/Lato-Bold.WOFF"))
	touch(t, filepath.Join(root, "wp-content/uploads/fonts/readme.txt"))

	s := New(root, time.Minute)
	files := s.Scan([]string{"wp-content/uploads/fonts", "/wp-content/uploads/fonts/"})

	require.Len(t, files, 2)
	assert.Equal(t, "Lato-Bold.WOFF", files[0].Name)
	assert.Equal(t, "woff", files[0].Ext)
	assert.Equal(t, "woff2", files[1].Ext)
}

func TestScanner_IgnoresEscapesAndMissingDirs(t *testing.T) {
	root := t.TempDir()
	s := New(root, time.Minute)

	assert.Empty(t, s.Scan([]string{"../etc", "", "nope"}))
	assert.Empty(t, New("", time.Minute).Scan([]string{"fonts"}))
}

func TestScanner_CachesListing(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "fonts/a.woff2"))

	now := time.Now()
	s := New(root, time.Minute)
	s.now = func() time.Time { return now }
	require.Len(t, s.Scan([]string{"fonts"}), 1)

	touch(t, filepath.Join(root, "fonts/b.woff2"))
	assert.Len(t, s.Scan([]string{"fonts"}), 1)

	now = now.Add(time.Minute)
	assert.Len(t, s.Scan([]string{"fonts"}), 2)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "font/woff2", MimeType("woff2"))
	assert.Equal(t, "application/vnd.ms-fontobject", MimeType("eot"))
	assert.Equal(t, "font/svg", MimeType("svg"))
}
