package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAssetPath(t *testing.T) {
	root := t.TempDir()

	p, ok := ResolveAssetPath(root, "https://example.com/wp-content/uploads/a.jpg?ver=2")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "wp-content", "uploads", "a.jpg"), p)

	p, ok = ResolveAssetPath(root, "/../../etc/passwd")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "etc", "passwd"), p)

	_, ok = ResolveAssetPath("", "/a.jpg")
	assert.False(t, ok)
}

func TestSiteURLForPath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "wp-content", "themes", "x", "fonts", "a.woff2")

	assert.Equal(t, "https://example.com/wp-content/themes/x/fonts/a.woff2", SiteURLForPath("https://example.com/", root, file))
}

func TestGetPersistentServerIDOverride(t *testing.T) {
	assert.Equal(t, "node-1", GetPersistentServerID("node-1", t.TempDir()))
}

func TestGetPersistentServerIDIsStable(t *testing.T) {
	dir := t.TempDir()
	first := GetPersistentServerID("", dir)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, GetPersistentServerID("", dir))
}
