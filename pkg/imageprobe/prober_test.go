package imageprobe

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestProber_PNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hero.png")
	writePNG(t, path, 640, 320)

	p := New(time.Minute)
	dims, err := p.Probe(path)
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 640, Height: 320}, dims)
}

func TestProber_JPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, imaging.Save(imaging.New(300, 200, color.Black), path))

	dims, err := New(time.Minute).Probe(path)
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 300, Height: 200}, dims)
}

func TestProber_RefreshesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "banner.png")
	writePNG(t, path, 100, 50)

	p := New(time.Hour)
	dims, err := p.Probe(path)
	require.NoError(t, err)
	assert.Equal(t, 100, dims.Width)

	writePNG(t, path, 200, 80)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	dims, err = p.Probe(path)
	require.NoError(t, err)
	assert.Equal(t, Dimensions{Width: 200, Height: 80}, dims)
}

func TestProber_Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.svg")
	require.NoError(t, os.WriteFile(path, []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"/>`), 0o644))

	_, err := New(time.Minute).Probe(path)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = New(time.Minute).Probe(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
