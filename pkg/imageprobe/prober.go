package imageprobe

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned for files no registered decoder understands
// (SVG, AVIF, ...).
var ErrUnsupported = errors.New("unsupported image format")

// Dimensions are the rendered pixel size of an image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type entry struct {
	dims      Dimensions
	err       error
	modTime   time.Time
	expiresAt time.Time
}

// Prober reads image sizes from disk and keeps them in memory for a while.
// An entry is dropped early when the file changes.
type Prober struct {
	mu    sync.RWMutex
	cache map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func New(ttl time.Duration) *Prober {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Prober{cache: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Probe returns the dimensions of the image at path.
func (p *Prober) Probe(path string) (Dimensions, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Dimensions{}, err
	}
	if info.IsDir() {
		return Dimensions{}, fmt.Errorf("%s is a directory", path)
	}

	now := p.now()
	p.mu.RLock()
	e, ok := p.cache[path]
	p.mu.RUnlock()
	if ok && now.Before(e.expiresAt) && e.modTime.Equal(info.ModTime()) {
		return e.dims, e.err
	}

	dims, err := decode(path)
	p.mu.Lock()
	p.cache[path] = entry{dims: dims, err: err, modTime: info.ModTime(), expiresAt: now.Add(p.ttl)}
	// Purgar entradas vencidas para que el mapa no crezca sin límite.
	for k, v := range p.cache {
		if !now.Before(v.expiresAt) {
			delete(p.cache, k)
		}
	}
	p.mu.Unlock()
	return dims, err
}

func decode(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Dimensions{}, ErrUnsupported
		}
		return Dimensions{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// JPEG headers report the stored size; the browser applies the EXIF
	// orientation first, which can swap the sides.
	if format == "jpeg" {
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err == nil {
			b := img.Bounds()
			return Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
		}
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
