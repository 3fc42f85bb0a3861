package fontscan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Extensions lists the font formats picked up by the scanner.
var Extensions = []string{"woff2", "woff", "ttf", "otf", "eot"}

// File is a font found below the document root.
type File struct {
	Path string // absolute path on disk
	Name string // base name
	Ext  string // lower case, without dot
}

type cached struct {
	files     []File
	expiresAt time.Time
}

// Scanner walks font directories below a document root, caching each
// directory listing for ttl.
type Scanner struct {
	root string
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

func New(root string, ttl time.Duration) *Scanner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Scanner{root: root, ttl: ttl, now: time.Now, cache: make(map[string]cached)}
}

// Root is the document root the scanner works in.
func (s *Scanner) Root() string {
	return s.root
}

// Scan returns the fonts in dirs (relative to the root, walked
// recursively), deduplicated and in lexical order per directory.
func (s *Scanner) Scan(dirs []string) []File {
	if s.root == "" {
		return nil
	}

	var out []File
	seen := make(map[string]bool)
	for _, dir := range dirs {
		for _, f := range s.scanDir(dir) {
			if !seen[f.Path] {
				seen[f.Path] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func (s *Scanner) scanDir(dir string) []File {
	rel := filepath.Clean(filepath.FromSlash(strings.Trim(dir, "/")))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}

	now := s.now()
	s.mu.Lock()
	c, ok := s.cache[rel]
	s.mu.Unlock()
	if ok && now.Before(c.expiresAt) {
		return c.files
	}

	var files []File
	base := filepath.Join(s.root, rel)
	_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if isFontExt(ext) {
			files = append(files, File{Path: path, Name: d.Name(), Ext: ext})
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	s.mu.Lock()
	s.cache[rel] = cached{files: files, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
	return files
}

func isFontExt(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// MimeType maps a font extension to the type used in preload links.
func MimeType(ext string) string {
	switch ext {
	case "woff2":
		return "font/woff2"
	case "woff":
		return "font/woff"
	case "ttf":
		return "font/ttf"
	case "otf":
		return "font/otf"
	case "eot":
		return "application/vnd.ms-fontobject"
	}
	return "font/" + ext
}
