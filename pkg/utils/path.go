package utils

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ResolveAssetPath maps the path of a site URL onto a file below docRoot.
// It returns false when docRoot is empty or the path would escape it.
func ResolveAssetPath(docRoot, rawURL string) (string, bool) {
	if strings.TrimSpace(docRoot) == "" {
		return "", false
	}

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if p == "" {
		return "", false
	}

	clean := path.Clean("/" + p)
	full := filepath.Join(docRoot, filepath.FromSlash(clean))

	rel, err := filepath.Rel(docRoot, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// SiteURLForPath builds an absolute URL for a file found below docRoot.
func SiteURLForPath(siteURL, docRoot, file string) string {
	rel, err := filepath.Rel(docRoot, file)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(siteURL, "/") + "/" + filepath.ToSlash(rel)
}
