package modules

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/pkg/fontscan"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/PuerkitoBio/goquery"
)

const maxHintFonts = 3

var preconnectDomains = []string{
	"https://fonts.googleapis.com",
	"https://fonts.gstatic.com",
	"https://www.google-analytics.com",
	"https://www.googletagmanager.com",
	"https://connect.facebook.net",
	"https://cdn.jsdelivr.net",
	"https://cdnjs.cloudflare.com",
}

// Where the LCP image usually is, most specific first.
var lcpSelectors = []string{
	"img.wp-post-image",
	".entry-content img, .post-content img, .wp-block-post-content img",
	"article img, main img",
}

var lcpThemeCandidates = []string{"images/hero.jpg", "images/hero.png", "images/banner.jpg", "assets/images/hero.jpg"}

var fontWeightName = regexp.MustCompile(`(?i)(regular|normal|400|bold|700)`)

// Preloading prints resource hints for the LCP image, fonts and
// third-party hosts.
type Preloading struct {
	base
}

func NewPreloading(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &Preloading{base: base{name: settings.ModulePreloading, opts: opts, deps: deps}}
}

func (m *Preloading) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("lcp_image") {
		p.OnHead("preloading.lcp_image", 1, m.preloadLCP)
	}
	if m.enabled("fonts") && m.deps.Fonts != nil {
		p.OnHead("preloading.fonts", 2, m.preloadFonts)
	}
	if m.enabled("dns_prefetch_third_party") {
		p.OnHead("preloading.dns_prefetch", 1, m.dnsPrefetch)
	}
	if m.enabled("preconnect_external") {
		p.OnHead("preloading.preconnect", 1, m.preconnect)
	}
	return nil
}

func isThumbnail(src string) bool {
	return strings.Contains(src, "-150x") || strings.Contains(src, "-300x") || strings.Contains(src, "thumbnail")
}

func (m *Preloading) detectLCP(doc *pipeline.Document) *goquery.Selection {
	for _, sel := range lcpSelectors {
		var found *goquery.Selection
		doc.Body().Find(sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src := strings.TrimSpace(img.AttrOr("src", ""))
			if src == "" || strings.HasPrefix(src, "data:") || isThumbnail(src) {
				return true
			}
			found = img
			return false
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func (m *Preloading) themeLCP(doc *pipeline.Document) string {
	if m.deps.DocumentRoot == "" {
		return ""
	}
	for _, theme := range pageThemes(doc) {
		for _, c := range lcpThemeCandidates {
			rel := path.Join("wp-content/themes", theme, c)
			if _, err := os.Stat(filepath.Join(m.deps.DocumentRoot, filepath.FromSlash(rel))); err == nil {
				return doc.Context().SiteURL() + "/" + rel
			}
		}
	}
	return ""
}

func (m *Preloading) preloadLCP(doc *pipeline.Document) (string, error) {
	attrs := []string{"rel", "preload"}

	img := m.detectLCP(doc)
	var href string
	if img != nil {
		href = strings.TrimSpace(img.AttrOr("src", ""))
	} else {
		href = m.themeLCP(doc)
	}
	if href == "" || !doc.MarkHint("preload", href) {
		return "", nil
	}

	attrs = append(attrs, "as", resourceType(href), "href", href)
	if img != nil {
		if srcset := img.AttrOr("srcset", ""); srcset != "" {
			attrs = append(attrs, "imagesrcset", srcset)
			if sizes := img.AttrOr("sizes", ""); sizes != "" {
				attrs = append(attrs, "imagesizes", sizes)
			}
		}
	}
	attrs = append(attrs, "fetchpriority", "high")
	m.debugf("preloaded LCP image %s", href)
	return linkTag(attrs...), nil
}

func resourceType(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")) {
	case "woff2", "woff", "ttf", "otf":
		return "font"
	case "css":
		return "style"
	case "js":
		return "script"
	}
	return "image"
}

func (m *Preloading) preloadFonts(doc *pipeline.Document) (string, error) {
	dirs := append(themeFontDirs(doc), m.deps.FontDirs...)
	root := m.deps.Fonts.Root()

	var b strings.Builder
	count := 0
	for _, f := range m.deps.Fonts.Scan(dirs) {
		if count >= maxHintFonts {
			break
		}
		if (f.Ext != "woff2" && f.Ext != "woff") || !fontWeightName.MatchString(f.Name) {
			continue
		}
		u := utils.SiteURLForPath(doc.Context().SiteURL(), root, f.Path)
		if u == "" {
			continue
		}
		count++
		if !doc.MarkHint("preload", u) {
			continue
		}
		attrs := []string{"rel", "preload", "as", "font", "type", fontscan.MimeType(f.Ext), "href", u}
		if isForeign(u, doc.SiteHost()) {
			attrs = append(attrs, "crossorigin", "")
		}
		b.WriteString(linkTag(attrs...))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// thirdPartyOrigins lists scheme://host of every foreign script and
// stylesheet, delayed ones included.
func thirdPartyOrigins(doc *pipeline.Document) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" || !isForeign(raw, doc.SiteHost()) {
			return
		}
		scheme := u.Scheme
		if scheme == "" {
			scheme = "https"
		}
		origin := scheme + "://" + strings.ToLower(u.Host)
		if !seen[origin] {
			seen[origin] = true
			out = append(out, origin)
		}
	}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", s.AttrOr("data-sso-src", "")))
	})
	for _, a := range doc.Styles() {
		add(a.Src())
	}
	return out
}

func (m *Preloading) dnsPrefetch(doc *pipeline.Document) (string, error) {
	var b strings.Builder
	n := 0
	for _, origin := range thirdPartyOrigins(doc) {
		if !doc.MarkHint("dns-prefetch", origin) {
			continue
		}
		b.WriteString(linkTag("rel", "dns-prefetch", "href", origin))
		b.WriteString("\n")
		n++
	}
	if n > 0 {
		m.debugf("added dns-prefetch for %d hosts", n)
	}
	return b.String(), nil
}

func (m *Preloading) preconnect(doc *pipeline.Document) (string, error) {
	var b strings.Builder
	for _, d := range preconnectDomains {
		if !doc.MarkHint("preconnect", d) {
			continue
		}
		attrs := []string{"rel", "preconnect", "href", d}
		if strings.Contains(d, "fonts.") {
			attrs = append(attrs, "crossorigin", "")
		}
		b.WriteString(linkTag(attrs...))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// pageThemes returns the theme directories the page loads assets from.
func pageThemes(doc *pipeline.Document) []string {
	var themes []string
	seen := make(map[string]bool)
	doc.Find("link[href], script[src]").Each(func(_ int, s *goquery.Selection) {
		ref := s.AttrOr("href", s.AttrOr("src", ""))
		if match := themeDirPattern.FindStringSubmatch(ref); match != nil && !seen[match[1]] {
			seen[match[1]] = true
			themes = append(themes, match[1])
		}
	})
	return themes
}
