package modules

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/pkg/fontscan"
	"github.com/AzielCF/az-speed/pkg/utils"
)

const maxFontPreloads = 5

var commonFontNames = []string{
	"regular", "normal", "400", "bold", "700",
	"roboto", "open-sans", "lato", "montserrat", "arial", "helvetica", "sans-serif",
}

var fontCDNs = []string{
	"https://fonts.googleapis.com",
	"https://fonts.gstatic.com",
	"https://use.typekit.net",
	"https://cloud.typography.com",
}

var themeDirPattern = regexp.MustCompile(`/wp-content/themes/([A-Za-z0-9._-]+)/`)

const fontDisplaySwap = `<style id="sso-font-display">@font-face{font-display:swap}</style>`

// Fonts preloads local font files, adds font-display: swap and can drop
// Google Fonts.
type Fonts struct {
	base
}

func NewFonts(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &Fonts{base: base{name: settings.ModuleFonts, opts: opts, deps: deps}}
}

func (m *Fonts) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("preload_local") && m.deps.Fonts != nil {
		p.OnHead("fonts.preload_local", 2, m.preloadLocal)
	}
	if m.enabled("add_display_swap") {
		p.OnHead("fonts.add_display_swap", 1, func(*pipeline.Document) (string, error) {
			return fontDisplaySwap, nil
		})
	}
	if m.enabled("disable_google") {
		p.OnEnqueue("fonts.disable_google", 100, m.disableGoogle)
	}
	p.OnHead("fonts.preconnect", 1, m.preconnect)
	return nil
}

type fontCandidate struct {
	url      string
	mime     string
	priority int
}

func fontPriority(name, ext string) int {
	p := 0
	switch ext {
	case "woff2":
		p += 3
	case "woff":
		p += 2
	}
	lower := strings.ToLower(name)
	for _, n := range commonFontNames {
		if strings.Contains(lower, n) {
			p += 2
			break
		}
	}
	return p
}

// fontDirs are the configured directories plus /fonts of every theme the
// page loads assets from.
func (m *Fonts) fontDirs(doc *pipeline.Document) []string {
	dirs := themeFontDirs(doc)
	return append(dirs, m.deps.FontDirs...)
}

func themeFontDirs(doc *pipeline.Document) []string {
	var dirs []string
	for _, theme := range pageThemes(doc) {
		dirs = append(dirs, "wp-content/themes/"+theme+"/fonts")
	}
	return dirs
}

func (m *Fonts) candidates(doc *pipeline.Document) []fontCandidate {
	root := m.deps.Fonts.Root()
	var out []fontCandidate
	for _, f := range m.deps.Fonts.Scan(m.fontDirs(doc)) {
		pr := fontPriority(f.Name, f.Ext)
		if pr <= 0 {
			continue
		}
		u := utils.SiteURLForPath(doc.Context().SiteURL(), root, f.Path)
		if u == "" {
			continue
		}
		out = append(out, fontCandidate{url: u, mime: fontscan.MimeType(f.Ext), priority: pr})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].priority > out[j].priority })
	if len(out) > maxFontPreloads {
		out = out[:maxFontPreloads]
	}
	return out
}

func (m *Fonts) preloadLocal(doc *pipeline.Document) (string, error) {
	var b strings.Builder
	for _, f := range m.candidates(doc) {
		if !doc.MarkHint("preload", f.url) {
			continue
		}
		attrs := []string{"rel", "preload", "as", "font", "type", f.mime, "href", f.url}
		if isForeign(f.url, doc.SiteHost()) {
			attrs = append(attrs, "crossorigin", "")
		}
		b.WriteString(linkTag(attrs...))
		b.WriteString("\n")
		m.debugf("preloaded font %s", f.url)
	}
	return b.String(), nil
}

func (m *Fonts) disableGoogle(doc *pipeline.Document) error {
	for _, a := range doc.Styles() {
		if strings.Contains(a.Src(), "fonts.googleapis.com") {
			a.Remove()
			m.debugf("removed Google Fonts stylesheet %s", a.Handle)
		}
	}
	return nil
}

func (m *Fonts) preconnect(doc *pipeline.Document) (string, error) {
	var b strings.Builder
	for _, d := range fontCDNs {
		if m.enabled("disable_google") && strings.Contains(d, "fonts.g") {
			continue
		}
		if !doc.MarkHint("preconnect", d) {
			continue
		}
		b.WriteString(linkTag("rel", "preconnect", "href", d, "crossorigin", ""))
		b.WriteString("\n")
	}
	return b.String(), nil
}
