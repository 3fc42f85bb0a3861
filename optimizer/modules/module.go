package modules

import (
	"context"
	"html"
	"net/url"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/fontscan"
	"github.com/AzielCF/az-speed/pkg/imageprobe"
	"github.com/sirupsen/logrus"
)

// Optimizable is implemented by every optimization module. Init registers
// hooks for the enabled behaviours only.
type Optimizable interface {
	Name() string
	Init(ctx context.Context, p *pipeline.Pipeline) error
	SettingsSchema() []settings.Definition
}

// EmergencyChecker reports the emergency disable flag.
type EmergencyChecker interface {
	IsEmergencyDisabled(ctx context.Context) bool
}

type ImageProber interface {
	Probe(path string) (imageprobe.Dimensions, error)
}

type FontScanner interface {
	Root() string
	Scan(dirs []string) []fontscan.File
}

// Deps are the collaborators shared by all modules of a request.
type Deps struct {
	Gate      safety.Gate
	Emergency EmergencyChecker
	// DocumentRoot is where internal asset URLs are resolved to files.
	DocumentRoot string
	FontDirs     []string
	Images       ImageProber
	Fonts        FontScanner
}

// Factory builds a module around its settings snapshot.
type Factory func(opts *application.ModuleSettings, deps Deps) Optimizable

// Entry pairs a module name with its factory.
type Entry struct {
	Name string
	New  Factory
}

// Catalog is the fixed list of modules in initialization order.
var Catalog = []Entry{
	{Name: settings.ModuleJavaScript, New: NewJavaScript},
	{Name: settings.ModuleCSS, New: NewCSS},
	{Name: settings.ModuleFonts, New: NewFonts},
	{Name: settings.ModuleImages, New: NewImages},
	{Name: settings.ModuleCore, New: NewCoreCleanup},
	{Name: settings.ModuleThirdParty, New: NewThirdParty},
	{Name: settings.ModulePreloading, New: NewPreloading},
}

// base carries what every module needs: its options, the shared
// dependencies and the debug logger.
type base struct {
	name string
	opts *application.ModuleSettings
	deps Deps
}

func (b base) Name() string {
	return b.name
}

func (b base) SettingsSchema() []settings.Definition {
	return settings.ModuleFields(b.name)
}

func (b base) enabled(option string) bool {
	return b.opts.IsEnabled(option)
}

// permitted re-checks the gate and the emergency flag before a module
// registers anything.
func (b base) permitted(ctx context.Context, p *pipeline.Pipeline) bool {
	if b.deps.Emergency != nil && b.deps.Emergency.IsEmergencyDisabled(ctx) {
		return false
	}
	return b.deps.Gate.IsSafeContext(p.Context())
}

func (b base) debugf(format string, args ...any) {
	logrus.WithField("module", b.name).Debugf("[OPTIMIZER] "+format, args...)
}

// linkTag renders <link> with attributes given as name/value pairs. An
// empty value renders a bare attribute.
func linkTag(attrs ...string) string {
	var b strings.Builder
	b.WriteString("<link")
	for i := 0; i+1 < len(attrs); i += 2 {
		b.WriteString(" ")
		b.WriteString(attrs[i])
		if attrs[i+1] != "" {
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(attrs[i+1]))
			b.WriteString(`"`)
		}
	}
	b.WriteString(">")
	return b.String()
}

// hostOf returns the lower-case host of a URL, or "" for relative URLs.
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// isForeign reports a URL on a host other than the site's.
func isForeign(raw, siteHost string) bool {
	h := hostOf(raw)
	return h != "" && !strings.EqualFold(h, hostOf("//"+siteHost))
}
