package modules

import (
	"context"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
)

// Stylesheets that block rendering on purpose.
var criticalStylesheets = []string{"wp-block-library", "wc-blocks-style"}

const deferredStyleLoader = `<script id="sso-css-loader">
(function(){
  var links = document.querySelectorAll('link[data-sso-deferred="true"]');
  var supported = (function(){ try { return document.createElement('link').relList.supports('preload'); } catch (e) { return false; } })();
  if (supported) { return; }
  Array.prototype.forEach.call(links, function(l){ l.rel = 'stylesheet'; });
})();
</script>`

// CSS inlines critical styles and loads the rest without blocking render.
type CSS struct {
	base
	deferred int
}

func NewCSS(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &CSS{base: base{name: settings.ModuleCSS, opts: opts, deps: deps}}
}

func (m *CSS) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("inline_critical") {
		p.OnHead("css.inline_critical", 1, m.criticalCSS)
	}
	if m.enabled("defer_non_critical") {
		p.OnStyleTag("css.defer_non_critical", 10, m.deferStyle)
		p.OnFooter("css.loader", 10, m.loader)
	}
	return nil
}

func (m *CSS) criticalCSS(*pipeline.Document) (string, error) {
	css := strings.TrimSpace(m.opts.String("critical_css"))
	if css == "" {
		return "", nil
	}
	// keep the value from closing the style element
	css = strings.ReplaceAll(css, "</", `<\/`)
	m.debugf("inlined %d bytes of critical CSS", len(css))
	return `<style id="sso-critical-css">` + css + `</style>`, nil
}

func (m *CSS) deferStyle(_ *pipeline.Document, a *pipeline.Asset) error {
	if safety.IsProtectedStyle(a.Handle) || strings.Contains(a.Handle, "admin") {
		return nil
	}
	for _, h := range criticalStylesheets {
		if a.Handle == h {
			return nil
		}
	}
	if media, _ := a.Attr("media"); strings.EqualFold(strings.TrimSpace(media), "print") {
		return nil
	}
	if a.HasAttr("data-sso-deferred") || a.Src() == "" {
		return nil
	}

	original := a.OuterHTML()
	a.SetAttr("rel", "preload")
	a.SetAttr("as", "style")
	a.SetAttr("onload", "this.onload=null;this.rel='stylesheet'")
	a.SetAttr("data-sso-deferred", "true")
	a.InsertAfter("<noscript>" + original + "</noscript>")

	m.deferred++
	m.debugf("deferred stylesheet %s", a.Handle)
	return nil
}

func (m *CSS) loader(*pipeline.Document) (string, error) {
	if m.deferred == 0 {
		return "", nil
	}
	return deferredStyleLoader, nil
}
