package modules

import (
	"context"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
)

// Handles that are never deferred or delayed, on top of the option list.
var alwaysExcludedScripts = []string{"jquery-core", "admin-bar", "hoverintent-js"}

const delayedScriptLoader = `<script id="sso-delay-loader">
(function(){
  var done = false;
  var events = ['click', 'scroll', 'keydown', 'touchstart', 'mouseover'];
  function load() {
    if (done) { return; }
    done = true;
    events.forEach(function(e){ document.removeEventListener(e, load, {passive: true}); });
    document.querySelectorAll('script[type="sso/javascript"][data-sso-delay="true"]').forEach(function(old){
      var src = old.getAttribute('data-sso-src');
      if (!src) { return; }
      var s = document.createElement('script');
      Array.prototype.forEach.call(old.attributes, function(a){
        if (a.name !== 'type' && a.name.indexOf('data-sso-') !== 0) { s.setAttribute(a.name, a.value); }
      });
      s.src = src;
      s.async = false;
      old.parentNode.insertBefore(s, old);
      old.remove();
    });
  }
  events.forEach(function(e){ document.addEventListener(e, load, {passive: true, once: true}); });
  setTimeout(load, 5000);
})();
</script>`

// JavaScript moves jQuery out of the head, defers scripts, and can hold
// scripts back until the first interaction.
type JavaScript struct {
	base
	delayed  int
	deferred int
}

func NewJavaScript(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &JavaScript{base: base{name: settings.ModuleJavaScript, opts: opts, deps: deps}}
}

func (m *JavaScript) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("move_jquery_footer") {
		p.OnEnqueue("js.move_jquery_footer", 100, m.moveJQuery)
	}
	// Delay registers first so defer can leave delayed tags alone.
	if m.enabled("delay_until_interaction") {
		p.OnScriptTag("js.delay_until_interaction", 10, m.delay)
		p.OnFooter("js.delay_loader", 999, m.delayLoader)
	}
	if m.enabled("defer_non_critical") {
		p.OnScriptTag("js.defer_non_critical", 10, m.deferScript)
	}
	return nil
}

func (m *JavaScript) exclusions() []string {
	return append(append([]string{}, alwaysExcludedScripts...), m.opts.List("excluded_scripts")...)
}

// moveJQuery moves jQuery, and every head script printed after it, to the
// start of the body scripts. jquery-migrate is dropped on the way.
func (m *JavaScript) moveJQuery(doc *pipeline.Document) error {
	var head []*pipeline.Asset
	for _, a := range doc.Scripts() {
		if a.InHead() {
			head = append(head, a)
		}
	}

	start := -1
	for i, a := range head {
		if a.Handle == "jquery-core" || a.Handle == "jquery" {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var moving []*pipeline.Asset
	for _, a := range head[start:] {
		if a.Handle == "jquery-migrate" {
			a.Remove()
			m.debugf("removed jquery-migrate")
			continue
		}
		if safety.IsProtectedScript(a.Handle) || !safety.IsScriptSafe(a.Tag()) {
			m.debugf("kept jQuery in head, %q must stay in place", a.Handle)
			return nil
		}
		moving = append(moving, a)
	}

	body := doc.Body()
	anchor := body.Find("script").First()
	for _, a := range moving {
		sel := a.Selection()
		if anchor.Length() > 0 {
			anchor.BeforeSelection(sel)
		} else {
			body.AppendSelection(sel)
		}
	}
	m.debugf("moved %d head scripts to the body", len(moving))
	return nil
}

func (m *JavaScript) deferScript(_ *pipeline.Document, a *pipeline.Asset) error {
	if a.HasAttr("data-sso-delay") || safety.IsProtectedScript(a.Handle) {
		return nil
	}
	if safety.IsExcluded(a.Handle, m.exclusions()) {
		return nil
	}
	if a.IsInline() || !safety.IsScriptSafe(a.Tag()) {
		return nil
	}
	if a.HasAttr("defer") || a.HasAttr("async") || isModuleScript(a) {
		return nil
	}

	a.SetAttr("defer", "")
	m.deferred++
	m.debugf("deferred script %s", a.Handle)
	return nil
}

func (m *JavaScript) delay(_ *pipeline.Document, a *pipeline.Asset) error {
	if safety.IsProtectedScript(a.Handle) || safety.IsExcluded(a.Handle, m.exclusions()) {
		return nil
	}
	if a.Handle == "jquery-core" || a.Handle == "jquery" {
		return nil
	}
	if a.IsInline() || a.HasAttr("data-sso-delay") || !safety.IsScriptSafe(a.Tag()) {
		return nil
	}

	src := a.Src()
	a.SetAttr("type", "sso/javascript")
	a.SetAttr("data-sso-delay", "true")
	a.SetAttr("data-sso-src", src)
	a.RemoveAttr("src")
	m.delayed++
	m.debugf("delayed script %s", a.Handle)
	return nil
}

func (m *JavaScript) delayLoader(*pipeline.Document) (string, error) {
	if m.delayed == 0 {
		return "", nil
	}
	return delayedScriptLoader, nil
}

// ES modules are deferred by the browser already.
func isModuleScript(a *pipeline.Asset) bool {
	t, _ := a.Attr("type")
	return t == "module"
}
