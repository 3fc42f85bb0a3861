package modules

import (
	"context"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
)

var analyticsDomains = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.net",
	"hotjar.com",
	"crazyegg.com",
	"mouseflow.com",
	"fullstory.com",
	"segment.com",
	"mixpanel.com",
}

const analyticsLoader = `<script id="sso-analytics-loader">
(function(){
  var done = false;
  var events = ['click', 'scroll', 'keydown', 'touchstart', 'mouseover'];
  function load() {
    if (done) { return; }
    done = true;
    document.querySelectorAll('script[type="sso/analytics"][data-sso-analytics="true"]').forEach(function(old){
      var src = old.getAttribute('data-sso-src');
      if (!src) { return; }
      var s = document.createElement('script');
      Array.prototype.forEach.call(old.attributes, function(a){
        if (a.name !== 'type' && a.name.indexOf('data-sso-') !== 0) { s.setAttribute(a.name, a.value); }
      });
      s.src = src;
      s.async = true;
      document.head.appendChild(s);
      old.remove();
    });
  }
  events.forEach(function(e){ document.addEventListener(e, load, {passive: true, once: true}); });
  setTimeout(load, 10000);
})();
</script>`

const consentManager = `<script id="sso-consent-manager">
(function(){
  var cookies = ['cookie-consent', 'gdpr-consent', 'cookie-notice-accepted', 'cookieConsent', 'consent-given'];
  var storage = ['consent', 'cookie-consent', 'gdpr-consent'];
  function hasConsent() {
    for (var i = 0; i < cookies.length; i++) {
      if (document.cookie.indexOf(cookies[i] + '=') !== -1) { return true; }
    }
    try {
      for (var j = 0; j < storage.length; j++) {
        if (localStorage.getItem(storage[j])) { return true; }
      }
    } catch (e) {}
    return false;
  }
  function waitForConsent() {
    if (!hasConsent()) { setTimeout(waitForConsent, 2000); return; }
    document.dispatchEvent(new Event('click'));
  }
  document.addEventListener('DOMContentLoaded', function(){ setTimeout(waitForConsent, 1000); });
})();
</script>`

const cloudflareEmailDecodeOff = `<script id="sso-cf-email-decode">
if (typeof window.CloudFlare !== 'undefined') {
  window.CloudFlare.push(function(){ window.CloudFlare.EmailDecode = function(){}; });
}
</script>`

// ThirdParty holds analytics and tracking scripts back and switches off
// the Cloudflare email decoder.
type ThirdParty struct {
	base
	delayed int
}

func NewThirdParty(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &ThirdParty{base: base{name: settings.ModuleThirdParty, opts: opts, deps: deps}}
}

func (m *ThirdParty) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("delay_analytics") {
		p.OnScriptTag("third_party.delay_analytics", 10, m.delayAnalytics)
		p.OnFooter("third_party.analytics_loader", 999, m.loader)
	}
	if m.enabled("delay_tracking") {
		p.OnFooter("third_party.consent_manager", 998, func(*pipeline.Document) (string, error) {
			return consentManager, nil
		})
	}
	if m.enabled("disable_cf_email_decode") {
		p.OnEnqueue("third_party.remove_cf_email_decode", 10, removeEmailDecode)
		p.OnHead("third_party.disable_cf_email_decode", 10, func(*pipeline.Document) (string, error) {
			return cloudflareEmailDecodeOff, nil
		})
	}
	return nil
}

func isAnalyticsURL(src string) bool {
	for _, d := range analyticsDomains {
		if strings.Contains(src, d) {
			return true
		}
	}
	return false
}

func (m *ThirdParty) delayAnalytics(_ *pipeline.Document, a *pipeline.Asset) error {
	src := a.Src()
	if src == "" || !isAnalyticsURL(src) {
		return nil
	}

	a.SetAttr("type", "sso/analytics")
	a.SetAttr("data-sso-analytics", "true")
	a.SetAttr("data-sso-src", src)
	a.RemoveAttr("src")
	m.delayed++
	m.debugf("delayed analytics script %s", a.Handle)
	return nil
}

func (m *ThirdParty) loader(*pipeline.Document) (string, error) {
	if m.delayed == 0 {
		return "", nil
	}
	return analyticsLoader, nil
}

func removeEmailDecode(doc *pipeline.Document) error {
	for _, a := range doc.Scripts() {
		if strings.Contains(a.Src(), "/cdn-cgi/scripts/") && strings.Contains(a.Src(), "email-decode") {
			a.Remove()
		}
	}
	return nil
}
