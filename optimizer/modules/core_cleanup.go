package modules

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/PuerkitoBio/goquery"
)

const restAPIRel = "https://api.w.org/"

// Asset URLs that keep their query string.
var keepQueryStrings = []string{"customize-preview", "admin-bar", "wp-admin"}

// Head tags WordPress prints that no visitor needs.
var headCruft = []string{
	`meta[name="generator"]`,
	`link[rel="wlwmanifest"]`,
	`link[rel="EditURI"]`,
	`link[rel="shortlink"]`,
}

// CoreCleanup strips WordPress core output that costs bytes or requests.
type CoreCleanup struct {
	base
}

func NewCoreCleanup(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &CoreCleanup{base: base{name: settings.ModuleCore, opts: opts, deps: deps}}
}

func (m *CoreCleanup) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("remove_wp_embed") {
		p.OnEnqueue("core.remove_wp_embed", 10, m.removeWPEmbed)
	}
	if m.enabled("remove_dashicons_logged_out") && !p.Context().IsLoggedIn {
		p.OnEnqueue("core.remove_dashicons", 10, m.removeDashicons)
	}
	if m.enabled("disable_xmlrpc") {
		p.OnRequest("core.block_xmlrpc", 10, blockXMLRPC)
		p.OnHeaders("core.remove_pingback_header", 10, func(h pipeline.Header) error {
			h.Del("X-Pingback")
			return nil
		})
		p.OnEnqueue("core.remove_pingback_link", 10, func(doc *pipeline.Document) error {
			doc.Head().Find(`link[rel="pingback"]`).Remove()
			return nil
		})
	}
	if m.enabled("remove_rest_links") {
		p.OnEnqueue("core.remove_rest_links", 10, removeRESTLinks)
		p.OnHeaders("core.remove_rest_link_header", 11, removeRESTLinkHeader)
	}
	if m.enabled("remove_query_strings") {
		p.OnScriptTag("core.remove_query_strings", 5, m.removeQueryString)
		p.OnStyleTag("core.remove_query_strings", 5, m.removeQueryString)
	}
	p.OnEnqueue("core.head_cleanup", 10, m.headCleanup)
	return nil
}

func (m *CoreCleanup) removeWPEmbed(doc *pipeline.Document) error {
	for _, a := range doc.Scripts() {
		if a.Handle == "wp-embed" {
			a.Remove()
			m.debugf("removed wp-embed")
		}
	}
	return nil
}

func (m *CoreCleanup) removeDashicons(doc *pipeline.Document) error {
	for _, a := range doc.Styles() {
		if a.Handle == "dashicons" {
			a.Remove()
			m.debugf("removed dashicons for logged-out visitor")
		}
	}
	return nil
}

func blockXMLRPC(rc domain.RequestContext) *pipeline.Interception {
	if strings.ToLower(rc.Path) != "/xmlrpc.php" {
		return nil
	}
	return &pipeline.Interception{
		Status:      http.StatusForbidden,
		ContentType: "text/plain; charset=utf-8",
		Body:        "XML-RPC services are disabled on this site.",
	}
}

func isRESTURL(href string) bool {
	return strings.Contains(href, "/wp-json/") || strings.Contains(href, "rest_route=")
}

func removeRESTLinks(doc *pipeline.Document) error {
	doc.Head().Find("link").Each(func(_ int, s *goquery.Selection) {
		rel := s.AttrOr("rel", "")
		href := s.AttrOr("href", "")
		typ := s.AttrOr("type", "")
		if rel == restAPIRel || (rel == "alternate" && strings.Contains(typ, "json") && isRESTURL(href)) {
			s.Remove()
		}
	})
	return nil
}

// removeRESTLinkHeader drops the REST discovery entry and keeps every
// other Link value.
func removeRESTLinkHeader(h pipeline.Header) error {
	values := h.Values("Link")
	if len(values) == 0 {
		return nil
	}

	var keep []string
	for _, v := range values {
		var parts []string
		for _, part := range strings.Split(v, ",") {
			if !strings.Contains(part, restAPIRel) {
				parts = append(parts, strings.TrimSpace(part))
			}
		}
		if len(parts) > 0 {
			keep = append(keep, strings.Join(parts, ", "))
		}
	}

	h.Del("Link")
	for _, v := range keep {
		h.Add("Link", v)
	}
	return nil
}

func (m *CoreCleanup) removeQueryString(doc *pipeline.Document, a *pipeline.Asset) error {
	src := a.Src()
	if !strings.Contains(src, "?") || !safety.IsInternalURL(src, doc.SiteHost()) {
		return nil
	}
	for _, k := range keepQueryStrings {
		if strings.Contains(a.Handle, k) || strings.Contains(src, k) {
			return nil
		}
	}

	u, err := url.Parse(src)
	if err != nil {
		return nil
	}
	q := u.Query()
	if !q.Has("ver") && !q.Has("version") {
		return nil
	}
	q.Del("ver")
	q.Del("version")
	u.RawQuery = q.Encode()
	a.SetSrc(u.String())
	m.debugf("removed query string from %s", a.Handle)
	return nil
}

// headCleanup removes generator tags, discovery links and the emoji
// detection script and styles.
func (m *CoreCleanup) headCleanup(doc *pipeline.Document) error {
	head := doc.Head()
	for _, sel := range headCruft {
		head.Find(sel).Remove()
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		id := s.AttrOr("id", "")
		src := s.AttrOr("src", "")
		if strings.HasPrefix(id, "wp-emoji") || strings.Contains(src, "wp-emoji-release") ||
			strings.Contains(s.Text(), "_wpemojiSettings") {
			s.Remove()
		}
	})
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if s.AttrOr("id", "") == "wp-emoji-styles-inline-css" || strings.Contains(s.Text(), "img.wp-smiley") {
			s.Remove()
		}
	})
	return nil
}
