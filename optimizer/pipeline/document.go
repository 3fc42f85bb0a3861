package pipeline

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/PuerkitoBio/goquery"
)

// Document is the parsed page handed to document hooks.
type Document struct {
	doc   *goquery.Document
	rc    domain.RequestContext
	hints map[string]struct{}
}

func ParseDocument(body []byte, rc domain.RequestContext) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	d := &Document{doc: doc, rc: rc, hints: make(map[string]struct{})}
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		href, _ := s.Attr("href")
		for _, r := range strings.Fields(rel) {
			switch strings.ToLower(r) {
			case "preload", "preconnect", "dns-prefetch":
				d.MarkHint(r, href)
			}
		}
	})
	return d, nil
}

func (d *Document) Context() domain.RequestContext {
	return d.rc
}

// SiteHost is the host the visitor requested, used to tell internal URLs
// from third-party ones.
func (d *Document) SiteHost() string {
	return d.rc.Host
}

func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

func (d *Document) Head() *goquery.Selection {
	return d.doc.Find("head").First()
}

func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

// Scripts lists the script tags in document order.
func (d *Document) Scripts() []*Asset {
	return collectAssets(KindScript, d.doc.Find("script"), "-js", scriptBeforeSuffixes, scriptAfterSuffixes)
}

// Styles lists the linked stylesheets in document order.
func (d *Document) Styles() []*Asset {
	sel := d.doc.Find("link, style").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "style" {
			id, _ := s.Attr("id")
			return strings.HasSuffix(id, "-inline-css")
		}
		return IsStylesheet(s)
	})

	var out []*Asset
	for _, a := range collectAssets(KindStyle, sel, "-css", nil, styleAfterSuffixes) {
		if goquery.NodeName(a.sel) == "link" {
			out = append(out, a)
		}
	}
	return out
}

// IsStylesheet reports a <link> whose rel lists "stylesheet".
func IsStylesheet(s *goquery.Selection) bool {
	rel, _ := s.Attr("rel")
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "stylesheet" {
			return true
		}
	}
	return false
}

// MarkHint records a resource hint (rel "preload", "preconnect",
// "dns-prefetch") for url and reports whether it is new. Hints already in
// the page count as recorded.
func (d *Document) MarkHint(rel, raw string) bool {
	key := strings.ToLower(rel) + " " + d.absolute(strings.TrimSpace(raw))
	if _, seen := d.hints[key]; seen {
		return false
	}
	d.hints[key] = struct{}{}
	return true
}

func (d *Document) absolute(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() {
		return raw
	}
	base, err := url.Parse(d.rc.SiteURL() + "/")
	if err != nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

// HTML renders the document.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}
