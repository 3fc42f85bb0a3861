package pipeline

import (
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type AssetKind string

const (
	KindScript AssetKind = "script"
	KindStyle  AssetKind = "style"
)

// Asset is one enqueued script or stylesheet tag together with the inline
// blocks printed for the same handle (-js-extra, -js-before, -js-after for
// scripts and -inline-css for styles).
type Asset struct {
	Kind   AssetKind
	Handle string

	sel     *goquery.Selection
	before  []*goquery.Selection
	after   []*goquery.Selection
	removed bool
}

var (
	scriptBeforeSuffixes = []string{"-js-extra", "-js-before"}
	scriptAfterSuffixes  = []string{"-js-after"}
	styleAfterSuffixes   = []string{"-inline-css"}
)

// handleSuffixes are tried in order; longer suffixes first.
var handleSuffixes = []string{"-js-extra", "-js-before", "-js-after", "-js", "-inline-css", "-css"}

// parseHandle splits an element id such as "jquery-core-js" into the
// handle and the suffix WordPress appended.
func parseHandle(id string) (handle, suffix string) {
	for _, s := range handleSuffixes {
		if strings.HasSuffix(id, s) && len(id) > len(s) {
			return id[:len(id)-len(s)], s
		}
	}
	return id, ""
}

// handleFromURL derives a handle from the file name: "/js/slider.min.js" -> "slider".
func handleFromURL(raw string) string {
	p := raw
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimSuffix(base, ".min")
}

func (a *Asset) urlAttr() string {
	if a.Kind == KindStyle {
		return "href"
	}
	return "src"
}

// Src is the script src or stylesheet href.
func (a *Asset) Src() string {
	v, _ := a.sel.Attr(a.urlAttr())
	return strings.TrimSpace(v)
}

func (a *Asset) SetSrc(v string) {
	a.sel.SetAttr(a.urlAttr(), v)
}

func (a *Asset) Attr(name string) (string, bool) {
	return a.sel.Attr(name)
}

func (a *Asset) HasAttr(name string) bool {
	_, ok := a.sel.Attr(name)
	return ok
}

func (a *Asset) SetAttr(name, value string) {
	a.sel.SetAttr(name, value)
}

func (a *Asset) RemoveAttr(name string) {
	a.sel.RemoveAttr(name)
}

// IsInline reports a script without src.
func (a *Asset) IsInline() bool {
	return a.Kind == KindScript && a.Src() == ""
}

// InHead reports whether the tag sits inside <head>.
func (a *Asset) InHead() bool {
	return a.sel.ParentsFiltered("head").Length() > 0
}

// OuterHTML renders the element alone.
func (a *Asset) OuterHTML() string {
	html, _ := goquery.OuterHtml(a.sel)
	return html
}

// Tag renders everything printed for the handle, inline companions included.
func (a *Asset) Tag() string {
	var b strings.Builder
	for _, s := range a.parts() {
		html, _ := goquery.OuterHtml(s)
		b.WriteString(html)
	}
	return b.String()
}

// Selection returns the main element and its companions in document order.
func (a *Asset) Selection() *goquery.Selection {
	parts := a.parts()
	out := parts[0]
	for _, s := range parts[1:] {
		out = out.AddSelection(s)
	}
	return out
}

// InsertAfter adds markup right after the tag and its companions.
func (a *Asset) InsertAfter(html string) {
	parts := a.parts()
	parts[len(parts)-1].AfterHtml(html)
}

// Remove drops the tag and its companions from the document.
func (a *Asset) Remove() {
	for _, s := range a.parts() {
		s.Remove()
	}
	a.removed = true
}

func (a *Asset) Removed() bool {
	return a.removed
}

func (a *Asset) parts() []*goquery.Selection {
	out := make([]*goquery.Selection, 0, len(a.before)+1+len(a.after))
	out = append(out, a.before...)
	out = append(out, a.sel)
	return append(out, a.after...)
}

type taggedElement struct {
	sel    *goquery.Selection
	handle string
	suffix string
}

func hasSuffixIn(suffix string, list []string) bool {
	for _, s := range list {
		if s == suffix {
			return true
		}
	}
	return false
}

// collectAssets groups matched elements by handle. Elements ending in
// mainSuffix become assets; companions attach to the asset of the same
// handle, or stand alone when that asset is missing.
func collectAssets(kind AssetKind, sel *goquery.Selection, mainSuffix string, before, after []string) []*Asset {
	var elems []taggedElement
	sel.Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		handle, suffix := parseHandle(strings.TrimSpace(id))
		elems = append(elems, taggedElement{sel: s, handle: handle, suffix: suffix})
	})

	mains := make(map[string]*Asset)
	for _, e := range elems {
		if e.suffix == mainSuffix && e.handle != "" {
			if _, dup := mains[e.handle]; !dup {
				mains[e.handle] = &Asset{Kind: kind, Handle: e.handle, sel: e.sel}
			}
		}
	}

	var out []*Asset
	for _, e := range elems {
		isBefore := hasSuffixIn(e.suffix, before)
		isAfter := hasSuffixIn(e.suffix, after)

		if (isBefore || isAfter) && mains[e.handle] != nil {
			m := mains[e.handle]
			if isBefore {
				m.before = append(m.before, e.sel)
			} else {
				m.after = append(m.after, e.sel)
			}
			continue
		}
		if m := mains[e.handle]; m != nil && m.sel == e.sel {
			out = append(out, m)
			continue
		}

		a := &Asset{Kind: kind, Handle: e.handle, sel: e.sel}
		if a.Handle == "" {
			a.Handle = handleFromURL(a.Src())
		}
		out = append(out, a)
	}
	return out
}
