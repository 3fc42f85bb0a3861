package pipeline

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head>
<meta charset="utf-8">
<title>Home</title>
<link rel="stylesheet" id="theme-css" href="/wp-content/themes/t/style.css?ver=1" media="all">
<style id="theme-inline-css">body{color:red}</style>
<script id="jquery-core-js" src="/wp-includes/js/jquery/jquery.min.js?ver=3.7.1"></script>
</head><body>
<p>Hello</p>
<script id="app-js-extra">var appSettings = {"a":1};</script>
<script id="app-js" src="/wp-content/themes/t/app.js"></script>
<script src="https://cdn.example.net/lib/slider.min.js"></script>
<script>console.log("inline")</script>
</body></html>`

var testRC = domain.RequestContext{Scheme: "https", Host: "example.com", Path: "/"}

func TestParseHandle(t *testing.T) {
	cases := map[string][2]string{
		"jquery-core-js":       {"jquery-core", "-js"},
		"app-js-extra":         {"app", "-js-extra"},
		"app-js-before":        {"app", "-js-before"},
		"app-js-after":         {"app", "-js-after"},
		"theme-css":            {"theme", "-css"},
		"theme-inline-css":     {"theme", "-inline-css"},
		"wp-block-library-css": {"wp-block-library", "-css"},
		"custom":               {"custom", ""},
		"-js":                  {"-js", ""},
	}
	for id, want := range cases {
		h, s := parseHandle(id)
		assert.Equal(t, want[0], h, id)
		assert.Equal(t, want[1], s, id)
	}

	assert.Equal(t, "slider", handleFromURL("https://cdn.example.net/lib/slider.min.js?ver=2"))
	assert.Equal(t, "app", handleFromURL("/js/app.js#x"))
	assert.Equal(t, "", handleFromURL(""))
}

func TestDocument_ScriptsGroupsCompanions(t *testing.T) {
	doc, err := ParseDocument([]byte(page), testRC)
	require.NoError(t, err)

	scripts := doc.Scripts()
	require.Len(t, scripts, 4)

	assert.Equal(t, "jquery-core", scripts[0].Handle)
	assert.True(t, scripts[0].InHead())

	app := scripts[1]
	assert.Equal(t, "app", app.Handle)
	assert.False(t, app.IsInline())
	assert.Contains(t, app.Tag(), "var appSettings")
	assert.NotContains(t, app.OuterHTML(), "var appSettings")
	assert.Equal(t, 2, app.Selection().Length())

	assert.Equal(t, "slider", scripts[2].Handle)
	assert.True(t, scripts[3].IsInline())
}

func TestDocument_Styles(t *testing.T) {
	doc, err := ParseDocument([]byte(page), testRC)
	require.NoError(t, err)

	styles := doc.Styles()
	require.Len(t, styles, 1)
	assert.Equal(t, "theme", styles[0].Handle)
	assert.Equal(t, "/wp-content/themes/t/style.css?ver=1", styles[0].Src())
	assert.Contains(t, styles[0].Tag(), "body{color:red}")
}

func TestDocument_MarkHint(t *testing.T) {
	body := `<html><head><link rel="preconnect" href="https://fonts.gstatic.com"></head><body></body></html>`
	doc, err := ParseDocument([]byte(body), testRC)
	require.NoError(t, err)

	assert.True(t, doc.MarkHint("preload", "/fonts/a.woff2"))
	assert.False(t, doc.MarkHint("preload", "https://example.com/fonts/a.woff2"))
	assert.True(t, doc.MarkHint("preload", "/fonts/b.woff2"))
	assert.True(t, doc.MarkHint("dns-prefetch", "/fonts/a.woff2"))

	assert.False(t, doc.MarkHint("preconnect", "https://fonts.gstatic.com"))
	assert.True(t, doc.MarkHint("preconnect", "https://use.typekit.net"))
}

func TestPipeline_OrderByPriorityThenRegistration(t *testing.T) {
	p := New(testRC)
	var got []string
	record := func(name string) DocumentFunc {
		return func(*Document) error {
			got = append(got, name)
			return nil
		}
	}
	p.OnContent("late", 20, record("late"))
	p.OnContent("first", 1, record("first"))
	p.OnContent("tie-a", 10, record("tie-a"))
	p.OnContent("tie-b", 10, record("tie-b"))

	_, err := p.Render([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "tie-a", "tie-b", "late"}, got)
}

func TestPipeline_HeadAndFooterPlacement(t *testing.T) {
	p := New(testRC)
	p.OnHead("second", 2, func(*Document) (string, error) { return `<link rel="preload" href="/b">`, nil })
	p.OnHead("first", 1, func(*Document) (string, error) { return `<style id="early"></style>`, nil })
	p.OnHead("late", 10, func(*Document) (string, error) { return `<meta name="late">`, nil })
	p.OnHead("empty", 1, func(*Document) (string, error) { return "", nil })
	p.OnFooter("loader", 999, func(*Document) (string, error) { return `<script id="loader"></script>`, nil })

	out, err := p.Render([]byte(page))
	require.NoError(t, err)
	html := string(out)

	early := strings.Index(html, `id="early"`)
	second := strings.Index(html, `href="/b"`)
	theme := strings.Index(html, `id="theme-css"`)
	late := strings.Index(html, `name="late"`)
	headEnd := strings.Index(html, "</head>")
	loader := strings.Index(html, `id="loader"`)
	inline := strings.Index(html, `console.log("inline")`)

	require.True(t, early > 0 && second > 0 && late > 0 && loader > 0)
	assert.Less(t, early, second)
	assert.Less(t, second, theme)
	assert.Less(t, theme, late)
	assert.Less(t, late, headEnd)
	assert.Less(t, inline, loader)
}

func TestPipeline_TagFiltersSeeEveryAsset(t *testing.T) {
	p := New(testRC)
	var handles []string
	p.OnScriptTag("collect", 10, func(_ *Document, a *Asset) error {
		handles = append(handles, a.Handle)
		return nil
	})
	p.OnScriptTag("defer", 20, func(_ *Document, a *Asset) error {
		if !a.IsInline() {
			a.SetAttr("defer", "")
		}
		return nil
	})
	p.OnStyleTag("drop", 10, func(_ *Document, a *Asset) error {
		a.Remove()
		return nil
	})

	out, err := p.Render([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, []string{"jquery-core", "app", "slider", ""}, handles)
	assert.Contains(t, string(out), `<script id="app-js" src="/wp-content/themes/t/app.js" defer=""></script>`)
	assert.NotContains(t, string(out), "theme-css")
	assert.NotContains(t, string(out), "body{color:red}")
}

func TestPipeline_FailureAbortsRender(t *testing.T) {
	p := New(testRC)
	p.OnContent("boom", 10, func(*Document) error { panic("nil map") })

	out, err := p.Render([]byte(page))
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content hook boom panicked")

	p = New(testRC)
	p.OnHead("bad", 1, func(*Document) (string, error) { return "", errors.New("no font dir") })
	_, err = p.Render([]byte(page))
	assert.ErrorContains(t, err, "no font dir")
}

func TestPipeline_InterceptAndHeaders(t *testing.T) {
	rc := testRC
	rc.Path = "/xmlrpc.php"
	p := New(rc)
	p.OnRequest("pass", 5, func(domain.RequestContext) *Interception { return nil })
	p.OnRequest("block", 10, func(rc domain.RequestContext) *Interception {
		if rc.Path == "/xmlrpc.php" {
			return &Interception{Status: http.StatusForbidden, Body: "forbidden"}
		}
		return nil
	})
	p.OnHeaders("pingback", 10, func(h Header) error {
		h.Del("X-Pingback")
		return nil
	})

	res, err := p.Intercept()
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.Status)

	hdr := http.Header{}
	hdr.Set("X-Pingback", "https://example.com/xmlrpc.php")
	hdr.Set("Content-Type", "text/html")
	require.NoError(t, p.FilterHeaders(hdr))
	assert.Empty(t, hdr.Get("X-Pingback"))
	assert.Equal(t, "text/html", hdr.Get("Content-Type"))

	assert.False(t, p.HasDocumentHooks())
	assert.Len(t, p.Registrations(), 3)
}
