package domain

import (
	"net/url"
	"strings"
)

// RequestInfo is the raw view of an incoming request the optimizer needs.
// The transport layer fills it; nothing here depends on fiber or net/http.
type RequestInfo struct {
	Method   string
	Scheme   string
	Host     string
	Path     string
	RawQuery string
	// Cookies holds cookie names only.
	Cookies       []string
	RequestedWith string
}

// CommercePaths lists the path segments of pages that are never optimized.
type CommercePaths struct {
	Checkout []string
	Cart     []string
	Account  []string
}

func DefaultCommercePaths() CommercePaths {
	return CommercePaths{
		Checkout: []string{"checkout"},
		Cart:     []string{"cart"},
		Account:  []string{"my-account"},
	}
}

// RequestContext is recomputed for every request and never cached.
type RequestContext struct {
	Scheme string
	Host   string
	Path   string

	IsAdmin    bool
	IsREST     bool
	IsAJAX     bool
	IsCron     bool
	IsLoggedIn bool
	IsCheckout bool
	IsCart     bool
	IsAccount  bool
}

// IsCommerce reports a protected checkout, cart or account page.
func (rc RequestContext) IsCommerce() bool {
	return rc.IsCheckout || rc.IsCart || rc.IsAccount
}

// SiteURL is the public origin the visitor reached, without a trailing slash.
func (rc RequestContext) SiteURL() string {
	scheme := rc.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + rc.Host
}

const (
	loggedInCookiePrefix = "wordpress_logged_in_"
	adminAjaxPath        = "/wp-admin/admin-ajax.php"
)

// Derive builds the context flags of a request.
func Derive(info RequestInfo, paths CommercePaths) RequestContext {
	p := info.Path
	if p == "" {
		p = "/"
	}
	lower := strings.ToLower(p)
	query, _ := url.ParseQuery(info.RawQuery)

	rc := RequestContext{
		Scheme: info.Scheme,
		Host:   info.Host,
		Path:   p,
	}

	isAjaxEndpoint := lower == adminAjaxPath
	rc.IsAdmin = (hasPathPrefix(lower, "/wp-admin") && !isAjaxEndpoint) || lower == "/wp-login.php"
	rc.IsREST = hasPathPrefix(lower, "/wp-json") || query.Has("rest_route")
	rc.IsAJAX = isAjaxEndpoint || strings.EqualFold(info.RequestedWith, "XMLHttpRequest")
	rc.IsCron = lower == "/wp-cron.php" || query.Has("doing_wp_cron")

	for _, name := range info.Cookies {
		if strings.HasPrefix(name, loggedInCookiePrefix) {
			rc.IsLoggedIn = true
			break
		}
	}

	rc.IsCheckout = matchesSegment(lower, paths.Checkout)
	rc.IsCart = matchesSegment(lower, paths.Cart)
	rc.IsAccount = matchesSegment(lower, paths.Account)
	return rc
}

// hasPathPrefix matches "/wp-admin" and "/wp-admin/..." but not "/wp-administrator".
func hasPathPrefix(p, prefix string) bool {
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	rest := p[len(prefix):]
	return rest == "" || rest[0] == '/'
}

// matchesSegment reports whether any entry appears in p as whole path
// segments. "checkout" matches "/checkout/order-received/12/".
func matchesSegment(p string, entries []string) bool {
	padded := "/" + strings.Trim(p, "/") + "/"
	for _, e := range entries {
		e = strings.Trim(strings.ToLower(strings.TrimSpace(e)), "/")
		if e == "" {
			continue
		}
		if strings.Contains(padded, "/"+e+"/") {
			return true
		}
	}
	return false
}
