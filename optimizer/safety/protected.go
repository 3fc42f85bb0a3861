package safety

import (
	"net/url"
	"regexp"
	"strings"
)

var protectedScripts = map[string]struct{}{
	"wp-polyfill":       {},
	"wp-hooks":          {},
	"admin-bar":         {},
	"hoverintent-js":    {},
	"wc-checkout":       {},
	"wc-cart-fragments": {},
	"wc-add-to-cart":    {},
	"woocommerce":       {},
	"contact-form-7":    {},
	"wpcf7-recaptcha":   {},
	"gravity-forms":     {},
	"wordfence":         {},
	"sucuri":            {},
}

var protectedStyles = map[string]struct{}{
	"admin-bar":               {},
	"dashicons":               {},
	"woocommerce-layout":      {},
	"woocommerce-smallscreen": {},
	"woocommerce-general":     {},
}

// Inline data blocks that other scripts read at load time.
var criticalInlineVar = regexp.MustCompile(`(?i)var\s+(wp|woocommerce|ajax|nonce)`)

// IsProtectedScript reports script handles that are never rewritten.
func IsProtectedScript(handle string) bool {
	_, ok := protectedScripts[handle]
	return ok
}

// IsProtectedStyle reports stylesheet handles that are never rewritten.
func IsProtectedStyle(handle string) bool {
	_, ok := protectedStyles[handle]
	return ok
}

// IsScriptSafe inspects the full markup of a script tag, companions included.
func IsScriptSafe(tag string) bool {
	if strings.Contains(tag, "data-no-defer") {
		return false
	}
	return !criticalInlineVar.MatchString(tag)
}

// IsURLOptimizable accepts relative URLs and URLs on siteHost, except the
// admin and login screens.
func IsURLOptimizable(raw, siteHost string) bool {
	if !IsInternalURL(raw, siteHost) {
		return false
	}
	return !strings.Contains(raw, "/wp-admin/") && !strings.Contains(raw, "/wp-login")
}

// IsInternalURL treats URLs without a host as internal.
func IsInternalURL(raw, siteHost string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}
	return strings.EqualFold(u.Hostname(), hostOnly(siteHost))
}

func hostOnly(h string) string {
	if u, err := url.Parse("//" + h); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return h
}
