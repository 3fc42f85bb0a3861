package preset

import settings "github.com/AzielCF/az-speed/core/settings/domain"

type level struct {
	jsDefer, jsDelay, cssDefer, disableGoogle, delayAnalytics, delayTracking bool
}

var levels = map[string]level{
	Safe:   {},
	Medium: {jsDefer: true, cssDefer: true, delayAnalytics: true},
	Risky:  {jsDefer: true, jsDelay: true, cssDefer: true, disableGoogle: true, delayAnalytics: true, delayTracking: true},
}

var descriptions = map[string][2]string{
	Safe:   {"Safe", "Zero-risk optimizations only"},
	Medium: {"Medium", "Balanced performance gains"},
	Risky:  {"Risky", "Maximum performance (test first!)"},
}

func b(v bool) settings.Value { return settings.BoolValue(v) }

// Images, core cleanup and preloading are the same in every preset, and no
// preset ever optimizes for logged-in users.
func (l level) entries() []Entry {
	return []Entry{
		{"sso_js_move_jquery_footer", b(true)},
		{"sso_js_defer_non_critical", b(l.jsDefer)},
		{"sso_js_delay_until_interaction", b(l.jsDelay)},
		{"sso_js_excluded_scripts", settings.TextValue("")},

		{"sso_css_inline_critical", b(false)},
		{"sso_css_defer_non_critical", b(l.cssDefer)},
		{"sso_css_critical_css", settings.TextValue("")},

		{"sso_fonts_preload_local", b(true)},
		{"sso_fonts_add_display_swap", b(true)},
		{"sso_fonts_disable_google", b(l.disableGoogle)},

		{"sso_images_add_dimensions", b(true)},
		{"sso_images_lazy_load", b(true)},
		{"sso_images_exclude_above_fold", settings.TextValue("")},

		{"sso_core_remove_wp_embed", b(true)},
		{"sso_core_remove_dashicons_logged_out", b(true)},
		{"sso_core_disable_xmlrpc", b(true)},
		{"sso_core_remove_rest_links", b(true)},
		{"sso_core_remove_query_strings", b(true)},

		{"sso_third_party_delay_analytics", b(l.delayAnalytics)},
		{"sso_third_party_delay_tracking", b(l.delayTracking)},

		{"sso_preloading_lcp_image", b(true)},
		{"sso_preloading_fonts", b(true)},
		{"sso_preloading_dns_prefetch_third_party", b(true)},

		{settings.KeyAffectLoggedInUsers, b(false)},
	}
}

// Get returns the preset table for name.
func Get(name string) (Preset, bool) {
	l, ok := levels[name]
	if !ok {
		return Preset{}, false
	}
	d := descriptions[name]
	return Preset{Name: name, Title: d[0], Description: d[1], Entries: l.entries()}, true
}

// All returns every preset in order of aggressiveness.
func All() []Preset {
	out := make([]Preset, 0, len(Names))
	for _, n := range Names {
		p, _ := Get(n)
		out = append(out, p)
	}
	return out
}
