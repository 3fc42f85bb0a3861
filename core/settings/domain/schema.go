package domain

// Tab identifiers of the admin settings page.
const (
	TabJavaScript = "javascript"
	TabCSS        = "css"
	TabFonts      = "fonts"
	TabImages     = "images"
	TabCore       = "core"
	TabThirdParty = "third-party"
	TabPreloading = "preloading"
	TabGlobal     = "global"
	TabUpdates    = "updates"
)

// Tab is one page of the admin settings form.
type Tab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Tabs lists the admin tabs in display order.
var Tabs = []Tab{
	{ID: TabJavaScript, Title: "JavaScript"},
	{ID: TabCSS, Title: "CSS"},
	{ID: TabFonts, Title: "Fonts"},
	{ID: TabImages, Title: "Images"},
	{ID: TabCore, Title: "Core Cleanup"},
	{ID: TabThirdParty, Title: "Third-party"},
	{ID: TabPreloading, Title: "Preloading"},
	{ID: TabGlobal, Title: "Global"},
	{ID: TabUpdates, Title: "Updates"},
}

// Definition declares a single setting.
type Definition struct {
	Key         string    `json:"key"`
	Module      string    `json:"module,omitempty"`
	Tab         string    `json:"tab,omitempty"`
	Type        FieldType `json:"type"`
	Default     Value     `json:"default"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	// FormName overrides the posted field name (defaults to Key).
	FormName string   `json:"form_name,omitempty"`
	Options  []string `json:"options,omitempty"`
	// Activate marks keys written with their default at activation.
	Activate bool `json:"-"`
	// Sensitive values are encrypted at rest and never returned by the API.
	Sensitive bool `json:"sensitive,omitempty"`
}

// Option returns the key without its module prefix.
func (d Definition) Option() string {
	if d.Module == "" {
		return d.Key
	}
	return d.Key[len(ModulePrefix(d.Module)):]
}

// Field returns the name the setting is posted under.
func (d Definition) Field() string {
	if d.FormName != "" {
		return d.FormName
	}
	return d.Key
}

func boolDef(module, tab, key string, def, activate bool, label, desc string) Definition {
	return Definition{Key: key, Module: module, Tab: tab, Type: FieldBool, Default: BoolValue(def), Activate: activate, Label: label, Description: desc}
}

func textDef(module, tab, key, def string, activate bool, label, desc string) Definition {
	return Definition{Key: key, Module: module, Tab: tab, Type: FieldText, Default: TextValue(def), Activate: activate, Label: label, Description: desc}
}

func stringDef(tab, key, def, label, desc string) Definition {
	return Definition{Key: key, Tab: tab, Type: FieldString, Default: StringValue(def), Label: label, Description: desc}
}

// Schema is the full list of settings in display order.
var Schema = []Definition{
	boolDef(ModuleJavaScript, TabJavaScript, "sso_js_move_jquery_footer", true, true,
		"Move jQuery to footer", "Load jQuery in the footer instead of the head."),
	boolDef(ModuleJavaScript, TabJavaScript, "sso_js_defer_non_critical", true, true,
		"Defer non-critical JavaScript", "Add the defer attribute to scripts that are safe to defer."),
	boolDef(ModuleJavaScript, TabJavaScript, "sso_js_delay_until_interaction", false, true,
		"Delay JavaScript until interaction", "Load scripts only after the first click, scroll, key press or touch."),
	textDef(ModuleJavaScript, TabJavaScript, "sso_js_excluded_scripts", "jquery-core", true,
		"Excluded scripts", "Script handles to leave untouched, separated by commas or new lines."),

	boolDef(ModuleCSS, TabCSS, "sso_css_inline_critical", false, true,
		"Inline critical CSS", "Print the critical CSS below in the document head."),
	boolDef(ModuleCSS, TabCSS, "sso_css_defer_non_critical", true, true,
		"Defer non-critical CSS", "Load stylesheets asynchronously with a noscript fallback."),
	textDef(ModuleCSS, TabCSS, "sso_css_critical_css", "", false,
		"Critical CSS", "Above-the-fold styles to inline."),

	boolDef(ModuleFonts, TabFonts, "sso_fonts_preload_local", true, true,
		"Preload local fonts", "Preload the most important font files served by the site."),
	boolDef(ModuleFonts, TabFonts, "sso_fonts_add_display_swap", true, true,
		"Add font-display: swap", "Show fallback text while web fonts load."),
	boolDef(ModuleFonts, TabFonts, "sso_fonts_disable_google", false, false,
		"Disable Google Fonts", "Remove stylesheets loaded from fonts.googleapis.com."),

	boolDef(ModuleImages, TabImages, "sso_images_add_dimensions", true, true,
		"Add missing image dimensions", "Add width and height to images that lack them."),
	boolDef(ModuleImages, TabImages, "sso_images_lazy_load", true, true,
		"Lazy load images", "Add loading=\"lazy\" to images below the fold."),
	textDef(ModuleImages, TabImages, "sso_images_exclude_above_fold", ".logo img, .hero-image, #header img", false,
		"Exclude above-the-fold images", "Selectors of images that must load immediately."),

	boolDef(ModuleCore, TabCore, "sso_core_remove_wp_embed", true, true,
		"Remove wp-embed", "Drop the oEmbed helper script."),
	boolDef(ModuleCore, TabCore, "sso_core_remove_dashicons_logged_out", true, true,
		"Remove Dashicons for visitors", "Drop the Dashicons stylesheet for logged-out visitors."),
	boolDef(ModuleCore, TabCore, "sso_core_disable_xmlrpc", true, true,
		"Disable XML-RPC", "Block xmlrpc.php and remove the X-Pingback header."),
	boolDef(ModuleCore, TabCore, "sso_core_remove_rest_links", true, true,
		"Remove REST API links", "Drop REST discovery links from the head."),
	boolDef(ModuleCore, TabCore, "sso_core_remove_query_strings", true, true,
		"Remove query strings", "Strip ver= and version= from static asset URLs."),

	boolDef(ModuleThirdParty, TabThirdParty, "sso_third_party_delay_analytics", false, false,
		"Delay analytics", "Load analytics scripts after the first interaction."),
	boolDef(ModuleThirdParty, TabThirdParty, "sso_third_party_delay_tracking", false, false,
		"Delay tracking until consent", "Hold tracking scripts until the visitor consents."),
	boolDef(ModuleThirdParty, TabThirdParty, "sso_third_party_disable_cf_email_decode", false, false,
		"Disable Cloudflare email decode", "Remove the Cloudflare email obfuscation script."),

	boolDef(ModulePreloading, TabPreloading, "sso_preloading_lcp_image", true, true,
		"Preload LCP image", "Preload the first content image with high fetch priority."),
	boolDef(ModulePreloading, TabPreloading, "sso_preloading_fonts", true, true,
		"Preload fonts", "Preload regular and bold web font files."),
	boolDef(ModulePreloading, TabPreloading, "sso_preloading_dns_prefetch_third_party", true, true,
		"DNS prefetch third parties", "Add dns-prefetch hints for external script and style hosts."),
	boolDef(ModulePreloading, TabPreloading, "sso_preloading_preconnect_external", false, false,
		"Preconnect to CDNs", "Open early connections to common font and script CDNs."),

	boolDef("", TabGlobal, KeyAffectLoggedInUsers, false, true,
		"Optimize for logged-in users", "Logged-in users are protected from optimizations unless this is enabled."),

	{
		Key: KeyUpdateMethod, Tab: TabUpdates, Type: FieldRadio, Default: Value{Type: FieldRadio, Str: "github"},
		FormName: "update_method", Options: []string{"github", "custom"},
		Label: "Update method",
	},
	stringDef(TabUpdates, KeyGithubRepo, "", "GitHub repository", "owner/repository"),
	stringDef(TabUpdates, KeyUpdateServer, "", "Update server URL", "Custom endpoint answering get_version requests."),
	func() Definition {
		d := stringDef(TabUpdates, KeyLicenseKey, "", "License key", "Sent to the custom update server.")
		d.Sensitive = true
		return d
	}(),
	boolDef("", TabUpdates, KeyAutoUpdates, false, false,
		"Automatic updates", "Install new versions automatically."),

	stringDef("", KeyCurrentPreset, "", "Active preset", ""),
}

var schemaIndex = func() map[string]Definition {
	idx := make(map[string]Definition, len(Schema))
	for _, d := range Schema {
		idx[d.Key] = d
	}
	return idx
}()

// Lookup returns the definition of key.
func Lookup(key string) (Definition, bool) {
	d, ok := schemaIndex[key]
	return d, ok
}

// TabFields returns the definitions rendered and saved by a tab.
func TabFields(tab string) []Definition {
	var out []Definition
	for _, d := range Schema {
		if d.Tab == tab {
			out = append(out, d)
		}
	}
	return out
}

// ModuleFields returns the definitions owned by a module.
func ModuleFields(module string) []Definition {
	var out []Definition
	for _, d := range Schema {
		if d.Module == module {
			out = append(out, d)
		}
	}
	return out
}

// IsTab reports whether id names a known tab.
func IsTab(id string) bool {
	for _, t := range Tabs {
		if t.ID == id {
			return true
		}
	}
	return false
}
