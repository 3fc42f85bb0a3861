package domain

import "context"

// Setting represents a configuration value as stored in the database.
type Setting struct {
	Key   string
	Value string
}

// ISettingsRepository defines the contract for persisting settings.
// Values are raw strings; typing happens in the application layer.
type ISettingsRepository interface {
	// Get reports found=false for keys that were never written.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	// List returns every stored key starting with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)

	// InitSchema creates the necessary tables
	InitSchema(ctx context.Context) error
}

// Namespace is the fixed prefix of every optimizer key.
const Namespace = "sso_"

// ModulePrefix returns the key prefix owned by a module, e.g. "sso_js_".
func ModulePrefix(module string) string {
	return Namespace + module + "_"
}

// Module names. Each owns the keys under ModulePrefix(name).
const (
	ModuleJavaScript = "js"
	ModuleCSS        = "css"
	ModuleFonts      = "fonts"
	ModuleImages     = "images"
	ModuleCore       = "core"
	ModuleThirdParty = "third_party"
	ModulePreloading = "preloading"
)

// Keys used outside a module snapshot.
const (
	KeyAffectLoggedInUsers = "sso_affect_logged_in_users"
	KeyCurrentPreset       = "sso_current_preset"

	KeyUpdateMethod = "sso_update_method"
	KeyGithubRepo   = "sso_github_repo"
	KeyUpdateServer = "sso_update_server"
	KeyLicenseKey   = "sso_license_key"
	KeyAutoUpdates  = "sso_auto_updates"
)
