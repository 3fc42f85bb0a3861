package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	MCP       MCPConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Origin    OriginConfig
	Optimizer OptimizerConfig
	Updates   UpdatesConfig
	Security  SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type MCPConfig struct {
	Port string
	Host string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// OriginConfig describes the upstream site the proxy sits in front of.
type OriginConfig struct {
	URL          string
	Timeout      time.Duration
	MaxBodyBytes int
}

type OptimizerConfig struct {
	// DocumentRoot is the local copy of the site's public files, used to
	// probe image dimensions and discover local fonts. Empty disables both.
	DocumentRoot    string
	FontDirs        []string
	CheckoutPaths   []string
	CartPaths       []string
	AccountPaths    []string
	ErrorThreshold  int
	ErrorWindow     time.Duration
	EmergencyWindow time.Duration
	MonitorBuffer   int
}

type UpdatesConfig struct {
	PluginSlug     string
	CurrentVersion string
	SiteURL        string
	GithubAPIBase  string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

type SecurityConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            getEnv("APP_VERSION", "1.0.0"),
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: getEnvList("APP_CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		TrustedProxies:     getEnvList("APP_TRUSTED_PROXIES", nil),
		ServerID:           getEnv("SERVER_ID", ""),
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "optimizer.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azspeed:"),
	}

	originCfg := OriginConfig{
		URL:          getEnv("ORIGIN_URL", "http://localhost:8080"),
		Timeout:      getEnvDuration("ORIGIN_TIMEOUT", 30*time.Second),
		MaxBodyBytes: getEnvInt("ORIGIN_MAX_BODY_BYTES", 16*1024*1024),
	}

	optCfg := OptimizerConfig{
		DocumentRoot:    getEnv("OPTIMIZER_DOCUMENT_ROOT", ""),
		FontDirs:        getEnvList("OPTIMIZER_FONT_DIRS", []string{"wp-content/uploads/fonts"}),
		CheckoutPaths:   getEnvList("OPTIMIZER_CHECKOUT_PATHS", []string{"checkout"}),
		CartPaths:       getEnvList("OPTIMIZER_CART_PATHS", []string{"cart"}),
		AccountPaths:    getEnvList("OPTIMIZER_ACCOUNT_PATHS", []string{"my-account"}),
		ErrorThreshold:  getEnvInt("OPTIMIZER_ERROR_THRESHOLD", 10),
		ErrorWindow:     getEnvDuration("OPTIMIZER_ERROR_WINDOW", 24*time.Hour),
		EmergencyWindow: getEnvDuration("OPTIMIZER_EMERGENCY_WINDOW", time.Hour),
		MonitorBuffer:   getEnvInt("OPTIMIZER_MONITOR_BUFFER", 200),
	}

	updCfg := UpdatesConfig{
		PluginSlug:     getEnv("UPDATES_PLUGIN_SLUG", "ux-sites-optimiser/safe-speed-optimizer.php"),
		CurrentVersion: getEnv("UPDATES_CURRENT_VERSION", appCfg.Version),
		SiteURL:        getEnv("UPDATES_SITE_URL", originCfg.URL),
		GithubAPIBase:  getEnv("UPDATES_GITHUB_API", "https://api.github.com"),
		Timeout:        getEnvDuration("UPDATES_TIMEOUT", 15*time.Second),
		CacheTTL:       getEnvDuration("UPDATES_CACHE_TTL", 12*time.Hour),
	}

	cfg := &Config{
		App:       appCfg,
		MCP:       MCPConfig{Port: getEnv("MCP_PORT", "8081"), Host: getEnv("MCP_HOST", "localhost")},
		Paths:     pathsCfg,
		Database:  dbCfg,
		Origin:    originCfg,
		Optimizer: optCfg,
		Updates:   updCfg,
		Security: SecurityConfig{
			SecretKey: getEnv("APP_SECRET_KEY", "changeme_please_change_me_in_prod_12345"),
			TokenTTL:  getEnvDuration("APP_TOKEN_TTL", 12*time.Hour),
		},
	}

	Global = cfg
	return cfg, nil
}
