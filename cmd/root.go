package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/AzielCF/az-speed/core/config"
	"github.com/AzielCF/az-speed/core/database"
	"github.com/AzielCF/az-speed/core/settings/application"
	settingsInfra "github.com/AzielCF/az-speed/core/settings/infrastructure"
	transient "github.com/AzielCF/az-speed/core/transient/domain"
	transientRepo "github.com/AzielCF/az-speed/core/transient/repository"
	domainHealth "github.com/AzielCF/az-speed/domains/health"
	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	domainUpdate "github.com/AzielCF/az-speed/domains/update"
	"github.com/AzielCF/az-speed/infrastructure/valkey"
	"github.com/AzielCF/az-speed/optimizer"
	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/AzielCF/az-speed/optimizer/modules"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/crypto"
	"github.com/AzielCF/az-speed/pkg/fontscan"
	"github.com/AzielCF/az-speed/pkg/imageprobe"
	"github.com/AzielCF/az-speed/pkg/optmonitor"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/AzielCF/az-speed/usecase"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	db             *gorm.DB
	valkeyClient   *valkey.Client
	settingsStore  *application.Store
	transientStore transient.Store
	signer         *security.Signer
	throttle       *safety.Throttle
	monitor        *optmonitor.Monitor
	engine         *optimizer.Engine

	settingsUsecase domainSettings.ISettingsUsecase
	presetUsecase   domainPreset.IPresetUsecase
	updateUsecase   domainUpdate.IUpdateUsecase
	healthUsecase   domainHealth.IHealthUsecase
)

var rootCmd = &cobra.Command{
	Use:   "az-speed",
	Short: "Safe speed optimizer for WordPress sites",
	Long: `az-speed sits in front of a WordPress site and rewrites its HTML on the way out:
deferred scripts and styles, font and image hints, core cleanup and third-party delays.
Admin, REST, AJAX, cron, logged-in and checkout traffic is never touched.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

func initFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("port", "p", "", "change port number with --port <number> | example: --port=8080")
	flags.BoolP("debug", "d", false, "hide or displaying log with --debug <true/false> | example: --debug=true")
	flags.StringSliceP("basic-auth", "b", nil, "basic auth credential | -b=yourUsername:yourPassword")
	flags.String("base-path", "", `base path of the admin and api routes --base-path <string> | example: --base-path="/_speed"`)
	flags.String("origin", "", `WordPress origin the proxy forwards to --origin <url> | example: --origin="http://wordpress:80"`)
	flags.String("db-driver", "", `settings database driver --db-driver <sqlite|postgres>`)
	flags.StringSlice("trusted-proxies", nil, `trusted proxy IP ranges --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`)

	_ = viper.BindPFlag("app_port", flags.Lookup("port"))
	_ = viper.BindPFlag("app_debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("app_basic_auth", flags.Lookup("basic-auth"))
	_ = viper.BindPFlag("app_base_path", flags.Lookup("base-path"))
	_ = viper.BindPFlag("origin_url", flags.Lookup("origin"))
	_ = viper.BindPFlag("db_driver", flags.Lookup("db-driver"))
	_ = viper.BindPFlag("app_trusted_proxies", flags.Lookup("trusted-proxies"))
}

// initEnvConfig loads the environment configuration and lets command line
// flags override it.
func initEnvConfig() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("[CONFIG] cannot load configuration: %v", err)
	}

	if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if v := viperList("app_basic_auth"); len(v) > 0 {
		cfg.App.BasicAuth = v
	}
	if v := viper.GetString("app_base_path"); v != "" {
		cfg.App.BasePath = "/" + strings.Trim(v, "/")
	}
	if v := viper.GetString("origin_url"); v != "" {
		cfg.Origin.URL = v
	}
	if v := viper.GetString("db_driver"); v != "" {
		cfg.Database.Driver = v
	}
	if v := viperList("app_trusted_proxies"); len(v) > 0 {
		cfg.App.TrustedProxies = v
	}

	cfg.App.ServerID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)
}

// viperList reads a list that may come from a flag slice or a
// comma separated environment variable.
func viperList(key string) []string {
	var out []string
	for _, item := range viper.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func initApp() {
	cfg := config.Global
	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()
	var err error

	db, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[DB] %v", err)
	}

	repo := settingsInfra.NewGlobalSettingsGormRepository(db)
	settingsStore = application.NewStore(repo, crypto.NewSealer(cfg.Security.SecretKey))
	if err := settingsStore.InitSchema(ctx); err != nil {
		logrus.Fatalf("[DB] cannot migrate settings schema: %v", err)
	}

	transientStore = transientRepo.NewMemoryStore()
	if cfg.Database.ValkeyEnabled {
		valkeyClient, err = valkey.NewClient(cfg.Database)
		if err != nil {
			logrus.WithError(err).Warn("[VALKEY] unavailable, falling back to in-memory transients")
		} else {
			transientStore = transientRepo.NewValkeyStore(valkeyClient)
		}
	}

	throttle = safety.NewThrottle(transientStore, safety.ThrottleConfig{
		Threshold: cfg.Optimizer.ErrorThreshold,
		Window:    cfg.Optimizer.ErrorWindow,
		Emergency: cfg.Optimizer.EmergencyWindow,
	})
	monitor = optmonitor.New(cfg.Optimizer.MonitorBuffer, 0)

	deps := modules.Deps{
		DocumentRoot: cfg.Optimizer.DocumentRoot,
		FontDirs:     cfg.Optimizer.FontDirs,
	}
	if cfg.Optimizer.DocumentRoot != "" {
		deps.Images = imageprobe.New(time.Hour)
		deps.Fonts = fontscan.New(cfg.Optimizer.DocumentRoot, time.Hour)
	}

	paths := domain.CommercePaths{
		Checkout: cfg.Optimizer.CheckoutPaths,
		Cart:     cfg.Optimizer.CartPaths,
		Account:  cfg.Optimizer.AccountPaths,
	}
	registry := optimizer.NewRegistry(settingsStore, throttle, deps, modules.Catalog)
	engine = optimizer.NewEngine(registry, throttle, paths, monitor)

	signer = security.NewSigner(cfg.Security.SecretKey, cfg.Security.TokenTTL)

	settingsUsecase = usecase.NewSettingsService(settingsStore, signer)
	presetUsecase = usecase.NewPresetService(settingsStore, signer)
	updateUsecase = usecase.NewUpdateService(cfg.Updates, settingsStore, transientStore, signer)

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatalf("[DB] %v", err)
	}
	healthUsecase = usecase.NewHealthService(sqlDB, transientStore, throttle, cfg.Origin.URL, 5*time.Second)

	logrus.WithFields(logrus.Fields{
		"server_id": cfg.App.ServerID,
		"origin":    cfg.Origin.URL,
		"driver":    cfg.Database.Driver,
		"valkey":    valkeyClient != nil,
	}).Info("[APP] initialized")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if valkeyClient != nil {
		valkeyClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
