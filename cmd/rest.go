package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AzielCF/az-speed/core/config"
	"github.com/AzielCF/az-speed/ui/rest"
	"github.com/AzielCF/az-speed/ui/rest/middleware"
	"github.com/AzielCF/az-speed/ui/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Run the optimizing proxy with the admin page and REST API",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := config.Global

	if len(cfg.App.BasicAuth) == 0 {
		logrus.Fatalln("APP_BASIC_AUTH is required. The admin page and API are never public; please set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<bcrypt-hash>] and restart.")
	}
	accounts, err := middleware.ParseAccounts(cfg.App.BasicAuth)
	if err != nil {
		logrus.Fatalln(err)
	}

	proxy, err := rest.NewProxy(engine, cfg.Origin)
	if err != nil {
		logrus.Fatalln(err)
	}

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		BodyLimit:               cfg.Origin.MaxBodyBytes,
		Network:                 "tcp",
		AppName:                 "az-speed",
		DisableStartupMessage:   false,
		ServerHeader:            "",
	}
	if len(cfg.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = cfg.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedFor
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())
	app.Use(middleware.Recovery())
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	auth := middleware.BasicAuth(accounts)
	rateLimit := limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	})

	base := cfg.App.BasePath

	app.Get(base+"/metrics", auth, adaptor.HTTPHandler(promhttp.Handler()))

	adminGroup := app.Group(base+"/admin", rateLimit, helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline';",
	}), auth)
	rest.InitAdmin(adminGroup, &rest.Admin{
		Settings:       settingsUsecase,
		Presets:        presetUsecase,
		Updates:        updateUsecase,
		Throttle:       throttle,
		Monitor:        monitor,
		Signer:         signer,
		BasePath:       base,
		CurrentVersion: cfg.Updates.CurrentVersion,
	})

	hub := websocket.NewHub(valkeyClient, cfg.App.ServerID)
	monitor.Subscribe(hub.MonitorEvent)
	throttle.OnTrip(hub.EmergencyTripped)
	websocket.RegisterRoutes(adminGroup, hub, monitor)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	origins := strings.Join(cfg.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, cfg.App.BaseUrl) {
		origins += ", " + cfg.App.BaseUrl
	}
	apiGroup := app.Group(base+"/api", cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}), rateLimit, auth)

	rest.InitRestSettings(apiGroup, settingsUsecase)
	rest.InitRestPresets(apiGroup, presetUsecase)
	rest.InitRestUpdate(apiGroup, updateUsecase)
	rest.InitRestHealth(apiGroup, healthUsecase)
	rest.InitRestMonitoring(apiGroup, monitor, throttle)

	apiGroup.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  fiber.StatusNotFound,
			"code":    "NOT_FOUND",
			"message": "Route not found",
		})
	})

	// Everything else belongs to the WordPress site.
	rest.InitProxy(app, proxy)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
		stopHub()

		StopApp()
	}()

	logrus.WithFields(logrus.Fields{
		"admin":  base + "/admin",
		"ws":     base + "/admin/ws",
		"api":    base + "/api",
		"origin": cfg.Origin.URL,
	}).Info("[REST] routes ready")

	if err := app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}
