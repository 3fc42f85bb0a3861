package rest

import (
	"testing"
	"time"

	"github.com/AzielCF/az-speed/core/config"
	"github.com/AzielCF/az-speed/core/settings/application"
	"github.com/AzielCF/az-speed/core/settings/infrastructure"
	"github.com/AzielCF/az-speed/core/transient/repository"
	"github.com/AzielCF/az-speed/optimizer"
	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/AzielCF/az-speed/optimizer/modules"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/crypto"
	"github.com/AzielCF/az-speed/pkg/optmonitor"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/usecase"
)

type services struct {
	store    *application.Store
	signer   *security.Signer
	throttle *safety.Throttle
	monitor  *optmonitor.Monitor
	engine   *optimizer.Engine
	admin    *Admin
}

func newServices(t *testing.T) *services {
	t.Helper()

	store := application.NewStore(infrastructure.NewMemorySettingsRepository(), crypto.NewSealer("test"))
	cache := repository.NewMemoryStore()
	signer := security.NewSigner("test", time.Hour)
	throttle := safety.NewThrottle(cache, safety.DefaultThrottleConfig())
	monitor := optmonitor.New(50, 0)
	registry := optimizer.NewRegistry(store, throttle, modules.Deps{}, modules.Catalog)

	updates := usecase.NewUpdateService(config.UpdatesConfig{
		PluginSlug:     "ux-sites-optimiser/safe-speed-optimizer.php",
		CurrentVersion: "1.0.0",
		GithubAPIBase:  "http://127.0.0.1:1",
		Timeout:        200 * time.Millisecond,
	}, store, cache, signer)

	return &services{
		store:    store,
		signer:   signer,
		throttle: throttle,
		monitor:  monitor,
		engine:   optimizer.NewEngine(registry, throttle, domain.DefaultCommercePaths(), monitor),
		admin: &Admin{
			Settings:       usecase.NewSettingsService(store, signer),
			Presets:        usecase.NewPresetService(store, signer),
			Updates:        updates,
			Throttle:       throttle,
			Monitor:        monitor,
			Signer:         signer,
			CurrentVersion: "1.0.0",
		},
	}
}
