package optimizer

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/modules"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// SettingsSource is the part of the settings store the registry reads.
type SettingsSource interface {
	GetOr(ctx context.Context, key string, fallback settings.Value) (settings.Value, error)
	Module(ctx context.Context, module string) (*application.ModuleSettings, error)
}

// Built describes what the registry did for one request.
type Built struct {
	Decision  safety.Decision `json:"decision"`
	Emergency bool            `json:"emergency"`
	Modules   []string        `json:"modules,omitempty"`
}

// Registry creates the modules of a request. Modules live for one request
// only; nothing is shared between requests besides Deps.
type Registry struct {
	settings  SettingsSource
	emergency modules.EmergencyChecker
	deps      modules.Deps
	entries   []modules.Entry
}

func NewRegistry(src SettingsSource, emergency modules.EmergencyChecker, deps modules.Deps, entries []modules.Entry) *Registry {
	deps.Emergency = emergency
	return &Registry{settings: src, emergency: emergency, deps: deps, entries: entries}
}

// Gate builds the safety gate from the current settings. A read failure
// keeps logged-in users protected.
func (r *Registry) Gate(ctx context.Context) safety.Gate {
	v, err := r.settings.GetOr(ctx, settings.KeyAffectLoggedInUsers, settings.BoolValue(false))
	if err != nil {
		logrus.WithError(err).Warn("[OPTIMIZER] cannot read logged-in setting, protecting logged-in users")
		return safety.NewGate(false)
	}
	return safety.NewGate(v.Enabled())
}

// Build registers the hooks of every module on p. When the gate refuses
// the request or the emergency flag is up, nothing is registered.
func (r *Registry) Build(ctx context.Context, p *pipeline.Pipeline) (Built, error) {
	gate := r.Gate(ctx)
	built := Built{Decision: gate.Evaluate(p.Context())}
	metrics.GateDecisions.WithLabelValues(string(built.Decision.Reason)).Inc()

	if !built.Decision.Safe {
		logrus.Debugf("[OPTIMIZER] skipping %s: %s", p.Context().Path, built.Decision.Reason)
		return built, nil
	}
	if r.emergency != nil && r.emergency.IsEmergencyDisabled(ctx) {
		built.Emergency = true
		logrus.Debugf("[OPTIMIZER] skipping %s: emergency disable active", p.Context().Path)
		return built, nil
	}

	deps := r.deps
	deps.Gate = gate
	for _, e := range r.entries {
		opts, err := r.settings.Module(ctx, e.Name)
		if err != nil {
			return built, err
		}
		m := e.New(opts, deps)
		if err := m.Init(ctx, p); err != nil {
			return built, fmt.Errorf("failed to init module %s: %w", e.Name, err)
		}
		built.Modules = append(built.Modules, m.Name())
	}
	return built, nil
}
