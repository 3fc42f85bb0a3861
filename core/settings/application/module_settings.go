package application

import (
	"github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/pkg/listutil"
)

// ModuleSettings is the per-request view a module has of its own keys.
// Options are addressed without the module prefix ("defer_non_critical").
type ModuleSettings struct {
	module string
	values map[string]domain.Value
}

// NewModuleSettings builds a snapshot from explicit values, mostly for tests.
func NewModuleSettings(module string, values map[string]domain.Value) *ModuleSettings {
	merged := make(map[string]domain.Value)
	for _, def := range domain.ModuleFields(module) {
		merged[def.Option()] = def.Default
	}
	for k, v := range values {
		merged[k] = v
	}
	return &ModuleSettings{module: module, values: merged}
}

func (m *ModuleSettings) Module() string {
	return m.module
}

func (m *ModuleSettings) Get(option string) (domain.Value, bool) {
	v, ok := m.values[option]
	return v, ok
}

// IsEnabled treats boolean true and the string "1" as enabled.
func (m *ModuleSettings) IsEnabled(option string) bool {
	v, ok := m.values[option]
	return ok && v.Enabled()
}

func (m *ModuleSettings) String(option string) string {
	v, ok := m.values[option]
	if !ok {
		return ""
	}
	return v.String()
}

// List splits a comma or newline separated option into trimmed entries.
func (m *ModuleSettings) List(option string) []string {
	return listutil.Split(m.String(option))
}
