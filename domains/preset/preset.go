package preset

import (
	"context"

	settings "github.com/AzielCF/az-speed/core/settings/domain"
)

// Preset names, from the most conservative to the most aggressive.
const (
	Safe   = "safe"
	Medium = "medium"
	Risky  = "risky"
)

// Names lists the presets in order of aggressiveness.
var Names = []string{Safe, Medium, Risky}

type IPresetUsecase interface {
	// Apply verifies the request token and applies the preset.
	Apply(ctx context.Context, request ApplyRequest) error
	ApplyPreset(ctx context.Context, name string) error
	// DetectCurrentPreset returns the active preset, or "" when the
	// settings no longer match it. A stale marker is cleared.
	DetectCurrentPreset(ctx context.Context) (string, error)
	ListPresets() []Preset
	Preview(ctx context.Context, name string) (Preview, error)
}

type ApplyRequest struct {
	PresetType string `json:"preset_type" form:"preset_type"`
	Token      string `json:"token" form:"sso_preset_nonce"`
	User       string `json:"-" form:"-"`
}

// Entry is a single key of a preset.
type Entry struct {
	Key   string         `json:"key"`
	Value settings.Value `json:"value"`
}

type Preset struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Entries     []Entry `json:"settings"`
}

// Difference compares one preset key with the stored value.
type Difference struct {
	Key     string         `json:"key"`
	Label   string         `json:"label"`
	Current settings.Value `json:"current"`
	Preset  settings.Value `json:"preset"`
	Changed bool           `json:"changed"`
}

type Preview struct {
	Preset   string       `json:"preset"`
	Settings []Difference `json:"settings"`
	Changes  int          `json:"changes"`
}
