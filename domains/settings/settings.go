package settings

import (
	"context"

	domain "github.com/AzielCF/az-speed/core/settings/domain"
)

type ISettingsUsecase interface {
	// SaveTab persists the fields of one admin tab and leaves every other
	// key untouched.
	SaveTab(ctx context.Context, request SaveTabRequest) error
	GetTab(ctx context.Context, tab string) (TabView, error)
	GetAll(ctx context.Context) ([]TabView, error)
	Activate(ctx context.Context) (int, error)
}

// SaveTabRequest carries a posted tab form. Fields holds every posted
// name; an unchecked checkbox is simply absent.
type SaveTabRequest struct {
	Tab    string            `json:"tab" form:"active_tab"`
	Token  string            `json:"token" form:"sso_settings_nonce"`
	User   string            `json:"-"`
	Fields map[string]string `json:"fields"`
}

// Field is a setting as rendered on the admin page and returned by the API.
type Field struct {
	Key         string           `json:"key"`
	Name        string           `json:"name"`
	Type        domain.FieldType `json:"type"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Options     []string         `json:"options,omitempty"`
	Value       domain.Value     `json:"value"`
}

type TabView struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}
