package update

import (
	"context"
	"time"
)

// Update sources.
const (
	MethodGithub = "github"
	MethodCustom = "custom"
)

// Info is the newest release known for the plugin.
type Info struct {
	Slug        string    `json:"slug"`
	NewVersion  string    `json:"new_version"`
	URL         string    `json:"url,omitempty"`
	Package     string    `json:"package,omitempty"`
	Changelog   string    `json:"changelog,omitempty"`
	Tested      string    `json:"tested,omitempty"`
	RequiresPHP string    `json:"requires_php,omitempty"`
	Source      string    `json:"source"`
	CheckedAt   time.Time `json:"checked_at"`
}

type CheckResult struct {
	UpdateAvailable bool   `json:"update_available"`
	NewVersion      string `json:"new_version,omitempty"`
	CurrentVersion  string `json:"current_version"`
	Info            *Info  `json:"info,omitempty"`
}

type CheckRequest struct {
	Token string `json:"token" form:"nonce"`
	User  string `json:"-"`
}

// Provider fetches release metadata from one source.
type Provider interface {
	Name() string
	Latest(ctx context.Context) (*Info, error)
}

type IUpdateUsecase interface {
	// CheckForUpdate returns the cached metadata unless force is set. A
	// failing source yields a nil Info, never an error to the caller.
	CheckForUpdate(ctx context.Context, force bool) CheckResult
	// ManualCheck verifies the token and forces a check.
	ManualCheck(ctx context.Context, request CheckRequest) (CheckResult, error)
	LastCheck(ctx context.Context) (time.Time, bool)
}
