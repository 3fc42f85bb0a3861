package usecase

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/validations"
	"github.com/sirupsen/logrus"
)

// TokenVerifier checks action tokens issued by the admin page.
type TokenVerifier interface {
	Verify(token, action, user string) error
}

type servicePreset struct {
	store  *application.Store
	tokens TokenVerifier
}

func NewPresetService(store *application.Store, tokens TokenVerifier) domainPreset.IPresetUsecase {
	return &servicePreset{store: store, tokens: tokens}
}

func (service servicePreset) Apply(ctx context.Context, request domainPreset.ApplyRequest) error {
	if err := validations.ValidateApplyPreset(ctx, request); err != nil {
		return err
	}
	if err := service.tokens.Verify(request.Token, security.ActionApplyPreset, request.User); err != nil {
		return pkgError.InvalidTokenError("security check failed, reload the page and try again")
	}
	return service.ApplyPreset(ctx, request.PresetType)
}

// ApplyPreset writes every key of the preset, then the marker. The writes
// are not transactional: a failure part way leaves the keys written so far.
func (service servicePreset) ApplyPreset(ctx context.Context, name string) error {
	if err := validations.ValidatePresetName(name); err != nil {
		return err
	}
	p, _ := domainPreset.Get(name)

	for _, e := range p.Entries {
		if err := service.store.Set(ctx, e.Key, e.Value); err != nil {
			return fmt.Errorf("failed to apply preset %s: %w", name, err)
		}
	}
	if err := service.store.Set(ctx, settings.KeyCurrentPreset, settings.StringValue(p.Name)); err != nil {
		return fmt.Errorf("failed to store active preset: %w", err)
	}
	logrus.Infof("[PRESET] applied %s (%d settings)", p.Name, len(p.Entries))
	return nil
}

func (service servicePreset) DetectCurrentPreset(ctx context.Context) (string, error) {
	marker, err := service.store.Get(ctx, settings.KeyCurrentPreset)
	if err != nil {
		return "", err
	}
	name := marker.String()
	if name == "" {
		return "", nil
	}

	p, ok := domainPreset.Get(name)
	if ok {
		matches, err := service.matches(ctx, p)
		if err != nil {
			return "", err
		}
		if matches {
			return name, nil
		}
	}

	if err := service.store.Delete(ctx, settings.KeyCurrentPreset); err != nil {
		return "", err
	}
	logrus.Infof("[PRESET] settings no longer match %q, marker cleared", name)
	return "", nil
}

func (service servicePreset) matches(ctx context.Context, p domainPreset.Preset) (bool, error) {
	for _, e := range p.Entries {
		current, err := service.store.Get(ctx, e.Key)
		if err != nil {
			return false, err
		}
		if !current.Equal(e.Value) {
			logrus.Debugf("[PRESET] %s differs from %s: %q", e.Key, p.Name, current.String())
			return false, nil
		}
	}
	return true, nil
}

func (service servicePreset) ListPresets() []domainPreset.Preset {
	return domainPreset.All()
}

func (service servicePreset) Preview(ctx context.Context, name string) (domainPreset.Preview, error) {
	if err := validations.ValidatePresetName(name); err != nil {
		return domainPreset.Preview{}, err
	}
	p, _ := domainPreset.Get(name)

	preview := domainPreset.Preview{Preset: name}
	for _, e := range p.Entries {
		current, err := service.store.Get(ctx, e.Key)
		if err != nil {
			return domainPreset.Preview{}, err
		}
		d := domainPreset.Difference{Key: e.Key, Current: current, Preset: e.Value, Changed: !current.Equal(e.Value)}
		if def, ok := settings.Lookup(e.Key); ok {
			d.Label = def.Label
		}
		if d.Changed {
			preview.Changes++
		}
		preview.Settings = append(preview.Settings, d)
	}
	return preview, nil
}
