package validations

import (
	"context"

	settings "github.com/AzielCF/az-speed/core/settings/domain"
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func tabIDs() []interface{} {
	out := make([]interface{}, 0, len(settings.Tabs))
	for _, t := range settings.Tabs {
		out = append(out, t.ID)
	}
	return out
}

func ValidateTab(tab string) error {
	if err := validation.Validate(tab, validation.Required); err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if err := validation.Validate(tab, validation.In(tabIDs()...)); err != nil {
		return pkgError.NotFoundError{Kind: "settings tab", Name: tab}
	}
	return nil
}

func ValidateSaveTab(ctx context.Context, request domainSettings.SaveTabRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Tab, validation.Required, validation.In(tabIDs()...).Error("unknown settings tab")),
		validation.Field(&request.Token, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
