package validations

import (
	"context"

	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func presetNames() []interface{} {
	out := make([]interface{}, 0, len(domainPreset.Names))
	for _, n := range domainPreset.Names {
		out = append(out, n)
	}
	return out
}

// ValidatePresetName checks a preset named in a URL. A name that is not in
// the catalog is a NotFoundError.
func ValidatePresetName(name string) error {
	if err := validation.Validate(name, validation.Required.Error("preset is required")); err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if err := validation.Validate(name, validation.In(presetNames()...)); err != nil {
		return pkgError.NotFoundError{Kind: "preset", Name: name}
	}
	return nil
}

func ValidateApplyPreset(ctx context.Context, request domainPreset.ApplyRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.PresetType, validation.Required, validation.In(presetNames()...).Error("invalid preset selected")),
		validation.Field(&request.Token, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
