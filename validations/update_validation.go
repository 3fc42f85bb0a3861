package validations

import (
	"regexp"
	"strings"

	pkgError "github.com/AzielCF/az-speed/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var githubRepoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ValidateUpdateSource checks the configuration of the selected update
// source before it is contacted.
func ValidateUpdateSource(method, githubRepo, serverURL string) error {
	var err error
	switch method {
	case "github":
		err = validation.Validate(strings.TrimSpace(githubRepo),
			validation.Required.Error("GitHub repository is not configured"),
			validation.Match(githubRepoPattern).Error("GitHub repository must look like owner/repository"),
		)
	case "custom":
		err = validation.Validate(strings.TrimSpace(serverURL),
			validation.Required.Error("update server URL is not configured"),
			is.URL.Error("update server URL is not a valid URL"),
		)
	default:
		err = validation.NewError("validation_update_method", "unknown update method "+method)
	}
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
