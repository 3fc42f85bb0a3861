package error

import (
	"fmt"
	"net/http"
	"strings"
)

// NotFoundError is returned when a lookup by name misses the catalog, for
// example an unknown preset or settings tab in a URL.
type NotFoundError struct {
	Kind string
	Name string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s %q", err.Kind, err.Name)
}

// ErrCode is PRESET_NOT_FOUND, TAB_NOT_FOUND and so on.
func (err NotFoundError) ErrCode() string {
	if err.Kind == "" {
		return "NOT_FOUND"
	}
	return strings.ToUpper(strings.ReplaceAll(err.Kind, " ", "_")) + "_NOT_FOUND"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}
