package error

import "net/http"

type ValidationError string

func (err ValidationError) Error() string {
	return string(err)
}

func (err ValidationError) ErrCode() string {
	return "VALIDATION_ERROR"
}

func (err ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

type AuthError string

func (err AuthError) Error() string {
	return string(err)
}

func (err AuthError) ErrCode() string {
	return "AUTHENTICATION_ERROR"
}

func (err AuthError) StatusCode() int {
	return http.StatusUnauthorized
}

// InvalidTokenError is returned when a verification token is missing, expired
// or was issued for another action.
type InvalidTokenError string

func (err InvalidTokenError) Error() string {
	return string(err)
}

func (err InvalidTokenError) ErrCode() string {
	return "INVALID_TOKEN"
}

func (err InvalidTokenError) StatusCode() int {
	return http.StatusForbidden
}

type InternalServerError string

func (err InternalServerError) Error() string {
	return string(err)
}

func (err InternalServerError) ErrCode() string {
	return "INTERNAL_SERVER_ERROR"
}

func (err InternalServerError) StatusCode() int {
	return http.StatusInternalServerError
}
