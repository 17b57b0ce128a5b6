package apierror

import "net/http"

type (
	// An APIError represents the error format rendered by the HTTP server.
	APIError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// Common errors.
var (
	ErrInvalidCredentials = NewWithTagCode(http.StatusUnauthorized, "invalid-auth", "Invalid username or password.")
	ErrRevokedSession     = NewWithTagCode(http.StatusUnauthorized, "revoked-session", "Revoked session.")
	ErrInvalidSession     = NewWithTagCode(http.StatusUnauthorized, "invalid-auth", "Invalid login credentials.")
	ErrInvalidResetLink   = NewWithTagCode(http.StatusBadRequest, "invalid-reset-link", "The password reset link is invalid or has expired.")
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if apierr, ok := err.(*APIError); ok && apierr.HTTPCode != 0 {
		return apierr.HTTPCode
	}
	return http.StatusInternalServerError
}

// New returns a new APIError with the given message.
func New(message string) *APIError {
	return &APIError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new APIError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *APIError {
	return &APIError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// Tag returns the machine readable tag.
func (e *APIError) Tag() string {
	return e.FieldError.Tag
}

// Error implements error interface.
func (e *APIError) Error() string {
	return e.FieldError.Message
}
