package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cimillas/ticket-resale/internal/domain"
)

// APIError is a non-2xx response from the ticket API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ticket api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the error code back to its domain sentinel so callers can use
// errors.Is(err, domain.ErrInvalidOwner) and friends.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "ticket_not_found":
		return domain.ErrTicketNotFound
	case "ticket_already_exists":
		return domain.ErrTicketAlreadyExists
	case "invalid_owner":
		return domain.ErrInvalidOwner
	case "metadata_too_large":
		return domain.ErrMetadataTooLarge
	case "invalid_id":
		return domain.ErrInvalidIdentity
	}
	return nil
}

// IsUnauthorized reports whether err is a rejected request signature.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func newAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
