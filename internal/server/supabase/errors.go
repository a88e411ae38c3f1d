package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from GoTrue.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.Status)
}

// IsClientError reports whether err is a 4xx answer, i.e. the caller's
// credentials or input were rejected rather than the service failing.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// GoTrue has used several error envelopes over time.
func newAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)

	for _, m := range []string{envelope.Msg, envelope.Message, envelope.ErrorDescription, envelope.Error} {
		if m != "" {
			return &APIError{Status: status, Message: m}
		}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}
