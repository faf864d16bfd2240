package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/debug"
)

// MapHTTPError converts a vendor response with a non-2xx status code into a
// gateway error. Client-side request rejections (400) and credential
// failures (401/403) are terminal; everything else is transient and subject
// to the executor's retry bound. The upstream status and body are preserved
// on transient errors.
func MapHTTPError(resp *http.Response) *api.Error {
	return MapStatusError(resp.StatusCode, readLimitedBody(resp.Body))
}

// MapStatusError is MapHTTPError for clients that surface the status code
// and body separately instead of an *http.Response.
func MapStatusError(status int, body []byte) *api.Error {
	message := extractErrorMessage(body)
	debug.Log("providers", "backend error response",
		"status", status, "body", debug.Truncate(string(body), 512))

	switch {
	case status == http.StatusBadRequest:
		if message == "" {
			message = "backend rejected the request"
		}
		return api.NewValidationError("", message)

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "backend authentication failed"
		}
		return api.NewProviderConfigError(message)

	default:
		if message == "" {
			message = fmt.Sprintf("backend returned HTTP %d", status)
		}
		return api.NewTransientNetworkError(message, status, string(body))
	}
}

// MapNetworkError converts a network-level failure (connection refused,
// DNS resolution, reset) into a transient gateway error with no upstream
// status attached.
func MapNetworkError(err error) *api.Error {
	return api.NewTransientNetworkError("backend connection error: "+err.Error(), 0, "")
}

// vendorError matches the common {"error": {"message": ...}} body shape
// shared by the vendors the gateway fronts.
type vendorError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// readLimitedBody drains up to 4KB of a response body for error reporting.
func readLimitedBody(body io.Reader) []byte {
	if body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return nil
	}
	return data
}

// extractErrorMessage pulls the vendor error message out of a response body
// if it follows the common error envelope; returns "" otherwise.
func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var ve vendorError
	if err := json.Unmarshal(body, &ve); err == nil && ve.Error.Message != "" {
		return ve.Error.Message
	}
	return ""
}
