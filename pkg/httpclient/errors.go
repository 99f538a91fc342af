package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/princebhatt03/UrbanCart/pkg/errors"
)

// maxErrorBody caps how much of a failed response body we read.
const maxErrorBody = 1 << 20

// ProviderErrorResponse covers the two error body shapes identity
// providers return: OAuth2 token endpoints use flat error/
// error_description fields, resource endpoints nest an error object.
type ProviderErrorResponse struct {
	ErrorCode   string `json:"error"`
	Description string `json:"error_description"`
}

type nestedErrorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ParseProviderError reads the body of a non-2xx provider response and
// translates it into an AppError. Invalid or expired grants map to
// Unauthorized; everything else becomes a Federation error so callers
// surface a uniform "provider unavailable" message.
//
// The response body is fully consumed and closed.
func ParseProviderError(resp *http.Response, provider string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Federation(provider,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	code, message := extractProviderError(body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		code == "invalid_grant",
		code == "invalid_token":
		return apperrors.Unauthorized(fmt.Sprintf("%s rejected the credential", provider))
	case resp.StatusCode == http.StatusBadRequest && code != "":
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", provider, firstNonEmpty(message, code)))
	default:
		return apperrors.Federation(provider,
			fmt.Errorf("status %d: %s", resp.StatusCode, firstNonEmpty(message, code, string(body))))
	}
}

// extractProviderError pulls an error code and message out of either
// provider body shape. Returns empty strings when the body is not
// structured.
func extractProviderError(body []byte) (code, message string) {
	var flat ProviderErrorResponse
	if json.Unmarshal(body, &flat) == nil && flat.ErrorCode != "" {
		return flat.ErrorCode, flat.Description
	}

	var nested nestedErrorResponse
	if json.Unmarshal(body, &nested) == nil && nested.Error != nil {
		return nested.Error.Status, nested.Error.Message
	}

	return "", ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsClientError reports whether the status is a 4xx. Client errors are
// not retried and do not trip the circuit breaker.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
