package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"tenf/portal/internal/constants"
)

// ProviderError is returned by every upstream API call.
type ProviderError struct {
	Code       string
	Message    string
	Details    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// doGET issues an authenticated GET and decodes the JSON body into result.
// setAuth adds provider specific headers.
func doGET(ctx context.Context, client *http.Client, url string, setAuth func(*http.Request), result interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	if setAuth != nil {
		setAuth(req)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to read response body",
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, buildHTTPError(resp.StatusCode, req.URL.Path, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Failed to decode response",
			Details: string(body),
			Err:     err,
		}
	}
	return resp.StatusCode, nil
}

func buildHTTPError(statusCode int, endpoint string, body string) error {
	code := constants.ErrCodeNetworkError
	msg := fmt.Sprintf("HTTP %d from %s", statusCode, endpoint)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = constants.ErrCodeInvalidAPIKey
		msg = fmt.Sprintf("Authentication failed for endpoint %s", endpoint)
	case http.StatusNotFound:
		code = constants.ErrCodeResourceNotFound
		msg = fmt.Sprintf("Resource not found: %s", endpoint)
	case http.StatusTooManyRequests:
		code = constants.ErrCodeRateLimited
		msg = constants.GetErrorMessage(constants.ErrCodeRateLimited)
	case http.StatusBadRequest:
		code = constants.ErrCodeInvalidDataFormat
		msg = fmt.Sprintf("Bad request to %s", endpoint)
	}

	return &ProviderError{Code: code, Message: msg, Details: body, StatusCode: statusCode}
}
