package constants

// Error codes carried by providers.ProviderError.
const (
	ErrCodeInvalidAPIKey     = "INVALID_API_KEY"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeNetworkError      = "NETWORK_ERROR"
	ErrCodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidDataFormat = "INVALID_DATA_FORMAT"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
)

var providerErrorMessages = map[string]string{
	ErrCodeInvalidAPIKey:     "Authentication with the upstream API failed",
	ErrCodeRateLimited:       "Upstream API rate limit reached, try again later",
	ErrCodeNetworkError:      "Could not reach the upstream API",
	ErrCodeResourceNotFound:  "Upstream resource not found",
	ErrCodeInvalidDataFormat: "Upstream API rejected the request",
	ErrCodeNotConfigured:     "Upstream API credentials are not configured",
}

// GetErrorMessage returns the user-facing message for a provider error code.
func GetErrorMessage(code string) string {
	if msg, ok := providerErrorMessages[code]; ok {
		return msg
	}
	return "Unknown upstream error"
}
