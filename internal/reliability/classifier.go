package reliability

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsAuthHTTPStatus reports whether the backend rejected the bearer credential.
func IsAuthHTTPStatus(code int) bool {
	return code == 401 || code == 403
}

// HTTPStatusCode maps a backend status onto a low-cardinality metric label.
func HTTPStatusCode(code int) string {
	switch {
	case code == 429:
		return "rate_limited"
	case IsAuthHTTPStatus(code):
		return "unauthorized"
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "client_error"
	default:
		return "unexpected_status"
	}
}
