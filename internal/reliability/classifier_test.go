package reliability

import "testing"

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{429, "rate_limited"},
		{401, "unauthorized"},
		{403, "unauthorized"},
		{400, "client_error"},
		{502, "server_error"},
		{302, "unexpected_status"},
	}
	for _, tc := range cases {
		if got := HTTPStatusCode(tc.code); got != tc.want {
			t.Fatalf("HTTPStatusCode(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
