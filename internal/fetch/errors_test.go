package fetch

import (
	"errors"
	"fmt"
	"testing"
)

// TestAuthError_Error verifies error message formatting
func TestAuthError_Error(t *testing.T) {
	err := &AuthError{Archive: "rda"}

	expected := "missing credentials for rda archive"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

// TestNetworkError_Error verifies error message formatting and unwrapping
func TestNetworkError_Error(t *testing.T) {
	cause := errors.New("connection refused")
	err := &NetworkError{URL: "https://example.org/file.nc", Err: cause}

	expected := "network error fetching https://example.org/file.nc: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	if !errors.Is(err, cause) {
		t.Error("NetworkError should unwrap to its cause")
	}
}

// TestServerError_Error verifies error message formatting
func TestServerError_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        *ServerError
		wantFormat string
	}{
		{
			name: "with HTTP status code",
			err: &ServerError{
				URL:        "https://example.org/file.nc",
				StatusCode: 404,
				Message:    "not found",
			},
			wantFormat: "server error fetching https://example.org/file.nc (HTTP 404): not found",
		},
		{
			name: "without HTTP status code",
			err: &ServerError{
				URL:     "https://example.org/file.nc",
				Message: "retrieval task failed",
			},
			wantFormat: "server error fetching https://example.org/file.nc: retrieval task failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantFormat {
				t.Errorf("Error() = %q, want %q", got, tt.wantFormat)
			}
		})
	}
}

// TestPayloadError_Error verifies error message formatting
func TestPayloadError_Error(t *testing.T) {
	err := &PayloadError{
		Filename: "era5_pl_20140501.grib",
		Size:     234,
		Reason:   "response looks like an error page",
	}

	expected := fmt.Sprintf("corrupt payload era5_pl_20140501.grib (234 bytes): %s", err.Reason)
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}
