package core

import (
	"errors"
	"net/http"
	"testing"
)

func TestScanErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *ScanError
		want int
	}{
		{"invalid url", NewInvalidURLError("nope", nil), http.StatusBadRequest},
		{"network", NewNetworkError("backend down", nil), http.StatusBadGateway},
		{"authentication", NewAuthenticationError("bad key"), http.StatusUnauthorized},
		{"storage defaults to 500", NewStorageError("disk gone", nil), http.StatusInternalServerError},
		{"messaging maps to 400", NewMessagingError("malformed message", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScanErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewNetworkError("scan endpoint unreachable", inner)

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}

	var scanErr *ScanError
	if !errors.As(error(err), &scanErr) {
		t.Fatal("expected errors.As to extract *ScanError")
	}
	if scanErr.Type != ErrorTypeNetwork {
		t.Errorf("type = %s, want %s", scanErr.Type, ErrorTypeNetwork)
	}
}

func TestScanErrorToJSON(t *testing.T) {
	err := NewInvalidURLError("not a url", nil)
	payload := err.ToJSON()

	inner, ok := payload["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %T", payload["error"])
	}
	if inner["type"] != ErrorTypeInvalidURL {
		t.Errorf("type = %v, want %s", inner["type"], ErrorTypeInvalidURL)
	}
}
