// Package core provides shared domain types, URL validation, and the error
// taxonomy for the linkguard service.
package core

import (
	"net/url"
	"strings"
	"time"
)

// Status is the verdict classification for a scanned URL.
type Status string

const (
	StatusSafe       Status = "safe"
	StatusSuspicious Status = "suspicious"
	StatusMalicious  Status = "malicious"
	StatusUnknown    Status = "unknown"
)

// Result is the outcome of a scan as delivered to callers.
type Result struct {
	Status     Status    `json:"status"`
	Title      string    `json:"title"`
	Details    string    `json:"details"`
	Confidence int       `json:"confidence"`
	URL        string    `json:"url"`
	ScanDate   time.Time `json:"scanDate"`
	Cached     bool      `json:"cached"`
}

// User identifies the signed-in dashboard account.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// NormalizeURL returns the lowercase form of a URL used as a stable cache key.
func NormalizeURL(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// internalSchemes are browser-internal URL prefixes that must never be scanned.
var internalSchemes = []string{
	"chrome://",
	"chrome-extension://",
	"moz-extension://",
	"edge://",
	"about:",
	"view-source:",
}

// IsInternalURL reports whether raw points at a browser-internal surface.
func IsInternalURL(raw string) bool {
	normalized := NormalizeURL(raw)
	for _, prefix := range internalSchemes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}

// ValidateURL checks that raw parses as an absolute URL with a host.
// Returns an invalid_url ScanError otherwise.
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NewInvalidURLError(raw, nil)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return NewInvalidURLError(raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return NewInvalidURLError(raw, nil)
	}
	return nil
}
