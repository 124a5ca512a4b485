package core

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://Example.COM/Path", "http://example.com/path"},
		{"  https://example.com  ", "https://example.com"},
		{"https://example.com", "https://example.com"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path?q=1",
		"https://sub.example.com:8443/",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"/relative/path",
		"example.com",
	}
	for _, u := range invalid {
		err := ValidateURL(u)
		if err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
			continue
		}
		scanErr, ok := err.(*ScanError)
		if !ok {
			t.Errorf("ValidateURL(%q) returned %T, want *ScanError", u, err)
			continue
		}
		if scanErr.Type != ErrorTypeInvalidURL {
			t.Errorf("ValidateURL(%q) type = %s, want %s", u, scanErr.Type, ErrorTypeInvalidURL)
		}
	}
}

func TestIsInternalURL(t *testing.T) {
	internal := []string{
		"chrome://settings",
		"chrome-extension://abcdef/popup.html",
		"CHROME://flags",
		"about:blank",
		"edge://settings",
		"moz-extension://xyz/options.html",
	}
	for _, u := range internal {
		if !IsInternalURL(u) {
			t.Errorf("IsInternalURL(%q) = false, want true", u)
		}
	}

	external := []string{
		"http://example.com",
		"https://chrome.google.com",
	}
	for _, u := range external {
		if IsInternalURL(u) {
			t.Errorf("IsInternalURL(%q) = true, want false", u)
		}
	}
}

func TestIsThreat(t *testing.T) {
	if IsThreat(StatusSafe) {
		t.Error("safe must not count as a threat")
	}
	for _, s := range []Status{StatusSuspicious, StatusMalicious, StatusUnknown, Status("weird")} {
		if !IsThreat(s) {
			t.Errorf("IsThreat(%q) = false, want true", s)
		}
	}
}
