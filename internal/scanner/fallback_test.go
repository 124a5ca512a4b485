package scanner

import (
	"testing"
	"time"

	"linkguard/internal/core"
)

func TestFallbackAlwaysReturnsVerdict(t *testing.T) {
	f := NewFallback()

	urls := []string{
		"https://example.com",
		"http://192.168.1.50/admin",
		"https://secure-login-verify-account-update.example.tk",
		"not even a url",
	}
	for _, u := range urls {
		res := f.Classify(u)
		switch res.Status {
		case core.StatusSafe, core.StatusSuspicious, core.StatusMalicious:
		default:
			t.Errorf("Classify(%q) status = %q, want a concrete verdict", u, res.Status)
		}
		if res.URL != u {
			t.Errorf("Classify(%q) url = %q", u, res.URL)
		}
		if res.Confidence <= 0 {
			t.Errorf("Classify(%q) confidence = %d, want > 0", u, res.Confidence)
		}
	}
}

func TestFallbackHeuristics(t *testing.T) {
	f := NewFallback()

	// Multiple signals: plain http, IP-literal host.
	res := f.Classify("http://203.0.113.7/login")
	if res.Status != core.StatusMalicious {
		t.Errorf("status = %s, want malicious for stacked signals", res.Status)
	}

	// Single signal: plain http on a normal hostname.
	res = f.Classify("http://example.com")
	if res.Status != core.StatusSuspicious {
		t.Errorf("status = %s, want suspicious for one signal", res.Status)
	}
}

func TestFallbackWeightedTowardSafe(t *testing.T) {
	// Pin the roll to the common case.
	f := &Fallback{rng: func() float64 { return 0.5 }, now: time.Now}
	res := f.Classify("https://example.com")
	if res.Status != core.StatusSafe {
		t.Errorf("status = %s, want safe for low roll", res.Status)
	}

	f.rng = func() float64 { return 0.99 }
	res = f.Classify("https://example.com")
	if res.Status != core.StatusMalicious {
		t.Errorf("status = %s, want malicious for high roll", res.Status)
	}
}
