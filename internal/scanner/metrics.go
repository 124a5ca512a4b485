package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkguard_scans_total",
		Help: "Completed scans by verdict status and cache outcome.",
	}, []string{"status", "cached"})

	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkguard_scan_fallback_total",
		Help: "Scans answered by the local fallback classifier because the backend was unreachable.",
	})

	invalidURLTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkguard_scan_invalid_url_total",
		Help: "Scan requests rejected for malformed URLs.",
	})
)
