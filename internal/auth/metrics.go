package auth

import "github.com/prometheus/client_golang/prometheus"

var loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_login_attempts_total",
	Help: "Sign-in attempts by result.",
}, []string{"result"})

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{loginAttempts}
}
