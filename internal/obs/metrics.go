package obs

import "github.com/prometheus/client_golang/prometheus"

// Result labels for auth metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Logins counts login attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"result"},
)

// TokenRefreshes counts access-token refresh attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var TokenRefreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_token_refresh_total",
		Help: "Total number of access token refresh attempts",
	},
	[]string{"result"},
)

// Registrations counts completed account registrations.
// Use RegisterMetrics to register this with a Prometheus registry.
var Registrations = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Total number of completed registrations",
	},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(TokenRefreshes)
	reg.MustRegister(Registrations)
}
