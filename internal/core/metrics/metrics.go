// Package metrics holds the auth-core Prometheus collectors. They register
// with the default registry on import and are served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userhub"

// LoginAttempts counts login outcomes: success, invalid_credentials, suspended, error.
var LoginAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	},
	[]string{"outcome"},
)

// TokensIssued counts minted tokens by kind: login, register, refresh, password_change.
var TokensIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Session tokens issued.",
	},
	[]string{"kind"},
)

// AdminActions counts privileged mutations. result is ok, denied, error or partial.
var AdminActions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_actions_total",
		Help:      "Admin mutations by action and result.",
	},
	[]string{"action", "result"},
)

// SessionRejections counts guard rejections: missing, revoked, suspended.
var SessionRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_rejections_total",
		Help:      "Authenticated requests rejected by the session guard.",
	},
	[]string{"reason"},
)
