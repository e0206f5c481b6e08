// Package obs registers the service's Prometheus metrics.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by terminal result.",
		},
		[]string{"result"},
	)

	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Refresh rotations by terminal result.",
		},
		[]string{"result"},
	)

	tokenRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_rejections_total",
			Help: "Access tokens rejected by the session validator, by reason.",
		},
		[]string{"reason"},
	)
)

// Init registers metrics in the default registry.
func Init() {
	prometheus.MustRegister(loginsTotal, refreshesTotal, tokenRejectionsTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin counts one terminal login outcome.
func ObserveLogin(ok bool) { loginsTotal.WithLabelValues(resultLabel(ok)).Inc() }

// ObserveRefresh counts one terminal refresh outcome.
func ObserveRefresh(ok bool) { refreshesTotal.WithLabelValues(resultLabel(ok)).Inc() }

// Rejection reasons for ObserveTokenRejection.
const (
	ReasonExpired     = "expired"
	ReasonBlacklisted = "blacklisted"
	ReasonUserAgent   = "user_agent_mismatch"
)

// ObserveTokenRejection counts one rejected access token.
func ObserveTokenRejection(reason string) { tokenRejectionsTotal.WithLabelValues(reason).Inc() }

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
