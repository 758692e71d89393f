package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	// SubscribeActions counts lifecycle actions by name and outcome.
	SubscribeActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriber_actions_total",
			Help: "Subscriber lifecycle actions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// EmailsSent counts successfully delivered emails by template.
	EmailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total emails accepted by the provider",
		},
		[]string{"template"},
	)

	// EmailFailures counts failed email sends by template.
	EmailFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total failed email sends",
		},
		[]string{"template"},
	)
)

// Init registers all collectors. Call once at startup.
func Init() {
	prometheus.MustRegister(SubscribeActions, EmailsSent, EmailFailures)
}

// Handler exposes the prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
