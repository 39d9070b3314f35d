// Package metrics exposes counters for the referral and gift pipelines.
// They are served by the keep-alive server at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReferralOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refbot_referral_outcomes_total",
		Help: "Processed join events by referral outcome.",
	}, []string{"status"})

	GiftRequestsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refbot_gift_requests_created_total",
		Help: "Gift requests created.",
	})

	GiftSettlements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refbot_gift_settlements_total",
		Help: "Gift requests settled by terminal status.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(ReferralOutcomes, GiftRequestsCreated, GiftSettlements)
}
