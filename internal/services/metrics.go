// Package services – domain metrics.
//
// Prometheus counters for the business events the operations team actually
// watches: how many points move, and how often the phone-claim fraud guard
// fires. HTTP-level metrics live in the middleware package; these are
// domain-level and labeled accordingly.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// pointsAwarded counts effective points credited, by earn category.
	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_points_awarded_total",
			Help: "Total effective points credited to accounts.",
		},
		[]string{"category"},
	)

	// pointsRedeemed counts points spent on catalog rewards.
	pointsRedeemed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_points_redeemed_total",
			Help: "Total points spent on reward redemptions.",
		},
	)

	// phoneClaims counts claim outcomes. The "phone_already_used" series is
	// the one worth alerting on: it is the multi-account abuse signal.
	phoneClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_phone_claims_total",
			Help: "Phone verification reward claim attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(pointsAwarded, pointsRedeemed, phoneClaims)
}
