// Package metrics holds the Prometheus collectors for antirec.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antirec_catalog_requests_total",
			Help: "Catalog API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, not_found, error, rejected
	)

	ModelCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antirec_model_completions_total",
			Help: "Language model completions by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProfileFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antirec_profile_fallbacks_total",
			Help: "Times a profile component returned its static fallback",
		},
		[]string{"component", "reason"},
	)

	SelectorTiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antirec_selector_tier_total",
			Help: "Selector tier attempts by tier and outcome",
		},
		[]string{"tier", "outcome"}, // outcome: hit, empty, error
	)
)
