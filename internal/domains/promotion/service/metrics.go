package service

import (
	"promotion-engine/internal/domains/promotion/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_evaluations_total",
			Help: "Total number of cart evaluations",
		},
		[]string{"outcome"},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promotion_evaluation_duration_seconds",
			Help:    "Duration of cart evaluation including catalog load",
			Buckets: prometheus.DefBuckets,
		},
	)

	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_rejections_total",
			Help: "Candidate promotions rejected during evaluation, by reason",
		},
		[]string{"reason"},
	)

	redemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_redemptions_total",
			Help: "Commit-time redemption attempts, by result",
		},
		[]string{"result"},
	)
)

func recordEvaluation(result *model.EvaluationResult) {
	outcome := "no_discount"
	if len(result.Applied) > 0 {
		outcome = "discounted"
	}
	evaluationsTotal.WithLabelValues(outcome).Inc()

	for _, rej := range result.Rejections {
		rejectionsTotal.WithLabelValues(string(rej.Reason)).Inc()
	}
}
