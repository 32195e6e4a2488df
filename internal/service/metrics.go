package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polls_created_total",
			Help: "Total number of polls created (including clones)",
		},
	)

	pollJoinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_joins_total",
			Help: "Total number of participant joins",
		},
		[]string{"result"}, // new, rejoin
	)

	pollResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_responses_total",
			Help: "Total number of response submissions",
		},
		[]string{"result"}, // accepted, rejected
	)

	sessionOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_session_ops_total",
			Help: "Total number of live session operations",
		},
		[]string{"op", "result"},
	)

	summaryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_summary_cache_total",
			Help: "Results summary cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
