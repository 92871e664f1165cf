package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taptracker"

var (
	// GraphQL client
	GraphQLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graphql",
		Name:      "requests_total",
		Help:      "GraphQL calls by outcome (ok, timeout, graphql, status, transport, decode, rate_limited)",
	}, []string{"outcome"})

	GraphQLLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "graphql",
		Name:      "request_duration_seconds",
		Help:      "GraphQL call duration including limiter wait",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 10},
	})

	GraphQLHTTPResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graphql",
		Name:      "http_responses_total",
		Help:      "Upstream HTTP responses by status code",
	}, []string{"code"})

	// Code-hash resolution
	CodeHashLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "codehash",
		Name:      "lookups_total",
		Help:      "Code-hash lookups by cache result (hit, miss)",
	}, []string{"result"})

	CodeHashBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "codehash",
		Name:      "batches_total",
		Help:      "Batched code-hash queries sent upstream",
	})

	// Pagination
	PaginationIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pagination",
		Name:      "iterations",
		Help:      "Pages requested per message pagination run",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 20, 30},
	})

	// Inbound HTTP
	HTTPResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "responses_total",
		Help:      "Responses served by status code",
	}, []string{"code"})
)
