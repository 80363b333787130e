package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts HTTP requests by method, route and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genomemap_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HttpRequestDuration measures server response time.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genomemap_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// SearchDuration measures engine query time, labeled "movies" or "tags".
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genomemap_search_duration_seconds",
			Help:    "Duration of search engine queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"engine"},
	)

	// SearchResults records how many results each query returned.
	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genomemap_search_results",
			Help:    "Number of results returned per query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000, 5000},
		},
		[]string{"engine"},
	)

	// TrainingIterations counts map updates performed by the trainer.
	TrainingIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genomemap_training_iterations_total",
			Help: "Total number of self-organizing map updates",
		},
	)

	// QuantizationError is the mean sample to BMU distance measured after training.
	QuantizationError = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genomemap_quantization_error",
			Help: "Mean Euclidean distance between samples and their best matching unit",
		},
	)

	// MapNodes tracks the number of nodes of the loaded map.
	MapNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genomemap_map_nodes",
			Help: "Number of nodes in the loaded self-organizing map",
		},
	)

	// IndexedEntities tracks how many entities are assigned to map nodes.
	IndexedEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genomemap_indexed_entities",
			Help: "Number of entities indexed against the map",
		},
		[]string{"index"},
	)
)
