package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline outcomes.
const (
	OutcomeConversational = "conversational"
	OutcomeNoResultsWeb   = "no_results_web"
	OutcomeNoResults      = "no_results"
	OutcomeNotRelevant    = "not_relevant"
	OutcomeAnswered       = "answered"
)

// Block search strategies.
const (
	StrategyFullText  = "fulltext"
	StrategySubstring = "substring"
	StrategyEmpty     = "empty"
)

// RAG pipeline Prometheus metrics.
var (
	RAGQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_queries_total",
			Help:      "Pipeline runs by terminal branch",
		},
		[]string{"outcome"},
	)

	RAGSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rag_search_total",
			Help:      "Block searches by the strategy that produced the result",
		},
		[]string{"strategy"},
	)

	RAGStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rag_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	WebSearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websearch_requests_total",
			Help:      "Web search fallback requests",
		},
		[]string{"provider", "status"},
	)
)

var ragMetricsRegistered bool

// RegisterRAGMetrics registers pipeline and web search metrics. Must be called once from main.
func RegisterRAGMetrics() {
	if ragMetricsRegistered {
		return
	}
	prometheus.MustRegister(RAGQueriesTotal)
	prometheus.MustRegister(RAGSearchTotal)
	prometheus.MustRegister(RAGStageDuration)
	prometheus.MustRegister(WebSearchRequestsTotal)
	ragMetricsRegistered = true
}
