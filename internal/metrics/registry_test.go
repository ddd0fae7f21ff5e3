package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	RegisterLLMMetrics()
	RegisterLLMMetrics()
	RegisterRAGMetrics()
	RegisterRAGMetrics()

	if !llmMetricsRegistered || !ragMetricsRegistered {
		t.Fatal("expected metrics to be registered")
	}
}

func TestRAGQueriesTotal_Labels(t *testing.T) {
	for _, outcome := range []string{
		OutcomeConversational, OutcomeNoResultsWeb, OutcomeNoResults, OutcomeNotRelevant, OutcomeAnswered,
	} {
		before := testutil.ToFloat64(RAGQueriesTotal.WithLabelValues(outcome))
		RAGQueriesTotal.WithLabelValues(outcome).Inc()
		if got := testutil.ToFloat64(RAGQueriesTotal.WithLabelValues(outcome)); got != before+1 {
			t.Errorf("outcome %s: got %f, want %f", outcome, got, before+1)
		}
	}
}
