package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveSource(t *testing.T) {
	m := New(DefaultConfig())

	m.ObserveSource(SourceVector, 10*time.Millisecond, 4, nil)
	m.ObserveSource(SourceAttribute, 5*time.Millisecond, 0, errors.New("boom"))
	m.ObserveSource(SourceAttribute, 5*time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sourceFailures.WithLabelValues(SourceAttribute)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sourceFailures.WithLabelValues(SourceVector)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.sourceLatency))
}

func TestMetrics_Counters(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.RecordIndexed("journal", nil)
	m.RecordIndexed("journal", errors.New("x"))
	m.RecordReembedded("conversation", 5, nil)
	m.RecordReembedded("conversation", 0, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexed.WithLabelValues("journal", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.indexed.WithLabelValues("journal", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.reembedded.WithLabelValues("conversation", "success")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSource(SourceVector, time.Second, 1, nil)
		m.ObserveMerged(3)
		m.RecordCacheLookup(true)
		m.RecordIndexed("journal", nil)
		m.RecordReembedded("journal", 1, nil)
	})
	assert.NoError(t, m.Push(context.Background(), "http://unused", "job"))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(DefaultConfig())
	m.ObserveMerged(3)
	m.RecordIndexed("journal", nil)

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "journalit_search_merged_results"))
	assert.True(t, strings.Contains(body, "journalit_ingestion_records_total"))
}

func TestMetrics_Push(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := New(DefaultConfig())
	m.RecordIndexed("journal", nil)

	require.NoError(t, m.Push(context.Background(), server.URL, "journalit_cli"))
	assert.Equal(t, "/metrics/job/journalit_cli", gotPath)
}
