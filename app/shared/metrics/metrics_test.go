package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecordsSubmissions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheus(reg)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSubmission(ctx, "CORRECT")
	m.RecordSubmission(ctx, "CORRECT")
	m.RecordSubmission(ctx, "TOO_OLD")
	m.RecordOperationAttempt(ctx, "SubmitFlag", "FlagService")
	m.RecordOperationDuration(ctx, "SubmitFlag", "FlagService", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("CORRECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("TOO_OLD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("SubmitFlag", "FlagService")))
}

func TestPrometheusReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheus(reg)
	require.NoError(t, err)
	second, err := NewPrometheus(reg)
	require.NoError(t, err)

	first.RecordSubmission(context.Background(), "INCORRECT")
	second.RecordSubmission(context.Background(), "INCORRECT")

	assert.Equal(t, 2.0, testutil.ToFloat64(second.submissions.WithLabelValues("INCORRECT")))
}
