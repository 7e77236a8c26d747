package observe_test

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/observe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_ObserveRequest(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.ObserveRequest(parley.RequestReport{
		Provider: parley.ProviderOpenAICompatible,
		Model:    "gpt-4",
		State:    parley.RequestCompleted,
		Chunks:   12,
		Duration: 1500 * time.Millisecond,
	})
	m.ObserveRequest(parley.RequestReport{
		Provider: parley.ProviderAnthropic,
		Model:    "claude-3-opus-20240229",
		State:    parley.RequestFailed,
		Kind:     parley.KindAuthentication,
		Duration: 200 * time.Millisecond,
	})
	m.ObserveRequest(parley.RequestReport{
		Provider: parley.ProviderOpenAICompatible,
		Model:    "gpt-4",
		State:    parley.RequestCancelled,
		Chunks:   3,
	})

	rm := collect(t, reader)

	requests := findMetric(rm, "parley.requests")
	require.NotNil(t, requests)
	assert.Equal(t, int64(1), sumFor(t, requests, "state", parley.RequestCompleted.String()))
	assert.Equal(t, int64(1), sumFor(t, requests, "state", parley.RequestFailed.String()))
	assert.Equal(t, int64(1), sumFor(t, requests, "state", parley.RequestCancelled.String()))
	assert.Equal(t, int64(2), sumFor(t, requests, "provider", "openai"))

	errs := findMetric(rm, "parley.request.errors")
	require.NotNil(t, errs)
	assert.Equal(t, int64(1), sumFor(t, errs, "kind", "authentication"))

	dur := findMetric(rm, "parley.request.duration")
	require.NotNil(t, dur)
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)

	require.NotNil(t, findMetric(rm, "parley.stream.chunks"))
}

func TestMetrics_ObserveTrim(t *testing.T) {
	t.Parallel()
	m, reader := newTestMetrics(t)

	m.ObserveTrim("gpt-4", 9000, 7000, true)
	m.ObserveTrim("gpt-4", 9000, 9000, false)

	rm := collect(t, reader)

	trims := findMetric(rm, "parley.trims")
	require.NotNil(t, trims)
	assert.Equal(t, int64(2), sumFor(t, trims, "model", "gpt-4"))
	assert.Equal(t, int64(1), sumFor(t, trims, "satisfied", "false"))

	removed := findMetric(rm, "parley.trim.tokens_removed")
	require.NotNil(t, removed)
	hist, ok := removed.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, int64(2000), hist.DataPoints[0].Sum)
}

func TestInitProvider_ServesPrometheus(t *testing.T) {
	p, err := observe.InitProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(p.MeterProvider)
	require.NoError(t, err)
	m.ObserveRequest(parley.RequestReport{Provider: parley.ProviderGoogle, Model: "gemini-1.5-pro", State: parley.RequestCompleted})

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "parley_requests")
	assert.Contains(t, string(body), "gemini-1.5-pro")
}

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			l := observe.NewLogger(tt.level, &buf)
			l.Debug("d-msg")
			l.Info("i-msg")
			l.Warn("w-msg", "model", "gpt-4")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, bytes.Contains([]byte(out), []byte("d-msg")))
			assert.Equal(t, tt.wantInfo, bytes.Contains([]byte(out), []byte("i-msg")))
			assert.Equal(t, tt.wantWarn, bytes.Contains([]byte(out), []byte("model=gpt-4")))
		})
	}
}
