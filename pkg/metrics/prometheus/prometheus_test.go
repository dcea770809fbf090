package prometheus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NFTX-project/accounting/internal/logger"
	"github.com/NFTX-project/accounting/pkg/metrics/metricsTypes"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_UnexpectedLabelsParsing(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
	assert.Nil(t, err)

	t.Run("Should return no error for all labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Incr, metricsTypes.Metric_Incr_EventsReplayed, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: "deposit"},
		})
		assert.Nil(t, err)
	})
	t.Run("Should return no error for a subset of labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Incr, metricsTypes.Metric_Incr_EventsReplayed, []metricsTypes.MetricsLabel{})
		assert.Nil(t, err)
	})
	t.Run("Should return an error for unexpected labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Incr, metricsTypes.Metric_Incr_EventsReplayed, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: "deposit"},
			{Name: "unexpectedLabel", Value: "unexpectedValue"},
		})
		assert.NotNil(t, err)
	})
	t.Run("Should return an error for unexpected labels when expecting 0 labels", func(t *testing.T) {
		err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Gauge, metricsTypes.Metric_Gauge_VaultsReplayed, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: "deposit"},
		})
		assert.NotNil(t, err)
	})
}

func Test_PrometheusClient(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	t.Run("Should allow more than one client per process", func(t *testing.T) {
		_, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{Metrics: metricsTypes.MetricTypes}, l)
		assert.Nil(t, err)
		_, err = NewPrometheusMetricsClient(&PrometheusMetricsConfig{Metrics: metricsTypes.MetricTypes}, l)
		assert.Nil(t, err)
	})
	t.Run("Should record counters and gauges", func(t *testing.T) {
		pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{Metrics: metricsTypes.MetricTypes}, l)
		assert.Nil(t, err)

		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_EventsReplayed, []metricsTypes.MetricsLabel{{Name: "kind", Value: "fee"}}, 3))
		assert.Nil(t, pmc.Incr(metricsTypes.Metric_Incr_EventsReplayed, nil, 1))
		assert.Nil(t, pmc.Gauge(metricsTypes.Metric_Gauge_VaultsReplayed, 7, nil))
		assert.Nil(t, pmc.Timing(metricsTypes.Metric_Timing_ReplayDuration, 20*time.Millisecond, nil))

		assert.Equal(t, float64(3), testutil.ToFloat64(pmc.counters[metricsTypes.Metric_Incr_EventsReplayed].WithLabelValues("fee")))
		assert.Equal(t, float64(7), testutil.ToFloat64(pmc.gauges[metricsTypes.Metric_Gauge_VaultsReplayed]))
	})
	t.Run("Should write the textfile on flush", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "accounting.prom")
		pmc, err := NewPrometheusMetricsClient(&PrometheusMetricsConfig{
			Metrics:      metricsTypes.MetricTypes,
			TextfilePath: path,
		}, l)
		assert.Nil(t, err)

		assert.Nil(t, pmc.Gauge(metricsTypes.Metric_Gauge_StakersOwed, 2, nil))
		pmc.Flush()

		contents, err := os.ReadFile(path)
		assert.Nil(t, err)
		assert.True(t, strings.Contains(string(contents), "stakersOwed 2"))
	})
}
