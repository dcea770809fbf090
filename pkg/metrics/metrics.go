// Package metrics fans metric writes out to every configured sink.
package metrics

import (
	"time"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/pkg/metrics/dogstatsd"
	"github.com/NFTX-project/accounting/pkg/metrics/metricsTypes"
	"github.com/NFTX-project/accounting/pkg/metrics/prometheus"
	"go.uber.org/zap"
)

type MetricsSinkConfig struct {
	DefaultLabels []metricsTypes.MetricsLabel
}

// MetricsSink writes to every client it holds. A sink with no clients is a
// valid no-op.
type MetricsSink struct {
	config  *MetricsSinkConfig
	clients []metricsTypes.IMetricsClient
}

func NewMetricsSink(cfg *MetricsSinkConfig, clients []metricsTypes.IMetricsClient) (*MetricsSink, error) {
	if cfg == nil {
		cfg = &MetricsSinkConfig{}
	}
	return &MetricsSink{
		config:  cfg,
		clients: clients,
	}, nil
}

// NewNoopMetricsSink returns a sink without clients.
func NewNoopMetricsSink() *MetricsSink {
	s, _ := NewMetricsSink(nil, nil)
	return s
}

// InitMetricsSinksFromConfig builds the clients enabled in cfg.
func InitMetricsSinksFromConfig(cfg *config.Config, l *zap.Logger) ([]metricsTypes.IMetricsClient, error) {
	clients := make([]metricsTypes.IMetricsClient, 0)

	if cfg.DataDogConfig.StatsdConfig.Enabled {
		dd, err := dogstatsd.NewDogStatsdMetricsClient(cfg.DataDogConfig.StatsdConfig.Url, l)
		if err != nil {
			l.Sugar().Errorw("Failed to create DataDog statsd client", zap.Error(err))
			return nil, err
		}
		clients = append(clients, dd)
		l.Sugar().Infow("DataDog statsd metrics enabled", zap.String("url", cfg.DataDogConfig.StatsdConfig.Url))
	}

	if cfg.PrometheusConfig.Enabled {
		pc, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:      metricsTypes.MetricTypes,
			TextfilePath: cfg.PrometheusConfig.TextfilePath,
		}, l)
		if err != nil {
			l.Sugar().Errorw("Failed to create Prometheus client", zap.Error(err))
			return nil, err
		}
		clients = append(clients, pc)
		l.Sugar().Infow("Prometheus metrics enabled", zap.String("textfile", cfg.PrometheusConfig.TextfilePath))
	}

	return clients, nil
}

func (ms *MetricsSink) mergeLabels(labels []metricsTypes.MetricsLabel) []metricsTypes.MetricsLabel {
	if len(ms.config.DefaultLabels) == 0 {
		return labels
	}
	return append(append([]metricsTypes.MetricsLabel{}, ms.config.DefaultLabels...), labels...)
}

func (ms *MetricsSink) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	for _, client := range ms.clients {
		if err := client.Incr(name, ms.mergeLabels(labels), value); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	for _, client := range ms.clients {
		if err := client.Gauge(name, value, ms.mergeLabels(labels)); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	for _, client := range ms.clients {
		if err := client.Timing(name, value, ms.mergeLabels(labels)); err != nil {
			return err
		}
	}
	return nil
}

func (ms *MetricsSink) Flush() {
	for _, client := range ms.clients {
		client.Flush()
	}
}
