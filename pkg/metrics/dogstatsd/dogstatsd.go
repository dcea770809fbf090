package dogstatsd

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/NFTX-project/accounting/pkg/metrics/metricsTypes"
	"go.uber.org/zap"
)

const namespace = "nftx_accounting."

type DogStatsdMetricsClient struct {
	logger *zap.Logger
	client *statsd.Client
}

func NewDogStatsdMetricsClient(url string, l *zap.Logger) (*DogStatsdMetricsClient, error) {
	c, err := statsd.New(url, statsd.WithNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client for '%s': %w", url, err)
	}
	return &DogStatsdMetricsClient{
		logger: l,
		client: c,
	}, nil
}

// formatTags turns labels into "name:value" dogstatsd tags.
func formatTags(labels []metricsTypes.MetricsLabel) []string {
	tags := make([]string, 0, len(labels))
	for _, label := range labels {
		tags = append(tags, fmt.Sprintf("%s:%s", label.Name, label.Value))
	}
	return tags
}

func (dsc *DogStatsdMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return dsc.client.Count(name, int64(value), formatTags(labels), 1)
}

func (dsc *DogStatsdMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return dsc.client.Gauge(name, value, formatTags(labels), 1)
}

func (dsc *DogStatsdMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return dsc.client.Timing(name, value, formatTags(labels), 1)
}

func (dsc *DogStatsdMetricsClient) Flush() {
	if err := dsc.client.Flush(); err != nil {
		dsc.logger.Sugar().Warnw("Failed to flush statsd client", zap.Error(err))
	}
}
