package prometheus

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/NFTX-project/accounting/pkg/metrics/metricsTypes"
	"github.com/NFTX-project/accounting/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type PrometheusMetricsConfig struct {
	Metrics map[metricsTypes.MetricsType][]metricsTypes.MetricsTypeConfig
	// TextfilePath, when set, is where Flush writes the registry in the
	// node-exporter textfile format.
	TextfilePath string
}

type PrometheusMetricsClient struct {
	logger   *zap.Logger
	config   *PrometheusMetricsConfig
	registry *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheusMetricsClient(config *PrometheusMetricsConfig, l *zap.Logger) (*PrometheusMetricsClient, error) {
	client := &PrometheusMetricsClient{
		config:   config,
		logger:   l,
		registry: prometheus.NewRegistry(),

		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	if err := client.initializeTypes(); err != nil {
		return nil, err
	}

	return client, nil
}

// Registry exposes the client's registry, e.g. for an HTTP handler or a test gatherer.
func (pmc *PrometheusMetricsClient) Registry() *prometheus.Registry {
	return pmc.registry
}

func (pmc *PrometheusMetricsClient) logExistingMetric(t metricsTypes.MetricsType, metric metricsTypes.MetricsTypeConfig) {
	pmc.logger.Sugar().Warnw("Prometheus metric already exists for type",
		zap.String("type", string(t)),
		zap.String("name", metric.Name),
	)
}

func (pmc *PrometheusMetricsClient) exists(name string) bool {
	_, c := pmc.counters[name]
	_, g := pmc.gauges[name]
	_, h := pmc.histograms[name]
	return c || g || h
}

func (pmc *PrometheusMetricsClient) initializeTypes() error {
	for t, types := range pmc.config.Metrics {
		for _, mt := range types {
			if pmc.exists(mt.Name) {
				pmc.logExistingMetric(t, mt)
				continue
			}
			var collector prometheus.Collector
			switch t {
			case metricsTypes.MetricsType_Incr:
				pmc.counters[mt.Name] = prometheus.NewCounterVec(prometheus.CounterOpts{
					Name: mt.Name,
				}, mt.Labels)
				collector = pmc.counters[mt.Name]
			case metricsTypes.MetricsType_Gauge:
				pmc.gauges[mt.Name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
					Name: mt.Name,
				}, mt.Labels)
				collector = pmc.gauges[mt.Name]
			case metricsTypes.MetricsType_Timing:
				pmc.histograms[mt.Name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
					Name: mt.Name,
				}, mt.Labels)
				collector = pmc.histograms[mt.Name]
			default:
				continue
			}
			if err := pmc.registry.Register(collector); err != nil {
				return fmt.Errorf("failed to register metric '%s': %w", mt.Name, err)
			}
		}
	}
	return nil
}

func (pmc *PrometheusMetricsClient) formatLabels(labels []metricsTypes.MetricsLabel) prometheus.Labels {
	l := make(prometheus.Labels)
	if labels == nil {
		return l
	}
	for _, label := range labels {
		l[label.Name] = label.Value
	}
	return l
}

func (pmc *PrometheusMetricsClient) findExpectedLabels(t metricsTypes.MetricsType, name string) []string {
	for _, types := range pmc.config.Metrics[t] {
		if types.Name == name {
			return types.Labels
		}
	}
	return nil
}

// hasUnexpectedLabels checks if any unexpected labels are present in the given labels.
func (pmc *PrometheusMetricsClient) hasUnexpectedLabels(t metricsTypes.MetricsType, name string, providedLabels []metricsTypes.MetricsLabel) error {
	expectedLabels := pmc.findExpectedLabels(t, name)
	unexpectedLabels := make([]string, 0)

	if len(expectedLabels) == 0 && len(providedLabels) > 0 {
		pmc.logger.Sugar().Warnw("Prometheus metric has no expected labels but received labels",
			zap.String("type", string(t)),
			zap.String("name", name),
			zap.Strings("providedLabels", utils.Map(providedLabels, func(label metricsTypes.MetricsLabel, i uint64) string {
				return label.Name
			})),
		)
		return fmt.Errorf("no expected labels, received '%s'", strings.Join(utils.Map(providedLabels, func(label metricsTypes.MetricsLabel, i uint64) string {
			return label.Name
		}), ", "))
	}

	for _, label := range providedLabels {
		if !slices.Contains(expectedLabels, label.Name) {
			unexpectedLabels = append(unexpectedLabels, label.Name)
		}
	}

	if len(unexpectedLabels) > 0 {
		pmc.logger.Sugar().Warnw("Prometheus metric has unexpected labels",
			zap.String("type", string(t)),
			zap.String("name", name),
			zap.Strings("unexpectedLabels", unexpectedLabels),
		)
		return fmt.Errorf("unexpected labels: '%s'", strings.Join(unexpectedLabels, ", "))
	}
	return nil
}

// completeLabels fills in every expected label the caller left out, since a
// prometheus vec panics on a partial label set.
func (pmc *PrometheusMetricsClient) completeLabels(t metricsTypes.MetricsType, name string, labels []metricsTypes.MetricsLabel) prometheus.Labels {
	formatted := pmc.formatLabels(labels)
	for _, expected := range pmc.findExpectedLabels(t, name) {
		if _, ok := formatted[expected]; !ok {
			formatted[expected] = ""
		}
	}
	return formatted
}

func (pmc *PrometheusMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	m, ok := pmc.counters[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus incr not found",
			zap.String("name", name),
		)
		return nil
	}
	if err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Incr, name, labels); err != nil {
		return err
	}
	m.With(pmc.completeLabels(metricsTypes.MetricsType_Incr, name, labels)).Add(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.gauges[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus gauge not found",
			zap.String("name", name),
		)
		return nil
	}
	if err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Gauge, name, labels); err != nil {
		return err
	}
	m.With(pmc.completeLabels(metricsTypes.MetricsType_Gauge, name, labels)).Set(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return pmc.Histogram(name, value, labels)
}

func (pmc *PrometheusMetricsClient) Histogram(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.histograms[name]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus histogram not found",
			zap.String("name", name),
		)
		return nil
	}
	if err := pmc.hasUnexpectedLabels(metricsTypes.MetricsType_Timing, name, labels); err != nil {
		return err
	}
	m.With(pmc.completeLabels(metricsTypes.MetricsType_Timing, name, labels)).Observe(float64(value.Milliseconds()))
	return nil
}

// Flush writes the registry to the configured textfile, if any.
func (pmc *PrometheusMetricsClient) Flush() {
	if pmc.config.TextfilePath == "" {
		return
	}
	if err := prometheus.WriteToTextfile(pmc.config.TextfilePath, pmc.registry); err != nil {
		pmc.logger.Sugar().Errorw("Failed to write prometheus textfile",
			zap.String("path", pmc.config.TextfilePath),
			zap.Error(err),
		)
	}
}
