package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_EventsReplayed    = "eventsReplayed"
	Metric_Incr_AnomaliesRecorded = "anomaliesRecorded"
	Metric_Incr_ClaimsApplied     = "claimsApplied"
	Metric_Incr_EventsDropped     = "eventsDropped"

	Metric_Gauge_VaultsReplayed  = "vaultsReplayed"
	Metric_Gauge_StakersOwed     = "stakersOwed"
	Metric_Gauge_StakersOverpaid = "stakersOverpaid"

	Metric_Timing_ReplayDuration = "replayDuration"
	Metric_Timing_RunDuration    = "runDuration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_EventsReplayed,
			Labels: []string{"kind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_AnomaliesRecorded,
			Labels: []string{"kind"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_ClaimsApplied,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_EventsDropped,
			Labels: []string{"reason"},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_VaultsReplayed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_StakersOwed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_StakersOverpaid,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_ReplayDuration,
			Labels: []string{"parallel"},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_RunDuration,
			Labels: []string{"hasError"},
		},
	},
}
