package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "ACCOUNTING"

// Config keys, in the kebab-case flag form. viper binds them in snake case.
const (
	Debug = "debug"

	InputLocation              = "input.location"
	InputIncludeZapWithdrawals = "input.include-zap-withdrawals"
	InputStrictAddresses       = "input.strict-addresses"

	OutputDir = "output.dir"

	ReportTickersFile       = "report.tickers-file"
	ReportExcludedAddresses = "report.excluded-addresses"

	ReplayParallelism = "replay.parallelism"
	ReplayProgress    = "replay.progress"

	DatabaseEnabled     = "database.enabled"
	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	PrometheusEnabled      = "prometheus.enabled"
	PrometheusTextfilePath = "prometheus.textfile-path"

	DataDogStatsdEnabled  = "datadog.statsd.enabled"
	DataDogStatsdUrl      = "datadog.statsd.url"
	DataDogTracingEnabled = "datadog.tracing.enabled"
)

type InputConfig struct {
	// Location is a local directory or an http(s) base URL holding the subgraph export.
	Location string
	// IncludeZapWithdrawals flattens zap withdrawals into plain withdrawals instead of dropping them.
	IncludeZapWithdrawals bool
	StrictAddresses       bool
}

type OutputConfig struct {
	Dir string
}

type ReportConfig struct {
	TickersFile       string
	ExcludedAddresses []string
}

type ReplayConfig struct {
	// Parallelism > 1 replays independent vaults concurrently.
	Parallelism int
	Progress    bool
}

type DatabaseConfig struct {
	Enabled     bool
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type PrometheusConfig struct {
	Enabled      bool
	TextfilePath string
}

type StatsdConfig struct {
	Enabled bool
	Url     string
}

type TracingConfig struct {
	Enabled bool
}

type DataDogConfig struct {
	StatsdConfig  StatsdConfig
	TracingConfig TracingConfig
}

type Config struct {
	Debug            bool
	InputConfig      InputConfig
	OutputConfig     OutputConfig
	ReportConfig     ReportConfig
	ReplayConfig     ReplayConfig
	DatabaseConfig   DatabaseConfig
	PrometheusConfig PrometheusConfig
	DataDogConfig    DataDogConfig
}

// NewConfig reads every bound flag and environment variable out of viper.
func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		InputConfig: InputConfig{
			Location:              viper.GetString(normalizeFlagName(InputLocation)),
			IncludeZapWithdrawals: viper.GetBool(normalizeFlagName(InputIncludeZapWithdrawals)),
			StrictAddresses:       viper.GetBool(normalizeFlagName(InputStrictAddresses)),
		},

		OutputConfig: OutputConfig{
			Dir: viper.GetString(normalizeFlagName(OutputDir)),
		},

		ReportConfig: ReportConfig{
			TickersFile:       viper.GetString(normalizeFlagName(ReportTickersFile)),
			ExcludedAddresses: StringListFromString(viper.GetString(normalizeFlagName(ReportExcludedAddresses))),
		},

		ReplayConfig: ReplayConfig{
			Parallelism: viper.GetInt(normalizeFlagName(ReplayParallelism)),
			Progress:    viper.GetBool(normalizeFlagName(ReplayProgress)),
		},

		DatabaseConfig: DatabaseConfig{
			Enabled:     viper.GetBool(normalizeFlagName(DatabaseEnabled)),
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled:      viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			TextfilePath: viper.GetString(normalizeFlagName(PrometheusTextfilePath)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled: viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:     viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
			},
			TracingConfig: TracingConfig{
				Enabled: viper.GetBool(normalizeFlagName(DataDogTracingEnabled)),
			},
		},
	}
}

// Validate checks the settings a replay run cannot start without.
func (c *Config) Validate() error {
	if c.InputConfig.Location == "" {
		return fmt.Errorf("--%s is required", InputLocation)
	}
	if c.OutputConfig.Dir == "" {
		return fmt.Errorf("--%s is required", OutputDir)
	}
	if c.ReplayConfig.Parallelism < 0 {
		return fmt.Errorf("--%s must not be negative", ReplayParallelism)
	}
	if c.DatabaseConfig.Enabled && c.DatabaseConfig.Host == "" {
		return errors.New("database is enabled but no host is set")
	}
	if c.DataDogConfig.StatsdConfig.Enabled && c.DataDogConfig.StatsdConfig.Url == "" {
		return fmt.Errorf("--%s is required when statsd is enabled", DataDogStatsdUrl)
	}
	return nil
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

// KebabToSnakeCase maps "output.dir" style flags to the viper key.
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

// StringListFromString splits a comma separated list, dropping empty entries.
func StringListFromString(str string) []string {
	if str == "" {
		return []string{}
	}
	l := make([]string, 0)
	for _, s := range strings.Split(str, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			l = append(l, s)
		}
	}
	return l
}
