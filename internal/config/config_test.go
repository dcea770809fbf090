package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func withViper(t *testing.T, values map[string]any) {
	t.Helper()
	viper.Reset()
	for k, v := range values {
		viper.Set(KebabToSnakeCase(k), v)
	}
	t.Cleanup(viper.Reset)
}

func TestKebabToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"output.dir", "output.dir"},
		{"input.include-zap-withdrawals", "input.include_zap_withdrawals"},
		{"report.tickers-file", "report.tickers_file"},
	}

	for _, test := range tests {
		if result := KebabToSnakeCase(test.input); result != test.expected {
			t.Errorf("KebabToSnakeCase(%s) = %s, want %s", test.input, result, test.expected)
		}
	}
}

func TestStringListFromString(t *testing.T) {
	assert.Equal(t, []string{}, StringListFromString(""))
	assert.Equal(t, []string{"0xabc", "0xdef"}, StringListFromString(" 0xabc, ,0xdef "))
}

func TestNewConfig(t *testing.T) {
	t.Run("Should read bound values", func(t *testing.T) {
		withViper(t, map[string]any{
			Debug:                      true,
			InputLocation:              "./input",
			InputIncludeZapWithdrawals: true,
			OutputDir:                  "./output",
			ReportExcludedAddresses:    "0x40d73df4f99bae688ce3c23a01022224fe16c7b2,0xdead",
			ReplayParallelism:          4,
			DatabaseEnabled:            true,
			DatabaseHost:               "localhost",
			DatabasePort:               5432,
			DatabaseDbName:             "accounting",
			DataDogStatsdEnabled:       true,
			DataDogStatsdUrl:           "localhost:8125",
		})

		cfg := NewConfig()
		assert.True(t, cfg.Debug)
		assert.Equal(t, "./input", cfg.InputConfig.Location)
		assert.True(t, cfg.InputConfig.IncludeZapWithdrawals)
		assert.False(t, cfg.InputConfig.StrictAddresses)
		assert.Equal(t, "./output", cfg.OutputConfig.Dir)
		assert.Equal(t, []string{"0x40d73df4f99bae688ce3c23a01022224fe16c7b2", "0xdead"}, cfg.ReportConfig.ExcludedAddresses)
		assert.Equal(t, 4, cfg.ReplayConfig.Parallelism)
		assert.True(t, cfg.DatabaseConfig.Enabled)
		assert.Equal(t, "localhost", cfg.DatabaseConfig.Host)
		assert.Equal(t, 5432, cfg.DatabaseConfig.Port)
		assert.Equal(t, "accounting", cfg.DatabaseConfig.DbName)
		assert.Equal(t, "localhost:8125", cfg.DataDogConfig.StatsdConfig.Url)
		assert.Nil(t, cfg.Validate())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]any
		errorMsg string
	}{
		{
			name:     "Missing input location",
			values:   map[string]any{OutputDir: "./output"},
			errorMsg: "--input.location is required",
		},
		{
			name:     "Missing output dir",
			values:   map[string]any{InputLocation: "./input"},
			errorMsg: "--output.dir is required",
		},
		{
			name:     "Negative parallelism",
			values:   map[string]any{InputLocation: "./input", OutputDir: "./output", ReplayParallelism: -1},
			errorMsg: "--replay.parallelism must not be negative",
		},
		{
			name:     "Database without host",
			values:   map[string]any{InputLocation: "./input", OutputDir: "./output", DatabaseEnabled: true},
			errorMsg: "database is enabled but no host is set",
		},
		{
			name:     "Statsd without url",
			values:   map[string]any{InputLocation: "./input", OutputDir: "./output", DataDogStatsdEnabled: true},
			errorMsg: "--datadog.statsd.url is required when statsd is enabled",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			withViper(t, test.values)
			err := NewConfig().Validate()
			assert.NotNil(t, err)
			assert.Equal(t, test.errorMsg, err.Error())
		})
	}
}
