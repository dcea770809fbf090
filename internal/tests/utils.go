package tests

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/google/uuid"
)

func GetConfig() *config.Config {
	return config.NewConfig()
}

func ReplaceEnv(newValues map[string]string, previousValues *map[string]string) {
	for k, v := range newValues {
		(*previousValues)[k] = os.Getenv(k)
		os.Setenv(k, v)
	}
}

func RestoreEnv(previousValues map[string]string) {
	for k, v := range previousValues {
		os.Setenv(k, v)
	}
}

func envName(key string) string {
	return fmt.Sprintf("%s_%s", config.ENV_PREFIX, strings.ToUpper(strings.ReplaceAll(config.KebabToSnakeCase(key), ".", "_")))
}

// GetDbConfigFromEnv reads database settings from ACCOUNTING_DATABASE_* and
// reports whether a database host was configured.
func GetDbConfigFromEnv() (config.DatabaseConfig, bool) {
	port, err := strconv.Atoi(os.Getenv(envName(config.DatabasePort)))
	if err != nil {
		port = 5432
	}
	cfg := config.DatabaseConfig{
		Enabled:    true,
		Host:       os.Getenv(envName(config.DatabaseHost)),
		Port:       port,
		User:       os.Getenv(envName(config.DatabaseUser)),
		Password:   os.Getenv(envName(config.DatabasePassword)),
		DbName:     os.Getenv(envName(config.DatabaseDbName)),
		SchemaName: os.Getenv(envName(config.DatabaseSchemaName)),
		SSLMode:    os.Getenv(envName(config.DatabaseSSLMode)),
	}
	return cfg, cfg.Host != ""
}

func GenerateTestDbName() (string, error) {
	return fmt.Sprintf("accounting_test_%s", strings.ReplaceAll(uuid.New().String(), "-", "")), nil
}

//go:embed testdata
var testData embed.FS

var SubgraphFixtureFiles = []string{
	"deposits.json",
	"withdrawals.json",
	"fees.json",
	"claims.json",
	"zaps.json",
}

func GetSubgraphFixture(name string) ([]byte, error) {
	return testData.ReadFile(path.Join("testdata/subgraph", name))
}

func GetTickersFixture() ([]byte, error) {
	return testData.ReadFile("testdata/tickers.yaml")
}

// WriteSubgraphFixtures copies the embedded subgraph export into dir.
func WriteSubgraphFixtures(dir string) error {
	for _, name := range SubgraphFixtureFiles {
		data, err := GetSubgraphFixture(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
