// Package postgres opens and migrates the database that accounting runs are
// persisted to.
package postgres

import (
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/internal/tests"
	"github.com/NFTX-project/accounting/pkg/postgres/migrations"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

var duplicateKeyRegex = regexp.MustCompile(`duplicate key value violates unique constraint`)

// PostgresConfig holds the connection parameters for a single database.
type PostgresConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DbName   string
	// CreateDbIfNotExists creates DbName through the root 'postgres' database
	// before connecting.
	CreateDbIfNotExists bool
	SchemaName          string
	SSLMode             string
	SSLCert             string
	SSLKey              string
	SSLRootCert         string
}

type Postgres struct {
	Db *sql.DB
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:        dbCfg.Host,
		Port:        dbCfg.Port,
		Username:    dbCfg.User,
		Password:    dbCfg.Password,
		DbName:      dbCfg.DbName,
		SchemaName:  dbCfg.SchemaName,
		SSLMode:     dbCfg.SSLMode,
		SSLCert:     dbCfg.SSLCert,
		SSLKey:      dbCfg.SSLKey,
		SSLRootCert: dbCfg.SSLRootCert,
	}
}

// Open connects to the configured database, creating it if needed, and
// applies every pending migration.
func Open(cfg *config.Config, l *zap.Logger) (*sql.DB, *gorm.DB, error) {
	pgConfig := PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
	pgConfig.CreateDbIfNotExists = true

	pg, err := NewPostgres(pgConfig)
	if err != nil {
		return nil, nil, err
	}
	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		return nil, nil, err
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l, cfg)
	if err := migrator.MigrateAll(); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	l.Sugar().Infow("Connected to database",
		zap.String("host", pgConfig.Host),
		zap.String("dbName", pgConfig.DbName),
	)
	return pg.Db, grm, nil
}

// GetTestPostgresDatabase creates a uniquely named, fully migrated database
// for a test run.
func GetTestPostgresDatabase(cfg config.DatabaseConfig, gCfg *config.Config, l *zap.Logger) (
	string,
	*sql.DB,
	*gorm.DB,
	error,
) {
	testDbName, err := tests.GenerateTestDbName()
	if err != nil {
		return testDbName, nil, nil, err
	}
	cfg.DbName = testDbName

	pgConfig := PostgresConfigFromDbConfig(&cfg)
	pgConfig.CreateDbIfNotExists = true

	pg, err := NewPostgres(pgConfig)
	if err != nil {
		return testDbName, nil, nil, err
	}
	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		return testDbName, nil, nil, err
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l, gCfg)
	if err = migrator.MigrateAll(); err != nil {
		return testDbName, nil, nil, err
	}
	return testDbName, pg.Db, grm, nil
}

func getPostgresRootConnection(cfg *PostgresConfig) (*sql.DB, error) {
	rootCfg := *cfg
	rootCfg.DbName = "postgres"
	rootCfg.SchemaName = ""

	connStr, err := getPostgresConnectionString(&rootCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres database: %v", err)
	}
	return db, nil
}

func getPostgresConnectionString(cfg *PostgresConfig) (string, error) {
	sslMode := defaultSSLMode
	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	parts := []string{fmt.Sprintf("host=%s", cfg.Host)}
	optional := [][2]string{
		{"user", cfg.Username},
		{"password", cfg.Password},
	}
	for _, kv := range optional {
		if kv[1] != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", kv[0], kv[1]))
		}
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", cfg.DbName),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("sslmode=%s", sslMode),
		"TimeZone=UTC",
	)
	if cfg.SchemaName != "" {
		parts = append(parts, fmt.Sprintf("search_path=%s", cfg.SchemaName))
	}

	// certificate paths only apply to ssl connections
	if sslMode != defaultSSLMode {
		certs := [][2]string{
			{"sslcert", cfg.SSLCert},
			{"sslkey", cfg.SSLKey},
			{"sslrootcert", cfg.SSLRootCert},
		}
		for _, kv := range certs {
			if kv[1] != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", kv[0], kv[1]))
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func DeleteTestDatabase(cfg *PostgresConfig, dbName string) error {
	db, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err = db.Exec(fmt.Sprintf("DROP DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
		return fmt.Errorf("error dropping database: %v", err)
	}
	return nil
}

func CreateDatabaseIfNotExists(cfg *PostgresConfig) error {
	db, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	err = db.QueryRow(`SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)`, cfg.DbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking if database exists: %v", err)
	}

	if !exists {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(cfg.DbName))); err != nil {
			return fmt.Errorf("error creating database: %v", err)
		}
	}
	return nil
}

func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	if cfg.CreateDbIfNotExists {
		if err := CreateDatabaseIfNotExists(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database if not exists %+v", err)
		}
	}
	connectString, err := getPostgresConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database %+v", err)
	}
	return &Postgres{Db: db}, nil
}

func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup database %+v", err)
	}
	return db, nil
}

// TeardownTestDatabase closes db and drops the test database it points at.
func TeardownTestDatabase(dbname string, cfg *config.Config, db *gorm.DB, l *zap.Logger) {
	rawDb, _ := db.DB()
	_ = rawDb.Close()

	pgConfig := PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
	if err := DeleteTestDatabase(pgConfig, dbname); err != nil {
		l.Sugar().Errorw("Failed to delete test database", zap.Error(err))
	}
}

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return duplicateKeyRegex.MatchString(err.Error())
}
