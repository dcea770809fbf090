package migrations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/NFTX-project/accounting/internal/config"
	_202610140900_accountingRuns "github.com/NFTX-project/accounting/pkg/postgres/migrations/202610140900_accountingRuns"
	_202610141030_anomalies "github.com/NFTX-project/accounting/pkg/postgres/migrations/202610141030_anomalies"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

// AppliedMigration is a row of the migrations table.
type AppliedMigration struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (AppliedMigration) TableName() string {
	return "migrations"
}

type Migrator struct {
	Db           *sql.DB
	GDb          *gorm.DB
	Logger       *zap.Logger
	globalConfig *config.Config
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		Db:           db,
		GDb:          gDb,
		Logger:       l,
		globalConfig: cfg,
	}
}

// Migrations are applied in the order listed here.
func (m *Migrator) migrations() []Migration {
	return []Migration{
		&_202610140900_accountingRuns.Migration{},
		&_202610141030_anomalies.Migration{},
	}
}

func (m *Migrator) MigrateAll() error {
	if err := m.GDb.Exec(`
		create table if not exists migrations (
			name text primary key,
			created_at timestamp with time zone default current_timestamp,
			updated_at timestamp with time zone default null
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range m.migrations() {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

// Migrate runs a single migration unless it has already been recorded.
func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var count int64
	res := m.GDb.Model(&AppliedMigration{}).Where("name = ?", name).Count(&count)
	if res.Error != nil {
		return fmt.Errorf("failed to check migration '%s': %w", name, res.Error)
	}
	if count > 0 {
		m.Logger.Sugar().Debugw("Migration already applied", zap.String("name", name))
		return nil
	}

	m.Logger.Sugar().Infow("Running migration", zap.String("name", name))
	if err := migration.Up(m.Db, m.GDb, m.globalConfig); err != nil {
		m.Logger.Sugar().Errorw("Failed to run migration", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("migration '%s' failed: %w", name, err)
	}

	res = m.GDb.Create(&AppliedMigration{Name: name, CreatedAt: time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to record migration '%s': %w", name, res.Error)
	}
	return nil
}
