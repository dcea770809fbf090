package _202610141030_anomalies

import (
	"database/sql"

	"github.com/NFTX-project/accounting/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists anomalies (
			run_id text not null references accounting_runs (run_id) on delete cascade,
			position integer not null,
			kind text not null,
			sequence integer not null,
			block_time bigint not null,
			vault text not null,
			staker text,
			magnitude numeric not null,
			message text,
			primary key (run_id, position)
		)`,
		`create index if not exists idx_anomalies_run_kind on anomalies (run_id, kind)`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610141030_anomalies"
}
