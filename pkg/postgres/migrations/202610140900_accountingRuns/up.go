package _202610140900_accountingRuns

import (
	"database/sql"

	"github.com/NFTX-project/accounting/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create table if not exists accounting_runs (
			run_id text primary key,
			input_location text not null,
			event_count integer not null default 0,
			claim_count integer not null default 0,
			dropped_count integer not null default 0,
			vault_count integer not null default 0,
			staker_count integer not null default 0,
			anomaly_count integer not null default 0,
			overpaid_count integer not null default 0,
			owed_count integer not null default 0,
			created_at timestamp with time zone default current_timestamp
		)`,
		`create table if not exists vault_snapshots (
			run_id text not null references accounting_runs (run_id) on delete cascade,
			vault text not null,
			ticker text not null,
			total_staked numeric not null,
			dao_fees numeric not null,
			retained_residual numeric not null,
			total_earned numeric not null,
			total_claimed numeric not null,
			total_owed numeric not null,
			total_overpaid numeric not null,
			staker_count integer not null default 0,
			primary key (run_id, vault)
		)`,
		`create table if not exists staker_snapshots (
			run_id text not null,
			vault text not null,
			staker text not null,
			staked_amount numeric not null,
			staked_portion numeric not null,
			fees_earned numeric not null,
			fees_claimed numeric not null,
			owed numeric not null,
			overpaid numeric not null,
			primary key (run_id, vault, staker),
			foreign key (run_id, vault) references vault_snapshots (run_id, vault) on delete cascade
		)`,
		`create index if not exists idx_staker_snapshots_staker on staker_snapshots (staker)`,
	}

	for _, query := range queries {
		if res := grm.Exec(query); res.Error != nil {
			return res.Error
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610140900_accountingRuns"
}
