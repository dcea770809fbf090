// Package storage defines the persisted form of an accounting run.
package storage

import (
	"context"
	"time"

	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

type RunStore interface {
	SaveRun(ctx context.Context, run *RunSnapshot) error
	GetRun(runId string) (*AccountingRun, error)
	ListVaultSnapshots(runId string) ([]*VaultSnapshot, error)
	ListStakerSnapshots(runId string, vault string) ([]*StakerSnapshot, error)
	ListAnomalies(runId string) ([]*AnomalyRecord, error)
}

// RunSnapshot is everything SaveRun writes for one run.
type RunSnapshot struct {
	Run       *AccountingRun
	Vaults    []*VaultSnapshot
	Stakers   []*StakerSnapshot
	Anomalies []*AnomalyRecord
}

type AccountingRun struct {
	RunId         string `gorm:"primaryKey"`
	InputLocation string
	EventCount    int
	ClaimCount    int
	DroppedCount  int
	VaultCount    int
	StakerCount   int
	AnomalyCount  int
	OverpaidCount int
	OwedCount     int
	CreatedAt     time.Time
}

type VaultSnapshot struct {
	RunId            string `gorm:"primaryKey"`
	Vault            string `gorm:"primaryKey"`
	Ticker           string
	TotalStaked      numbers.Amount `gorm:"type:numeric"`
	DaoFees          numbers.Amount `gorm:"type:numeric"`
	RetainedResidual numbers.Amount `gorm:"type:numeric"`
	TotalEarned      numbers.Amount `gorm:"type:numeric"`
	TotalClaimed     numbers.Amount `gorm:"type:numeric"`
	TotalOwed        numbers.Amount `gorm:"type:numeric"`
	TotalOverpaid    numbers.Amount `gorm:"type:numeric"`
	StakerCount      int
}

type StakerSnapshot struct {
	RunId         string         `gorm:"primaryKey"`
	Vault         string         `gorm:"primaryKey"`
	Staker        string         `gorm:"primaryKey"`
	StakedAmount  numbers.Amount `gorm:"type:numeric"`
	StakedPortion numbers.Amount `gorm:"type:numeric"`
	FeesEarned    numbers.Amount `gorm:"type:numeric"`
	FeesClaimed   numbers.Amount `gorm:"type:numeric"`
	Owed          numbers.Amount `gorm:"type:numeric"`
	Overpaid      numbers.Amount `gorm:"type:numeric"`
}

type AnomalyRecord struct {
	RunId     string `gorm:"primaryKey"`
	Position  int    `gorm:"primaryKey"`
	Kind      string
	Sequence  int
	BlockTime uint64
	Vault     string
	Staker    string
	Magnitude numbers.Amount `gorm:"type:numeric"`
	Message   string
}

func (AnomalyRecord) TableName() string {
	return "anomalies"
}
