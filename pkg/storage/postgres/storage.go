package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/pkg/postgres/helpers"
	"github.com/NFTX-project/accounting/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

type PostgresRunStore struct {
	Db           *gorm.DB
	Logger       *zap.Logger
	GlobalConfig *config.Config
}

func NewPostgresRunStore(db *gorm.DB, l *zap.Logger, cfg *config.Config) *PostgresRunStore {
	return &PostgresRunStore{
		Db:           db,
		Logger:       l,
		GlobalConfig: cfg,
	}
}

// SaveRun writes the run and all of its snapshot rows in a single transaction.
// Saving a run id twice fails with a duplicate key error.
func (s *PostgresRunStore) SaveRun(ctx context.Context, snapshot *storage.RunSnapshot) error {
	if snapshot == nil || snapshot.Run == nil {
		return fmt.Errorf("run snapshot is empty")
	}
	runId := snapshot.Run.RunId

	_, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (any, error) {
		tx = tx.WithContext(ctx)

		if res := tx.Create(snapshot.Run); res.Error != nil {
			return nil, fmt.Errorf("failed to insert run '%s': %w", runId, res.Error)
		}
		if err := helpers.CreateInBatches(tx, snapshot.Vaults, helpers.DefaultBatchSize); err != nil {
			return nil, fmt.Errorf("failed to insert vault snapshots for run '%s': %w", runId, err)
		}
		if err := helpers.CreateInBatches(tx, snapshot.Stakers, helpers.DefaultBatchSize); err != nil {
			return nil, fmt.Errorf("failed to insert staker snapshots for run '%s': %w", runId, err)
		}
		if err := helpers.CreateInBatches(tx, snapshot.Anomalies, helpers.DefaultBatchSize); err != nil {
			return nil, fmt.Errorf("failed to insert anomalies for run '%s': %w", runId, err)
		}
		return nil, nil
	}, s.Db, nil)
	if err != nil {
		return err
	}

	s.Logger.Sugar().Infow("Saved accounting run",
		zap.String("runId", runId),
		zap.Int("vaults", len(snapshot.Vaults)),
		zap.Int("stakers", len(snapshot.Stakers)),
		zap.Int("anomalies", len(snapshot.Anomalies)),
	)
	return nil
}

func (s *PostgresRunStore) GetRun(runId string) (*storage.AccountingRun, error) {
	var run *storage.AccountingRun
	res := s.Db.Model(&storage.AccountingRun{}).Where("run_id = ?", runId).First(&run)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runId)
		}
		return nil, res.Error
	}
	return run, nil
}

func (s *PostgresRunStore) ListVaultSnapshots(runId string) ([]*storage.VaultSnapshot, error) {
	vaults := make([]*storage.VaultSnapshot, 0)
	res := s.Db.Model(&storage.VaultSnapshot{}).
		Where("run_id = ?", runId).
		Order("vault asc").
		Find(&vaults)
	if res.Error != nil {
		return nil, res.Error
	}
	return vaults, nil
}

func (s *PostgresRunStore) ListStakerSnapshots(runId string, vault string) ([]*storage.StakerSnapshot, error) {
	stakers := make([]*storage.StakerSnapshot, 0)
	res := s.Db.Model(&storage.StakerSnapshot{}).
		Where("run_id = ? and vault = ?", runId, vault).
		Order("staker asc").
		Find(&stakers)
	if res.Error != nil {
		return nil, res.Error
	}
	return stakers, nil
}

func (s *PostgresRunStore) ListAnomalies(runId string) ([]*storage.AnomalyRecord, error) {
	anomalies := make([]*storage.AnomalyRecord, 0)
	res := s.Db.Model(&storage.AnomalyRecord{}).
		Where("run_id = ?", runId).
		Order("position asc").
		Find(&anomalies)
	if res.Error != nil {
		return nil, res.Error
	}
	return anomalies, nil
}
