package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/internal/logger"
	"github.com/NFTX-project/accounting/internal/tests"
	"github.com/NFTX-project/accounting/pkg/postgres"
	"github.com/NFTX-project/accounting/pkg/storage"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (
	string,
	*gorm.DB,
	*zap.Logger,
	*config.Config,
) {
	dbCfg, ok := tests.GetDbConfigFromEnv()
	if !ok {
		t.Skip("database not configured")
	}
	cfg := config.NewConfig()
	cfg.Debug = os.Getenv(config.Debug) == "true"
	cfg.DatabaseConfig = dbCfg

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	dbname, _, grm, err := postgres.GetTestPostgresDatabase(cfg.DatabaseConfig, cfg, l)
	if err != nil {
		t.Fatalf("Failed to setup: %v", err)
	}
	return dbname, grm, l, cfg
}

const (
	vault  = "0x1111111111111111111111111111111111111111"
	alice  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob    = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	huge   = "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	runOne = "run-one"
)

func snapshotFixture(runId string) *storage.RunSnapshot {
	return &storage.RunSnapshot{
		Run: &storage.AccountingRun{
			RunId:         runId,
			InputLocation: "/tmp/export",
			EventCount:    4,
			ClaimCount:    1,
			VaultCount:    1,
			StakerCount:   2,
			AnomalyCount:  1,
			OverpaidCount: 1,
			OwedCount:     1,
			CreatedAt:     time.Now(),
		},
		Vaults: []*storage.VaultSnapshot{
			{
				RunId:            runId,
				Vault:            vault,
				Ticker:           "PUNK",
				TotalStaked:      numbers.MustParseAmount(huge),
				DaoFees:          numbers.Zero(),
				RetainedResidual: numbers.NewAmount(1),
				TotalEarned:      numbers.NewAmount(10),
				TotalClaimed:     numbers.NewAmount(12),
				TotalOwed:        numbers.NewAmount(3),
				TotalOverpaid:    numbers.NewAmount(5),
				StakerCount:      2,
			},
		},
		Stakers: []*storage.StakerSnapshot{
			{RunId: runId, Vault: vault, Staker: bob, StakedAmount: numbers.NewAmount(1), StakedPortion: numbers.NewAmount(2), FeesEarned: numbers.NewAmount(3), FeesClaimed: numbers.Zero(), Owed: numbers.NewAmount(3), Overpaid: numbers.Zero()},
			{RunId: runId, Vault: vault, Staker: alice, StakedAmount: numbers.NewAmount(-4), StakedPortion: numbers.Zero(), FeesEarned: numbers.NewAmount(7), FeesClaimed: numbers.NewAmount(12), Owed: numbers.Zero(), Overpaid: numbers.NewAmount(5)},
		},
		Anomalies: []*storage.AnomalyRecord{
			{RunId: runId, Position: 0, Kind: "oversizedWithdrawal", Sequence: 2, BlockTime: 100, Vault: vault, Staker: alice, Magnitude: numbers.NewAmount(4)},
		},
	}
}

func Test_PostgresRunStore(t *testing.T) {
	dbname, db, l, cfg := setup(t)
	defer postgres.TeardownTestDatabase(dbname, cfg, db, l)

	store := NewPostgresRunStore(db, l, cfg)

	t.Run("Should save and read back a run", func(t *testing.T) {
		err := store.SaveRun(context.Background(), snapshotFixture(runOne))
		assert.Nil(t, err)

		run, err := store.GetRun(runOne)
		assert.Nil(t, err)
		assert.Equal(t, 4, run.EventCount)
		assert.Equal(t, "/tmp/export", run.InputLocation)

		vaults, err := store.ListVaultSnapshots(runOne)
		assert.Nil(t, err)
		assert.Len(t, vaults, 1)
		assert.True(t, vaults[0].TotalStaked.Equal(numbers.MustParseAmount(huge)))
		assert.Equal(t, "PUNK", vaults[0].Ticker)

		stakers, err := store.ListStakerSnapshots(runOne, vault)
		assert.Nil(t, err)
		assert.Len(t, stakers, 2)
		assert.Equal(t, alice, stakers[0].Staker)
		assert.True(t, stakers[0].StakedAmount.Equal(numbers.NewAmount(-4)))
		assert.True(t, stakers[0].Overpaid.Equal(numbers.NewAmount(5)))

		anomalies, err := store.ListAnomalies(runOne)
		assert.Nil(t, err)
		assert.Len(t, anomalies, 1)
		assert.Equal(t, "oversizedWithdrawal", anomalies[0].Kind)
	})

	t.Run("Should fail to save the same run twice", func(t *testing.T) {
		err := store.SaveRun(context.Background(), snapshotFixture(runOne))
		assert.NotNil(t, err)
		assert.True(t, postgres.IsDuplicateKeyError(err))
	})

	t.Run("Should roll back a run whose rows fail to insert", func(t *testing.T) {
		snapshot := snapshotFixture("run-two")
		snapshot.Stakers = append(snapshot.Stakers, snapshot.Stakers[0])

		err := store.SaveRun(context.Background(), snapshot)
		assert.NotNil(t, err)

		_, err = store.GetRun("run-two")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("Should save a run with no rows", func(t *testing.T) {
		snapshot := &storage.RunSnapshot{Run: &storage.AccountingRun{RunId: "run-empty", CreatedAt: time.Now()}}
		assert.Nil(t, store.SaveRun(context.Background(), snapshot))

		vaults, err := store.ListVaultSnapshots("run-empty")
		assert.Nil(t, err)
		assert.Len(t, vaults, 0)
	})
}
