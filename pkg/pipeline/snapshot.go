package pipeline

import (
	"time"

	"github.com/NFTX-project/accounting/pkg/loader"
	"github.com/NFTX-project/accounting/pkg/storage"
)

// buildRunSnapshot flattens a run result into the rows SaveRun persists.
// Vault and staker rows come from the report so stored tickers match the
// exported ones.
func buildRunSnapshot(location string, input *loader.Input, result *RunResult) *storage.RunSnapshot {
	runId := result.RunId
	snapshot := &storage.RunSnapshot{
		Run: &storage.AccountingRun{
			RunId:         runId,
			InputLocation: location,
			EventCount:    len(result.Ledger.Events),
			ClaimCount:    len(result.Ledger.Claims),
			DroppedCount:  len(input.Dropped),
			VaultCount:    len(result.Report.Vaults),
			StakerCount:   result.Ledger.StakerCount(),
			AnomalyCount:  result.Ledger.Anomalies.Len(),
			OverpaidCount: result.Summary.Overpaid,
			OwedCount:     result.Summary.Underpaid,
			CreatedAt:     time.Now(),
		},
		Vaults:    make([]*storage.VaultSnapshot, 0, len(result.Report.Vaults)),
		Stakers:   make([]*storage.StakerSnapshot, 0),
		Anomalies: make([]*storage.AnomalyRecord, 0, result.Ledger.Anomalies.Len()),
	}

	for _, vs := range result.Report.Vaults {
		snapshot.Vaults = append(snapshot.Vaults, &storage.VaultSnapshot{
			RunId:            runId,
			Vault:            vs.Vault,
			Ticker:           vs.Ticker,
			TotalStaked:      vs.TotalStaked,
			DaoFees:          vs.DaoFees,
			RetainedResidual: vs.RetainedResidual,
			TotalEarned:      vs.TotalEarned,
			TotalClaimed:     vs.TotalClaimed,
			TotalOwed:        vs.TotalOwed,
			TotalOverpaid:    vs.TotalOverpaid,
			StakerCount:      len(vs.Stakers),
		})
		for _, s := range vs.Stakers {
			snapshot.Stakers = append(snapshot.Stakers, &storage.StakerSnapshot{
				RunId:         runId,
				Vault:         vs.Vault,
				Staker:        s.Address,
				StakedAmount:  s.StakedAmount,
				StakedPortion: s.StakedPortion,
				FeesEarned:    s.FeesEarned,
				FeesClaimed:   s.FeesClaimed,
				Owed:          s.Owed,
				Overpaid:      s.Overpaid,
			})
		}
	}

	for i, a := range result.Ledger.Anomalies.All() {
		snapshot.Anomalies = append(snapshot.Anomalies, &storage.AnomalyRecord{
			RunId:     runId,
			Position:  i,
			Kind:      string(a.Kind),
			Sequence:  a.Sequence,
			BlockTime: a.Time,
			Vault:     a.Vault,
			Staker:    a.User,
			Magnitude: a.Magnitude,
			Message:   a.Message,
		})
	}
	return snapshot
}
