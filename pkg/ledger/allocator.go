package ledger

import (
	"fmt"

	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

// Allocation summarizes how a single fee receipt was distributed.
type Allocation struct {
	Amount      numbers.Amount
	Distributed numbers.Amount
	Residual    numbers.Amount
	Recipients  int
	// ToDao is set when no staker held a portion and the whole amount went to DaoFees.
	ToDao bool
}

// allocateFee splits a fee receipt across the stakers holding a non-zero
// portion: reward = amount * portion / unit, floored.
//
// Rounding always favors under-distribution. The non-negative remainder stays
// with the vault in RetainedResidual.
func (v *Vault) allocateFee(e *events.Event, log *AnomalyLog) *Allocation {
	unit := numbers.Unit()
	accumulatedRewards := numbers.Zero()
	recipients := 0

	for pair := v.Stakers.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		if s.StakedPortion.IsZero() {
			continue
		}
		recipients++

		reward, _ := e.Amount.MulDiv(s.StakedPortion, unit)
		s.FeesEarned = s.FeesEarned.Add(reward)
		accumulatedRewards = accumulatedRewards.Add(reward)
	}

	if recipients == 0 {
		v.DaoFees = v.DaoFees.Add(e.Amount)
		return &Allocation{
			Amount:      e.Amount,
			Distributed: numbers.Zero(),
			Residual:    numbers.Zero(),
			ToDao:       true,
		}
	}

	alloc := &Allocation{
		Amount:      e.Amount,
		Distributed: accumulatedRewards,
		Recipients:  recipients,
		Residual:    numbers.Zero(),
	}

	if accumulatedRewards.GreaterThan(e.Amount) {
		log.Record(&Anomaly{
			Kind:      AnomalyKind_OverDistribution,
			Sequence:  e.Sequence,
			Time:      e.Time,
			Vault:     v.Id,
			Magnitude: accumulatedRewards.SubUnchecked(e.Amount),
			Message:   fmt.Sprintf("distributed %s of a %s fee receipt", accumulatedRewards.String(), e.Amount.String()),
		})
		return alloc
	}

	alloc.Residual = e.Amount.SubUnchecked(accumulatedRewards)
	v.RetainedResidual = v.RetainedResidual.Add(alloc.Residual)
	return alloc
}
