package ledger

import (
	"fmt"

	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

func (v *Vault) applyDeposit(e *events.Event, log *AnomalyLog) {
	s := v.getOrCreateStaker(e.User)
	s.StakeHistory = append(s.StakeHistory, e.Sequence)

	s.StakedAmount = s.StakedAmount.Add(e.Amount)
	v.TotalStaked = v.TotalStaked.Add(e.Amount)

	v.recomputePortions(e, log)
}

// applyWithdrawal subtracts the withdrawal even when it exceeds the recorded
// stake. The balance is allowed to go negative and the shortfall is recorded,
// so the replay stays faithful to the source history.
func (v *Vault) applyWithdrawal(e *events.Event, log *AnomalyLog) {
	s := v.getOrCreateStaker(e.User)
	s.StakeHistory = append(s.StakeHistory, e.Sequence)

	if e.Amount.GreaterThan(s.StakedAmount) {
		shortfall := e.Amount.SubUnchecked(s.StakedAmount)
		log.Record(&Anomaly{
			Kind:      AnomalyKind_OversizedWithdrawal,
			Sequence:  e.Sequence,
			Time:      e.Time,
			Vault:     v.Id,
			User:      e.User,
			Magnitude: shortfall,
			Message:   fmt.Sprintf("withdrawal of %s exceeds staked amount %s", e.Amount.String(), s.StakedAmount.String()),
		})
	}

	s.StakedAmount = s.StakedAmount.SubUnchecked(e.Amount)
	v.TotalStaked = v.TotalStaked.SubUnchecked(e.Amount)

	v.recomputePortions(e, log)
}

// recomputePortions sets every staker's portion to stake * unit / total,
// floored, or zero when either the stake or the total is zero.
func (v *Vault) recomputePortions(e *events.Event, log *AnomalyLog) {
	unit := numbers.Unit()
	for pair := v.Stakers.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		if v.TotalStaked.IsZero() || s.StakedAmount.IsZero() {
			s.StakedPortion = numbers.Zero()
			continue
		}
		// TotalStaked is non-zero here, so MulDiv cannot fail.
		portion, _ := s.StakedAmount.MulDiv(unit, v.TotalStaked)
		s.StakedPortion = portion

		if portion.GreaterThan(unit) {
			log.Record(&Anomaly{
				Kind:      AnomalyKind_PortionOverflow,
				Sequence:  e.Sequence,
				Time:      e.Time,
				Vault:     v.Id,
				User:      s.User,
				Magnitude: portion.SubUnchecked(unit),
				Message:   fmt.Sprintf("portion %s exceeds unit (stake %s of total %s)", portion.String(), s.StakedAmount.String(), v.TotalStaked.String()),
			})
		}
	}
}

// PortionSum adds up the portions of every staker with a non-zero stake.
func (v *Vault) PortionSum() numbers.Amount {
	total := numbers.Zero()
	for pair := v.Stakers.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.StakedAmount.IsZero() {
			continue
		}
		total = total.Add(pair.Value.StakedPortion)
	}
	return total
}

// StakedSum adds up every staker's stake. It equals TotalStaked after every
// deposit and withdrawal.
func (v *Vault) StakedSum() numbers.Amount {
	total := numbers.Zero()
	for pair := v.Stakers.Oldest(); pair != nil; pair = pair.Next() {
		total = total.Add(pair.Value.StakedAmount)
	}
	return total
}
