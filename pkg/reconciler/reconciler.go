// Package reconciler applies claim events to a replayed ledger and settles
// each staker's earned fees against what they claimed.
package reconciler

import (
	"errors"
	"fmt"

	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/ledger"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

var (
	ErrUnknownStaker = errors.New("claim references a staker with no stake history")
	ErrInvalidClaim  = errors.New("invalid claim")
)

// UnknownStakerError is returned when a claim names a vault or user the
// replay never saw. It aborts reconciliation.
type UnknownStakerError struct {
	Claim *events.Event
	// UnknownVault is set when the vault itself does not exist.
	UnknownVault bool
}

func (e *UnknownStakerError) Error() string {
	what := "user"
	if e.UnknownVault {
		what = "vault"
	}
	return fmt.Sprintf("%s: unknown %s in claim '%s' (vault=%s user=%s amount=%s time=%d)",
		ErrUnknownStaker.Error(), what, e.Claim.Id, e.Claim.Vault, e.Claim.User, e.Claim.Amount.String(), e.Claim.Time)
}

func (e *UnknownStakerError) Unwrap() error {
	return ErrUnknownStaker
}

type Summary struct {
	ClaimsApplied int            `json:"claimsApplied"`
	Overpaid      int            `json:"overpaid"`
	Underpaid     int            `json:"underpaid"`
	Settled       int            `json:"settled"`
	TotalClaimed  numbers.Amount `json:"totalClaimed"`
	TotalOwed     numbers.Amount `json:"totalOwed"`
	TotalOverpaid numbers.Amount `json:"totalOverpaid"`
}

// Reconcile orders claims by time, adds each claim to its staker's
// FeesClaimed, and then sets Owed or Overpaid on every staker in l.
//
// Every claim is validated before any is applied. Claims are applied to l in
// place and the ordered claim log is stored in l.Claims. On error l must be
// discarded.
func Reconcile(l *ledger.Ledger, claims []*events.Event) (*Summary, error) {
	for i, c := range claims {
		if c.Kind != events.Kind_Claim {
			return nil, fmt.Errorf("%w: claim %d is a %s event", ErrInvalidClaim, i, c.Kind)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: claim %d: %v", ErrInvalidClaim, i, err)
		}
	}

	ordered := events.SortClaims(claims)
	summary := &Summary{}

	for _, c := range ordered {
		v, ok := l.GetVault(c.Vault)
		if !ok {
			return nil, &UnknownStakerError{Claim: c, UnknownVault: true}
		}
		s, ok := v.GetStaker(c.User)
		if !ok {
			return nil, &UnknownStakerError{Claim: c}
		}
		s.FeesClaimed = s.FeesClaimed.Add(c.Amount)
		s.ClaimHistory = append(s.ClaimHistory, c.Sequence)

		summary.ClaimsApplied++
		summary.TotalClaimed = summary.TotalClaimed.Add(c.Amount)
	}
	l.Claims = ordered

	for _, v := range l.VaultList() {
		for _, s := range v.StakerList() {
			settle(s)
			switch {
			case s.Overpaid.IsPositive():
				summary.Overpaid++
				summary.TotalOverpaid = summary.TotalOverpaid.Add(s.Overpaid)
			case s.Owed.IsPositive():
				summary.Underpaid++
				summary.TotalOwed = summary.TotalOwed.Add(s.Owed)
			default:
				summary.Settled++
			}
		}
	}
	return summary, nil
}

// settle sets exactly one of Owed and Overpaid to the difference between
// claimed and earned fees, or neither when they match.
func settle(s *ledger.StakerAccount) {
	s.Owed = numbers.Zero()
	s.Overpaid = numbers.Zero()

	switch s.FeesClaimed.Cmp(s.FeesEarned) {
	case 1:
		s.Overpaid = s.FeesClaimed.SubUnchecked(s.FeesEarned)
	case -1:
		s.Owed = s.FeesEarned.SubUnchecked(s.FeesClaimed)
	}
}
