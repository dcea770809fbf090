package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/NFTX-project/accounting/internal/logger"
	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/ledger"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
	"github.com/stretchr/testify/assert"
)

const (
	vault = "0xvault"
	alice = "0xalice"
	bob   = "0xbob"
	carol = "0xcarol"
)

func amt(n int64) numbers.Amount {
	return numbers.NewAmount(n)
}

// replayed builds a vault where alice and bob each earned 10 and carol 20.
func replayed(t *testing.T) *ledger.Ledger {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	evs := events.SortForReplay([]*events.Event{
		events.NewDeposit(vault, alice, amt(1), 1),
		events.NewDeposit(vault, bob, amt(1), 1),
		events.NewDeposit(vault, carol, amt(2), 1),
		events.NewFeeReceipt(vault, amt(40), 2),
	})
	led, err := ledger.NewReplayEngine(nil, l, nil).Replay(context.Background(), evs)
	assert.Nil(t, err)
	return led
}

func Test_Reconcile(t *testing.T) {
	t.Run("Should report overpaid, owed and settled stakers", func(t *testing.T) {
		led := replayed(t)
		summary, err := Reconcile(led, []*events.Event{
			events.NewClaim(vault, alice, amt(14), 4),
			events.NewClaim(vault, bob, amt(4), 3),
			events.NewClaim(vault, carol, amt(20), 3),
		})
		assert.Nil(t, err)

		a, _ := led.GetStaker(vault, alice)
		assert.True(t, a.Overpaid.Equal(amt(4)))
		assert.True(t, a.Owed.IsZero())

		b, _ := led.GetStaker(vault, bob)
		assert.True(t, b.Owed.Equal(amt(6)))
		assert.True(t, b.Overpaid.IsZero())

		c, _ := led.GetStaker(vault, carol)
		assert.True(t, c.Owed.IsZero())
		assert.True(t, c.Overpaid.IsZero())

		assert.Equal(t, 3, summary.ClaimsApplied)
		assert.Equal(t, 1, summary.Overpaid)
		assert.Equal(t, 1, summary.Underpaid)
		assert.Equal(t, 1, summary.Settled)
		assert.True(t, summary.TotalClaimed.Equal(amt(38)))
		assert.True(t, summary.TotalOwed.Equal(amt(6)))
		assert.True(t, summary.TotalOverpaid.Equal(amt(4)))
	})

	t.Run("Should accumulate multiple claims and keep them in time order", func(t *testing.T) {
		led := replayed(t)
		_, err := Reconcile(led, []*events.Event{
			events.NewClaim(vault, alice, amt(3), 9),
			events.NewClaim(vault, alice, amt(2), 5),
		})
		assert.Nil(t, err)

		a, _ := led.GetStaker(vault, alice)
		assert.True(t, a.FeesClaimed.Equal(amt(5)))
		assert.True(t, a.Owed.Equal(amt(5)))

		assert.Len(t, led.Claims, 2)
		assert.Equal(t, uint64(5), led.Claims[0].Time)
		assert.Equal(t, uint64(9), led.Claims[1].Time)

		h := led.History(vault, alice)
		assert.Len(t, h, 3)
		assert.Equal(t, events.Kind_Deposit, h[0].Kind)
		assert.Equal(t, events.Kind_Claim, h[1].Kind)
		assert.Equal(t, uint64(5), h[1].Time)
	})

	t.Run("Should mark every staker owed when nothing was claimed", func(t *testing.T) {
		led := replayed(t)
		summary, err := Reconcile(led, nil)
		assert.Nil(t, err)
		assert.Equal(t, 3, summary.Underpaid)
		assert.Equal(t, 0, summary.ClaimsApplied)
	})

	t.Run("Should fail on a claim for an unknown user", func(t *testing.T) {
		led := replayed(t)
		claim := events.NewClaim(vault, "0xmallory", amt(1), 3)
		claim.Id = "claim-1"
		_, err := Reconcile(led, []*events.Event{claim})
		assert.ErrorIs(t, err, ErrUnknownStaker)

		var unknown *UnknownStakerError
		assert.True(t, errors.As(err, &unknown))
		assert.False(t, unknown.UnknownVault)
		assert.Equal(t, "claim-1", unknown.Claim.Id)
		assert.Contains(t, err.Error(), "unknown user")
	})

	t.Run("Should fail on a claim for an unknown vault", func(t *testing.T) {
		led := replayed(t)
		_, err := Reconcile(led, []*events.Event{
			events.NewClaim(vault, alice, amt(1), 3),
			events.NewClaim("0xnowhere", alice, amt(1), 4),
		})
		var unknown *UnknownStakerError
		assert.True(t, errors.As(err, &unknown))
		assert.True(t, unknown.UnknownVault)
		assert.Contains(t, err.Error(), "unknown vault")
	})

	t.Run("Should reject invalid claims before applying any", func(t *testing.T) {
		negative := events.NewClaim(vault, alice, amt(-1), 3)
		noUser := events.NewClaim(vault, "", amt(1), 3)
		deposit := events.NewDeposit(vault, alice, amt(1), 3)

		for _, bad := range []*events.Event{negative, noUser, deposit} {
			led := replayed(t)
			_, err := Reconcile(led, []*events.Event{
				events.NewClaim(vault, bob, amt(1), 1),
				bad,
			})
			assert.ErrorIs(t, err, ErrInvalidClaim)
			assert.False(t, errors.Is(err, ErrUnknownStaker))

			b, _ := led.GetStaker(vault, bob)
			assert.True(t, b.FeesClaimed.IsZero())
		}
	})

	t.Run("Should report a staker with negative earnings as overpaid", func(t *testing.T) {
		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
		// bob withdraws more than he deposited, so his portion and reward go negative.
		evs := events.SortForReplay([]*events.Event{
			events.NewDeposit(vault, alice, amt(10), 1),
			events.NewDeposit(vault, bob, amt(1), 1),
			events.NewWithdrawal(vault, bob, amt(6), 2),
			events.NewFeeReceipt(vault, amt(10), 3),
		})
		led, err := ledger.NewReplayEngine(nil, l, nil).Replay(context.Background(), evs)
		assert.Nil(t, err)

		summary, err := Reconcile(led, nil)
		assert.Nil(t, err)

		a, _ := led.GetStaker(vault, alice)
		assert.True(t, a.Owed.Equal(amt(20)))

		b, _ := led.GetStaker(vault, bob)
		assert.True(t, b.FeesEarned.Equal(amt(-10)))
		assert.True(t, b.FeesClaimed.IsZero())
		assert.True(t, b.Overpaid.Equal(amt(10)))
		assert.True(t, b.Owed.IsZero())

		assert.Equal(t, 1, summary.Overpaid)
		assert.Equal(t, 1, summary.Underpaid)
		assert.True(t, summary.TotalOverpaid.Equal(amt(10)))
		assert.True(t, summary.TotalOwed.Equal(amt(20)))
	})
}
