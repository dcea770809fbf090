// Package ledger replays normalized vault events into per-vault stake and fee
// accounting state.
package ledger

import (
	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StakerAccount is one user's stake and fee entitlement within one vault.
type StakerAccount struct {
	User          string         `json:"user"`
	StakedAmount  numbers.Amount `json:"stakedAmount"`
	StakedPortion numbers.Amount `json:"stakedPortion"`
	FeesEarned    numbers.Amount `json:"feesEarned"`
	FeesClaimed   numbers.Amount `json:"feesClaimed"`
	Owed          numbers.Amount `json:"owed"`
	Overpaid      numbers.Amount `json:"overpaid"`

	// Sequences of the deposits and withdrawals in the ordered replay log.
	StakeHistory []int `json:"stakeHistory"`
	// Sequences of the claims in the ordered claim log.
	ClaimHistory []int `json:"claimHistory"`
}

func newStakerAccount(user string) *StakerAccount {
	return &StakerAccount{
		User:         user,
		StakeHistory: make([]int, 0),
		ClaimHistory: make([]int, 0),
	}
}

// Vault is the running state of a single staking pool.
type Vault struct {
	Id          string         `json:"id"`
	Ticker      string         `json:"ticker,omitempty"`
	TotalStaked numbers.Amount `json:"totalStaked"`
	// DaoFees holds fee receipts that arrived while nobody had a stake.
	DaoFees numbers.Amount `json:"daoFees"`
	// RetainedResidual is the sum of the truncation left over by every fee
	// allocation. It is never redistributed.
	RetainedResidual numbers.Amount `json:"retainedResidual"`

	Stakers *orderedmap.OrderedMap[string, *StakerAccount] `json:"stakers"`
}

func newVault(id, ticker string) *Vault {
	return &Vault{
		Id:      id,
		Ticker:  ticker,
		Stakers: orderedmap.New[string, *StakerAccount](),
	}
}

func (v *Vault) GetStaker(user string) (*StakerAccount, bool) {
	return v.Stakers.Get(user)
}

func (v *Vault) getOrCreateStaker(user string) *StakerAccount {
	if s, ok := v.Stakers.Get(user); ok {
		return s
	}
	s := newStakerAccount(user)
	v.Stakers.Set(user, s)
	return s
}

// StakerList returns the stakers in the order they first appeared.
func (v *Vault) StakerList() []*StakerAccount {
	out := make([]*StakerAccount, 0, v.Stakers.Len())
	for pair := v.Stakers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Ledger is the full result of one replay run. It is built from scratch by
// ReplayEngine.Replay and owned by the caller afterwards.
type Ledger struct {
	RunId  string                                 `json:"runId"`
	Vaults *orderedmap.OrderedMap[string, *Vault] `json:"vaults"`
	// Events is the ordered replay log; an event's Sequence is its index here.
	Events []*events.Event `json:"-"`
	// Claims is the ordered claim log, set by the reconciler.
	Claims    []*events.Event `json:"-"`
	Anomalies *AnomalyLog     `json:"-"`
}

func NewLedger() *Ledger {
	return &Ledger{
		RunId:     uuid.New().String(),
		Vaults:    orderedmap.New[string, *Vault](),
		Events:    make([]*events.Event, 0),
		Claims:    make([]*events.Event, 0),
		Anomalies: NewAnomalyLog(),
	}
}

func (l *Ledger) GetVault(id string) (*Vault, bool) {
	return l.Vaults.Get(id)
}

func (l *Ledger) GetStaker(vault, user string) (*StakerAccount, bool) {
	v, ok := l.Vaults.Get(vault)
	if !ok {
		return nil, false
	}
	return v.GetStaker(user)
}

// VaultList returns the vaults in the order they first appeared.
func (l *Ledger) VaultList() []*Vault {
	out := make([]*Vault, 0, l.Vaults.Len())
	for pair := l.Vaults.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// StakerAddresses returns every distinct user that deposited or withdrew, in
// the order they first appear in the replay log.
func (l *Ledger) StakerAddresses() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range l.Events {
		if !e.IsStakeChange() {
			continue
		}
		if _, ok := seen[e.User]; ok {
			continue
		}
		seen[e.User] = struct{}{}
		out = append(out, e.User)
	}
	return out
}

// History returns every deposit, withdrawal and claim a user made in a vault,
// stake changes first in replay order followed by claims in claim order.
func (l *Ledger) History(vault, user string) []*events.Event {
	s, ok := l.GetStaker(vault, user)
	if !ok {
		return []*events.Event{}
	}
	out := make([]*events.Event, 0, len(s.StakeHistory)+len(s.ClaimHistory))
	for _, seq := range s.StakeHistory {
		if seq >= 0 && seq < len(l.Events) {
			out = append(out, l.Events[seq])
		}
	}
	for _, seq := range s.ClaimHistory {
		if seq >= 0 && seq < len(l.Claims) {
			out = append(out, l.Claims[seq])
		}
	}
	return out
}

// StakerCount is the number of staker accounts across every vault.
func (l *Ledger) StakerCount() int {
	n := 0
	for pair := l.Vaults.Oldest(); pair != nil; pair = pair.Next() {
		n += pair.Value.Stakers.Len()
	}
	return n
}
