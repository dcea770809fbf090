// Package events defines the normalized vault events consumed by the ledger
// and the total order they are replayed in.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

// Kind identifies which of the four vault events a record is.
type Kind int

const (
	Kind_Deposit Kind = iota
	Kind_FeeReceipt
	Kind_Withdrawal
	Kind_Claim
)

var kindNames = map[Kind]string{
	Kind_Deposit:    "deposit",
	Kind_FeeReceipt: "fee",
	Kind_Withdrawal: "withdrawal",
	Kind_Claim:      "claim",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unsupported event kind '%s'", s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event sources recorded on normalized events.
const (
	Source_Subgraph = "subgraph"
	Source_Zap      = "zap"
)

// Event is a single normalized vault event. User is empty for fee receipts.
type Event struct {
	Kind   Kind           `json:"kind"`
	Vault  string         `json:"vaultId"`
	User   string         `json:"user,omitempty"`
	Amount numbers.Amount `json:"amount"`
	// Time is a logical ordinal (block number). Ties are expected.
	Time uint64 `json:"time"`

	Id     string `json:"id,omitempty"`
	Ticker string `json:"ticker,omitempty"`
	Source string `json:"source,omitempty"`

	// InputIndex is the position of the record in the loaded input.
	InputIndex int `json:"inputIndex"`
	// Sequence is the position in the ordered log, set by SortForReplay and SortClaims.
	Sequence int `json:"sequence"`
}

func (e *Event) IsStakeChange() bool {
	return e.Kind == Kind_Deposit || e.Kind == Kind_Withdrawal
}

func (e *Event) String() string {
	return fmt.Sprintf("%s(vault=%s user=%s amount=%s time=%d)", e.Kind, e.Vault, e.User, e.Amount.String(), e.Time)
}

// Validate checks the fields every event kind requires.
func (e *Event) Validate() error {
	if e.Vault == "" {
		return fmt.Errorf("%s event '%s' has no vault", e.Kind, e.Id)
	}
	if e.Kind != Kind_FeeReceipt && e.User == "" {
		return fmt.Errorf("%s event '%s' has no user", e.Kind, e.Id)
	}
	if e.Kind == Kind_FeeReceipt && e.User != "" {
		return fmt.Errorf("fee event '%s' must not carry a user", e.Id)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%s event '%s' has negative amount %s", e.Kind, e.Id, e.Amount.String())
	}
	if _, ok := kindNames[e.Kind]; !ok {
		return fmt.Errorf("event '%s' has unsupported kind %d", e.Id, int(e.Kind))
	}
	return nil
}

func NewDeposit(vault, user string, amount numbers.Amount, time uint64) *Event {
	return &Event{Kind: Kind_Deposit, Vault: vault, User: user, Amount: amount, Time: time}
}

func NewWithdrawal(vault, user string, amount numbers.Amount, time uint64) *Event {
	return &Event{Kind: Kind_Withdrawal, Vault: vault, User: user, Amount: amount, Time: time}
}

func NewFeeReceipt(vault string, amount numbers.Amount, time uint64) *Event {
	return &Event{Kind: Kind_FeeReceipt, Vault: vault, Amount: amount, Time: time}
}

func NewClaim(vault, user string, amount numbers.Amount, time uint64) *Event {
	return &Event{Kind: Kind_Claim, Vault: vault, User: user, Amount: amount, Time: time}
}
