package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/NFTX-project/accounting/pkg/types/numbers"
)

// Subgraph export files, relative to the input location.
const (
	File_Deposits    = "deposits.json"
	File_Withdrawals = "withdrawals.json"
	File_Fees        = "fees.json"
	File_Claims      = "claims.json"
	File_Zaps        = "zaps.json"
)

// blockTime is the subgraph's "date" field, exported either as a quoted or a
// bare integer.
type blockTime uint64

func (b *blockTime) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid date '%s': %w", s, err)
	}
	*b = blockTime(v)
	return nil
}

// subgraphUser is either a bare id string or an entity {"id": ...}.
type subgraphUser struct {
	Id string `json:"id"`
}

func (u *subgraphUser) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &u.Id)
	}
	type plain subgraphUser
	return json.Unmarshal(data, (*plain)(u))
}

type subgraphToken struct {
	Symbol string `json:"symbol"`
}

type subgraphVault struct {
	Id    string        `json:"id"`
	Token subgraphToken `json:"token"`
}

type subgraphPool struct {
	Vault subgraphVault `json:"vault"`
}

type subgraphDeposit struct {
	Id      string         `json:"id"`
	Date    blockTime      `json:"date"`
	Deposit numbers.Amount `json:"deposit"`
	User    subgraphUser   `json:"user"`
	Pool    subgraphPool   `json:"pool"`
}

type subgraphWithdrawal struct {
	Id         string         `json:"id"`
	Date       blockTime      `json:"date"`
	Withdrawal numbers.Amount `json:"withdrawal"`
	User       subgraphUser   `json:"user"`
	Pool       subgraphPool   `json:"pool"`
}

type subgraphFeeReceipt struct {
	Id     string         `json:"id"`
	Date   blockTime      `json:"date"`
	Amount numbers.Amount `json:"amount"`
	Vault  subgraphVault  `json:"vault"`
}

type subgraphClaim struct {
	Id     string         `json:"id"`
	Date   blockTime      `json:"date"`
	Amount numbers.Amount `json:"amount"`
	User   subgraphUser   `json:"user"`
	Vault  *subgraphVault `json:"vault"`
	Pool   *subgraphPool  `json:"pool"`
}

func (c *subgraphClaim) vault() subgraphVault {
	if c.Vault != nil && c.Vault.Id != "" {
		return *c.Vault
	}
	if c.Pool != nil {
		return c.Pool.Vault
	}
	return subgraphVault{}
}

type subgraphZap struct {
	Id      string           `json:"id"`
	Date    blockTime        `json:"date"`
	User    subgraphUser     `json:"user"`
	Vault   subgraphVault    `json:"vault"`
	Amounts []numbers.Amount `json:"amounts"`
}

type depositsFile struct {
	Data struct {
		Deposits []subgraphDeposit `json:"deposits"`
	} `json:"data"`
}

type withdrawalsFile struct {
	Data struct {
		Withdrawals []subgraphWithdrawal `json:"withdrawals"`
	} `json:"data"`
}

type feesFile struct {
	Data struct {
		FeeReceipts []subgraphFeeReceipt `json:"feeReceipts"`
	} `json:"data"`
}

type claimsFile struct {
	Data struct {
		Claims []subgraphClaim `json:"claims"`
	} `json:"data"`
}

type zapsFile struct {
	Data struct {
		ZapDeposits    []subgraphZap `json:"zapDeposits"`
		ZapWithdrawals []subgraphZap `json:"zapWithdrawals"`
	} `json:"data"`
}
