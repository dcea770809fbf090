// Package reports projects a reconciled ledger into vault summaries, the
// overpaid/underpaid reports and their CSV exports.
package reports

import (
	"sort"

	"github.com/NFTX-project/accounting/pkg/ledger"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
	"github.com/NFTX-project/accounting/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type StakerDetail struct {
	Vault         string         `json:"vault" csv:"vault"`
	Ticker        string         `json:"ticker" csv:"ticker"`
	Address       string         `json:"address" csv:"address"`
	StakedAmount  numbers.Amount `json:"stakedAmount" csv:"stakedAmount"`
	StakedPortion numbers.Amount `json:"stakedPortion" csv:"stakedPortion"`
	FeesEarned    numbers.Amount `json:"feesEarned" csv:"feesEarned"`
	FeesClaimed   numbers.Amount `json:"feesClaimed" csv:"feesClaimed"`
	Owed          numbers.Amount `json:"owed" csv:"owed"`
	Overpaid      numbers.Amount `json:"overpaid" csv:"overpaid"`
}

type OwedRow struct {
	Address string         `json:"address" csv:"address"`
	Owed    numbers.Amount `json:"owedAmount" csv:"owedAmount"`
}

type VaultSummary struct {
	Vault   string `json:"vault"`
	Ticker  string `json:"ticker"`
	Ordinal *int   `json:"ordinal,omitempty"`

	TotalStaked      numbers.Amount `json:"totalStaked"`
	DaoFees          numbers.Amount `json:"daoFees"`
	RetainedResidual numbers.Amount `json:"retainedResidual"`

	TotalEarned    numbers.Amount `json:"totalEarned"`
	TotalClaimed   numbers.Amount `json:"totalClaimed"`
	TotalOverpaid  numbers.Amount `json:"totalOverpaid"`
	TotalOwed      numbers.Amount `json:"totalOwed"`
	OverpaidCount  int            `json:"overpaidCount"`
	UnderpaidCount int            `json:"underpaidCount"`

	// Stakers is sorted by address.
	Stakers []*StakerDetail `json:"stakers"`
	// OwedExport holds stakers with a positive owed amount, minus exclusions.
	OwedExport []*OwedRow `json:"owedExport"`
}

type Report struct {
	RunId string `json:"runId"`
	// Vaults is every vault, in ledger order.
	Vaults []*VaultSummary `json:"vaults"`
	// Overpaid and Underpaid are sorted by vault ordinal.
	Overpaid  []*VaultSummary `json:"overpaid"`
	Underpaid []*VaultSummary `json:"underpaid"`
}

type BuilderConfig struct {
	Tickers           *TickerTable
	ExcludedAddresses []string
}

type Builder struct {
	tickers  *TickerTable
	excluded utils.AddressSet
	logger   *zap.Logger
}

func NewBuilder(cfg *BuilderConfig, l *zap.Logger) *Builder {
	if cfg == nil {
		cfg = &BuilderConfig{}
	}
	tickers := cfg.Tickers
	if tickers == nil {
		tickers = NewTickerTable(DefaultPlaceholder, nil)
	}

	excluded := utils.NewAddressSet()
	for _, a := range append(append([]string{}, tickers.ExcludedAddresses...), cfg.ExcludedAddresses...) {
		if !common.IsHexAddress(a) {
			l.Sugar().Warnw("Excluded address is not a valid hex address", zap.String("address", a))
		}
		excluded.Add(a)
	}

	return &Builder{
		tickers:  tickers,
		excluded: excluded,
		logger:   l,
	}
}

// Build summarizes every vault of a reconciled ledger.
func (b *Builder) Build(l *ledger.Ledger) *Report {
	r := &Report{
		RunId:     l.RunId,
		Vaults:    make([]*VaultSummary, 0, l.Vaults.Len()),
		Overpaid:  make([]*VaultSummary, 0),
		Underpaid: make([]*VaultSummary, 0),
	}

	for _, v := range l.VaultList() {
		vs := b.summarize(v)
		r.Vaults = append(r.Vaults, vs)
		if vs.OverpaidCount > 0 {
			r.Overpaid = append(r.Overpaid, vs)
		}
		if vs.UnderpaidCount > 0 {
			r.Underpaid = append(r.Underpaid, vs)
		}
	}
	sortByOrdinal(r.Overpaid)
	sortByOrdinal(r.Underpaid)

	b.logger.Sugar().Infow("Built reconciliation report",
		zap.String("runId", r.RunId),
		zap.Int("vaults", len(r.Vaults)),
		zap.Int("overpaidVaults", len(r.Overpaid)),
		zap.Int("underpaidVaults", len(r.Underpaid)),
	)
	return r
}

func (b *Builder) summarize(v *ledger.Vault) *VaultSummary {
	vs := &VaultSummary{
		Vault:            v.Id,
		Ticker:           b.tickers.Resolve(v.Id, v.Ticker),
		TotalStaked:      v.TotalStaked,
		DaoFees:          v.DaoFees,
		RetainedResidual: v.RetainedResidual,
		Stakers:          make([]*StakerDetail, 0, v.Stakers.Len()),
		OwedExport:       make([]*OwedRow, 0),
	}
	if ord, ok := b.tickers.Ordinal(v.Id); ok {
		vs.Ordinal = &ord
	}

	for _, s := range v.StakerList() {
		vs.TotalEarned = vs.TotalEarned.Add(s.FeesEarned)
		vs.TotalClaimed = vs.TotalClaimed.Add(s.FeesClaimed)
		vs.TotalOwed = vs.TotalOwed.Add(s.Owed)
		vs.TotalOverpaid = vs.TotalOverpaid.Add(s.Overpaid)
		if s.Overpaid.IsPositive() {
			vs.OverpaidCount++
		}
		if s.Owed.IsPositive() {
			vs.UnderpaidCount++
		}

		vs.Stakers = append(vs.Stakers, &StakerDetail{
			Vault:         v.Id,
			Ticker:        vs.Ticker,
			Address:       s.User,
			StakedAmount:  s.StakedAmount,
			StakedPortion: s.StakedPortion,
			FeesEarned:    s.FeesEarned,
			FeesClaimed:   s.FeesClaimed,
			Owed:          s.Owed,
			Overpaid:      s.Overpaid,
		})
	}
	sort.SliceStable(vs.Stakers, func(i, j int) bool {
		return vs.Stakers[i].Address < vs.Stakers[j].Address
	})
	vs.OwedExport = b.owedExport(vs.Stakers)
	return vs
}

func (b *Builder) owedExport(stakers []*StakerDetail) []*OwedRow {
	owed := utils.Filter(stakers, func(s *StakerDetail) bool {
		return s.Owed.IsPositive() && !b.excluded.Contains(s.Address)
	})
	return utils.Map(owed, func(s *StakerDetail, i uint64) *OwedRow {
		return &OwedRow{Address: s.Address, Owed: s.Owed}
	})
}

// sortByOrdinal orders vaults by ordinal; vaults without one keep their
// relative order after all that have one.
func sortByOrdinal(vs []*VaultSummary) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i].Ordinal, vs[j].Ordinal
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
