// Package loader reads a subgraph export of vault activity and normalizes it
// into replayable events.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
	"github.com/NFTX-project/accounting/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("input file not found")

const DropReason_ZapWithdrawal = "zapWithdrawalExcluded"

// DroppedRecord is an input record that was read but deliberately not turned
// into an event.
type DroppedRecord struct {
	Kind    string           `json:"kind"`
	Id      string           `json:"id"`
	Vault   string           `json:"vault"`
	User    string           `json:"user"`
	Time    uint64           `json:"time"`
	Amounts []numbers.Amount `json:"amounts"`
	Reason  string           `json:"reason"`
}

type Input struct {
	// Events holds deposits, fee receipts and withdrawals in input order.
	Events  []*events.Event
	Claims  []*events.Event
	Dropped []*DroppedRecord
}

// All returns Events followed by Claims.
func (i *Input) All() []*events.Event {
	out := make([]*events.Event, 0, len(i.Events)+len(i.Claims))
	out = append(out, i.Events...)
	return append(out, i.Claims...)
}

type Loader struct {
	config     *config.InputConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func DefaultHttpClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
	}
}

func NewLoader(cfg *config.InputConfig, l *zap.Logger) *Loader {
	return &Loader{
		config:     cfg,
		httpClient: DefaultHttpClient(),
		logger:     l,
	}
}

func (ld *Loader) SetHttpClient(client *http.Client) {
	ld.httpClient = client
}

func (ld *Loader) isRemote() bool {
	return strings.HasPrefix(ld.config.Location, "http://") || strings.HasPrefix(ld.config.Location, "https://")
}

func (ld *Loader) read(ctx context.Context, name string) ([]byte, error) {
	if !ld.isRemote() {
		p := filepath.Join(ld.config.Location, name)
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(ErrNotFound, "%s", p)
			}
			return nil, errors.Wrapf(err, "failed to read %s", p)
		}
		return data, nil
	}

	url := strings.TrimRight(ld.config.Location, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("accept", "application/json")

	ld.logger.Sugar().Debugw("Fetching input", zap.String("url", url))
	resp, err := ld.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response body from %s", url)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(ErrNotFound, "%s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s failed with status %d: %s", url, resp.StatusCode, string(body))
	}
	return body, nil
}

func (ld *Loader) decode(ctx context.Context, name string, v any, optional bool) (bool, error) {
	data, err := ld.read(ctx, name)
	if err != nil {
		if optional && errors.Is(err, ErrNotFound) {
			ld.logger.Sugar().Infow("Optional input file not present", zap.String("file", name))
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "failed to decode %s", name)
	}
	return true, nil
}

// Load reads every input file and normalizes the records. A missing required
// file, a malformed amount or date, or (in strict mode) an invalid address
// fails the whole load.
func (ld *Loader) Load(ctx context.Context) (*Input, error) {
	var (
		deposits    depositsFile
		withdrawals withdrawalsFile
		fees        feesFile
		claims      claimsFile
		zaps        zapsFile
	)
	if _, err := ld.decode(ctx, File_Deposits, &deposits, false); err != nil {
		return nil, err
	}
	if _, err := ld.decode(ctx, File_Withdrawals, &withdrawals, false); err != nil {
		return nil, err
	}
	if _, err := ld.decode(ctx, File_Fees, &fees, false); err != nil {
		return nil, err
	}
	if _, err := ld.decode(ctx, File_Claims, &claims, false); err != nil {
		return nil, err
	}
	hasZaps, err := ld.decode(ctx, File_Zaps, &zaps, true)
	if err != nil {
		return nil, err
	}

	n := &normalizer{strict: ld.config.StrictAddresses}
	input := &Input{
		Events:  make([]*events.Event, 0),
		Claims:  make([]*events.Event, 0),
		Dropped: make([]*DroppedRecord, 0),
	}

	for _, d := range deposits.Data.Deposits {
		e, err := n.event(events.Kind_Deposit, d.Id, d.Pool.Vault, d.User.Id, d.Deposit, uint64(d.Date), events.Source_Subgraph)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", File_Deposits)
		}
		input.Events = append(input.Events, e)
	}
	if hasZaps {
		for _, z := range zaps.Data.ZapDeposits {
			e, err := n.zap(events.Kind_Deposit, z)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", File_Zaps)
			}
			input.Events = append(input.Events, e)
		}
	}
	for _, f := range fees.Data.FeeReceipts {
		e, err := n.event(events.Kind_FeeReceipt, f.Id, f.Vault, "", f.Amount, uint64(f.Date), events.Source_Subgraph)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", File_Fees)
		}
		input.Events = append(input.Events, e)
	}
	for _, w := range withdrawals.Data.Withdrawals {
		e, err := n.event(events.Kind_Withdrawal, w.Id, w.Pool.Vault, w.User.Id, w.Withdrawal, uint64(w.Date), events.Source_Subgraph)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", File_Withdrawals)
		}
		input.Events = append(input.Events, e)
	}
	if hasZaps {
		for _, z := range zaps.Data.ZapWithdrawals {
			if !ld.config.IncludeZapWithdrawals {
				if len(z.Amounts) == 0 {
					return nil, errors.Wrapf(fmt.Errorf("zap '%s' has no amounts", z.Id), "%s", File_Zaps)
				}
				input.Dropped = append(input.Dropped, &DroppedRecord{
					Kind:    "zapWithdrawal",
					Id:      z.Id,
					Vault:   utils.NormalizeAddress(z.Vault.Id),
					User:    utils.NormalizeAddress(z.User.Id),
					Time:    uint64(z.Date),
					Amounts: z.Amounts,
					Reason:  DropReason_ZapWithdrawal,
				})
				continue
			}
			e, err := n.zap(events.Kind_Withdrawal, z)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", File_Zaps)
			}
			input.Events = append(input.Events, e)
		}
	}
	for _, c := range claims.Data.Claims {
		e, err := n.event(events.Kind_Claim, c.Id, c.vault(), c.User.Id, c.Amount, uint64(c.Date), events.Source_Subgraph)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", File_Claims)
		}
		e.InputIndex = len(input.Claims)
		input.Claims = append(input.Claims, e)
	}

	for i, e := range input.Events {
		e.InputIndex = i
	}

	if len(input.Dropped) > 0 {
		ld.logger.Sugar().Warnw("Zap withdrawals excluded from replay",
			zap.Int("count", len(input.Dropped)),
			zap.String("enableWith", "--"+config.InputIncludeZapWithdrawals),
		)
	}
	ld.logger.Sugar().Infow("Loaded input",
		zap.String("location", ld.config.Location),
		zap.Int("events", len(input.Events)),
		zap.Int("claims", len(input.Claims)),
		zap.Int("dropped", len(input.Dropped)),
	)
	return input, nil
}

type normalizer struct {
	strict bool
}

func (n *normalizer) address(field, id, value string) (string, error) {
	addr := utils.NormalizeAddress(value)
	if addr == "" {
		return "", fmt.Errorf("record '%s' has no %s", id, field)
	}
	if n.strict && !common.IsHexAddress(addr) {
		return "", fmt.Errorf("record '%s' has invalid %s address '%s'", id, field, value)
	}
	return addr, nil
}

func (n *normalizer) event(kind events.Kind, id string, vault subgraphVault, user string, amount numbers.Amount, ts uint64, source string) (*events.Event, error) {
	vaultId, err := n.address("vault", id, vault.Id)
	if err != nil {
		return nil, err
	}
	e := &events.Event{
		Kind:   kind,
		Vault:  vaultId,
		Amount: amount,
		Time:   ts,
		Id:     id,
		Ticker: vault.Token.Symbol,
		Source: source,
	}
	if kind != events.Kind_FeeReceipt {
		if e.User, err = n.address("user", id, user); err != nil {
			return nil, err
		}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// zap flattens a composite zap into a plain event carrying only its first leg.
func (n *normalizer) zap(kind events.Kind, z subgraphZap) (*events.Event, error) {
	if len(z.Amounts) == 0 {
		return nil, fmt.Errorf("zap '%s' has no amounts", z.Id)
	}
	return n.event(kind, z.Id, z.Vault, z.User.Id, z.Amounts[0], uint64(z.Date), events.Source_Zap)
}
