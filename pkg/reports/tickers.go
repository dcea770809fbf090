package reports

import (
	"fmt"
	"os"

	"github.com/NFTX-project/accounting/pkg/utils"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPlaceholder = "UNKNOWN"

	// minTickerTableVersion is the oldest tickers.yaml layout this build reads.
	minTickerTableVersion = "v1.0.0"
)

type VaultTicker struct {
	Address string `yaml:"address"`
	Ticker  string `yaml:"ticker"`
	Ordinal int    `yaml:"ordinal"`
}

// TickerTable maps known vault addresses to a display ticker and a fixed
// report ordinal.
type TickerTable struct {
	Version           string        `yaml:"version"`
	Placeholder       string        `yaml:"placeholder"`
	Vaults            []VaultTicker `yaml:"vaults"`
	ExcludedAddresses []string      `yaml:"excludedAddresses"`

	byAddress map[string]*VaultTicker
}

func NewTickerTable(placeholder string, vaults []VaultTicker) *TickerTable {
	t := &TickerTable{
		Version:     minTickerTableVersion,
		Placeholder: placeholder,
		Vaults:      vaults,
	}
	t.index()
	return t
}

func (t *TickerTable) index() {
	if t.Placeholder == "" {
		t.Placeholder = DefaultPlaceholder
	}
	t.byAddress = make(map[string]*VaultTicker, len(t.Vaults))
	for i := range t.Vaults {
		t.byAddress[utils.NormalizeAddress(t.Vaults[i].Address)] = &t.Vaults[i]
	}
}

func ParseTickerTable(data []byte) (*TickerTable, error) {
	t := &TickerTable{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, errors.Wrap(err, "failed to parse ticker table")
	}

	if !semver.IsValid(t.Version) {
		return nil, fmt.Errorf("ticker table version '%s' is not a valid semver", t.Version)
	}
	if semver.Compare(t.Version, minTickerTableVersion) < 0 {
		return nil, fmt.Errorf("ticker table version '%s' is older than %s", t.Version, minTickerTableVersion)
	}

	seen := make(map[string]struct{}, len(t.Vaults))
	for _, v := range t.Vaults {
		addr := utils.NormalizeAddress(v.Address)
		if addr == "" {
			return nil, fmt.Errorf("ticker table entry '%s' has no address", v.Ticker)
		}
		if _, ok := seen[addr]; ok {
			return nil, fmt.Errorf("ticker table lists vault '%s' more than once", addr)
		}
		seen[addr] = struct{}{}
	}

	t.index()
	return t, nil
}

func LoadTickerTable(path string) (*TickerTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ticker table '%s'", path)
	}
	return ParseTickerTable(data)
}

// Resolve returns the table ticker for vault, then fallback, then the
// placeholder.
func (t *TickerTable) Resolve(vault, fallback string) string {
	if t != nil {
		if vt, ok := t.byAddress[utils.NormalizeAddress(vault)]; ok && vt.Ticker != "" {
			return vt.Ticker
		}
	}
	if fallback != "" {
		return fallback
	}
	if t == nil {
		return DefaultPlaceholder
	}
	return t.Placeholder
}

func (t *TickerTable) Ordinal(vault string) (int, bool) {
	if t == nil {
		return 0, false
	}
	vt, ok := t.byAddress[utils.NormalizeAddress(vault)]
	if !ok {
		return 0, false
	}
	return vt.Ordinal, true
}
