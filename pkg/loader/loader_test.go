package loader

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/internal/logger"
	"github.com/NFTX-project/accounting/internal/tests"
	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/types/numbers"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	punkVault = "0x1111111111111111111111111111111111111111"
	maycVault = "0x2222222222222222222222222222222222222222"
	userA     = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	userB     = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	userC     = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func setup(t *testing.T) (string, *zap.Logger) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	dir := t.TempDir()
	assert.Nil(t, tests.WriteSubgraphFixtures(dir))
	return dir, l
}

func countKind(evs []*events.Event, kind events.Kind) int {
	n := 0
	for _, e := range evs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func Test_LoadLocal(t *testing.T) {
	t.Run("Should load and normalize a subgraph export", func(t *testing.T) {
		dir, l := setup(t)
		input, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.Nil(t, err)

		assert.Len(t, input.Events, 9)
		assert.Equal(t, 4, countKind(input.Events, events.Kind_Deposit))
		assert.Equal(t, 4, countKind(input.Events, events.Kind_FeeReceipt))
		assert.Equal(t, 1, countKind(input.Events, events.Kind_Withdrawal))
		assert.Len(t, input.Claims, 2)
		assert.Len(t, input.All(), 11)

		first := input.Events[0]
		assert.Equal(t, userA, first.User)
		assert.Equal(t, punkVault, first.Vault)
		assert.Equal(t, "PUNK", first.Ticker)
		assert.Equal(t, uint64(100), first.Time)
		assert.Equal(t, events.Source_Subgraph, first.Source)
		assert.Equal(t, 0, first.InputIndex)

		// bare number date and scientific notation amount
		assert.Equal(t, uint64(105), input.Events[2].Time)
		assert.True(t, input.Events[2].Amount.Equal(numbers.MustParseAmount("2000000000000000000")))

		for i, e := range input.Events {
			assert.Equal(t, i, e.InputIndex)
		}
	})

	t.Run("Should flatten a zap deposit to its first leg", func(t *testing.T) {
		dir, l := setup(t)
		input, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.Nil(t, err)

		z := input.Events[3]
		assert.Equal(t, events.Kind_Deposit, z.Kind)
		assert.Equal(t, events.Source_Zap, z.Source)
		assert.Equal(t, maycVault, z.Vault)
		assert.True(t, z.Amount.Equal(numbers.MustParseAmount("1000000000000000000")))
	})

	t.Run("Should drop zap withdrawals by default and report them", func(t *testing.T) {
		dir, l := setup(t)
		input, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.Nil(t, err)

		assert.Len(t, input.Dropped, 1)
		d := input.Dropped[0]
		assert.Equal(t, "0xzw1", d.Id)
		assert.Equal(t, userC, d.User)
		assert.Equal(t, DropReason_ZapWithdrawal, d.Reason)
		assert.Len(t, d.Amounts, 1)
	})

	t.Run("Should include zap withdrawals when configured", func(t *testing.T) {
		dir, l := setup(t)
		input, err := NewLoader(&config.InputConfig{Location: dir, IncludeZapWithdrawals: true}, l).Load(context.Background())
		assert.Nil(t, err)

		assert.Len(t, input.Dropped, 0)
		assert.Equal(t, 2, countKind(input.Events, events.Kind_Withdrawal))
		w := input.Events[len(input.Events)-1]
		assert.Equal(t, events.Source_Zap, w.Source)
		assert.Equal(t, userC, w.User)
	})

	t.Run("Should read the claim vault from either vault or pool", func(t *testing.T) {
		dir, l := setup(t)
		input, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.Nil(t, err)

		assert.Equal(t, punkVault, input.Claims[0].Vault)
		assert.Equal(t, punkVault, input.Claims[1].Vault)
		assert.Equal(t, userB, input.Claims[1].User)
		assert.Equal(t, events.Kind_Claim, input.Claims[1].Kind)
	})

	t.Run("Should treat zaps as optional", func(t *testing.T) {
		dir, l := setup(t)
		assert.Nil(t, os.Remove(filepath.Join(dir, File_Zaps)))

		input, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.Nil(t, err)
		assert.Len(t, input.Events, 8)
		assert.Len(t, input.Dropped, 0)
	})

	t.Run("Should fail when a required file is missing", func(t *testing.T) {
		dir, l := setup(t)
		assert.Nil(t, os.Remove(filepath.Join(dir, File_Fees)))

		_, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Should fail on a malformed amount", func(t *testing.T) {
		dir, l := setup(t)
		assert.Nil(t, os.WriteFile(filepath.Join(dir, File_Fees), []byte(`{"data":{"feeReceipts":[
			{"id":"0xf","date":"1","amount":"1.5","vault":{"id":"0x1111111111111111111111111111111111111111"}}
		]}}`), 0o644))

		_, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.ErrorIs(t, err, numbers.ErrInvalidAmount)
	})

	t.Run("Should fail on a zap without legs", func(t *testing.T) {
		dir, l := setup(t)
		assert.Nil(t, os.WriteFile(filepath.Join(dir, File_Zaps), []byte(`{"data":{"zapDeposits":[
			{"id":"0xz","date":"1","user":{"id":"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},"vault":{"id":"0x1111111111111111111111111111111111111111"},"amounts":[]}
		]}}`), 0o644))

		_, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "no amounts")
	})

	t.Run("Should reject invalid addresses only in strict mode", func(t *testing.T) {
		dir, l := setup(t)
		assert.Nil(t, os.WriteFile(filepath.Join(dir, File_Withdrawals), []byte(`{"data":{"withdrawals":[
			{"id":"0xw","date":"1","withdrawal":"1","user":{"id":"not-an-address"},"pool":{"vault":{"id":"0x1111111111111111111111111111111111111111"}}}
		]}}`), 0o644))

		_, err := NewLoader(&config.InputConfig{Location: dir}, l).Load(context.Background())
		assert.Nil(t, err)

		_, err = NewLoader(&config.InputConfig{Location: dir, StrictAddresses: true}, l).Load(context.Background())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "invalid user address")
	})
}

func Test_LoadRemote(t *testing.T) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	baseUrl := "https://subgraph-export.example.com/nftx/"

	register := func(t *testing.T, skip string) {
		for _, name := range tests.SubgraphFixtureFiles {
			if name == skip {
				httpmock.RegisterResponder("GET", baseUrl+name, httpmock.NewStringResponder(404, "not found"))
				continue
			}
			data, err := tests.GetSubgraphFixture(name)
			assert.Nil(t, err)
			httpmock.RegisterResponder("GET", baseUrl+name, httpmock.NewBytesResponder(200, data))
		}
	}

	t.Run("Should load a subgraph export over http", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()
		register(t, "")

		ld := NewLoader(&config.InputConfig{Location: baseUrl}, l)
		ld.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})
		input, err := ld.Load(context.Background())
		assert.Nil(t, err)
		assert.Len(t, input.Events, 9)
		assert.Len(t, input.Claims, 2)
		assert.Equal(t, len(tests.SubgraphFixtureFiles), httpmock.GetTotalCallCount())
	})

	t.Run("Should treat a 404 for zaps as absent", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()
		register(t, File_Zaps)

		ld := NewLoader(&config.InputConfig{Location: baseUrl}, l)
		ld.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})
		input, err := ld.Load(context.Background())
		assert.Nil(t, err)
		assert.Len(t, input.Events, 8)
	})

	t.Run("Should fail on a server error", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()
		register(t, "")
		httpmock.RegisterResponder("GET", baseUrl+File_Deposits, httpmock.NewStringResponder(500, "boom"))

		ld := NewLoader(&config.InputConfig{Location: baseUrl}, l)
		ld.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})
		_, err := ld.Load(context.Background())
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}
