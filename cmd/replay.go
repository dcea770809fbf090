package cmd

import (
	"context"
	"fmt"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/internal/logger"
	"github.com/NFTX-project/accounting/internal/tracer"
	"github.com/NFTX-project/accounting/internal/version"
	"github.com/NFTX-project/accounting/pkg/eventBus"
	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/ledger"
	"github.com/NFTX-project/accounting/pkg/loader"
	"github.com/NFTX-project/accounting/pkg/metrics"
	"github.com/NFTX-project/accounting/pkg/pipeline"
	"github.com/NFTX-project/accounting/pkg/postgres"
	"github.com/NFTX-project/accounting/pkg/reports"
	"github.com/NFTX-project/accounting/pkg/storage"
	pgStorage "github.com/NFTX-project/accounting/pkg/storage/postgres"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a subgraph export and write the fee reconciliation reports",
	Long: `Load deposits, withdrawals, fee receipts and claims from a subgraph export,
replay them in block order to compute every staker's fee entitlement, and compare
it with what was claimed.

The input is a local directory or an http(s) base URL containing deposits.json,
withdrawals.json, fees.json, claims.json and optionally zaps.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := context.Background()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		defer l.Sync() //nolint:errcheck

		l.Sugar().Infow("accounting replay",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("input", cfg.InputConfig.Location),
			zap.String("output", cfg.OutputConfig.Dir),
		)

		tracer.StartTracer(cfg.DataDogConfig.TracingConfig.Enabled, version.GetVersion())
		defer tracer.StopTracer()

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
			return err
		}
		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
			return err
		}
		defer sink.Flush()

		var tickers *reports.TickerTable
		if cfg.ReportConfig.TickersFile != "" {
			tickers, err = reports.LoadTickerTable(cfg.ReportConfig.TickersFile)
			if err != nil {
				l.Sugar().Errorw("Failed to load ticker table", zap.Error(err))
				return err
			}
		}

		var runStore storage.RunStore
		if cfg.DatabaseConfig.Enabled {
			_, grm, err := postgres.Open(cfg, l)
			if err != nil {
				l.Sugar().Errorw("Failed to open database", zap.Error(err))
				return err
			}
			runStore = pgStorage.NewPostgresRunStore(grm, l, cfg)
		}

		ld := loader.NewLoader(&cfg.InputConfig, l)
		input, err := ld.Load(ctx)
		if err != nil {
			l.Sugar().Errorw("Failed to load input", zap.Error(err))
			return err
		}

		replayConfig := &ledger.ReplayConfig{
			Parallelism: cfg.ReplayConfig.Parallelism,
		}
		if cfg.ReplayConfig.Progress {
			bar := progressbar.Default(int64(len(input.Events)), "replaying")
			defer bar.Finish() //nolint:errcheck
			// progressbar guards its state with a mutex, so the hook is safe
			// for parallel replays.
			replayConfig.OnEventReplayed = func(e *events.Event) {
				_ = bar.Add(1)
			}
		}

		p := pipeline.NewPipeline(
			ld,
			ledger.NewReplayEngine(replayConfig, l, sink),
			reports.NewBuilder(&reports.BuilderConfig{
				Tickers:           tickers,
				ExcludedAddresses: cfg.ReportConfig.ExcludedAddresses,
			}, l),
			reports.NewArtifactWriter(cfg.OutputConfig.Dir, l),
			runStore,
			cfg,
			sink,
			eventBus.NewEventBus(l),
			l,
		)

		result, err := p.RunForInput(ctx, input)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %d claims applied, %d stakers overpaid (%s), %d stakers owed (%s), %d anomalies\n",
			result.RunId,
			result.Summary.ClaimsApplied,
			result.Summary.Overpaid,
			result.Summary.TotalOverpaid.Format(),
			result.Summary.Underpaid,
			result.Summary.TotalOwed.Format(),
			result.Ledger.Anomalies.Len(),
		)
		for _, a := range result.Artifacts {
			fmt.Println(a)
		}
		return nil
	},
}
