package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/metrics"
	"github.com/NFTX-project/accounting/pkg/metrics/metricsTypes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnexpectedClaim = errors.New("claims are applied by the reconciler, not replayed")
	ErrUnorderedEvents = errors.New("events are not in replay order")
)

type ReplayConfig struct {
	// Parallelism > 1 replays up to that many vaults concurrently. Vaults
	// share no state, and the merged ledger is identical to a sequential run.
	Parallelism int
	// OnEventReplayed, if set, is called after every event. It must be safe
	// for concurrent use when Parallelism > 1.
	OnEventReplayed func(e *events.Event)
}

type ReplayEngine struct {
	config  *ReplayConfig
	logger  *zap.Logger
	metrics *metrics.MetricsSink
}

func NewReplayEngine(cfg *ReplayConfig, l *zap.Logger, ms *metrics.MetricsSink) *ReplayEngine {
	if cfg == nil {
		cfg = &ReplayConfig{}
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &ReplayEngine{
		config:  cfg,
		logger:  l,
		metrics: ms,
	}
}

// Replay folds an ordered event log (see events.SortForReplay) into a new
// Ledger. Each event's Sequence is reset to its index in evs.
//
// Anomalies never stop the pass; they are collected in Ledger.Anomalies.
func (re *ReplayEngine) Replay(ctx context.Context, evs []*events.Event) (*Ledger, error) {
	if err := re.validate(evs); err != nil {
		return nil, err
	}
	start := time.Now()

	l := NewLedger()
	l.Events = evs
	for i, e := range evs {
		e.Sequence = i
	}

	parallel := re.config.Parallelism > 1
	var err error
	if parallel {
		err = re.replayParallel(ctx, l)
	} else {
		err = re.replaySequential(ctx, l)
	}
	if err != nil {
		return nil, err
	}

	re.logger.Sugar().Infow("Replay complete",
		zap.String("runId", l.RunId),
		zap.Int("events", len(evs)),
		zap.Int("vaults", l.Vaults.Len()),
		zap.Int("stakers", l.StakerCount()),
		zap.Int("anomalies", l.Anomalies.Len()),
		zap.Bool("parallel", parallel),
		zap.Duration("duration", time.Since(start)),
	)
	re.emitMetrics(l, parallel, time.Since(start))
	return l, nil
}

func (re *ReplayEngine) validate(evs []*events.Event) error {
	for i, e := range evs {
		if e.Kind == events.Kind_Claim {
			return fmt.Errorf("%w: event %d %s", ErrUnexpectedClaim, i, e.String())
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	if !events.IsReplayOrdered(evs) {
		return ErrUnorderedEvents
	}
	return nil
}

func (re *ReplayEngine) getOrCreateVault(l *Ledger, e *events.Event) *Vault {
	if v, ok := l.Vaults.Get(e.Vault); ok {
		if v.Ticker == "" && e.Ticker != "" {
			v.Ticker = e.Ticker
		}
		return v
	}
	v := newVault(e.Vault, e.Ticker)
	l.Vaults.Set(e.Vault, v)
	re.logger.Sugar().Debugw("New vault",
		zap.String("vault", e.Vault),
		zap.String("ticker", e.Ticker),
		zap.Int("eventIndex", e.Sequence),
	)
	return v
}

func (re *ReplayEngine) replaySequential(ctx context.Context, l *Ledger) error {
	for _, e := range l.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := re.getOrCreateVault(l, e)
		re.apply(v, e, l.Anomalies)
	}
	return nil
}

// replayParallel creates every vault up front, in order of first
// appearance, then replays each vault's slice of the log in its own goroutine.
func (re *ReplayEngine) replayParallel(ctx context.Context, l *Ledger) error {
	order, groups := events.GroupByVault(l.Events)

	vaults := make([]*Vault, len(order))
	logs := make([]*AnomalyLog, len(order))
	for i, id := range order {
		vaults[i] = re.getOrCreateVault(l, groups[id][0])
		logs[i] = NewAnomalyLog()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(re.config.Parallelism)
	for i, id := range order {
		v, log, vaultEvents := vaults[i], logs[i], groups[id]
		g.Go(func() error {
			for _, e := range vaultEvents {
				if err := gctx.Err(); err != nil {
					return err
				}
				if v.Ticker == "" && e.Ticker != "" {
					v.Ticker = e.Ticker
				}
				re.apply(v, e, log)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.Anomalies = mergeAnomalyLogs(logs)
	return nil
}

func (re *ReplayEngine) apply(v *Vault, e *events.Event, log *AnomalyLog) {
	before := log.Len()

	switch e.Kind {
	case events.Kind_Deposit:
		v.applyDeposit(e, log)
	case events.Kind_Withdrawal:
		v.applyWithdrawal(e, log)
	case events.Kind_FeeReceipt:
		alloc := v.allocateFee(e, log)
		if alloc.ToDao {
			re.logger.Sugar().Debugw("Fee receipt with no eligible stakers accrued to dao fees",
				zap.String("vault", v.Id),
				zap.String("amount", e.Amount.String()),
				zap.Int("eventIndex", e.Sequence),
			)
		}
	}

	for _, a := range log.All()[before:] {
		re.logger.Sugar().Warnw("Replay anomaly",
			zap.String("kind", string(a.Kind)),
			zap.Int("eventIndex", a.Sequence),
			zap.Uint64("time", a.Time),
			zap.String("vault", a.Vault),
			zap.String("user", a.User),
			zap.String("magnitude", a.Magnitude.String()),
		)
	}

	if re.config.OnEventReplayed != nil {
		re.config.OnEventReplayed(e)
	}
}

func (re *ReplayEngine) emitMetrics(l *Ledger, parallel bool, duration time.Duration) {
	counts := make(map[events.Kind]int)
	for _, e := range l.Events {
		counts[e.Kind]++
	}
	for kind, n := range counts {
		if err := re.metrics.Incr(metricsTypes.Metric_Incr_EventsReplayed, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: kind.String()},
		}, float64(n)); err != nil {
			re.logMetricError(metricsTypes.Metric_Incr_EventsReplayed, err)
		}
	}
	for kind, n := range l.Anomalies.CountByKind() {
		if n == 0 {
			continue
		}
		if err := re.metrics.Incr(metricsTypes.Metric_Incr_AnomaliesRecorded, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: string(kind)},
		}, float64(n)); err != nil {
			re.logMetricError(metricsTypes.Metric_Incr_AnomaliesRecorded, err)
		}
	}
	if err := re.metrics.Gauge(metricsTypes.Metric_Gauge_VaultsReplayed, float64(l.Vaults.Len()), nil); err != nil {
		re.logMetricError(metricsTypes.Metric_Gauge_VaultsReplayed, err)
	}
	if err := re.metrics.Timing(metricsTypes.Metric_Timing_ReplayDuration, duration, []metricsTypes.MetricsLabel{
		{Name: "parallel", Value: strconv.FormatBool(parallel)},
	}); err != nil {
		re.logMetricError(metricsTypes.Metric_Timing_ReplayDuration, err)
	}
}

func (re *ReplayEngine) logMetricError(name string, err error) {
	re.logger.Sugar().Warnw("Failed to emit metric", zap.String("metric", name), zap.Error(err))
}
