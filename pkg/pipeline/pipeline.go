// Package pipeline runs one accounting pass end to end: load the export, order
// and replay it, reconcile claims, build the reports, then write and persist
// the results.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/NFTX-project/accounting/internal/config"
	"github.com/NFTX-project/accounting/pkg/eventBus/eventBusTypes"
	"github.com/NFTX-project/accounting/pkg/events"
	"github.com/NFTX-project/accounting/pkg/ledger"
	"github.com/NFTX-project/accounting/pkg/loader"
	"github.com/NFTX-project/accounting/pkg/metrics"
	"github.com/NFTX-project/accounting/pkg/metrics/metricsTypes"
	"github.com/NFTX-project/accounting/pkg/reconciler"
	"github.com/NFTX-project/accounting/pkg/reports"
	"github.com/NFTX-project/accounting/pkg/storage"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// InputSource produces the normalized input for a run.
type InputSource interface {
	Load(ctx context.Context) (*loader.Input, error)
}

// ArtifactWriter persists the ledger and report of a run and returns the
// locations written.
type ArtifactWriter interface {
	WriteAll(l *ledger.Ledger, r *reports.Report) ([]string, error)
}

// Stage names used in spans, logs and RunFailed events.
const (
	Stage_Load      = "load"
	Stage_Replay    = "replay"
	Stage_Reconcile = "reconcile"
	Stage_Report    = "report"
	Stage_Write     = "write"
	Stage_Persist   = "persist"
)

type RunResult struct {
	RunId     string
	Ledger    *ledger.Ledger
	Summary   *reconciler.Summary
	Report    *reports.Report
	Dropped   []*loader.DroppedRecord
	Artifacts []string
}

type Pipeline struct {
	source       InputSource
	replayEngine *ledger.ReplayEngine
	builder      *reports.Builder
	writer       ArtifactWriter
	runStore     storage.RunStore
	globalConfig *config.Config
	metricsSink  *metrics.MetricsSink
	eventBus     eventBusTypes.IEventBus
	Logger       *zap.Logger
}

// NewPipeline wires a pipeline. writer and rs may be nil, in which case the
// corresponding stage is skipped.
func NewPipeline(
	src InputSource,
	re *ledger.ReplayEngine,
	b *reports.Builder,
	w ArtifactWriter,
	rs storage.RunStore,
	gc *config.Config,
	ms *metrics.MetricsSink,
	eb eventBusTypes.IEventBus,
	l *zap.Logger,
) *Pipeline {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &Pipeline{
		source:       src,
		replayEngine: re,
		builder:      b,
		writer:       w,
		runStore:     rs,
		globalConfig: gc,
		metricsSink:  ms,
		eventBus:     eb,
		Logger:       l,
	}
}

// Run loads the input from the pipeline's source and processes it.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "pipeline.Load")
	input, err := p.source.Load(ctx)
	if err != nil {
		p.Logger.Sugar().Errorw("Failed to load input", zap.Error(err))
		span.SetTag("error", true)
		span.SetTag("error.message", err.Error())
		span.Finish()
		p.HandleRunFailedHook("", Stage_Load, err)
		return nil, err
	}
	span.SetTag("events", len(input.Events))
	span.SetTag("claims", len(input.Claims))
	span.Finish()

	return p.RunForInput(ctx, input)
}

// RunForInput processes an already loaded input. Only a load error or a
// claim against an unknown vault or user fails a run; replay anomalies are
// carried in the result.
func (p *Pipeline) RunForInput(ctx context.Context, input *loader.Input) (*RunResult, error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "pipeline.RunForInput")
	defer span.Finish()

	totalRunTime := time.Now()
	hasError := false
	defer func() {
		_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_RunDuration, time.Since(totalRunTime), []metricsTypes.MetricsLabel{
			{Name: "hasError", Value: strconv.FormatBool(hasError)},
		})
		span.SetTag("total_duration_ms", time.Since(totalRunTime).Milliseconds())
		span.SetTag("has_error", hasError)
	}()

	fail := func(runId string, stage string, err error) error {
		hasError = true
		span.SetTag("error", true)
		span.SetTag("error.message", err.Error())
		span.SetTag("failed_stage", stage)
		p.HandleRunFailedHook(runId, stage, err)
		return err
	}

	p.recordDropped(input.Dropped)

	// Claims are never replayed, even if the source mixed them into Events.
	replayEvents, strayClaims := events.Partition(input.Events)
	claims := append(append([]*events.Event{}, input.Claims...), strayClaims...)

	replaySpan, replayCtx := ddTracer.StartSpanFromContext(ctx, "pipeline.Replay")
	ordered := events.SortForReplay(replayEvents)
	l, err := p.replayEngine.Replay(replayCtx, ordered)
	if err != nil {
		p.Logger.Sugar().Errorw("Failed to replay events", zap.Error(err))
		replaySpan.SetTag("error", true)
		replaySpan.SetTag("error.message", err.Error())
		replaySpan.Finish()
		return nil, fail("", Stage_Replay, err)
	}
	replaySpan.SetTag("run_id", l.RunId)
	replaySpan.SetTag("events", len(l.Events))
	replaySpan.SetTag("anomalies", l.Anomalies.Len())
	replaySpan.Finish()
	span.SetTag("run_id", l.RunId)

	reconcileSpan, _ := ddTracer.StartSpanFromContext(ctx, "pipeline.Reconcile")
	summary, err := reconciler.Reconcile(l, claims)
	if err != nil {
		p.Logger.Sugar().Errorw("Failed to reconcile claims",
			zap.String("runId", l.RunId),
			zap.Error(err),
		)
		reconcileSpan.SetTag("error", true)
		reconcileSpan.SetTag("error.message", err.Error())
		reconcileSpan.Finish()
		return nil, fail(l.RunId, Stage_Reconcile, err)
	}
	reconcileSpan.SetTag("claims_applied", summary.ClaimsApplied)
	reconcileSpan.Finish()
	p.recordSummary(summary)

	reportSpan, _ := ddTracer.StartSpanFromContext(ctx, "pipeline.BuildReport")
	report := p.builder.Build(l)
	reportSpan.SetTag("overpaid_vaults", len(report.Overpaid))
	reportSpan.SetTag("underpaid_vaults", len(report.Underpaid))
	reportSpan.Finish()

	result := &RunResult{
		RunId:     l.RunId,
		Ledger:    l,
		Summary:   summary,
		Report:    report,
		Dropped:   input.Dropped,
		Artifacts: make([]string, 0),
	}

	if p.writer != nil {
		writeSpan, _ := ddTracer.StartSpanFromContext(ctx, "pipeline.WriteArtifacts")
		artifacts, err := p.writer.WriteAll(l, report)
		if err != nil {
			p.Logger.Sugar().Errorw("Failed to write artifacts",
				zap.String("runId", l.RunId),
				zap.Error(err),
			)
			writeSpan.SetTag("error", true)
			writeSpan.SetTag("error.message", err.Error())
			writeSpan.Finish()
			return nil, fail(l.RunId, Stage_Write, err)
		}
		writeSpan.SetTag("files", len(artifacts))
		writeSpan.Finish()
		result.Artifacts = artifacts
	}

	if p.runStore != nil {
		persistSpan, persistCtx := ddTracer.StartSpanFromContext(ctx, "pipeline.SaveRun")
		location := ""
		if p.globalConfig != nil {
			location = p.globalConfig.InputConfig.Location
		}
		if err := p.runStore.SaveRun(persistCtx, buildRunSnapshot(location, input, result)); err != nil {
			p.Logger.Sugar().Errorw("Failed to persist run",
				zap.String("runId", l.RunId),
				zap.Error(err),
			)
			persistSpan.SetTag("error", true)
			persistSpan.SetTag("error.message", err.Error())
			persistSpan.Finish()
			return nil, fail(l.RunId, Stage_Persist, err)
		}
		persistSpan.Finish()
	}

	p.Logger.Sugar().Infow("Run complete",
		zap.String("runId", l.RunId),
		zap.Int("events", len(l.Events)),
		zap.Int("claims", summary.ClaimsApplied),
		zap.Int("anomalies", l.Anomalies.Len()),
		zap.Int("overpaidStakers", summary.Overpaid),
		zap.Int("underpaidStakers", summary.Underpaid),
		zap.String("totalOwed", summary.TotalOwed.Format()),
		zap.Duration("duration", time.Since(totalRunTime)),
	)
	p.HandleRunCompletedHook(result)
	return result, nil
}

func (p *Pipeline) recordDropped(dropped []*loader.DroppedRecord) {
	counts := make(map[string]int)
	for _, d := range dropped {
		counts[d.Reason]++
	}
	for reason, n := range counts {
		_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_EventsDropped, []metricsTypes.MetricsLabel{
			{Name: "reason", Value: reason},
		}, float64(n))
	}
}

func (p *Pipeline) recordSummary(s *reconciler.Summary) {
	_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_ClaimsApplied, nil, float64(s.ClaimsApplied))
	_ = p.metricsSink.Gauge(metricsTypes.Metric_Gauge_StakersOwed, float64(s.Underpaid), nil)
	_ = p.metricsSink.Gauge(metricsTypes.Metric_Gauge_StakersOverpaid, float64(s.Overpaid), nil)
}
