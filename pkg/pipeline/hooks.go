package pipeline

import (
	"github.com/NFTX-project/accounting/pkg/eventBus/eventBusTypes"
)

// HandleRunCompletedHook publishes a RunCompleted event for a finished run.
func (p *Pipeline) HandleRunCompletedHook(result *RunResult) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(&eventBusTypes.Event{
		Name: eventBusTypes.Event_RunCompleted,
		Data: &eventBusTypes.RunCompletedData{
			RunId:     result.RunId,
			Summary:   result.Summary,
			Report:    result.Report,
			Artifacts: result.Artifacts,
		},
	})
}

// HandleRunFailedHook publishes a RunFailed event. runId is empty when the
// run failed before a ledger was created.
func (p *Pipeline) HandleRunFailedHook(runId string, stage string, err error) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(&eventBusTypes.Event{
		Name: eventBusTypes.Event_RunFailed,
		Data: &eventBusTypes.RunFailedData{
			RunId: runId,
			Stage: stage,
			Error: err,
		},
	})
}
