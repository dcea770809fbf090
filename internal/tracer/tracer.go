package tracer

import (
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/mocktracer"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const serviceName = "nftx-fee-accounting"

// StartTracer initializes the DataDog tracer.
// If enabled is false, it starts a mock tracer instead
func StartTracer(enabled bool, version string) {
	if !enabled {
		mocktracer.Start()
		return
	}
	ddTracer.Start(
		ddTracer.WithServiceName(serviceName),
		ddTracer.WithServiceVersion(version),
		ddTracer.WithGlobalServiceName(true),
		ddTracer.WithDebugMode(false),
		ddTracer.WithLogStartup(false),
	)
}

// StopTracer flushes and stops the active tracer.
func StopTracer() {
	ddTracer.Stop()
}
