package config

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPEndpoint = ""
	DefaultTelemetryOTLPInsecure = false
	DefaultTelemetrySampleRatio  = 1.0
	DefaultTelemetryEnvironment  = ""
	DefaultTelemetryMetricsAddr  = ""
)

// Arena defaults.
const (
	DefaultArenaHibernationThreshold = 0
	DefaultArenaShards               = 4
)

// Bench defaults.
const (
	DefaultBenchKeys        = 100_000
	DefaultBenchOps         = 1_000_000
	DefaultBenchSeed        = 1
	DefaultBenchDeleteRatio = 0.4
)
