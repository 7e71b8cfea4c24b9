package config

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Fold defaults.
const (
	DefaultFoldWorkers   = 0
	DefaultFoldOverwrite = false
)

// Codec defaults.
const (
	DefaultSkipUnknownTokens = false
	DefaultMaxFileSize       = "64MB"
)

// Analysis defaults.
const (
	DefaultAnalysisStrict = false
	DefaultAnalysisFormat = "text"
)

// Telemetry defaults.
const (
	DefaultSampleRatio = 0.0
)
