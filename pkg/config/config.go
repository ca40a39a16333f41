package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	BaseDir           string // root of the data directories
	PDFDir            string // downloaded report PDFs, one sub directory per report type
	RawDir            string // raw span cache (json)
	CleanDir          string // cleaned parquet artifacts
	DB                string // connection string for the database
	NatsURL           string // if set, cleaned documents are announced via NATS
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	SQLLogLevel       string // sets the log level for sql subsystem
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules, for example "debug+:pipeline info+:*"
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	ValidatePDF       bool   // run a strict pdf validation before extraction
	Headless          bool   // run the download browser headless
	ResultsURL        string // season overview page used by download
)
