package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                string // connection string for the archive database
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	SQLLogLevel       string // sets the log level for sql subsystem
	LogFormat         string // text vs json
	LogConfig         string // path to log config file
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	TelemetryStdout   bool   // export telemetry to stdout instead of OTLP
	HTTPAddr          string // listen addr for the consumer API
	NatsURL           string // URL of the NATS server
	NatsPrefix        string // subject prefix on NATS
	NatsForward       bool   // forward outbox messages to NATS
	RecordFile        string // append projected snapshots to this file
	SendTelemetryJSON bool   // send raw telemetry on the telemetry-json channel
	EnableArchive     bool   // store outbox messages in the database
)
