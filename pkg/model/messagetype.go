package model

// channel names used on the outbox
const (
	ChannelIncidentCreated  = "incident-created"
	ChannelIncidentResolved = "incident-resolved"
	ChannelClockUpdate      = "clock-update"
	ChannelPaceState        = "pace-state"
	ChannelTelemetryJSON    = "telemetry-json"
	ChannelSessionChanged   = "session-changed"
)
