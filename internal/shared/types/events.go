package types

import "time"

// EventType identifies store change notifications
type EventType string

const (
	EventAppsUpdated    EventType = "apps_updated"
	EventAppPrepare     EventType = "app_prepare"
	EventAppStarted     EventType = "app_started"
	EventAppClosed      EventType = "app_closed"
	EventLog            EventType = "log"
	EventSessionUpdated EventType = "session_updated"
)

// LogStream tags which process stream a chunk arrived on
type LogStream string

const (
	StreamStdout LogStream = "stdout"
	StreamStderr LogStream = "stderr"
)

// Event is one store change notification delivered to observers
type Event struct {
	Type       EventType           `json:"type"`
	InstanceID string              `json:"instance_id,omitempty"`
	AppID      string              `json:"app_id,omitempty"`
	Pages      map[string]PageInfo `json:"pages,omitempty"`
	Stream     LogStream           `json:"stream,omitempty"`
	Chunk      string              `json:"chunk,omitempty"`
	ExitCode   *int                `json:"exit_code,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}
