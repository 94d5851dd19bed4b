package types

import "time"

// SessionStatus represents debug session lifecycle states
type SessionStatus string

const (
	StatusPreparing SessionStatus = "preparing"
	StatusRunning   SessionStatus = "running"
	StatusClosed    SessionStatus = "closed"
)

// ApplicationInfo identifies one installed NW.js application
type ApplicationInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Icon         []byte    `json:"-"`
	IconMIME     string    `json:"icon_mime,omitempty"`
	AppPath      string    `json:"app_path"`
	ExePath      string    `json:"exe_path"`
	Transient    bool      `json:"transient,omitempty"` // added via explicit path, not found by scanning
	DiscoveredAt time.Time `json:"discovered_at"`
}

// PageInfo is one inspectable target reported by a debugging endpoint.
// Fields beyond the id are passed through opaquely.
type PageInfo struct {
	ID         string                 `json:"id"`
	Descriptor map[string]interface{} `json:"descriptor"`
}

// Session represents one launched debugging instance
type Session struct {
	InstanceID string              `json:"instance_id"`
	AppID      string              `json:"app_id"`
	NodePort   int                 `json:"node_port"`
	WindowPort int                 `json:"window_port"`
	Pages      map[string]PageInfo `json:"pages"`
	Status     SessionStatus       `json:"status"`
	PID        *int                `json:"pid,omitempty"`
	ExitCode   *int                `json:"exit_code,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	ClosedAt   *time.Time          `json:"closed_at,omitempty"`
}

// Live reports whether the session still owns its ports
func (s *Session) Live() bool {
	return s.Status == StatusPreparing || s.Status == StatusRunning
}

// Stats contains store statistics
type Stats struct {
	TotalApps       int `json:"total_apps"`
	TotalSessions   int `json:"total_sessions"`
	LiveSessions    int `json:"live_sessions"`
	ClosedSessions  int `json:"closed_sessions"`
	TransientApps   int `json:"transient_apps"`
	DiscoveredApps  int `json:"discovered_apps"`
	SubscriberCount int `json:"subscriber_count"`
}
