package models

import "time"

type EventType string

const (
	EventSessionLogin      EventType = "session.login"
	EventSessionLogout     EventType = "session.logout"
	EventSessionExpired    EventType = "session.expired"
	EventAnalysisCompleted EventType = "analysis.completed"
	EventAnalysisAnnotated EventType = "analysis.annotated"
)

// Event is a lifecycle fact published to the portal event stream.
type Event struct {
	Type            EventType `json:"type"`
	Origin          string    `json:"origin,omitempty"`
	UserID          string    `json:"userId,omitempty"`
	Role            UserRole  `json:"role,omitempty"`
	AnalysisID      string    `json:"analysisId,omitempty"`
	TumorPercentage float64   `json:"tumorPercentage,omitempty"`
	At              time.Time `json:"at"`
}
