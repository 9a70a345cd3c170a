package event

import "time"

type EventType string

const (
	// Job lifecycle
	EventJobCreated   EventType = "job.created"
	EventJobStarted   EventType = "job.started"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type JobEvent struct {
	JobID   string
	UserID  string
	Version string
	Status  string
	Archive string
	Error   string
}
