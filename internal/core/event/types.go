package event

import "time"

type EventType string

const (
	EventJobUploaded   EventType = "job.uploaded"
	EventJobDispatched EventType = "job.dispatched"
	EventJobCompleted  EventType = "job.completed"
	EventJobFailed     EventType = "job.failed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// JobEvent is the payload for all job lifecycle events.
type JobEvent struct {
	JobID        string
	OriginalName string
	Status       string
	Error        string
}
