package domain

import "time"

const (
	EventDocumentUploaded  = "document.uploaded"
	EventDocumentCompleted = "document.completed"
	EventDocumentFailed    = "document.failed"
	EventDocumentCancelled = "document.cancelled"
	EventChunkAdded        = "chunk.added"
	EventDocumentAttached  = "knowledgebase.document_added"
	EventDocumentDetached  = "knowledgebase.document_removed"
	EventSearchRecorded    = "knowledgebase.search_recorded"
)

// Event is a fact recorded by an aggregate during a mutation. Events are
// drained by the caller after a successful save and published from there,
// never dispatched from inside the mutation itself.
type Event struct {
	Name        string    `json:"name"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// eventRecorder is embedded by aggregate roots to queue pending events.
type eventRecorder struct {
	pending []Event
}

func (r *eventRecorder) recordEvent(name, aggregateID string) {
	r.pending = append(r.pending, Event{
		Name:        name,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
	})
}

// DrainEvents returns all pending events and clears the queue.
func (r *eventRecorder) DrainEvents() []Event {
	out := r.pending
	r.pending = nil
	return out
}
