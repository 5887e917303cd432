package goasidecache

// Event names a decision taken by the transport for one request.
type Event string

const (
	EventFetched     Event = "fetched"
	EventStored      Event = "stored"
	EventMissed      Event = "missed"
	EventExpired     Event = "expired"
	EventBypassed    Event = "bypassed"
	EventSkipped     Event = "skipped"
	EventFetchFailed Event = "fetch_failed"
	EventStoreFailed Event = "store_failed"
)

// Events lists every Event, in a stable order.
var Events = []Event{
	EventFetched, EventStored, EventMissed, EventExpired,
	EventBypassed, EventSkipped, EventFetchFailed, EventStoreFailed,
}

// Recorder counts transport events. See the metrics package for a Prometheus
// implementation.
type Recorder interface {
	Record(e Event)
}
