package watcher

const (
	EventCreated  EventKind = "created"
	EventModified EventKind = "modified"
	EventRemoved  EventKind = "removed"
	EventRenamed  EventKind = "renamed"
	EventOther    EventKind = "other"
)

type EventKind string
type EventsChannel <-chan Event

type Event struct {
	AbsPath string
	Kind    EventKind
}
