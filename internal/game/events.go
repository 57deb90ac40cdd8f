package game

// EventType identifies a controller notification.
type EventType string

const (
	EventStateChanged     EventType = "state.changed"
	EventImageResolved    EventType = "image.resolved"
	EventSaveStateChanged EventType = "save.changed"
)

// Event tells the UI that something it rendered went stale. Events are
// advisory: sends never block the turn path, and a send that finds the
// buffer full is dropped, so consumers re-read State rather than
// counting events.
type Event struct {
	Type      EventType
	SegmentID int // set on image.resolved
}
