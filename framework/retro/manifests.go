package retro

// EventManifest maps event types to the names they are
// persisted under, and back.
type EventManifest interface {
	Register(Event) error
	RegisterAs(string, Event) error
	KeyFor(Event) (string, error)
	ForName(string) (Event, error)
	Decode(string, []byte) (Event, error)
}

type ListingEventManifest interface {
	List() map[string]interface{}
}

// ListingCommandManifest lists the names of the commands a
// resolver will accept.
type ListingCommandManifest interface {
	List() []string
}
