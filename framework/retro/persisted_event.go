package retro

import "time"

// PersistedEvent mirrors an event embellishing it with the data
// inferred from its place in the partition's log. Bytes() is the
// packed envelope as stored, Event() the decoded domain event.
type PersistedEvent interface {
	Sequence() int
	Time() time.Time
	Name() string
	Bytes() []byte
	Hash() Hash
	PartitionName() PartitionName
	Event() Event
}
