package retro

import "context"

// EventIterator is a simple Iterator interface which should mean that we
// are never in a situation where an aggregate with a large number of
// events causes massive allocations when being rehydrated.
//
// Next returns the events of one partition in the order they were
// persisted, and the Done error of the depot package once exhausted.
type EventIterator interface {
	PartitionName() PartitionName
	Next(context.Context) (PersistedEvent, error)
}
