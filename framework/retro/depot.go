package retro

import "context"

// Depot persists events per partition and hands them back for replay.
// Implementations must persist all events of one Append durably before
// returning and must only publish them to subscribers after that.
type Depot interface {
	Append(context.Context, PartitionName, ...Event) ([]PersistedEvent, error)
	Rehydrate(context.Context, PartitionName) (EventIterator, error)
	Exists(context.Context, PartitionName) (bool, error)
	Partitions(context.Context, string) ([]PartitionName, error)
	Watch(context.Context, string) Subscription
}

// Subscription delivers persisted events of matching partitions in
// the order they were persisted. The channel is closed after Close,
// or once the context given to Watch is done.
type Subscription interface {
	Pattern() string
	Events() <-chan PersistedEvent
	Close()
}
