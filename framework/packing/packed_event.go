package packing

// PackedEvent is an event envelope in memory: a header naming the
// encoding and event, the null separator and the encoded event.
type PackedEvent struct {
	payload []byte
	hash    Hash
}

// NewPackedEvent wraps stored contents whose hash is already known.
func NewPackedEvent(contents []byte, h Hash) *PackedEvent {
	return &PackedEvent{payload: contents, hash: h}
}

func (pe *PackedEvent) Contents() []byte { return pe.payload }
func (pe *PackedEvent) Hash() Hash       { return pe.hash }
