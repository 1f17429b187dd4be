package retro

// Hash is a minimal interface for the framework
// as a whole. It can broadly be considered as
// a type alias for string as most of the storage
// and "downstream" (to clients) code works with
// serialized data.
type Hash interface {
	String() string
	Bytes() []byte
}
