package retro

// PatternMatcher defines a single function interface
// for matching patterns. It is used to compare partition
// names to the patterns subscribers and tools search for.
// In a sane implementation it should support at least
// POSIX globbing to allow for matching such as `lottery/*`.
//
// In testing, this pattern matcher may be replaced with a
// no-op or static matcher.
type PatternMatcher interface {
	DoesMatch(pattern, partition string) (bool, error)
}
