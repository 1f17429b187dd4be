package retro

import "strings"

// PartitionName is a typealias for string
// to help keep the internals of the library
// clear about whether we're dealing with
// any old string or specifically a partition
// name, e.g lottery/123
type PartitionName string

// NewPartitionName joins an aggregate dirname and an id.
func NewPartitionName(dirname, id string) PartitionName {
	return PartitionName(dirname + "/" + id)
}

func (pn PartitionName) Dirname() string {
	return strings.SplitN(string(pn), "/", 2)[0]
}

// ID returns everything after the first slash, or the empty
// string for a malformed name.
func (pn PartitionName) ID() string {
	parts := strings.SplitN(string(pn), "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Valid reports whether both the dirname and id are present.
func (pn PartitionName) Valid() bool {
	return len(pn.Dirname()) > 0 && len(pn.ID()) > 0
}

func (pn PartitionName) String() string {
	return string(pn)
}
