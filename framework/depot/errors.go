package depot

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Done is returned by iterators once no more events remain.
var Done = xerrors.New("depot: no more items in iterator")

var (
	ErrHashMismatch     = xerrors.New("depot: stored hash does not match the envelope")
	ErrInvalidPartition = xerrors.New("depot: invalid partition name")
)

type Error struct {
	Op  string
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("depot: op: %q err: %q", e.Op, e.Err)
}

func (e Error) Cause() error  { return e.Err }
func (e Error) Unwrap() error { return e.Err }
