package packing

import "golang.org/x/xerrors"

var (
	ErrMissingHeader   = xerrors.New("packing: envelope has no header")
	ErrMalformedHeader = xerrors.New("packing: malformed envelope header")
	ErrNotAnEvent      = xerrors.New("packing: envelope does not hold an event")
	ErrLengthMismatch  = xerrors.New("packing: payload length does not match header")
	ErrMalformedHash   = xerrors.New("packing: malformed hash string")
)
