package storage

import (
	"golang.org/x/xerrors"
)

var (
	ErrConcurrentWrite   = xerrors.New("storage: partition was written concurrently")
	ErrInvalidPartition  = xerrors.New("storage: invalid partition name")
	ErrSequenceMismatch  = xerrors.New("storage: record sequence out of order")
	ErrUnknownDriver     = xerrors.New("storage: unknown driver")
	ErrPartitionMismatch = xerrors.New("storage: record belongs to another partition")
)
