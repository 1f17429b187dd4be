// Package storage defines the durable append only log the depot keeps
// its events in. A log is split into partitions, one per aggregate
// (e.g lottery/123), every record of a partition carries a gapless
// sequence number starting at 1.
//
// Backends live in the subpackages, storage/backends picks one by
// driver name.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/retro"
)

// Record is one packed event as it is kept in a partition.
type Record struct {
	Partition retro.PartitionName `json:"partition"`
	Sequence  int                 `json:"sequence"`
	Name      string              `json:"name"`
	Hash      string              `json:"hash"`
	Time      time.Time           `json:"time"`
	Payload   []byte              `json:"payload"`
}

// EventStore is implemented by every backend.
//
// Append stores records at the end of a partition iff the partition
// currently holds exactly expected records, otherwise nothing is
// written and ErrConcurrentWrite is returned. All records of one call
// are written or none are.
//
// Load returns a partition's records in sequence order, an unknown
// partition has no records. Partitions lists every partition holding
// at least one record, sorted by name.
type EventStore interface {
	Append(ctx context.Context, partition retro.PartitionName, expected int, recs ...Record) error
	Load(ctx context.Context, partition retro.PartitionName) ([]Record, error)
	Partitions(ctx context.Context) ([]retro.PartitionName, error)
	Close() error
}

// CheckAppend validates the arguments of an Append, backends call it
// before touching their storage.
func CheckAppend(partition retro.PartitionName, expected int, recs []Record) error {
	if !partition.Valid() {
		return errors.Wrapf(ErrInvalidPartition, "partition %q", partition)
	}
	for i, rec := range recs {
		if rec.Partition != partition {
			return errors.Wrapf(ErrPartitionMismatch, "record %d is for %q", i, rec.Partition)
		}
		if rec.Sequence != expected+i+1 {
			return errors.Wrapf(ErrSequenceMismatch, "record %d has sequence %d, wanted %d", i, rec.Sequence, expected+i+1)
		}
	}
	return nil
}
