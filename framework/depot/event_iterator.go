package depot

import (
	"context"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/packing"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
)

// simpleEventIterator decodes the records of one partition on demand.
type simpleEventIterator struct {
	partition retro.PartitionName
	records   []storage.Record
	pos       int

	packer   *packing.JSONPacker
	manifest retro.EventManifest
}

func (s *simpleEventIterator) PartitionName() retro.PartitionName {
	return s.partition
}

func (s *simpleEventIterator) Next(ctx context.Context) (retro.PersistedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, Done
	}
	rec := s.records[s.pos]
	s.pos++
	pEv, err := decode(s.packer, s.manifest, rec)
	if err != nil {
		return nil, err
	}
	return pEv, nil
}

func decode(jp *packing.JSONPacker, m retro.EventManifest, rec storage.Record) (PersistedEv, error) {
	stored, err := packing.ParseHash(rec.Hash)
	if err != nil {
		return PersistedEv{}, Error{"parse-hash", err}
	}
	if jp.HashOf(rec.Payload).String() != stored.String() {
		return PersistedEv{}, Error{"verify-hash", errors.Wrapf(ErrHashMismatch, "%s #%d", rec.Partition, rec.Sequence)}
	}
	name, payload, err := jp.UnpackEvent(rec.Payload)
	if err != nil {
		return PersistedEv{}, Error{"unpack", err}
	}
	ev, err := m.Decode(name, payload)
	if err != nil {
		return PersistedEv{}, Error{"decode", errors.Wrapf(err, "%s #%d", rec.Partition, rec.Sequence)}
	}
	return PersistedEv{
		sequence:      rec.Sequence,
		time:          rec.Time,
		name:          name,
		bytes:         rec.Payload,
		hash:          stored,
		partitionName: rec.Partition,
		event:         ev,
	}, nil
}

// Collect drains an iterator.
func Collect(ctx context.Context, it retro.EventIterator) ([]retro.PersistedEvent, error) {
	var out []retro.PersistedEvent
	for {
		pEv, err := it.Next(ctx)
		if err == Done {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, pEv)
	}
}
