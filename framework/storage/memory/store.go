// Package memory keeps partitions in maps, it is the store used in tests
// and by servers started without a storage path.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
)

type Store struct {
	sync.RWMutex
	partitions map[retro.PartitionName][]storage.Record
}

func NewStore() *Store {
	return &Store{partitions: map[retro.PartitionName][]storage.Record{}}
}

func (s *Store) Append(ctx context.Context, partition retro.PartitionName, expected int, recs ...storage.Record) error {
	if err := storage.CheckAppend(partition, expected, recs); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	if len(s.partitions[partition]) != expected {
		return storage.ErrConcurrentWrite
	}
	if len(recs) == 0 {
		return nil
	}
	s.partitions[partition] = append(s.partitions[partition], recs...)
	return nil
}

func (s *Store) Load(ctx context.Context, partition retro.PartitionName) ([]storage.Record, error) {
	s.RLock()
	defer s.RUnlock()
	var recs = make([]storage.Record, len(s.partitions[partition]))
	copy(recs, s.partitions[partition])
	return recs, nil
}

func (s *Store) Partitions(ctx context.Context) ([]retro.PartitionName, error) {
	s.RLock()
	defer s.RUnlock()
	var names []retro.PartitionName
	for name := range s.partitions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

func (s *Store) Close() error { return nil }
