// Package storagetest holds the behavior every storage.EventStore must
// share, backends run it from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
)

// Records builds n records for partition continuing after the given
// sequence.
func Records(partition retro.PartitionName, after, n int) []storage.Record {
	var (
		recs = make([]storage.Record, n)
		t0   = time.Date(2019, time.January, 1, 12, 0, 0, 0, time.UTC)
	)
	for i := range recs {
		seq := after + i + 1
		recs[i] = storage.Record{
			Partition: partition,
			Sequence:  seq,
			Name:      "participant_added",
			Hash:      fmt.Sprintf("sha256:%064x", seq),
			Time:      t0.Add(time.Duration(seq) * time.Second),
			Payload:   []byte(fmt.Sprintf(`{"name":"p%d"}`, seq)),
		}
	}
	return recs
}

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) storage.EventStore) {

	var ctx = context.Background()

	t.Run("unknown partitions have no records", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		recs, err := s.Load(ctx, "lottery/none")
		test.H(t).IsNil(err)
		test.H(t).IntEql(len(recs), 0)
	})

	t.Run("appended records load in order", func(t *testing.T) {
		// Arrange
		var (
			s     = open(t)
			first = Records("lottery/1", 0, 2)
			more  = Records("lottery/1", 2, 3)
		)
		defer s.Close()

		// Act
		test.H(t).IsNil(s.Append(ctx, "lottery/1", 0, first...))
		test.H(t).IsNil(s.Append(ctx, "lottery/1", 2, more...))
		recs, err := s.Load(ctx, "lottery/1")

		// Assert
		test.H(t).IsNil(err)
		test.H(t).InterfaceEql(recs, append(first, more...))
	})

	t.Run("stale expectations write nothing", func(t *testing.T) {
		// Arrange
		s := open(t)
		defer s.Close()
		test.H(t).IsNil(s.Append(ctx, "lottery/1", 0, Records("lottery/1", 0, 1)...))

		// Act
		err := s.Append(ctx, "lottery/1", 0, Records("lottery/1", 0, 2)...)

		// Assert
		test.H(t).BoolEql(errors.Cause(err) == storage.ErrConcurrentWrite, true)
		recs, _ := s.Load(ctx, "lottery/1")
		test.H(t).IntEql(len(recs), 1)
	})

	t.Run("records must continue the sequence", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		err := s.Append(ctx, "lottery/1", 0, Records("lottery/1", 1, 1)...)
		test.H(t).BoolEql(errors.Cause(err) == storage.ErrSequenceMismatch, true)

		err = s.Append(ctx, "lottery/1", 0, Records("lottery/2", 0, 1)...)
		test.H(t).BoolEql(errors.Cause(err) == storage.ErrPartitionMismatch, true)
	})

	t.Run("partition names must have a dirname and an id", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		err := s.Append(ctx, "lottery", 0, Records("lottery", 0, 1)...)
		test.H(t).BoolEql(errors.Cause(err) == storage.ErrInvalidPartition, true)
	})

	t.Run("partitions are listed sorted", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		for _, pn := range []retro.PartitionName{"lottery/b", "lottery/a", "raffle/a"} {
			test.H(t).IsNil(s.Append(ctx, pn, 0, Records(pn, 0, 1)...))
		}
		test.H(t).IsNil(s.Append(ctx, "lottery/empty", 0))

		names, err := s.Partitions(ctx)
		test.H(t).IsNil(err)
		test.H(t).InterfaceEql(names, []retro.PartitionName{"lottery/a", "lottery/b", "raffle/a"})
	})

	t.Run("one of two racing writers wins", func(t *testing.T) {
		// Arrange
		var (
			s    = open(t)
			wg   sync.WaitGroup
			errs = make([]error, 8)
		)
		defer s.Close()

		// Act
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Append(ctx, "lottery/race", 0, Records("lottery/race", 0, 2)...)
			}(i)
		}
		wg.Wait()

		// Assert
		var won int
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				test.H(t).BoolEql(errors.Cause(err) == storage.ErrConcurrentWrite, true)
			}
		}
		test.H(t).IntEql(won, 1)
		recs, _ := s.Load(ctx, "lottery/race")
		test.H(t).IntEql(len(recs), 2)
	})
}
