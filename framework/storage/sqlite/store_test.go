package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/retro-framework/go-lottery/framework/storage"
	"github.com/retro-framework/go-lottery/framework/storage/storagetest"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
)

func Test_Store(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.EventStore {
		s, err := Open(filepath.Join(t.TempDir(), "events.db"))
		test.H(t).IsNil(err)
		return s
	})
}

func Test_Open(t *testing.T) {

	t.Run("requires a path", func(t *testing.T) {
		_, err := Open("  ")
		test.H(t).NotNil(err)
	})

	t.Run("records survive reopening", func(t *testing.T) {
		// Arrange
		var (
			ctx  = context.Background()
			path = filepath.Join(t.TempDir(), "events.db")
			recs = storagetest.Records("lottery/1", 0, 3)
		)
		s, err := Open(path)
		test.H(t).IsNil(err)
		test.H(t).IsNil(s.Append(ctx, "lottery/1", 0, recs...))
		test.H(t).IsNil(s.Close())

		// Act
		s, err = Open(path)
		test.H(t).IsNil(err)
		defer s.Close()
		got, err := s.Load(ctx, "lottery/1")

		// Assert
		test.H(t).IsNil(err)
		test.H(t).InterfaceEql(got, recs)
	})
}
