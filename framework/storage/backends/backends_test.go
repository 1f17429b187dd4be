package backends

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/storage"
	"github.com/retro-framework/go-lottery/framework/storage/fs"
	"github.com/retro-framework/go-lottery/framework/storage/memory"
	"github.com/retro-framework/go-lottery/framework/storage/sqlite"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
)

func Test_Open(t *testing.T) {

	t.Run("defaults to memory", func(t *testing.T) {
		s, err := Open(Options{})
		test.H(t).IsNil(err)
		test.H(t).TypeEql(s, &memory.Store{})
	})

	t.Run("opens fs stores below the path", func(t *testing.T) {
		s, err := Open(Options{Driver: DriverFS, Path: t.TempDir()})
		test.H(t).IsNil(err)
		test.H(t).TypeEql(s, &fs.Store{})
	})

	t.Run("opens sqlite databases", func(t *testing.T) {
		s, err := Open(Options{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
		test.H(t).IsNil(err)
		defer s.Close()
		test.H(t).TypeEql(s, &sqlite.Store{})
	})

	t.Run("rejects unknown drivers", func(t *testing.T) {
		_, err := Open(Options{Driver: "postgres"})
		test.H(t).BoolEql(errors.Cause(err) == storage.ErrUnknownDriver, true)
	})
}
