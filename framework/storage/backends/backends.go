// Package backends opens a storage.EventStore by driver name.
package backends

import (
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/storage"
	"github.com/retro-framework/go-lottery/framework/storage/fs"
	"github.com/retro-framework/go-lottery/framework/storage/memory"
	"github.com/retro-framework/go-lottery/framework/storage/redis"
	"github.com/retro-framework/go-lottery/framework/storage/sqlite"
)

const (
	DriverMemory = "memory"
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverMemory, DriverFS, DriverSQLite, DriverRedis}

// Options select and configure a backend. Path is the base directory
// for fs and the database file for sqlite, Addr and Prefix are only
// used by redis.
type Options struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

func Open(opts Options) (storage.EventStore, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return memory.NewStore(), nil
	case DriverFS:
		return fs.NewStore(opts.Path)
	case DriverSQLite:
		return sqlite.Open(opts.Path)
	case DriverRedis:
		return redis.NewStore(opts.Addr, opts.Prefix)
	}
	return nil, errors.Wrapf(storage.ErrUnknownDriver, "driver %q", opts.Driver)
}
