// Package config loads the lottery server configuration. A YAML file
// is merged over the defaults, command line flags and environment
// variables are applied on top by the binaries.
package config

import (
	"io/ioutil"
	"net"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/retro-framework/go-lottery/framework/storage/backends"
)

type Config struct {
	ListenAddr  string           `yaml:"listen_addr"`
	Storage     backends.Options `yaml:"storage"`
	IdleTimeout time.Duration    `yaml:"idle_timeout"`

	// Seed makes the winner selection reproducible when non zero.
	Seed uint64 `yaml:"seed"`

	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`

	Zipkin struct {
		URL string `yaml:"url"`
	} `yaml:"zipkin"`

	Influx struct {
		Addr     string `yaml:"addr"`
		Database string `yaml:"database"`
	} `yaml:"influx"`

	Elastic struct {
		URL   string `yaml:"url"`
		Index string `yaml:"index"`
	} `yaml:"elastic"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a configuration serving from memory on :8080.
func Default() Config {
	var c Config
	c.ListenAddr = ":8080"
	c.Storage.Driver = backends.DriverMemory
	c.IdleTimeout = 5 * time.Minute
	c.ShutdownTimeout = 10 * time.Second
	c.Log.Level = "info"
	c.Influx.Database = "lottery"
	c.Elastic.Index = "lotteries"
	return c
}

// Parse merges the YAML document b over the defaults.
func Parse(b []byte) (Config, error) {
	var c = Default()
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return c, errors.Wrap(err, "config: parsing yaml")
	}
	return c, nil
}

// Load reads and parses the file at path, an empty path yields
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return Default(), errors.Wrapf(err, "config: reading %s", path)
	}
	return Parse(b)
}

func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return errors.Wrapf(err, "config: invalid listen_addr %q", c.ListenAddr)
	}
	var known bool
	for _, d := range backends.Drivers {
		if d == c.Storage.Driver {
			known = true
		}
	}
	if !known {
		return errors.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if (c.Storage.Driver == backends.DriverFS || c.Storage.Driver == backends.DriverSQLite) && c.Storage.Path == "" {
		return errors.Errorf("config: storage driver %q needs a path", c.Storage.Driver)
	}
	if c.Storage.Driver == backends.DriverRedis && c.Storage.Addr == "" {
		return errors.New("config: storage driver redis needs an addr")
	}
	if c.IdleTimeout <= 0 {
		return errors.Errorf("config: idle_timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.Errorf("config: shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.Influx.Addr != "" && c.Influx.Database == "" {
		return errors.New("config: influx.database is required with influx.addr")
	}
	if c.Elastic.URL != "" && c.Elastic.Index == "" {
		return errors.New("config: elastic.index is required with elastic.url")
	}
	return nil
}
