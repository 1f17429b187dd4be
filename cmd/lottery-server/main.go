package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	client "github.com/influxdata/influxdb/client/v2"
	"github.com/namsral/flag"
	"github.com/olivere/elastic"
	opentracing "github.com/opentracing/opentracing-go"
	zipkin "github.com/openzipkin/zipkin-go-opentracing"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/commands"
	"github.com/retro-framework/go-lottery/config"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/engine"
	"github.com/retro-framework/go-lottery/framework/logging"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage/backends"
	"github.com/retro-framework/go-lottery/projections"
	"github.com/retro-framework/go-lottery/server"
)

const serviceName = "lottery-server"

func main() {

	var (
		configPath string
		overrides  config.Config
	)

	// Every flag may also be given as an upper case environment
	// variable, e.g. STORAGE_DRIVER=sqlite.
	flag.StringVar(&configPath, "config_path", "", "yaml configuration file")
	flag.StringVar(&overrides.ListenAddr, "listen_addr", "", "address to listen on")
	flag.StringVar(&overrides.Storage.Driver, "storage_driver", "", "one of memory, fs, sqlite, redis")
	flag.StringVar(&overrides.Storage.Path, "storage_path", "", "storage dir (fs) or database file (sqlite)")
	flag.StringVar(&overrides.Storage.Addr, "storage_addr", "", "redis address")
	flag.StringVar(&overrides.Log.Level, "log_level", "", "debug, info, warn or error")
	flag.BoolVar(&overrides.Log.Console, "log_console", false, "human readable logs")
	flag.StringVar(&overrides.Zipkin.URL, "zipkin_url", "", "zipkin span collector, e.g. http://localhost:9411/api/v1/spans")
	flag.StringVar(&overrides.Influx.Addr, "influx_addr", "", "influxdb address for the winners projection")
	flag.StringVar(&overrides.Elastic.URL, "elastic_url", "", "elasticsearch url for the listings projection")
	flag.Uint64Var(&overrides.Seed, "seed", 0, "seed for reproducible winner selection")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen_addr":
			cfg.ListenAddr = overrides.ListenAddr
		case "storage_driver":
			cfg.Storage.Driver = overrides.Storage.Driver
		case "storage_path":
			cfg.Storage.Path = overrides.Storage.Path
		case "storage_addr":
			cfg.Storage.Addr = overrides.Storage.Addr
		case "log_level":
			cfg.Log.Level = overrides.Log.Level
		case "log_console":
			cfg.Log.Console = overrides.Log.Console
		case "zipkin_url":
			cfg.Zipkin.URL = overrides.Zipkin.URL
		case "influx_addr":
			cfg.Influx.Addr = overrides.Influx.Addr
		case "elastic_url":
			cfg.Elastic.URL = overrides.Elastic.URL
		case "seed":
			cfg.Seed = overrides.Seed
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Console: cfg.Log.Console})
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf("%s: %s", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Zerolog) error {

	if cfg.Zipkin.URL != "" {
		collector, err := zipkin.NewHTTPCollector(cfg.Zipkin.URL)
		if err != nil {
			return errors.Wrap(err, "dialing zipkin")
		}
		defer collector.Close()
		tracer, err := zipkin.NewTracer(
			zipkin.NewRecorder(collector, false, cfg.ListenAddr, serviceName),
		)
		if err != nil {
			return errors.Wrap(err, "creating tracer")
		}
		opentracing.SetGlobalTracer(tracer)
	}

	store, err := backends.Open(cfg.Storage)
	if err != nil {
		return errors.Wrapf(err, "opening %s storage", cfg.Storage.Driver)
	}
	defer store.Close()
	logger.Infof("%s: using %s storage", serviceName, cfg.Storage.Driver)

	var selector = aggregates.UniformSelector()
	if cfg.Seed != 0 {
		selector = aggregates.SeededSelector(cfg.Seed)
	}

	var (
		d = depot.New(store, events.DefaultManifest,
			depot.WithClock(retro.SystemClock{}),
			depot.WithLogger(logger.With("component", "depot")),
		)
		b = aggregates.NewBehavior(selector, retro.SystemClock{})
		e = engine.New(b, d, aggregates.Partition,
			engine.WithLogger(logger.With("component", "engine")),
			engine.WithIdleTimeout(cfg.IdleTimeout),
		)
		summaries = projections.NewSummaries(b)
		ps        = []projections.Projection{summaries}
	)
	defer e.Close()

	if cfg.Influx.Addr != "" {
		c, err := client.NewHTTPClient(client.HTTPConfig{Addr: cfg.Influx.Addr})
		if err != nil {
			return errors.Wrap(err, "creating influxdb client")
		}
		defer c.Close()
		winners := projections.NewWinners(c, cfg.Influx.Database)
		if err := winners.EnsureDatabase(); err != nil {
			return err
		}
		ps = append(ps, winners)
	}

	if cfg.Elastic.URL != "" {
		c, err := elastic.NewClient(
			elastic.SetSniff(false),
			elastic.SetURL(cfg.Elastic.URL),
			elastic.SetErrorLog(log.New(os.Stderr, "listings: ", 0)),
		)
		if err != nil {
			return errors.Wrap(err, "dialing elasticsearch")
		}
		listings := projections.NewListings(c, cfg.Elastic.Index, b)
		if err := listings.EnsureIndex(ctx); err != nil {
			return err
		}
		ps = append(ps, listings)
	}

	var (
		runner = projections.NewRunner(d, commands.Dirname+"/*", logger.With("component", "projections"), ps...)
		srv    = server.New(server.Options{
			Engine:    e,
			Depot:     d,
			Lister:    summaries,
			IDFn:      func() (string, error) { return uuid.NewString(), nil },
			Logger:    logger.With("component", "server"),
			AccessLog: os.Stdout,
		})
		httpSrv = &http.Server{
			Addr:           cfg.ListenAddr,
			Handler:        srv.Handler(),
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := runner.Run(gctx); err != nil && err != context.Canceled {
			return errors.Wrap(err, "running projections")
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-runner.Ready():
		case <-gctx.Done():
			return nil
		}
		logger.Infof("%s: listening on %s", serviceName, cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			return errors.Wrap(err, "serving http")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down http")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Infof("%s: shut down", serviceName)
	return nil
}
