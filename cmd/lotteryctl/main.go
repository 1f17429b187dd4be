package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/commands"
	"github.com/retro-framework/go-lottery/config"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage/backends"
	"github.com/retro-framework/go-lottery/projections"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	out        io.Writer
	configPath string
	storage    backends.Options
}

func newRootCmd(out io.Writer) *cobra.Command {
	var c = &cli{out: out}

	var rootCmd = &cobra.Command{
		Use:          "lotteryctl",
		Short:        "lotteryctl inspects the lotteries kept in an event store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "yaml configuration file, storage settings are taken from it")
	rootCmd.PersistentFlags().StringVar(&c.storage.Driver, "storage-driver", "", "one of memory, fs, sqlite, redis")
	rootCmd.PersistentFlags().StringVar(&c.storage.Path, "storage-path", "", "storage dir (fs) or database file (sqlite)")
	rootCmd.PersistentFlags().StringVar(&c.storage.Addr, "storage-addr", "", "redis address")

	var cmdReplay = &cobra.Command{
		Use:   "replay <id>",
		Short: "rebuild the state of a lottery from its history and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDepot(cmd.Context(), func(ctx context.Context, d retro.Depot) error {
				return c.replay(ctx, d, args[0])
			})
		},
	}

	var cmdEvents = &cobra.Command{
		Use:   "events <id>",
		Short: "print the history of a lottery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withDepot(cmd.Context(), func(ctx context.Context, d retro.Depot) error {
				return c.events(ctx, d, args[0])
			})
		},
	}

	var cmdPartitions = &cobra.Command{
		Use:   "partitions [pattern]",
		Short: "list the partitions matching a glob pattern, all lotteries by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern = commands.Dirname + "/*"
			if len(args) == 1 {
				pattern = args[0]
			}
			return c.withDepot(cmd.Context(), func(ctx context.Context, d retro.Depot) error {
				return c.partitions(ctx, d, pattern)
			})
		},
	}

	rootCmd.AddCommand(cmdReplay, cmdEvents, cmdPartitions)
	return rootCmd
}

func (c *cli) withDepot(ctx context.Context, fn func(context.Context, retro.Depot) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.storage.Driver != "" {
		cfg.Storage = c.storage
	}
	store, err := backends.Open(cfg.Storage)
	if err != nil {
		return errors.Wrapf(err, "opening %s storage", cfg.Storage.Driver)
	}
	defer store.Close()
	return fn(ctx, depot.New(store, events.DefaultManifest))
}

func (c *cli) history(ctx context.Context, d retro.Depot, id string) ([]retro.PersistedEvent, error) {
	var pn = retro.NewPartitionName(commands.Dirname, id)
	it, err := d.Rehydrate(ctx, pn)
	if err != nil {
		return nil, err
	}
	pEvs, err := depot.Collect(ctx, it)
	if err != nil {
		return nil, err
	}
	if len(pEvs) == 0 {
		return nil, errors.Errorf("no lottery %s", id)
	}
	return pEvs, nil
}

func (c *cli) replay(ctx context.Context, d retro.Depot, id string) error {
	pEvs, err := c.history(ctx, d, id)
	if err != nil {
		return err
	}
	var evs = make([]events.Event, 0, len(pEvs))
	for _, pEv := range pEvs {
		ev, ok := pEv.Event().(events.Event)
		if !ok {
			return errors.Errorf("%s #%d: %T is no lottery event", pEv.PartitionName(), pEv.Sequence(), pEv.Event())
		}
		evs = append(evs, ev)
	}
	state, err := aggregates.NewBehavior(nil, nil).Replay(evs)
	if err != nil {
		return errors.Wrapf(err, "replaying lottery %s", id)
	}
	return c.print(projections.Summarize(id, state))
}

func (c *cli) events(ctx context.Context, d retro.Depot, id string) error {
	pEvs, err := c.history(ctx, d, id)
	if err != nil {
		return err
	}
	for _, pEv := range pEvs {
		b, err := json.Marshal(pEv.Event())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d\t%s\t%s\t%s\t%s\n",
			pEv.Sequence(),
			pEv.Time().Format("2006-01-02T15:04:05Z07:00"),
			pEv.Hash().String(),
			pEv.Name(),
			b,
		)
	}
	return nil
}

func (c *cli) partitions(ctx context.Context, d retro.Depot, pattern string) error {
	pns, err := d.Partitions(ctx, pattern)
	if err != nil {
		return err
	}
	for _, pn := range pns {
		fmt.Fprintln(c.out, pn)
	}
	return nil
}

func (c *cli) print(v interface{}) error {
	var enc = json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
