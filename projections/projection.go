// Package projections keeps read models of the lotteries up to date by
// following the events the depot publishes.
package projections

import (
	"context"
	"sync"

	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/logging"
	"github.com/retro-framework/go-lottery/framework/retro"
)

// Projection consumes persisted events. Project is called once per
// event, in sequence order within a partition.
type Projection interface {
	Name() string
	Project(context.Context, retro.PersistedEvent) error
}

// Runner feeds projections first from the stored history of all
// matching partitions, then from the depot's live stream.
type Runner struct {
	depot       retro.Depot
	pattern     string
	logger      retro.Logger
	projections []Projection

	mu   sync.Mutex
	seen map[retro.PartitionName]int

	ready chan struct{}
	once  sync.Once
}

func NewRunner(d retro.Depot, pattern string, logger retro.Logger, ps ...Projection) *Runner {
	if logger == nil {
		logger = logging.Noop{}
	}
	return &Runner{
		depot:       d,
		pattern:     pattern,
		logger:      logger,
		projections: ps,
		seen:        map[retro.PartitionName]int{},
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the stored history has been projected.
func (r *Runner) Ready() <-chan struct{} { return r.ready }

// Run blocks until ctx is done. Errors of single projections are
// logged, they don't stop the others.
func (r *Runner) Run(ctx context.Context) error {
	// Subscribe before catching up so nothing appended meanwhile is
	// lost, duplicates are skipped by sequence.
	sub := r.depot.Watch(ctx, r.pattern)
	defer sub.Close()

	if err := r.catchUp(ctx); err != nil {
		return err
	}
	r.once.Do(func() { close(r.ready) })

	for {
		select {
		case pEv, ok := <-sub.Events():
			if !ok {
				return ctx.Err()
			}
			r.dispatch(ctx, pEv)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) catchUp(ctx context.Context) error {
	partitions, err := r.depot.Partitions(ctx, r.pattern)
	if err != nil {
		return err
	}
	for _, pn := range partitions {
		it, err := r.depot.Rehydrate(ctx, pn)
		if err != nil {
			return err
		}
		for {
			pEv, err := it.Next(ctx)
			if err == depot.Done {
				break
			}
			if err != nil {
				return err
			}
			r.dispatch(ctx, pEv)
		}
	}
	r.logger.Infof("projections: caught up with %d partitions", len(partitions))
	return nil
}

func (r *Runner) dispatch(ctx context.Context, pEv retro.PersistedEvent) {
	r.mu.Lock()
	if pEv.Sequence() <= r.seen[pEv.PartitionName()] {
		r.mu.Unlock()
		return
	}
	r.seen[pEv.PartitionName()] = pEv.Sequence()
	r.mu.Unlock()

	for _, p := range r.projections {
		if err := p.Project(ctx, pEv); err != nil {
			r.logger.Errorf("projections: %s: %s #%d: %s", p.Name(), pEv.PartitionName(), pEv.Sequence(), err)
		}
	}
}
