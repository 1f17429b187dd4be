// Package engine hosts behaviors: it routes every command to the one
// entity owning the command's partition, materializes entities from the
// depot on first delivery, persists accepted events before committing
// them and passivates entities that have been idle for a while.
//
// Commands for one partition are handled strictly one at a time in
// arrival order, different partitions are handled in parallel.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/behavior"
	"github.com/retro-framework/go-lottery/framework/logging"
	"github.com/retro-framework/go-lottery/framework/retro"
	"golang.org/x/xerrors"
)

// DefaultIdleTimeout is how long an entity without commands stays in
// memory.
const DefaultIdleTimeout = 5 * time.Minute

var (
	ErrClosed           = xerrors.New("engine: closed")
	ErrInvalidPartition = xerrors.New("engine: command routes to an invalid partition")
	ErrUnexpectedEvent  = xerrors.New("engine: history holds an event of a foreign type")
)

type Error struct {
	Op  string
	Err error
	Msg string
}

func (e Error) Error() string {
	return fmt.Sprintf("engine: op: %q err: %q msg: %q", e.Op, e.Err, e.Msg)
}

func (e Error) Cause() error  { return e.Err }
func (e Error) Unwrap() error { return e.Err }

// Result is the outcome of one command. State is the entity's state
// after the command, for rejections it is the state the command was
// rejected in. Persisted holds the stored events of accepted reactions.
type Result[S, E any] struct {
	Partition retro.PartitionName
	Reaction  behavior.Reaction[E]
	State     S
	Persisted []retro.PersistedEvent
}

func (r Result[S, E]) Accepted() bool { return r.Reaction.Accepted() }

type config struct {
	logger      retro.Logger
	idleTimeout time.Duration
}

type Option func(*config)

func WithLogger(l retro.Logger) Option { return func(c *config) { c.logger = l } }

// WithIdleTimeout sets how long an idle entity is kept, zero or less
// keeps entities until Close.
func WithIdleTimeout(d time.Duration) Option { return func(c *config) { c.idleTimeout = d } }

type Engine[S, C, E any] struct {
	behavior *behavior.Behavior[S, C, E]
	depot    retro.Depot
	route    func(C) retro.PartitionName
	config

	mu       sync.Mutex
	entities map[retro.PartitionName]*entity[S, C, E]
	closed   bool
	quit     chan struct{}
	wg       sync.WaitGroup
}

// New returns an engine for b persisting to d, route names the
// partition a command belongs to.
func New[S, C, E any](b *behavior.Behavior[S, C, E], d retro.Depot, route func(C) retro.PartitionName, opts ...Option) *Engine[S, C, E] {
	e := &Engine[S, C, E]{
		behavior: b,
		depot:    d,
		route:    route,
		config:   config{logger: logging.Noop{}, idleTimeout: DefaultIdleTimeout},
		entities: map[retro.PartitionName]*entity[S, C, E]{},
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&e.config)
	}
	return e
}

// Apply delivers cmd to the entity owning its partition and waits for
// the outcome. Rejections are results, the error is only set when the
// command could not be handled at all: the history could not be
// replayed, the events could not be folded or persisted, or ctx ended.
func (e *Engine[S, C, E]) Apply(ctx context.Context, cmd C) (Result[S, E], error) {

	spnApply, ctx := opentracing.StartSpanFromContext(ctx, "engine.Apply")
	spnApply.SetTag("command", fmt.Sprintf("%T", cmd))
	defer spnApply.Finish()

	pn := e.route(cmd)
	spnApply.SetTag("partitionName", pn.String())
	if !pn.Valid() {
		return Result[S, E]{Partition: pn}, Error{"route", errors.Wrapf(ErrInvalidPartition, "%q", pn), "can't route command"}
	}

	resp, err := e.deliver(ctx, pn, request[S, C, E]{ctx: ctx, cmd: cmd})
	if err != nil {
		spnApply.LogKV("event", "error", "error.object", err)
		return Result[S, E]{Partition: pn}, err
	}
	if !resp.result.Accepted() {
		spnApply.LogKV("event", "rejected")
	}
	return resp.result, resp.err
}

// State returns the current state of a partition, materializing its
// entity if needed. Partitions without history are in the zero-state.
func (e *Engine[S, C, E]) State(ctx context.Context, pn retro.PartitionName) (S, error) {
	if !pn.Valid() {
		var zero S
		return zero, Error{"route", errors.Wrapf(ErrInvalidPartition, "%q", pn), "can't look up state"}
	}
	resp, err := e.deliver(ctx, pn, request[S, C, E]{ctx: ctx, query: true})
	if err != nil {
		var zero S
		return zero, err
	}
	return resp.result.State, resp.err
}

// Active is the number of materialized entities.
func (e *Engine[S, C, E]) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entities)
}

// Close stops all entities after their current command and waits for
// them, later calls to Apply fail with ErrClosed.
func (e *Engine[S, C, E]) Close() error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.quit)
	}
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

func (e *Engine[S, C, E]) deliver(ctx context.Context, pn retro.PartitionName, req request[S, C, E]) (response[S, E], error) {
	if err := ctx.Err(); err != nil {
		return response[S, E]{}, err
	}
	req.reply = make(chan response[S, E], 1)
	for {
		ent, err := e.entity(pn)
		if err != nil {
			return response[S, E]{}, err
		}
		select {
		case ent.mailbox <- req:
		case <-ent.done:
			// Passivated (or stopped) between lookup and delivery.
			continue
		case <-ctx.Done():
			return response[S, E]{}, ctx.Err()
		}
		select {
		case r := <-req.reply:
			return r, nil
		case <-ctx.Done():
			return response[S, E]{}, ctx.Err()
		}
	}
}

// entity returns the running entity of a partition, spawning it if
// there is none.
func (e *Engine[S, C, E]) entity(pn retro.PartitionName) (*entity[S, C, E], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if ent, ok := e.entities[pn]; ok {
		return ent, nil
	}
	ent := &entity[S, C, E]{
		engine:    e,
		partition: pn,
		mailbox:   make(chan request[S, C, E]),
		done:      make(chan struct{}),
	}
	e.entities[pn] = ent
	e.wg.Add(1)
	go ent.run()
	return ent, nil
}

func (e *Engine[S, C, E]) remove(ent *entity[S, C, E]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.entities[ent.partition] == ent {
		delete(e.entities, ent.partition)
	}
}
