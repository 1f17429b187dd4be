package engine

import (
	"context"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/behavior"
	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/retro"
)

type request[S, C, E any] struct {
	ctx   context.Context
	cmd   C
	query bool
	reply chan response[S, E]
}

type response[S, E any] struct {
	result Result[S, E]
	err    error
}

// entity is the single writer of one partition. The mailbox is
// unbuffered and done is closed once the entity stopped receiving, a
// sender selecting on both can never strand a request.
type entity[S, C, E any] struct {
	engine    *Engine[S, C, E]
	partition retro.PartitionName
	mailbox   chan request[S, C, E]
	done      chan struct{}

	state  S
	loaded bool
}

func (ent *entity[S, C, E]) run() {
	defer ent.engine.wg.Done()
	defer close(ent.done)
	defer ent.engine.remove(ent)

	var (
		idle    <-chan time.Time
		timer   *time.Timer
		timeout = ent.engine.idleTimeout
	)
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case req := <-ent.mailbox:
			resp, stop := ent.handle(req)
			req.reply <- resp
			if stop {
				return
			}
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(timeout)
			}
		case <-idle:
			ent.engine.logger.Debugf("engine: passivating %s", ent.partition)
			return
		case <-ent.engine.quit:
			return
		}
	}
}

// handle answers one request. stop reports that the entity's state may
// no longer match the stored history, it must be dropped and
// re-materialized by the next command.
func (ent *entity[S, C, E]) handle(req request[S, C, E]) (resp response[S, E], stop bool) {
	resp.result.Partition = ent.partition

	if !ent.loaded {
		if err := ent.materialize(req.ctx); err != nil {
			resp.err = err
			return resp, true
		}
	}

	resp.result.State = ent.state
	if req.query {
		return resp, false
	}

	var (
		b = ent.engine.behavior
		r = b.ReactTo(ent.state, req.cmd)
	)
	resp.result.Reaction = r
	if !r.Accepted() {
		return resp, false
	}

	evs := r.Events()
	next, err := b.FoldAll(ent.state, evs)
	if err != nil {
		ent.engine.logger.Errorf("engine: %s: accepted events do not fold: %s", ent.partition, err)
		resp.err = Error{"fold", err, "accepted events do not fold into the current state"}
		return resp, false
	}

	var toStore = make([]retro.Event, len(evs))
	for i, ev := range evs {
		toStore[i] = ev
	}
	persisted, err := ent.engine.depot.Append(req.ctx, ent.partition, toStore...)
	if err != nil {
		ent.engine.logger.Warnf("engine: %s: persisting %d events failed: %s", ent.partition, len(evs), err)
		resp.err = Error{"persist", err, "events were not stored, the command had no effect"}
		return resp, true
	}

	ent.state = next
	resp.result.State = next
	resp.result.Persisted = persisted
	return resp, false
}

// materialize replays the stored history from the zero-state. Nothing
// is kept unless the whole history folds.
func (ent *entity[S, C, E]) materialize(ctx context.Context) error {

	spnMaterialize, ctx := opentracing.StartSpanFromContext(ctx, "engine.materialize")
	spnMaterialize.SetTag("partitionName", ent.partition.String())
	defer spnMaterialize.Finish()

	it, err := ent.engine.depot.Rehydrate(ctx, ent.partition)
	if err != nil {
		return Error{"rehydrate", err, "can't load history"}
	}

	var history []E
	for {
		pEv, err := it.Next(ctx)
		if err == depot.Done {
			break
		}
		if err != nil {
			return Error{"rehydrate", err, "can't load history"}
		}
		ev, ok := pEv.Event().(E)
		if !ok {
			return Error{"rehydrate", errors.Wrapf(ErrUnexpectedEvent, "%T at #%d", pEv.Event(), pEv.Sequence()), "can't load history"}
		}
		history = append(history, ev)
	}
	spnMaterialize.LogKV("history.length", len(history))

	state, err := ent.engine.behavior.Replay(history)
	if err != nil {
		if behavior.IsContractViolation(err) {
			ent.engine.logger.Errorf("engine: %s: history does not replay: %s", ent.partition, err)
		}
		return Error{"replay", err, "history does not replay from the zero-state"}
	}

	ent.engine.logger.Debugf("engine: materialized %s from %d events", ent.partition, len(history))
	ent.state, ent.loaded = state, true
	return nil
}
