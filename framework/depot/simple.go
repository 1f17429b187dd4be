// Package depot packs domain events, keeps them in a storage.EventStore
// and publishes them to subscribers once they are durable.
package depot

import (
	"context"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/logging"
	"github.com/retro-framework/go-lottery/framework/matcher"
	"github.com/retro-framework/go-lottery/framework/packing"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
)

// Option configures a Simple depot.
type Option func(*Simple)

func WithClock(c retro.Clock) Option { return func(s *Simple) { s.clock = c } }

func WithLogger(l retro.Logger) Option { return func(s *Simple) { s.logger = l } }

func WithMatcher(m retro.PatternMatcher) Option { return func(s *Simple) { s.matcher = m } }

// Simple is the simplest possible Depot implementation, it requires an
// event store and a manifest to name events when packing and to map
// them back to types when rehydrating.
type Simple struct {
	store    storage.EventStore
	manifest retro.EventManifest
	packer   *packing.JSONPacker
	clock    retro.Clock
	logger   retro.Logger
	matcher  retro.PatternMatcher

	mu          sync.Mutex
	partitions  map[retro.PartitionName]*partitionState
	subscribers []*subscription
}

// partitionState serializes writers of one partition and remembers
// its length so that appends need not reload the log.
type partitionState struct {
	sync.Mutex
	known    bool
	sequence int
}

func New(store storage.EventStore, manifest retro.EventManifest, opts ...Option) *Simple {
	s := &Simple{
		store:      store,
		manifest:   manifest,
		packer:     packing.NewJSONPacker(),
		clock:      retro.SystemClock{},
		logger:     logging.Noop{},
		matcher:    &matcher.Glob{},
		partitions: map[retro.PartitionName]*partitionState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simple) partition(pn retro.PartitionName) *partitionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.partitions[pn]
	if !ok {
		ps = &partitionState{}
		s.partitions[pn] = ps
	}
	return ps
}

// Append packs evs and stores them at the end of the partition, in one
// write. Subscribers only hear about the events after the store
// accepted all of them.
func (s *Simple) Append(ctx context.Context, pn retro.PartitionName, evs ...retro.Event) ([]retro.PersistedEvent, error) {

	spnAppend, ctx := opentracing.StartSpanFromContext(ctx, "depot.Append")
	spnAppend.SetTag("partitionName", pn.String())
	defer spnAppend.Finish()

	if !pn.Valid() {
		return nil, Error{"validate", errors.Wrapf(ErrInvalidPartition, "%q", pn)}
	}
	if len(evs) == 0 {
		return nil, nil
	}

	ps := s.partition(pn)
	ps.Lock()
	defer ps.Unlock()

	if !ps.known {
		recs, err := s.store.Load(ctx, pn)
		if err != nil {
			return nil, Error{"load", err}
		}
		ps.sequence, ps.known = len(recs), true
	}

	var (
		now       = s.clock.Now()
		recs      = make([]storage.Record, len(evs))
		persisted = make([]retro.PersistedEvent, len(evs))
	)
	for i, ev := range evs {
		name, err := s.manifest.KeyFor(ev)
		if err != nil {
			return nil, Error{"event-name", err}
		}
		packed, err := s.packer.PackEvent(name, ev)
		if err != nil {
			return nil, Error{"pack", err}
		}
		recs[i] = storage.Record{
			Partition: pn,
			Sequence:  ps.sequence + i + 1,
			Name:      name,
			Hash:      packed.Hash().String(),
			Time:      now,
			Payload:   packed.Contents(),
		}
		persisted[i] = PersistedEv{
			sequence:      recs[i].Sequence,
			time:          now,
			name:          name,
			bytes:         packed.Contents(),
			hash:          packed.Hash(),
			partitionName: pn,
			event:         ev,
		}
	}

	if err := s.store.Append(ctx, pn, ps.sequence, recs...); err != nil {
		// Someone else wrote to the partition, forget what we knew.
		ps.known = false
		spnAppend.LogFields(log.Error(err))
		return nil, Error{"store", err}
	}
	ps.sequence += len(recs)
	spnAppend.LogFields(log.Int("appended", len(recs)), log.Int("sequence", ps.sequence))
	s.logger.Debugf("depot: appended %d events to %s", len(recs), pn)

	s.notifySubscribers(persisted)

	return persisted, nil
}

// Rehydrate returns an iterator over the complete history of the
// partition, an unknown partition yields Done straight away.
func (s *Simple) Rehydrate(ctx context.Context, pn retro.PartitionName) (retro.EventIterator, error) {

	spnRehydrate, ctx := opentracing.StartSpanFromContext(ctx, "depot.Rehydrate")
	spnRehydrate.SetTag("partitionName", pn.String())
	defer spnRehydrate.Finish()

	recs, err := s.store.Load(ctx, pn)
	if err != nil {
		return nil, Error{"load", err}
	}
	spnRehydrate.LogFields(log.Int("found.events", len(recs)))

	return &simpleEventIterator{
		partition: pn,
		records:   recs,
		packer:    s.packer,
		manifest:  s.manifest,
	}, nil
}

func (s *Simple) Exists(ctx context.Context, pn retro.PartitionName) (bool, error) {
	recs, err := s.store.Load(ctx, pn)
	if err != nil {
		return false, Error{"load", err}
	}
	return len(recs) > 0, nil
}

// Partitions lists the partitions whose name matches the glob pattern,
// an empty pattern matches all.
func (s *Simple) Partitions(ctx context.Context, pattern string) ([]retro.PartitionName, error) {
	if pattern == "" {
		pattern = "*"
	}
	all, err := s.store.Partitions(ctx)
	if err != nil {
		return nil, Error{"partitions", err}
	}
	var matching []retro.PartitionName
	for _, pn := range all {
		ok, err := s.matcher.DoesMatch(pattern, pn.String())
		if err != nil {
			return nil, Error{"match", err}
		}
		if ok {
			matching = append(matching, pn)
		}
	}
	return matching, nil
}

// Watch subscribes to events appended from now on to partitions
// matching the glob pattern. The subscription ends with Close or when
// ctx is done, in both cases the events channel is closed.
func (s *Simple) Watch(ctx context.Context, pattern string) retro.Subscription {
	sub := newSubscription(pattern, s.unsubscribe)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()
	go sub.run(ctx)
	return sub
}

func (s *Simple) unsubscribe(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.subscribers {
		if candidate == sub {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers hands the events to every subscriber whose pattern
// matches, subscribers buffer so this never blocks.
func (s *Simple) notifySubscribers(persisted []retro.PersistedEvent) {
	s.mu.Lock()
	var subscribers = make([]*subscription, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subscribers {
		for _, pEv := range persisted {
			ok, err := s.matcher.DoesMatch(sub.pattern, pEv.PartitionName().String())
			if err != nil {
				s.logger.Warnf("depot: subscriber pattern %q: %s", sub.pattern, err)
				break
			}
			if ok {
				sub.push(pEv)
			}
		}
	}
}
