package projections

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/retro"
)

// Summary is the read model of one lottery.
type Summary struct {
	ID           string   `json:"id"`
	State        string   `json:"state"`
	Participants []string `json:"participants"`
	Winner       string   `json:"winner,omitempty"`
}

// Summarize renders a lottery state.
func Summarize(id string, s aggregates.State) Summary {
	var sum = Summary{ID: id, State: aggregates.StateName(s), Participants: []string{}}
	switch ts := s.(type) {
	case aggregates.NonEmpty:
		sum.Participants = append(sum.Participants, ts.Participants...)
	case aggregates.Finished:
		sum.Winner = ts.Winner
	}
	return sum
}

// Summaries folds published lottery events with the lottery behavior
// into an in memory state per lottery.
type Summaries struct {
	behavior *aggregates.Behavior

	mu     sync.RWMutex
	states map[string]aggregates.State
}

func NewSummaries(b *aggregates.Behavior) *Summaries {
	return &Summaries{behavior: b, states: map[string]aggregates.State{}}
}

func (s *Summaries) Name() string { return "summaries" }

func (s *Summaries) Project(_ context.Context, pEv retro.PersistedEvent) error {
	ev, ok := pEv.Event().(events.Event)
	if !ok {
		return nil
	}
	id := pEv.PartitionName().ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		state = s.behavior.Initial()
	}
	next, err := s.behavior.Fold(state, ev)
	if err != nil {
		return errors.Wrapf(err, "summaries: %s", pEv.PartitionName())
	}
	s.states[id] = next
	return nil
}

func (s *Summaries) Get(id string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[id]
	if !ok {
		return Summary{}, false
	}
	return Summarize(id, state), true
}

// List returns all lotteries sorted by id.
func (s *Summaries) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out = make([]Summary, 0, len(s.states))
	for id, state := range s.states {
		out = append(out, Summarize(id, state))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
