// Package behavior describes the whole lifecycle of an event sourced
// aggregate declaratively. Every variant of an aggregate's closed state
// set hands out a partial command handler, deciding which commands are
// accepted (producing events) or rejected, and a partial event handler
// folding accepted events into the next state.
//
// Nothing in here mutates or performs I/O: given (state, command) the
// Behavior yields a Reaction, given (state, event) it yields the next
// state. Routing, persistence, replay and passivation belong to the
// hosting runtime (see framework/engine).
package behavior

import (
	"fmt"

	"github.com/pkg/errors"
)

// ZeroState marks the one state variant an aggregate occupies before any
// event has been applied to it.
//
// Only the zero-state may answer a create command, the Behavior refuses
// create commands in every other state with the built in
// HandlerNotDefined reason before any fragment is consulted. Runtimes use
// the zero-state to materialize a fresh aggregate on first delivery.
type ZeroState interface {
	ZeroState()
}

// Definition wires a domain's states into a Behavior.
type Definition[S, C, E any] struct {
	// Initial is the zero-state, it must implement ZeroState.
	Initial S

	// Commands returns the composed command fragment of a state, nil
	// means the state accepts nothing.
	Commands func(S) CommandFragment[C, E]

	// Events returns the composed event fragment of a state, nil means
	// the state is terminal.
	Events func(S) EventFragment[S, E]

	// Creates reports whether a command is a create command. Optional.
	Creates func(C) bool
}

// Behavior is the generic engine built from a Definition. It is safe for
// concurrent use as long as the fragments handed out by the Definition
// are.
type Behavior[S, C, E any] struct {
	def Definition[S, C, E]
}

// New validates the definition and returns a Behavior.
func New[S, C, E any](def Definition[S, C, E]) (*Behavior[S, C, E], error) {
	if _, ok := any(def.Initial).(ZeroState); !ok {
		return nil, errors.Errorf("behavior: initial state %T does not implement ZeroState", def.Initial)
	}
	if def.Commands == nil {
		return nil, errors.New("behavior: no command fragments defined")
	}
	if def.Events == nil {
		return nil, errors.New("behavior: no event fragments defined")
	}
	return &Behavior[S, C, E]{def: def}, nil
}

// Must is like New but panics on an invalid definition, meant for package
// level wiring.
func Must[S, C, E any](b *Behavior[S, C, E], err error) *Behavior[S, C, E] {
	if err != nil {
		panic(err)
	}
	return b
}

// Initial returns the zero-state.
func (b *Behavior[S, C, E]) Initial() S { return b.def.Initial }

// IsZero reports whether s is the zero-state variant.
func (b *Behavior[S, C, E]) IsZero(s S) bool {
	_, ok := any(s).(ZeroState)
	return ok
}

// ReactTo resolves the command fragment active for state and applies it,
// commands no fragment matches are rejected with HandlerNotDefined.
func (b *Behavior[S, C, E]) ReactTo(state S, cmd C) Reaction[E] {
	if b.def.Creates != nil && b.def.Creates(cmd) && !b.IsZero(state) {
		return Reject[E](HandlerNotDefined(state, cmd))
	}
	if f := b.def.Commands(state); f != nil {
		if r, ok := f(cmd); ok {
			return r
		}
	}
	return Reject[E](HandlerNotDefined(state, cmd))
}

// Fold applies one event to state. An event the state has no fragment
// for yields a *ContractViolation.
func (b *Behavior[S, C, E]) Fold(state S, ev E) (S, error) {
	if f := b.def.Events(state); f != nil {
		if next, ok := f(ev); ok {
			return next, nil
		}
	}
	return state, &ContractViolation{State: state, Event: ev}
}

// FoldAll folds evs one at a time in order. It is atomic, on a violation
// the original state is returned together with the error.
func (b *Behavior[S, C, E]) FoldAll(state S, evs []E) (S, error) {
	next := state
	for i, ev := range evs {
		var err error
		next, err = b.Fold(next, ev)
		if err != nil {
			if cv, ok := err.(*ContractViolation); ok {
				cv.Position = i
			}
			return state, err
		}
	}
	return next, nil
}

// Replay rebuilds a state from the complete ordered history.
func (b *Behavior[S, C, E]) Replay(evs []E) (S, error) {
	return b.FoldAll(b.Initial(), evs)
}

// Handle reacts to cmd and folds the accepted events, the returned state
// equals the given one for rejections.
func (b *Behavior[S, C, E]) Handle(state S, cmd C) (Reaction[E], S, error) {
	r := b.ReactTo(state, cmd)
	if !r.Accepted() {
		return r, state, nil
	}
	next, err := b.FoldAll(state, r.events)
	return r, next, err
}

// ContractViolation is returned when an event is folded against a state
// that has no fragment for it. It means the history and the domain
// definition disagree, callers must abort, never skip the event.
type ContractViolation struct {
	State    interface{}
	Event    interface{}
	Position int
}

func (cv *ContractViolation) Error() string {
	return fmt.Sprintf("behavior: contract violation: no event handler for %T in state %T (position %d)", cv.Event, cv.State, cv.Position)
}

// IsContractViolation reports whether err is, or wraps, a *ContractViolation.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}
