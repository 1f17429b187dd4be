package behavior

// CommandFragment is a partial command handler. The boolean is false when
// the fragment is not defined for the command, in which case the reaction
// must be ignored. A nil fragment is defined for nothing.
type CommandFragment[C, E any] func(cmd C) (Reaction[E], bool)

// EventFragment is a partial event handler producing the next state.
// A nil fragment is defined for nothing.
type EventFragment[S, E any] func(ev E) (S, bool)

// OrElse tries f first and falls back to g when f has no match.
func (f CommandFragment[C, E]) OrElse(g CommandFragment[C, E]) CommandFragment[C, E] {
	return Commands(f, g)
}

// OrElse tries f first and falls back to g when f has no match.
func (f EventFragment[S, E]) OrElse(g EventFragment[S, E]) EventFragment[S, E] {
	return Events(f, g)
}

// Commands composes fragments left to right, the first one defined for a
// command wins. Guards must therefore come before the general fragments
// they are meant to shadow.
func Commands[C, E any](fragments ...CommandFragment[C, E]) CommandFragment[C, E] {
	fs := append([]CommandFragment[C, E](nil), fragments...)
	return func(cmd C) (Reaction[E], bool) {
		for _, f := range fs {
			if f == nil {
				continue
			}
			if r, ok := f(cmd); ok {
				return r, true
			}
		}
		return Reaction[E]{}, false
	}
}

// Events composes event fragments left to right, first match wins.
func Events[S, E any](fragments ...EventFragment[S, E]) EventFragment[S, E] {
	fs := append([]EventFragment[S, E](nil), fragments...)
	return func(ev E) (S, bool) {
		for _, f := range fs {
			if f == nil {
				continue
			}
			if s, ok := f(ev); ok {
				return s, true
			}
		}
		var zero S
		return zero, false
	}
}

// On matches commands of the concrete variant T.
func On[T, C, E any](h func(T) Reaction[E]) CommandFragment[C, E] {
	return OnWhen[T, C, E](nil, h)
}

// OnWhen matches commands of the concrete variant T for which guard holds,
// a nil guard always holds.
func OnWhen[T, C, E any](guard func(T) bool, h func(T) Reaction[E]) CommandFragment[C, E] {
	return func(cmd C) (Reaction[E], bool) {
		t, ok := any(cmd).(T)
		if !ok {
			return Reaction[E]{}, false
		}
		if guard != nil && !guard(t) {
			return Reaction[E]{}, false
		}
		return h(t), true
	}
}

// RejectWith is defined for every command and rejects it with the reason
// built by fn.
func RejectWith[C, E any](fn func(C) Rejection) CommandFragment[C, E] {
	return func(cmd C) (Reaction[E], bool) {
		return Reject[E](fn(cmd)), true
	}
}

// Apply matches events of the concrete variant T.
func Apply[T, S, E any](h func(T) S) EventFragment[S, E] {
	return func(ev E) (S, bool) {
		t, ok := any(ev).(T)
		if !ok {
			var zero S
			return zero, false
		}
		return h(t), true
	}
}
