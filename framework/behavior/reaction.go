package behavior

// Reaction is what a command handler hands back for one command. It is
// either Accepted, carrying an ordered and non-empty list of events which
// must be folded into the state one after another, or Rejected, carrying
// the reason why nothing happened.
//
// The zero value is neither accepted nor carries a reason, handlers should
// only ever build Reactions with Accept or Reject.
type Reaction[E any] struct {
	events    []E
	rejection *Rejection
}

// Accept returns a reaction accepting the command with the given events
// in order. The signature makes an acceptance without events unrepresentable.
func Accept[E any](first E, rest ...E) Reaction[E] {
	evs := make([]E, 0, 1+len(rest))
	evs = append(evs, first)
	evs = append(evs, rest...)
	return Reaction[E]{events: evs}
}

// Reject returns a reaction refusing the command for the given reason.
func Reject[E any](r Rejection) Reaction[E] {
	return Reaction[E]{rejection: &r}
}

func (r Reaction[E]) Accepted() bool { return r.rejection == nil && len(r.events) > 0 }

// Events returns a copy of the accepted events, nil for a rejection.
func (r Reaction[E]) Events() []E {
	if !r.Accepted() {
		return nil
	}
	return append([]E(nil), r.events...)
}

// Rejection returns the reason and true when the reaction is a rejection.
func (r Reaction[E]) Rejection() (Rejection, bool) {
	if r.rejection == nil {
		return Rejection{}, false
	}
	return *r.rejection, true
}
