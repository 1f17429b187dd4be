package behavior

import (
	"encoding/json"
	"testing"

	test "github.com/retro-framework/go-lottery/framework/test_helper"
)

// A door which can be installed, opened and closed.

type doorCmd interface{}
type doorEv interface{}
type doorState interface{}

type install struct{}
type open struct{ force bool }
type shut struct{}

type installed struct{}
type opened struct{}
type closed struct{}

type missing struct{}
type isShut struct{}
type isOpen struct{}

func (missing) ZeroState() {}

func doorCommands(s doorState) CommandFragment[doorCmd, doorEv] {
	switch s.(type) {
	case missing:
		return On[install, doorCmd](func(install) Reaction[doorEv] { return Accept[doorEv](installed{}) })
	case isShut:
		return Commands(
			OnWhen[open, doorCmd](
				func(c open) bool { return !c.force },
				func(open) Reaction[doorEv] { return Reject[doorEv](Domain("locked", "the door is locked")) },
			),
			On[open, doorCmd](func(open) Reaction[doorEv] { return Accept[doorEv](opened{}) }),
		)
	case isOpen:
		return On[shut, doorCmd](func(shut) Reaction[doorEv] { return Accept[doorEv](closed{}) })
	}
	return nil
}

func doorEvents(s doorState) EventFragment[doorState, doorEv] {
	switch s.(type) {
	case missing:
		return Apply[installed, doorState, doorEv](func(installed) doorState { return isShut{} })
	case isShut:
		return Apply[opened, doorState, doorEv](func(opened) doorState { return isOpen{} })
	case isOpen:
		return Apply[closed, doorState, doorEv](func(closed) doorState { return isShut{} })
	}
	return nil
}

func door(t *testing.T) *Behavior[doorState, doorCmd, doorEv] {
	t.Helper()
	b, err := New(Definition[doorState, doorCmd, doorEv]{
		Initial:  missing{},
		Commands: doorCommands,
		Events:   doorEvents,
		Creates:  func(c doorCmd) bool { _, ok := c.(install); return ok },
	})
	test.H(t).IsNil(err)
	return b
}

func Test_Reaction(t *testing.T) {

	t.Run("accepted reactions hand out copies of their events", func(t *testing.T) {
		r := Accept[doorEv](installed{}, opened{})
		evs := r.Events()
		evs[0] = closed{}
		test.H(t).BoolEql(r.Accepted(), true)
		test.H(t).InterfaceEql(r.Events(), []doorEv{installed{}, opened{}})
		_, rejected := r.Rejection()
		test.H(t).BoolEql(rejected, false)
	})

	t.Run("rejected reactions carry no events", func(t *testing.T) {
		r := Reject[doorEv](Domain("nope", "no"))
		test.H(t).BoolEql(r.Accepted(), false)
		test.H(t).IntEql(len(r.Events()), 0)
		rej, ok := r.Rejection()
		test.H(t).BoolEql(ok, true)
		test.H(t).StringEql(rej.Code, "nope")
		test.H(t).BoolEql(rej.IsDomain(), true)
	})

	t.Run("the zero reaction is not accepted", func(t *testing.T) {
		var r Reaction[doorEv]
		test.H(t).BoolEql(r.Accepted(), false)
	})
}

func Test_Composition(t *testing.T) {

	var (
		a = OnWhen[int, int, string](func(i int) bool { return i > 10 }, func(int) Reaction[string] { return Accept("a") })
		b = OnWhen[int, int, string](func(i int) bool { return i > 5 }, func(int) Reaction[string] { return Accept("b") })
		c = On[int, int, string](func(int) Reaction[string] { return Accept("c") })
	)

	run := func(f CommandFragment[int, string], i int) string {
		r, ok := f(i)
		if !ok {
			return "-"
		}
		return r.Events()[0]
	}

	t.Run("first match wins", func(t *testing.T) {
		f := Commands(a, b, c)
		test.H(t).StringEql(run(f, 20), "a")
		test.H(t).StringEql(run(f, 7), "b")
		test.H(t).StringEql(run(f, 1), "c")
	})

	t.Run("order matters", func(t *testing.T) {
		f := Commands(c, a, b)
		test.H(t).StringEql(run(f, 20), "c")
	})

	t.Run("composition is associative", func(t *testing.T) {
		left := a.OrElse(b).OrElse(c)
		right := a.OrElse(b.OrElse(c))
		for _, i := range []int{1, 6, 11} {
			test.H(t).StringEql(run(left, i), run(right, i))
		}
	})

	t.Run("nil fragments and empty compositions never match", func(t *testing.T) {
		var none CommandFragment[int, string]
		test.H(t).StringEql(run(Commands[int, string](), 20), "-")
		test.H(t).StringEql(run(Commands(none, a), 20), "a")
		test.H(t).StringEql(run(Commands(a, none), 1), "-")
	})

	t.Run("event fragments compose the same way", func(t *testing.T) {
		var (
			even = EventFragment[string, int](func(i int) (string, bool) { return "even", i%2 == 0 })
			all  = EventFragment[string, int](func(int) (string, bool) { return "all", true })
		)
		s, ok := even.OrElse(all)(3)
		test.H(t).BoolEql(ok, true)
		test.H(t).StringEql(s, "all")
		s, _ = Events(even, all)(4)
		test.H(t).StringEql(s, "even")
		_, ok = Events[string, int]()(4)
		test.H(t).BoolEql(ok, false)
	})

	t.Run("reject with matches everything", func(t *testing.T) {
		f := RejectWith[int, string](func(int) Rejection { return Domain("x", "y") })
		r, ok := f(42)
		test.H(t).BoolEql(ok, true)
		test.H(t).BoolEql(r.Accepted(), false)
	})
}

func Test_New(t *testing.T) {

	t.Run("requires the initial state to be the zero-state", func(t *testing.T) {
		_, err := New(Definition[doorState, doorCmd, doorEv]{
			Initial:  isShut{},
			Commands: doorCommands,
			Events:   doorEvents,
		})
		test.H(t).NotNil(err)
	})

	t.Run("requires handlers", func(t *testing.T) {
		_, err := New(Definition[doorState, doorCmd, doorEv]{Initial: missing{}})
		test.H(t).NotNil(err)
	})
}

func Test_Behavior_ReactTo(t *testing.T) {

	t.Run("unmatched commands are rejected as not defined", func(t *testing.T) {
		b := door(t)
		r := b.ReactTo(isOpen{}, open{})
		rej, ok := r.Rejection()
		test.H(t).BoolEql(ok, true)
		test.H(t).BoolEql(rej.IsHandlerNotDefined(), true)
		test.H(t).StringEql(rej.Code, CodeHandlerNotDefined)
	})

	t.Run("states without fragments reject everything as not defined", func(t *testing.T) {
		b := door(t)
		rej, _ := b.ReactTo("unknown state", shut{}).Rejection()
		test.H(t).BoolEql(rej.IsHandlerNotDefined(), true)
	})

	t.Run("guards are tried before general fragments", func(t *testing.T) {
		b := door(t)
		rej, ok := b.ReactTo(isShut{}, open{}).Rejection()
		test.H(t).BoolEql(ok, true)
		test.H(t).StringEql(rej.Code, "locked")
		test.H(t).BoolEql(b.ReactTo(isShut{}, open{force: true}).Accepted(), true)
	})

	t.Run("only the zero-state answers create commands", func(t *testing.T) {
		d := door(t)
		test.H(t).BoolEql(d.ReactTo(missing{}, install{}).Accepted(), true)
		rej, _ := d.ReactTo(isShut{}, install{}).Rejection()
		test.H(t).BoolEql(rej.IsHandlerNotDefined(), true)
	})
}

func Test_Behavior_Fold(t *testing.T) {

	t.Run("folds accepted events into the next state", func(t *testing.T) {
		b := door(t)
		r, next, err := b.Handle(b.Initial(), install{})
		test.H(t).IsNil(err)
		test.H(t).BoolEql(r.Accepted(), true)
		test.H(t).InterfaceEql(next, isShut{})
	})

	t.Run("unknown events are contract violations", func(t *testing.T) {
		b := door(t)
		_, err := b.Fold(isOpen{}, opened{})
		test.H(t).NotNil(err)
		test.H(t).BoolEql(IsContractViolation(err), true)
	})

	t.Run("fold all is atomic", func(t *testing.T) {
		// Arrange
		b := door(t)

		// Act
		state, err := b.FoldAll(isShut{}, []doorEv{opened{}, closed{}, closed{}})

		// Assert
		test.H(t).InterfaceEql(state, isShut{})
		cv, ok := err.(*ContractViolation)
		test.H(t).BoolEql(ok, true)
		test.H(t).IntEql(cv.Position, 2)
	})

	t.Run("replay starts from the zero-state", func(t *testing.T) {
		b := door(t)
		state, err := b.Replay([]doorEv{installed{}, opened{}, closed{}, opened{}})
		test.H(t).IsNil(err)
		test.H(t).InterfaceEql(state, isOpen{})

		state, err = b.Replay(nil)
		test.H(t).IsNil(err)
		test.H(t).InterfaceEql(state, missing{})
	})
}

func Test_Rejection_JSON(t *testing.T) {
	b, err := json.Marshal(Domain("locked", "the door is locked"))
	test.H(t).IsNil(err)
	test.H(t).StringEql(string(b), `{"kind":"domain","code":"locked","message":"the door is locked"}`)

	var rej Rejection
	test.H(t).IsNil(json.Unmarshal([]byte(`{"kind":"handler_not_defined","code":"x","message":"y"}`), &rej))
	test.H(t).BoolEql(rej.IsHandlerNotDefined(), true)
	test.H(t).NotNil(json.Unmarshal([]byte(`{"kind":"other"}`), &rej))
}
