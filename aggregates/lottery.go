package aggregates

import (
	"fmt"

	"github.com/retro-framework/go-lottery/commands"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/behavior"
	"github.com/retro-framework/go-lottery/framework/retro"
)

// Rejection codes of the lottery domain.
const (
	CodeNoParticipants  = "no_participants"
	CodeAlreadyAdded    = "already_added"
	CodeLotteryFinished = "lottery_finished"
)

type (
	reaction        = behavior.Reaction[events.Event]
	commandFragment = behavior.CommandFragment[commands.Command, events.Event]
	eventFragment   = behavior.EventFragment[State, events.Event]
)

// State is the closed set of lottery states, exactly one is current.
// Every variant hands out its own fragments, commands or events no
// fragment matches are rejected (commands) or violate the contract
// (events) without the variants having to say so.
type State interface {
	commandHandler(l *lottery) commandFragment
	eventHandler() eventFragment
}

// Uninitialized is the zero-state, no lottery exists for the id yet.
type Uninitialized struct{}

// Empty is a created lottery without participants.
type Empty struct{}

// NonEmpty has at least one participant and no winner yet. The most
// recently added participant comes first.
type NonEmpty struct {
	Participants []string `json:"participants"`
}

// Finished is terminal, a winner has been drawn.
type Finished struct {
	Winner string `json:"winner"`
	ID     string `json:"id"`
}

func (Uninitialized) ZeroState() {}

func (Uninitialized) commandHandler(l *lottery) commandFragment {
	return behavior.On[commands.CreateLottery, commands.Command](func(c commands.CreateLottery) reaction {
		return behavior.Accept[events.Event](events.LotteryCreated{ID: c.ID})
	})
}

func (Uninitialized) eventHandler() eventFragment {
	return behavior.Apply[events.LotteryCreated, State, events.Event](func(events.LotteryCreated) State {
		return Empty{}
	})
}

func (Empty) commandHandler(l *lottery) commandFragment {
	return behavior.Commands(
		behavior.On[commands.Run, commands.Command](func(commands.Run) reaction {
			return behavior.Reject[events.Event](behavior.Domain(CodeNoParticipants, "no participants"))
		}),
		behavior.On[commands.AddParticipant, commands.Command](func(c commands.AddParticipant) reaction {
			return behavior.Accept[events.Event](events.ParticipantAdded{Name: c.Name, ID: c.ID})
		}),
	)
}

func (Empty) eventHandler() eventFragment {
	return behavior.Apply[events.ParticipantAdded, State, events.Event](func(ev events.ParticipantAdded) State {
		return NonEmpty{Participants: []string{ev.Name}}
	})
}

func (s NonEmpty) commandHandler(l *lottery) commandFragment {
	return behavior.Commands(
		// must come before the general AddParticipant fragment
		behavior.OnWhen[commands.AddParticipant, commands.Command](
			func(c commands.AddParticipant) bool { return s.Has(c.Name) },
			func(c commands.AddParticipant) reaction {
				return behavior.Reject[events.Event](behavior.Domain(CodeAlreadyAdded, fmt.Sprintf("participant %q already added", c.Name)))
			},
		),
		behavior.On[commands.AddParticipant, commands.Command](func(c commands.AddParticipant) reaction {
			return behavior.Accept[events.Event](events.ParticipantAdded{Name: c.Name, ID: c.ID})
		}),
		behavior.On[commands.RemoveParticipant, commands.Command](func(c commands.RemoveParticipant) reaction {
			return behavior.Accept[events.Event](events.ParticipantRemoved{Name: c.Name, ID: c.ID})
		}),
		behavior.On[commands.RemoveAllParticipants, commands.Command](func(c commands.RemoveAllParticipants) reaction {
			evs := make([]events.Event, 0, len(s.Participants))
			for _, name := range s.Participants {
				evs = append(evs, events.ParticipantRemoved{Name: name, ID: c.ID})
			}
			return behavior.Accept(evs[0], evs[1:]...)
		}),
		behavior.On[commands.Run, commands.Command](func(c commands.Run) reaction {
			return behavior.Accept[events.Event](events.WinnerSelected{
				Winner:    l.selector(s.participants()),
				Timestamp: l.clock.Now(),
				ID:        c.ID,
			})
		}),
	)
}

func (s NonEmpty) eventHandler() eventFragment {
	return behavior.Events(
		behavior.Apply[events.ParticipantAdded, State, events.Event](func(ev events.ParticipantAdded) State {
			return NonEmpty{Participants: append([]string{ev.Name}, s.Participants...)}
		}),
		behavior.Apply[events.ParticipantRemoved, State, events.Event](func(ev events.ParticipantRemoved) State {
			var rest []string
			for _, p := range s.Participants {
				if p != ev.Name {
					rest = append(rest, p)
				}
			}
			if len(rest) == 0 {
				return Empty{}
			}
			return NonEmpty{Participants: rest}
		}),
		behavior.Apply[events.WinnerSelected, State, events.Event](func(ev events.WinnerSelected) State {
			return Finished{Winner: ev.Winner, ID: ev.ID}
		}),
	)
}

// Has reports whether name is a participant.
func (s NonEmpty) Has(name string) bool {
	for _, p := range s.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// participants hands the selector a copy, so it can't reach into the
// state.
func (s NonEmpty) participants() []string {
	return append([]string(nil), s.Participants...)
}

func (s Finished) commandHandler(l *lottery) commandFragment {
	return behavior.RejectWith[commands.Command, events.Event](func(commands.Command) behavior.Rejection {
		return behavior.Domain(CodeLotteryFinished, fmt.Sprintf("lottery %s is finished, the winner is %s", s.ID, s.Winner))
	})
}

func (Finished) eventHandler() eventFragment { return nil }

// lottery carries the collaborators the fragments need, the states
// themselves only carry their payload.
type lottery struct {
	selector Selector
	clock    retro.Clock
}

// Behavior is the lottery instantiation of the generic behavior engine.
type Behavior = behavior.Behavior[State, commands.Command, events.Event]

// NewBehavior returns the lottery Behavior drawing winners with selector
// and stamping them with the time from clock.
func NewBehavior(selector Selector, clock retro.Clock) *Behavior {
	if selector == nil {
		selector = UniformSelector()
	}
	if clock == nil {
		clock = retro.SystemClock{}
	}
	l := &lottery{selector: selector, clock: clock}
	return behavior.Must(behavior.New(behavior.Definition[State, commands.Command, events.Event]{
		Initial:  Uninitialized{},
		Commands: func(s State) commandFragment { return s.commandHandler(l) },
		Events:   func(s State) eventFragment { return s.eventHandler() },
		Creates:  commands.IsCreate,
	}))
}

// Partition names the partition cmd is addressed to, e.g lottery/123.
func Partition(cmd commands.Command) retro.PartitionName {
	return retro.NewPartitionName(commands.Dirname, cmd.LotteryID())
}

// StateName returns a short name for s, for rendering to clients.
func StateName(s State) string {
	switch s.(type) {
	case Uninitialized:
		return "uninitialized"
	case Empty:
		return "empty"
	case NonEmpty:
		return "non_empty"
	case Finished:
		return "finished"
	}
	return "unknown"
}
