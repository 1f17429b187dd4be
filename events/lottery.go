package events

import "time"

// Event is the closed set of lottery events. Events are immutable facts,
// once persisted they are never altered.
type Event interface {
	LotteryID() string
	isEvent()
}

type LotteryCreated struct {
	ID string `json:"id"`
}

type ParticipantAdded struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ParticipantRemoved struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// WinnerSelected records the drawn winner, Timestamp is when the draw
// was accepted.
type WinnerSelected struct {
	Winner    string    `json:"winner"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
}

func (ev LotteryCreated) LotteryID() string     { return ev.ID }
func (ev ParticipantAdded) LotteryID() string   { return ev.ID }
func (ev ParticipantRemoved) LotteryID() string { return ev.ID }
func (ev WinnerSelected) LotteryID() string     { return ev.ID }

func (LotteryCreated) isEvent()     {}
func (ParticipantAdded) isEvent()   {}
func (ParticipantRemoved) isEvent() {}
func (WinnerSelected) isEvent()     {}
