package commands

// Command is the closed set of lottery commands. Every command carries
// the id of the lottery it is addressed to.
type Command interface {
	LotteryID() string
	isCommand()
}

type CreateLottery struct {
	ID string `json:"id"`
}

type AddParticipant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RemoveParticipant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RemoveAllParticipants struct {
	ID string `json:"id"`
}

type Run struct {
	ID string `json:"id"`
}

func (c CreateLottery) LotteryID() string         { return c.ID }
func (c AddParticipant) LotteryID() string        { return c.ID }
func (c RemoveParticipant) LotteryID() string     { return c.ID }
func (c RemoveAllParticipants) LotteryID() string { return c.ID }
func (c Run) LotteryID() string                   { return c.ID }

func (CreateLottery) isCommand()         {}
func (AddParticipant) isCommand()        {}
func (RemoveParticipant) isCommand()     {}
func (RemoveAllParticipants) isCommand() {}
func (Run) isCommand()                   {}

// IsCreate reports whether cmd brings a lottery into existence.
func IsCreate(cmd Command) bool {
	_, ok := cmd.(CreateLottery)
	return ok
}
