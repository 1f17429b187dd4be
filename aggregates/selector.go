package aggregates

import (
	"math/rand/v2"
	"sync"
)

// Selector draws the winner from a non-empty list of participants. It
// must return one of the given names, and should pick uniformly.
type Selector func(participants []string) string

// UniformSelector draws from the goroutine safe global source.
func UniformSelector() Selector {
	return func(participants []string) string {
		return participants[rand.IntN(len(participants))]
	}
}

// SeededSelector draws from a PCG source seeded with seed, so runs can be
// reproduced. Draws are serialized, lotteries handled in parallel share
// the source.
func SeededSelector(seed uint64) Selector {
	var (
		mu  sync.Mutex
		rnd = rand.New(rand.NewPCG(seed, seed))
	)
	return func(participants []string) string {
		mu.Lock()
		defer mu.Unlock()
		return participants[rnd.IntN(len(participants))]
	}
}

// First always picks the first participant, the one added last.
func First(participants []string) string { return participants[0] }
