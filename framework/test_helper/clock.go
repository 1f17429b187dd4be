package test_helper

import (
	"sync"
	"time"
)

// StubClock starts at a fixed point in time and advances by one
// second on every call to Now, so that serialized fixtures are
// predictable.
type StubClock struct {
	mu   sync.Mutex
	next time.Time
}

func NewStubClock() *StubClock {
	return &StubClock{next: time.Date(2019, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}
