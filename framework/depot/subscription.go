package depot

import (
	"context"
	"sync"

	"github.com/golang-collections/collections/queue"
	"github.com/retro-framework/go-lottery/framework/retro"
)

// subscription buffers published events in an unbounded queue and
// feeds them to the consumer from its own goroutine, publishing never
// waits for a slow consumer.
type subscription struct {
	pattern string

	mu     sync.Mutex
	q      *queue.Queue
	closed bool

	signal    chan struct{}
	done      chan struct{}
	out       chan retro.PersistedEvent
	closeOnce sync.Once

	unsubscribe func(*subscription)
}

func newSubscription(pattern string, unsubscribe func(*subscription)) *subscription {
	return &subscription{
		pattern:     pattern,
		q:           queue.New(),
		signal:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		out:         make(chan retro.PersistedEvent),
		unsubscribe: unsubscribe,
	}
}

func (s *subscription) Pattern() string                     { return s.pattern }
func (s *subscription) Events() <-chan retro.PersistedEvent { return s.out }

func (s *subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

// Pending is the number of events queued but not yet received.
func (s *subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Len()
}

func (s *subscription) push(pEv retro.PersistedEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.q.Enqueue(pEv)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.out)
	defer s.unsubscribe(s)
	defer s.Close()
	for {
		s.mu.Lock()
		if s.q.Len() == 0 {
			s.mu.Unlock()
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
		pEv := s.q.Dequeue().(retro.PersistedEvent)
		s.mu.Unlock()
		select {
		case s.out <- pEv:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
