package async

import (
	"log/slog"
	"sync"
)

// subscriber forwards notifications to one Notifications channel from its
// own goroutine, so a consumer that stops draining never holds back
// delivery to anyone else.
type subscriber struct {
	ch     chan Notification
	logger *slog.Logger

	mu      sync.Mutex
	pending []Notification

	wake chan struct{}
	done chan struct{}
}

func newSubscriber(buffer int, logger *slog.Logger) *subscriber {
	return &subscriber{
		ch:     make(chan Notification, buffer),
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push queues n without blocking.
func (s *subscriber) push(n Notification) {
	s.mu.Lock()
	s.pending = append(s.pending, n)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	return batch
}

// pump forwards queued notifications until stop is called, then hands over
// whatever still fits in the channel and closes it.
func (s *subscriber) pump() {
	defer close(s.ch)
	for {
		select {
		case <-s.wake:
		case <-s.done:
			s.flush(nil)
			return
		}

		batch := s.take()
		for i, n := range batch {
			select {
			case s.ch <- n:
			case <-s.done:
				s.flush(batch[i:])
				return
			}
		}
	}
}

// flush delivers rest and anything still queued without blocking; what does
// not fit is dropped and logged.
func (s *subscriber) flush(rest []Notification) {
	rest = append(rest, s.take()...)
	for _, n := range rest {
		select {
		case s.ch <- n:
		default:
			s.logger.Warn("notification dropped, subscriber not draining",
				slog.String("id", n.ID.String()),
				slog.String("query", n.Query))
		}
	}
}

func (s *subscriber) stop() {
	close(s.done)
}
