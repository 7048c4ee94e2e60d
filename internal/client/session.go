package client

import (
	"context"
	"sync"
	"time"

	"github.com/baharkarakas/shop-backend/internal/models"
)

// Observer receives the signed-in user, or nil when signed out.
type Observer func(u *models.PublicUser)

// RestoreFunc recovers a previous session during initialization.
type RestoreFunc func(ctx context.Context) (*models.PublicUser, error)

type subscriber struct {
	id int
	fn Observer
}

type event struct {
	user    *models.PublicUser
	targets []subscriber
}

// Session tracks the current identity. New observers get the current value
// synchronously; once Initialize finishes every observer registered by then
// gets one more delivery; after that each Set reaches all observers in
// registration order. Deliveries after subscribe happen on a single
// dispatcher goroutine.
type Session struct {
	mu        sync.Mutex
	current   *models.PublicUser
	subs      []subscriber
	nextID    int
	queue     []event
	notify    chan struct{}
	ready     chan struct{}
	startOnce sync.Once
	readyOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
	restErr   error
}

func NewSession() *Session {
	s := &Session{
		notify:  make(chan struct{}, 1),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.dispatch()
	return s
}

func clone(u *models.PublicUser) *models.PublicUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (s *Session) Current() *models.PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.current)
}

// Subscribe registers fn, calls it with the current value before returning,
// and returns a function that removes it.
func (s *Session) Subscribe(fn Observer) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	cur := clone(s.current)
	s.mu.Unlock()

	fn(cur)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Initialize runs restore after delay in the background and then fires the
// one-off initialization delivery. Later calls are ignored.
func (s *Session) Initialize(ctx context.Context, delay time.Duration, restore RestoreFunc) {
	s.startOnce.Do(func() {
		go func() {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			case <-s.done:
				s.markReady()
				return
			}
			var u *models.PublicUser
			var err error
			if restore != nil && ctx.Err() == nil {
				u, err = restore(ctx)
			}
			s.mu.Lock()
			if err == nil && u != nil {
				s.current = clone(u)
			}
			s.restErr = err
			s.enqueueLocked()
			s.mu.Unlock()
			s.markReady()
		}()
	})
}

// Ready is closed once initialization has completed or the session is closed,
// whichever happens first.
func (s *Session) Ready() <-chan struct{} { return s.ready }

func (s *Session) markReady() { s.readyOnce.Do(func() { close(s.ready) }) }

// RestoreErr reports why the previous session could not be restored, if it
// could not.
func (s *Session) RestoreErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restErr
}

// Set changes the identity and notifies every observer.
func (s *Session) Set(u *models.PublicUser) {
	s.mu.Lock()
	s.current = clone(u)
	s.enqueueLocked()
	s.mu.Unlock()
}

func (s *Session) enqueueLocked() {
	s.queue = append(s.queue, event{
		user:    clone(s.current),
		targets: append([]subscriber(nil), s.subs...),
	})
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) dispatch() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			live := make(map[int]bool, len(s.subs))
			for _, sub := range s.subs {
				live[sub.id] = true
			}
			s.mu.Unlock()
			for _, sub := range ev.targets {
				if live[sub.id] {
					sub.fn(clone(ev.user))
				}
			}
		}
	}
}

// Close stops the dispatcher. Pending deliveries are dropped. It must not be
// called from inside an Observer.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
		s.markReady()
	})
}
