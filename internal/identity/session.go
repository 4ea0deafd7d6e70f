package identity

import "sync"

// Session is the observable auth state of one visitor. Observers receive
// the identity on sign-in and nil on sign-out.
type Session struct {
	mu        sync.Mutex
	current   *Identity
	listeners map[int]func(*Identity)
	nextID    int
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{listeners: make(map[int]func(*Identity))}
}

// Current returns the signed-in identity or nil.
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe calls fn with the current state now and on every change.
func (s *Session) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignIn publishes id.
func (s *Session) SignIn(id *Identity) {
	s.publish(id)
}

// SignOut publishes nil. Signing out twice notifies once.
func (s *Session) SignOut() {
	s.mu.Lock()
	signedOut := s.current == nil
	s.mu.Unlock()
	if signedOut {
		return
	}
	s.publish(nil)
}

func (s *Session) publish(id *Identity) {
	s.mu.Lock()
	s.current = id
	listeners := make([]func(*Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(id)
	}
}
