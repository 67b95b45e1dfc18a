package api

import "sync"

// User is the signed-in account.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	RestaurantID string `json:"restaurant_id,omitempty"`
}

// Session holds the credentials fetchers use. It is shared by reference and
// safe for concurrent use; the zero value is a signed-out session.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *User
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetUser stores a copy of u.
func (s *Session) SetUser(u User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}
