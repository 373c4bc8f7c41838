package frontdesk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/frontdesk/pkg/backend"
	"github.com/appetiteclub/frontdesk/pkg/booking"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

type Session struct {
	ID        string
	UserID    string
	Username  string
	Email     string
	Phone     string
	Role      string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Profile() booking.Profile {
	return booking.Profile{Name: s.Username, Email: s.Email, Phone: s.Phone}
}

// HasRole reports whether the session carries one of the given roles.
func (s *Session) HasRole(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration
	onDelete func(sessionID string)
	done     chan struct{}
	stopOnce sync.Once
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	store := &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}

	go store.cleanup()

	return store
}

// OnDelete registers a callback run after a session is removed, whether by
// sign out, expiry or token rejection.
func (s *SessionStore) OnDelete(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = fn
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) Save(session *Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

func (s *SessionStore) Get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	return session, nil
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	onDelete := s.onDelete
	s.mu.Unlock()

	if ok && onDelete != nil {
		onDelete(sessionID)
	}
}

// TokenSource exposes a session's backend token. A rejected token ends the
// session.
func (s *SessionStore) TokenSource(sessionID string) backend.TokenSource {
	return &sessionToken{store: s, sessionID: sessionID}
}

func (s *SessionStore) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

func (s *SessionStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.expire(time.Now())
		}
	}
}

func (s *SessionStore) expire(now time.Time) {
	s.mu.Lock()
	var expired []string
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	onDelete := s.onDelete
	s.mu.Unlock()

	if onDelete == nil {
		return
	}
	for _, id := range expired {
		onDelete(id)
	}
}

type sessionToken struct {
	store     *SessionStore
	sessionID string
}

func (t *sessionToken) Token() string {
	session, err := t.store.Get(t.sessionID)
	if err != nil {
		return ""
	}
	return session.Token
}

func (t *sessionToken) Invalidate() {
	t.store.Delete(t.sessionID)
}
