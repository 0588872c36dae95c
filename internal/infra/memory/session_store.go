package memory

import (
	"context"
	"sync"

	"classroom-quiz-service/internal/domain"
)

const defaultMaxRetries = 10

// SessionStore is an in-memory implementation of app.SessionStore.
//
// Update reads a versioned copy, runs the mutation outside the lock and commits only if
// the version is unchanged, retrying otherwise. That is the same optimistic contract the
// Redis store offers, so concurrent writers behave identically against either backend.
type SessionStore struct {
	maxRetries int

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	doc         domain.Session
	version     uint64
	subscribers map[chan domain.Session]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		maxRetries: defaultMaxRetries,
		sessions:   make(map[string]*entry),
	}
}

// WithMaxRetries bounds optimistic retries per Update.
func (s *SessionStore) WithMaxRetries(n int) *SessionStore {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return domain.ErrConflict
	}
	for _, e := range s.sessions {
		if e.doc.Status == domain.StatusWaiting && e.doc.SecretCode == session.SecretCode {
			return domain.ErrCodeTaken
		}
	}
	s.sessions[session.ID] = &entry{
		doc:         session.Clone(),
		subscribers: make(map[chan domain.Session]struct{}),
	}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return e.doc.Clone(), nil
}

func (s *SessionStore) FindWaitingByCode(_ context.Context, code string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, e := range s.sessions {
		if e.doc.Status == domain.StatusWaiting && e.doc.SecretCode == code {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *SessionStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Session{}, err
		}

		s.mu.RLock()
		e, ok := s.sessions[id]
		if !ok {
			s.mu.RUnlock()
			return domain.Session{}, domain.ErrSessionNotFound
		}
		doc, version := e.doc.Clone(), e.version
		s.mu.RUnlock()

		if err := fn(&doc); err != nil {
			return domain.Session{}, err
		}

		s.mu.Lock()
		if e.version != version {
			s.mu.Unlock()
			continue
		}
		e.doc = doc
		e.version++
		s.broadcastLocked(e)
		s.mu.Unlock()
		return doc.Clone(), nil
	}
	return domain.Session{}, domain.ErrConflict
}

// AppendParticipant merges p into the roster under the write lock. It never rewrites the
// roster from a stale read, so simultaneous joiners cannot clobber one another.
func (s *SessionStore) AppendParticipant(_ context.Context, id string, p domain.Participant) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	before := len(e.doc.Participants)
	if err := e.doc.AddParticipant(p); err != nil {
		return domain.Session{}, err
	}
	if len(e.doc.Participants) != before {
		e.version++
		s.broadcastLocked(e)
	}
	return e.doc.Clone(), nil
}

func (s *SessionStore) Subscribe(_ context.Context, id string) (<-chan domain.Session, func(), error) {
	ch := make(chan domain.Session, 8)

	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrSessionNotFound
	}
	e.subscribers[ch] = struct{}{}
	ch <- e.doc.Clone()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *SessionStore) broadcastLocked(e *entry) {
	for ch := range e.subscribers {
		snapshot := e.doc.Clone()
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber: drop the oldest snapshot, the newest one supersedes it.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
