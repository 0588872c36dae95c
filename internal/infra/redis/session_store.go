package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const defaultMaxRetries = 10

// SessionStore keeps each session document as one JSON value and serializes writers with
// optimistic WATCH/MULTI transactions.
//
// Keys:
//
//	session:{id}          JSON document
//	session:code:{code}   session id, held only while that session is waiting; renewed with
//	                      the document and removed only by the session it points at
//	session:{id}:events   Pub/Sub channel carrying every committed document
type SessionStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxRetries int
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl, maxRetries: defaultMaxRetries}
}

// WithMaxRetries bounds optimistic retries per transaction.
func (s *SessionStore) WithMaxRetries(n int) *SessionStore {
	if n > 0 {
		s.maxRetries = n
	}
	return s
}

// Create stores a new session and claims its secret code. A code already held by another
// waiting session yields domain.ErrCodeTaken.
func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, s.codeKey(session.SecretCode), session.ID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim secret code: %w", err)
	}
	if !claimed {
		return domain.ErrCodeTaken
	}

	created, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil || !created {
		_ = s.client.Del(ctx, s.codeKey(session.SecretCode)).Err()
		if err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		return domain.ErrConflict
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(raw)
}

// FindWaitingByCode resolves the code index and double-checks the document status, since the
// index can briefly outlive a session whose TTL expired.
func (s *SessionStore) FindWaitingByCode(ctx context.Context, code string) ([]string, error) {
	id, err := s.client.Get(ctx, s.codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup secret code: %w", err)
	}
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Status != domain.StatusWaiting || session.SecretCode != code {
		return nil, nil
	}
	return []string{id}, nil
}

// Update runs fn inside a WATCHed transaction and retries when another client commits first.
func (s *SessionStore) Update(ctx context.Context, id string, fn func(*domain.Session) error) (domain.Session, error) {
	key := s.key(id)
	var committed domain.Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		session, err := decodeSession(raw)
		if err != nil {
			return err
		}

		wasWaiting := session.Status == domain.StatusWaiting
		codeKey := s.codeKey(session.SecretCode)
		ownsCode := false
		if wasWaiting {
			if err := tx.Watch(ctx, codeKey).Err(); err != nil {
				return fmt.Errorf("watch secret code: %w", err)
			}
			owner, err := tx.Get(ctx, codeKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("load secret code: %w", err)
			}
			ownsCode = owner == id
		}

		if err := fn(&session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			// The code index outlives neither the waiting state nor a claim by another session.
			if ownsCode {
				switch {
				case session.Status != domain.StatusWaiting:
					pipe.Del(ctx, codeKey)
				case s.ttl > 0:
					pipe.Expire(ctx, codeKey, s.ttl)
				}
			}
			pipe.Publish(ctx, s.channel(id), data)
			return nil
		})
		if err != nil {
			return err
		}
		committed = session
		return nil
	}

	if err := s.retry(ctx, txf, key); err != nil {
		return domain.Session{}, err
	}
	return committed, nil
}

// AppendParticipant merges one roster entry. The transaction watches the document, so a
// concurrent join forces a re-read and the entry is added on top of the newer roster rather
// than replacing it.
func (s *SessionStore) AppendParticipant(ctx context.Context, id string, p domain.Participant) (domain.Session, error) {
	return s.Update(ctx, id, func(session *domain.Session) error {
		return session.AddParticipant(p)
	})
}

func (s *SessionStore) retry(ctx context.Context, txf func(*redis.Tx) error, key string) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return domain.ErrConflict
}

// Subscribe listens on the session channel and emits the current document first. The
// subscription is confirmed before the initial read so no commit falls in between.
func (s *SessionStore) Subscribe(ctx context.Context, id string) (<-chan domain.Session, func(), error) {
	pubsub := s.client.Subscribe(ctx, s.channel(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe session: %w", err)
	}

	initial, err := s.Get(ctx, id)
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan domain.Session, 8)
	out <- initial

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case <-stop:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				session, err := decodeSession([]byte(msg.Payload))
				if err != nil {
					continue
				}
				select {
				case out <- session:
				default:
					// Slow subscriber: drop the oldest snapshot, the newest one supersedes it.
					select {
					case <-out:
					default:
					}
					out <- session
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			_ = pubsub.Close()
			<-done
		})
	}
	return out, cancel, nil
}

func (s *SessionStore) key(id string) string {
	return "session:" + id
}

func (s *SessionStore) codeKey(code string) string {
	return "session:code:" + code
}

func (s *SessionStore) channel(id string) string {
	return "session:" + id + ":events"
}

func decodeSession(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if session.Participants == nil {
		session.Participants = []domain.Participant{}
	}
	if session.Answers == nil {
		session.Answers = []domain.AnswerRecord{}
	}
	return session, nil
}
