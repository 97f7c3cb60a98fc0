package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/testforge/suite-service/internal/domain"
)

// ErrSessionNotFound is returned for unknown or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionTTL is used when no TTL is configured
const DefaultSessionTTL = 24 * time.Hour

// Session is a signed-in browser session
type Session struct {
	ID        string      `json:"id"`
	User      domain.User `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// SessionStore keeps sessions by id
type SessionStore interface {
	Create(ctx context.Context, user domain.User) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates a session store whose sessions last ttl
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session for user and drops expired ones
func (m *MemorySessionStore) Create(ctx context.Context, user domain.User) (Session, error) {
	now := m.now().UTC()
	s := Session{ID: uuid.NewString(), User: user, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}

	m.mu.Lock()
	defer m.mu.Unlock()

	// drop expired sessions while holding the lock anyway
	for id, existing := range m.sessions {
		if !now.Before(existing.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session or ErrSessionNotFound
func (m *MemorySessionStore) Get(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || !m.now().Before(s.ExpiresAt) {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

// Delete ends a session; unknown ids are ignored
func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// SessionKeyPrefix namespaces session keys in Redis
const SessionKeyPrefix = "testforge:session:"

// RedisSessionStore keeps sessions as JSON strings that expire with the
// session
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSessionStore creates a session store on client whose keys expire
// after ttl
func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Create stores a new session for user
func (r *RedisSessionStore) Create(ctx context.Context, user domain.User) (Session, error) {
	now := time.Now().UTC()
	s := Session{ID: uuid.NewString(), User: user, CreatedAt: now, ExpiresAt: now.Add(r.ttl)}

	data, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, SessionKeyPrefix+s.ID, data, r.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("failed to store session: %w", err)
	}
	return s, nil
}

// Get returns a stored session or ErrSessionNotFound once its key expired
func (r *RedisSessionStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, SessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return s, nil
}

// Delete removes the session key
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, SessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
