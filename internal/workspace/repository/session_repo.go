package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	wsdomain "github.com/pageforge-dev/pageforge-backend/internal/workspace/domain"
)

const (
	sessionKeyPrefix    = "pf:ws:"            // session data: pf:ws:{session_id}
	generationKeyPrefix = "pf:ws:gen:"        // generation id -> session id index
	sessionTTL          = 7 * 24 * time.Hour // idle sessions expire after 7 days
)

var ErrSessionNotFound = errors.New("workspace session not found")

// Session is one open workspace over a generated (or blank) project.
type Session struct {
	ID           string            `json:"id"`
	GenerationID string            `json:"generationId,omitempty"`
	Project      *wsdomain.Project `json:"project"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// SessionRepository handles redis operations for workspace sessions.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Create stores a new session and, when it wraps a generation, an index entry
// from the generation id.
func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, data, sessionTTL)
	if session.GenerationID != "" {
		pipe.Set(ctx, generationKeyPrefix+session.GenerationID, session.ID, sessionTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// GetByGenerationID returns the session opened over a generation, if any.
func (r *SessionRepository) GetByGenerationID(ctx context.Context, generationID string) (*Session, error) {
	id, err := r.client.Get(ctx, generationKeyPrefix+generationID).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session index: %w", err)
	}
	return r.Get(ctx, id)
}

// Save persists a mutated session and refreshes its TTL.
func (r *SessionRepository) Save(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+session.ID, data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session and its generation index entry.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	if session.GenerationID != "" {
		pipe.Del(ctx, generationKeyPrefix+session.GenerationID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
