package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/redis"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Action  string    `json:"action,omitempty"`
	At      time.Time `json:"at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type state struct {
	Turns          []Turn   `json:"turns"`
	LastProductIDs []string `json:"last_product_ids,omitempty"`
}

// Backend is the storage surface the session store needs.
type Backend interface {
	StoreSession(ctx context.Context, userID, state string, ttl time.Duration) error
	GetSession(ctx context.Context, userID string) (string, error)
	DeleteSession(ctx context.Context, userID string) error
}

// Store keeps per-user conversation history in Redis with a sliding TTL.
// Writing a turn refreshes the TTL; an idle session simply expires and the
// next turn starts a fresh history.
type Store struct {
	backend  Backend
	ttl      time.Duration
	maxTurns int
	locks    *KeyedMutex
}

// NewStore builds a session store from configuration.
func NewStore(backend Backend, cfg config.SessionConfig) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("session backend required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Store{
		backend:  backend,
		ttl:      ttl,
		maxTurns: maxTurns,
		locks:    NewKeyedMutex(),
	}, nil
}

// LockUser serializes turn handling for the user and returns the unlock
// function. Callers must not hold the lock across model API calls.
func (s *Store) LockUser(userID string) func() {
	return s.locks.Lock(userID)
}

func (s *Store) loadState(ctx context.Context, userID string) (state, error) {
	raw, err := s.backend.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return state{}, nil
		}
		return state{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
	}

	var st state
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// A corrupt session is dropped rather than wedging the user.
		_ = s.backend.DeleteSession(ctx, userID)
		return state{}, nil
	}
	return st, nil
}

func (s *Store) saveState(ctx context.Context, userID string, st state) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding session")
	}
	if err := s.backend.StoreSession(ctx, userID, string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing session")
	}
	return nil
}

// History returns the user's recent turns, oldest first. A missing or
// expired session reads as empty history.
func (s *Store) History(ctx context.Context, userID string) ([]Turn, error) {
	st, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.Turns, nil
}

// LastProducts returns the product ids surfaced by the user's most recent
// search, used to ground follow-up references like "add the second one".
func (s *Store) LastProducts(ctx context.Context, userID string) ([]string, error) {
	st, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return st.LastProductIDs, nil
}

// SetLastProducts records the ids of the most recently retrieved products
// and refreshes the TTL.
func (s *Store) SetLastProducts(ctx context.Context, userID string, ids []string) error {
	st, err := s.loadState(ctx, userID)
	if err != nil {
		return err
	}
	st.LastProductIDs = ids
	return s.saveState(ctx, userID, st)
}

// AppendTurns adds turns to the history, keeping only the most recent
// maxTurns entries, and refreshes the TTL.
func (s *Store) AppendTurns(ctx context.Context, userID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	st, err := s.loadState(ctx, userID)
	if err != nil {
		return err
	}

	st.Turns = append(st.Turns, turns...)
	if len(st.Turns) > s.maxTurns {
		st.Turns = st.Turns[len(st.Turns)-s.maxTurns:]
	}
	return s.saveState(ctx, userID, st)
}

// Clear drops the user's history.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.backend.DeleteSession(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing session")
	}
	return nil
}
