package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wordbox/backend/internal/models"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a TTL-scoped key/value store for ephemeral session state.
// Single-key operations are atomic; nothing spans keys.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Add stores value only when key is absent and reports whether it did.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Take returns the value and deletes the key in one step.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// Append pushes value onto the list at key, refreshes its TTL and
	// returns the new length.
	Append(ctx context.Context, key string, value []byte, ttl time.Duration) (int64, error)
	// Range returns every element of the list at key, oldest first.
	Range(ctx context.Context, key string) ([][]byte, error)
}

// ── Keys ────────────────────────────────────────────────

func ActiveQuestionKey(userID uuid.UUID, kind models.SessionKind, sessionID int64) string {
	return fmt.Sprintf("active_q:%s:%s:%d", userID, kind, sessionID)
}

func UsedIDsKey(userID uuid.UUID, kind models.SessionKind, sessionID int64) string {
	return fmt.Sprintf("used_ids:%s:%s:%d", userID, kind, sessionID)
}

func BatchKey(userID uuid.UUID, sessionID int64) string {
	return fmt.Sprintf("questions:%s:%s:%d", userID, models.KindQuiz, sessionID)
}

func HintKey(wordID int64) string {
	return fmt.Sprintf("hint:%d", wordID)
}

// SessionKeys lists every ephemeral key owned by a session.
func SessionKeys(userID uuid.UUID, kind models.SessionKind, sessionID int64) []string {
	keys := []string{
		ActiveQuestionKey(userID, kind, sessionID),
		UsedIDsKey(userID, kind, sessionID),
	}
	if kind == models.KindQuiz {
		keys = append(keys, BatchKey(userID, sessionID))
	}
	return keys
}
