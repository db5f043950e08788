package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidRefresh = errors.New("invalid refresh token")

// RefreshStore is an allowlist of opaque refresh tokens. Consume is
// single-use: a token can be exchanged at most once.
type RefreshStore interface {
	Issue(ctx context.Context, userID string, tokenVersion int, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string) (userID string, tokenVersion int, err error)
	Revoke(ctx context.Context, token string) error
}

const refreshPrefix = "rt:"

func randToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// value: userID|tokenVersion
func encodeRefresh(userID string, tv int) string { return userID + "|" + strconv.Itoa(tv) }

func decodeRefresh(val string) (string, int, error) {
	userID, tvs, ok := strings.Cut(val, "|")
	if !ok || userID == "" {
		return "", 0, ErrInvalidRefresh
	}
	tv, err := strconv.Atoi(tvs)
	if err != nil {
		return "", 0, ErrInvalidRefresh
	}
	return userID, tv, nil
}

// RedisRefreshStore keeps tokens as rt:<token> keys with a TTL.
type RedisRefreshStore struct {
	rdb *redis.Client
}

func NewRedisRefreshStore(rdb *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{rdb: rdb}
}

func (s *RedisRefreshStore) Issue(ctx context.Context, userID string, tv int, ttl time.Duration) (string, error) {
	token, err := randToken()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, refreshPrefix+token, encodeRefresh(userID, tv), ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisRefreshStore) Consume(ctx context.Context, token string) (string, int, error) {
	val, err := s.rdb.GetDel(ctx, refreshPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", 0, ErrInvalidRefresh
	}
	if err != nil {
		return "", 0, err
	}
	return decodeRefresh(val)
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, refreshPrefix+token).Err()
}

// MemoryRefreshStore is the single-process fallback when Redis is not configured.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]memEntry
	now    func() time.Time
}

type memEntry struct {
	val     string
	expires time.Time
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryRefreshStore) Issue(_ context.Context, userID string, tv int, ttl time.Duration) (string, error) {
	token, err := randToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.tokens {
		if now.After(e.expires) {
			delete(s.tokens, k)
		}
	}
	s.tokens[token] = memEntry{val: encodeRefresh(userID, tv), expires: now.Add(ttl)}
	return token, nil
}

func (s *MemoryRefreshStore) Consume(_ context.Context, token string) (string, int, error) {
	s.mu.Lock()
	e, ok := s.tokens[token]
	delete(s.tokens, token)
	s.mu.Unlock()
	if !ok || s.now().After(e.expires) {
		return "", 0, ErrInvalidRefresh
	}
	return decodeRefresh(e.val)
}

func (s *MemoryRefreshStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return nil
}
