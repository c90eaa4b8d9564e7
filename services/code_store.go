package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/unicode/norm"
)

// CodeStore issues short-lived verification codes for social account
// binding. Codes live in Redis with a TTL instead of process memory so
// binding survives restarts and works across replicas.
type CodeStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Check(ctx context.Context, userID, code string) (bool, error)
	Consume(ctx context.Context, userID string) error
}

type RedisCodeStore struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewRedisCodeStore(rdb *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{RDB: rdb, TTL: 10 * time.Minute}
}

func codeKey(userID string) string {
	return "verify_code:" + userID
}

// Issue creates (or refreshes) the user's binding code.
func (s *RedisCodeStore) Issue(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := "QRS-" + strings.ToUpper(hex.EncodeToString(buf))
	if err := s.RDB.Set(ctx, codeKey(userID), code, s.TTL).Err(); err != nil {
		return "", fmt.Errorf("code store: %w", err)
	}
	return code, nil
}

// Check compares the submitted code with the stored one. Input is
// NFC-normalized and case-folded — codes travel through bios and chat
// clients that like to mangle text.
func (s *RedisCodeStore) Check(ctx context.Context, userID, code string) (bool, error) {
	stored, err := s.RDB.Get(ctx, codeKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("code store: %w", err)
	}
	submitted := strings.ToUpper(strings.TrimSpace(norm.NFC.String(code)))
	return submitted == stored, nil
}

func (s *RedisCodeStore) Consume(ctx context.Context, userID string) error {
	return s.RDB.Del(ctx, codeKey(userID)).Err()
}
