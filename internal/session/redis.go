package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ideias/internal/models"
)

const (
	sessionKeyPrefix      = "session:"
	userSessionsKeyPrefix = "user_sessions:"
)

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

// RedisStore keeps each session under session:<id> with a TTL matching its
// expiry, plus a user_sessions:<uid> set used for per-user revocation.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type redisSession struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Register  string    `json:"register"`
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Create(ctx context.Context, sess *models.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := encodeSession(sess)
	if err != nil {
		return err
	}

	userKey := userSessionsKey(sess.UserID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+sess.ID, data, ttl)
	pipe.SAdd(ctx, userKey, sess.ID)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	return nil
}

func (s *RedisStore) Find(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	return &models.Session{
		ID:        id,
		UserID:    rs.UserID,
		Email:     rs.Email,
		Name:      rs.Name,
		Register:  rs.Register,
		UserAgent: rs.UserAgent,
		IP:        rs.IP,
		CreatedAt: rs.CreatedAt,
		ExpiresAt: rs.ExpiresAt,
	}, nil
}

func (s *RedisStore) UpdateRegister(ctx context.Context, id, register string) error {
	sess, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	sess.Register = register

	data, err := encodeSession(sess)
	if err != nil {
		return err
	}

	if err := s.client.SetArgs(ctx, sessionKeyPrefix+id, data, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.SRem(ctx, userSessionsKey(sess.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID int64) error {
	userKey := userSessionsKey(userID)

	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("listing user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting user sessions: %w", err)
	}
	return nil
}

func userSessionsKey(userID int64) string {
	return userSessionsKeyPrefix + strconv.FormatInt(userID, 10)
}

func encodeSession(sess *models.Session) ([]byte, error) {
	data, err := json.Marshal(redisSession{
		UserID:    sess.UserID,
		Email:     sess.Email,
		Name:      sess.Name,
		Register:  sess.Register,
		UserAgent: sess.UserAgent,
		IP:        sess.IP,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return data, nil
}
