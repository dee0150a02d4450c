package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduims/eduims-backend/internal/shared"
)

const tokenKeyPrefix = "auth:token:"

// Service wraps authentication business rules. Issued tokens live in Redis so
// a restart does not invalidate active sessions.
type Service struct {
	repo     Repository
	redis    *redis.Client
	tokenTTL time.Duration
}

// NewService constructs a new Service.
func NewService(repo Repository, redisClient *redis.Client, tokenTTL time.Duration) *Service {
	return &Service{repo: repo, redis: redisClient, tokenTTL: tokenTTL}
}

// Authenticate validates credentials and issues a bearer token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, *User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.redis.Set(ctx, tokenKeyPrefix+token, user.ID, s.tokenTTL).Err(); err != nil {
		return "", nil, fmt.Errorf("auth: store token: %w", err)
	}
	return token, user, nil
}

// Resolve maps a bearer token back to the user id it was issued for. The
// account is re-checked so tokens issued to a since-deactivated user stop
// working before they expire.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	raw, err := s.redis.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return 0, shared.ErrInvalidCredentials
	}
	if err != nil {
		return 0, fmt.Errorf("auth: resolve token: %w", err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return 0, shared.ErrInvalidCredentials
	}
	return user.ID, nil
}

// Revoke deletes a bearer token.
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.redis.Del(ctx, tokenKeyPrefix+token).Err()
}

// FormRights returns the caller's rights for one form.
func (s *Service) FormRights(ctx context.Context, userID int64, menuKey string) (*FormRights, error) {
	return s.repo.FormRights(ctx, userID, menuKey)
}
