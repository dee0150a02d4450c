package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eduims/eduims-backend/internal/shared"
)

type memoryAuthRepo struct {
	users  map[string]*User
	rights map[string]*FormRights
}

func (r *memoryAuthRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	u, ok := r.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryAuthRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryAuthRepo) FormRights(ctx context.Context, userID int64, menuKey string) (*FormRights, error) {
	if rights, ok := r.rights[menuKey]; ok {
		return rights, nil
	}
	return &FormRights{MenuKey: menuKey}, nil
}

func newTestService(t *testing.T) (*Service, *memoryAuthRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.DefaultCost)
	require.NoError(t, err)

	repo := &memoryAuthRepo{
		users: map[string]*User{
			"sana": {ID: 7, Username: "sana", FullName: "Sana Malik", PasswordHash: string(hash), IsActive: true},
		},
		rights: map[string]*FormRights{
			MenuKeyCustomerInvoice: {MenuKey: MenuKeyCustomerInvoice, CanView: true, CanCreate: true},
		},
	}
	return NewService(repo, client, time.Hour), repo
}

func TestAuthenticateIssuesResolvableToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, user, err := svc.Authenticate(ctx, "sana", "correct-password")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.NotEmpty(t, token)

	userID, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, int64(7), userID)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Authenticate(ctx, "sana", "wrong-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(ctx, "nobody", "correct-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	repo.users["sana"].IsActive = false
	_, _, err = svc.Authenticate(ctx, "sana", "correct-password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveRejectsDeactivatedUser(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Authenticate(ctx, "sana", "correct-password")
	require.NoError(t, err)

	repo.users["sana"].IsActive = false
	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Authenticate(ctx, "sana", "correct-password")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token))

	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestFormRightsDefaultDeny(t *testing.T) {
	svc, _ := newTestService(t)

	rights, err := svc.FormRights(context.Background(), 7, MenuKeyLeads)
	require.NoError(t, err)
	require.False(t, rights.CanView)
	require.False(t, rights.CanDelete)
}
