package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-account-service/internal/adapter/cache"
	domain "user-account-service/internal/domain/user"
	apperrors "user-account-service/pkg/errors"
)

// countingRepo serves one fixed user and counts store reads.
type countingRepo struct {
	user    domain.User
	reads   atomic.Int32
	delay   time.Duration
	pingErr error
}

func (r *countingRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	c := *u
	return &c, nil
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.reads.Add(1)
	time.Sleep(r.delay)
	if id != r.user.ID {
		return nil, apperrors.ErrUserNotFound
	}
	u := r.user
	return &u, nil
}

func (r *countingRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if email != r.user.Email {
		return nil, nil
	}
	u := r.user
	return &u, nil
}

func (r *countingRepo) UpdateByID(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	if id != r.user.ID {
		return nil, apperrors.ErrUserNotFound
	}
	if upd.DisplayName != nil {
		r.user.DisplayName = *upd.DisplayName
	}
	u := r.user
	return &u, nil
}

func (r *countingRepo) Ping(context.Context) error { return r.pingErr }

func setup(t *testing.T) (*CachedUserRepository, *countingRepo) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	store := &countingRepo{user: domain.User{
		ID:           domain.NewID(),
		DisplayName:  "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hash",
		IsActive:     true,
		Role:         domain.RoleUser,
	}}
	return NewCachedUserRepository(store, cache.NewRedisUserCache(client, time.Minute, log), log), store
}

func TestCachedUserRepository_GetByID_CachesAfterFirstRead(t *testing.T) {
	repo, store := setup(t)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, store.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", first.DisplayName)

	second, err := repo.GetByID(ctx, store.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", second.DisplayName)
	assert.Empty(t, second.PasswordHash)

	assert.Equal(t, int32(1), store.reads.Load())
}

func TestCachedUserRepository_GetByID_NotFoundIsNotCached(t *testing.T) {
	repo, store := setup(t)
	ctx := context.Background()
	missing := domain.NewID()

	_, err := repo.GetByID(ctx, missing)
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
	_, err = repo.GetByID(ctx, missing)
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))

	assert.Equal(t, int32(2), store.reads.Load())
}

func TestCachedUserRepository_GetByID_SingleFlight(t *testing.T) {
	repo, store := setup(t)
	store.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := repo.GetByID(context.Background(), store.user.ID)
			assert.NoError(t, err)
			assert.Equal(t, store.user.ID, u.ID)
		}()
	}
	wg.Wait()

	assert.Less(t, store.reads.Load(), int32(10))
}

func TestCachedUserRepository_UpdateByID_Invalidates(t *testing.T) {
	repo, store := setup(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, store.user.ID)
	require.NoError(t, err)

	name := "Ada Lovelace"
	updated, err := repo.UpdateByID(ctx, store.user.ID, domain.ProfileUpdate{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.DisplayName)

	fresh, err := repo.GetByID(ctx, store.user.ID)
	require.NoError(t, err)
	assert.Equal(t, name, fresh.DisplayName)
	assert.Equal(t, int32(2), store.reads.Load())
}

func TestCachedUserRepository_GetByEmail_BypassesCache(t *testing.T) {
	repo, store := setup(t)

	u, err := repo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.Equal(t, int32(0), store.reads.Load())
}

func TestCachedUserRepository_NilCache(t *testing.T) {
	store := &countingRepo{user: domain.User{ID: domain.NewID(), DisplayName: "Ada"}}
	repo := NewCachedUserRepository(store, nil, zaptest.NewLogger(t))

	_, err := repo.GetByID(context.Background(), store.user.ID)
	require.NoError(t, err)
	_, err = repo.GetByID(context.Background(), store.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.reads.Load())
}

func TestCachedUserRepository_Ping(t *testing.T) {
	repo, store := setup(t)
	assert.NoError(t, repo.Ping(context.Background()))

	store.pingErr = errors.New("down")
	assert.EqualError(t, repo.Ping(context.Background()), "down")
}
