package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/repository"
)

// stubUserRepository is a UserRepository whose behaviour each test plugs in.
type stubUserRepository struct {
	getByIDFn func(ctx context.Context, id int64) (*model.User, error)
	updateFn  func(ctx context.Context, u *model.User) error
	deleteFn  func(ctx context.Context, id int64) error
	pingErr   error
}

func (s *stubUserRepository) Create(context.Context, *model.User) error { return nil }

func (s *stubUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, apperror.NotFound("user", "stub")
}

func (s *stubUserRepository) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, apperror.NotFound("user", "stub")
}

func (s *stubUserRepository) List(context.Context, repository.ListOptions) ([]model.User, error) {
	return []model.User{}, nil
}

func (s *stubUserRepository) Update(ctx context.Context, u *model.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, u)
	}
	return nil
}

func (s *stubUserRepository) Delete(ctx context.Context, id int64) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *stubUserRepository) Ping(context.Context) error { return s.pingErr }

func sampleUser() *model.User {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.User{
		ID:           7,
		Name:         "Ana",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

func TestNewCachingUserRepository_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"zero values", 0, "", 5 * time.Minute, "users"},
		{"negative ttl", -time.Second, "", 5 * time.Minute, "users"},
		{"custom values", time.Minute, "people", time.Minute, "people"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewCachingUserRepository(nil, tt.ttl, &stubUserRepository{}, tt.namespace)
			if repo.ttl != tt.expectedTTL {
				t.Errorf("expected TTL %v, got %v", tt.expectedTTL, repo.ttl)
			}
			if repo.namespace != tt.expectedNamespace {
				t.Errorf("expected namespace %q, got %q", tt.expectedNamespace, repo.namespace)
			}
		})
	}
}

func TestCachingUserRepository_GetByID_NilRedis(t *testing.T) {
	t.Parallel()

	calls := 0
	inner := &stubUserRepository{
		getByIDFn: func(context.Context, int64) (*model.User, error) {
			calls++
			return sampleUser(), nil
		},
	}
	repo := NewCachingUserRepository(nil, time.Minute, inner, "")

	for range 2 {
		if _, err := repo.GetByID(context.Background(), 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("expected inner to be called twice without redis, got %d", calls)
	}
}

func TestCachingUserRepository_GetByID_CacheHit(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(toCached(sampleUser()))
	mock.ExpectGet("users:7").SetVal(string(cached))

	innerCalled := false
	inner := &stubUserRepository{
		getByIDFn: func(context.Context, int64) (*model.User, error) {
			innerCalled = true
			return nil, nil
		},
	}

	repo := NewCachingUserRepository(rdb, time.Minute, inner, "users")
	u, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if innerCalled {
		t.Error("inner repository should not be called on cache hit")
	}
	want := sampleUser()
	if u.Email != want.Email || u.PasswordHash != want.PasswordHash || !u.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("cache hit returned %+v, want %+v", u, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_GetByID_CacheMiss(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	stored, _ := json.Marshal(toCached(sampleUser()))
	mock.ExpectGet("users:7").RedisNil()
	mock.ExpectSet("users:7", stored, time.Minute).SetVal("OK")

	inner := &stubUserRepository{
		getByIDFn: func(context.Context, int64) (*model.User, error) {
			return sampleUser(), nil
		},
	}

	repo := NewCachingUserRepository(rdb, time.Minute, inner, "users")
	u, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 7 {
		t.Errorf("expected id 7, got %d", u.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_GetByID_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet("users:9").RedisNil()

	repo := NewCachingUserRepository(rdb, time.Minute, &stubUserRepository{}, "users")
	_, err := repo.GetByID(context.Background(), 9)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_GetByID_CorruptedEntry(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	stored, _ := json.Marshal(toCached(sampleUser()))
	mock.ExpectGet("users:7").SetVal("{not json")
	mock.ExpectDel("users:7").SetVal(1)
	mock.ExpectSet("users:7", stored, time.Minute).SetVal("OK")

	inner := &stubUserRepository{
		getByIDFn: func(context.Context, int64) (*model.User, error) {
			return sampleUser(), nil
		},
	}

	repo := NewCachingUserRepository(rdb, time.Minute, inner, "users")
	if _, err := repo.GetByID(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_GetByIDUncached_IgnoresStaleEntry(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	stale := sampleUser()
	stale.PasswordHash = "$2a$10$old"
	cached, _ := json.Marshal(toCached(stale))
	mock.ExpectGet("users:7").SetVal(string(cached))

	inner := &stubUserRepository{
		getByIDFn: func(context.Context, int64) (*model.User, error) {
			return sampleUser(), nil
		},
	}
	repo := NewCachingUserRepository(rdb, time.Minute, inner, "users")

	fresh, err := repo.GetByIDUncached(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.PasswordHash != sampleUser().PasswordHash {
		t.Errorf("expected the stored hash, got %q", fresh.PasswordHash)
	}

	// The stale entry is still there for plain reads; only the uncached path skipped it.
	got, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PasswordHash != "$2a$10$old" {
		t.Errorf("expected the cached hash, got %q", got.PasswordHash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_UpdateInvalidates(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	// Once before the write and once after.
	mock.ExpectDel("users:7").SetVal(1)
	mock.ExpectDel("users:7").SetVal(0)

	repo := NewCachingUserRepository(rdb, time.Minute, &stubUserRepository{}, "users")
	if err := repo.Update(context.Background(), sampleUser()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_UpdateErrorInvalidatesOnce(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectDel("users:7").SetVal(1)

	inner := &stubUserRepository{
		updateFn: func(context.Context, *model.User) error {
			return apperror.DuplicateEmail("taken@x.com")
		},
	}

	repo := NewCachingUserRepository(rdb, time.Minute, inner, "users")
	err := repo.Update(context.Background(), sampleUser())
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// Only the Del ahead of the write; nothing runs after a failed write.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_DeleteInvalidates(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectDel("users:7").SetVal(1)
	mock.ExpectDel("users:7").SetVal(0)

	repo := NewCachingUserRepository(rdb, time.Minute, &stubUserRepository{}, "users")
	if err := repo.Delete(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

func TestCachingUserRepository_Ping(t *testing.T) {
	t.Parallel()

	t.Run("inner failure short-circuits", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		defer func() { _ = rdb.Close() }()

		innerErr := errors.New("db down")
		repo := NewCachingUserRepository(rdb, time.Minute, &stubUserRepository{pingErr: innerErr}, "")
		if err := repo.Ping(context.Background()); !errors.Is(err, innerErr) {
			t.Errorf("expected %v, got %v", innerErr, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled mock expectations: %v", err)
		}
	})

	t.Run("redis failure reported", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		defer func() { _ = rdb.Close() }()

		mock.ExpectPing().SetErr(errors.New("connection refused"))

		repo := NewCachingUserRepository(rdb, time.Minute, &stubUserRepository{}, "")
		if err := repo.Ping(context.Background()); err == nil {
			t.Error("expected error when redis is unreachable")
		}
	})

	t.Run("both healthy", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		defer func() { _ = rdb.Close() }()

		mock.ExpectPing().SetVal("PONG")

		repo := NewCachingUserRepository(rdb, time.Minute, &stubUserRepository{}, "")
		if err := repo.Ping(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("no redis configured", func(t *testing.T) {
		repo := NewCachingUserRepository(nil, time.Minute, &stubUserRepository{}, "")
		if err := repo.Ping(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
