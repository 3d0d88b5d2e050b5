// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/larder/larder/internal/model"
	"github.com/larder/larder/migrations"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 710710

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema runs every down migration newest-first, then every up migration
// oldest-first, leaving an empty schema.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	down, err := migrationFiles(".down.sql")
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(down)))

	up, err := migrationFiles(".up.sql")
	if err != nil {
		return err
	}
	sort.Strings(up)

	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}

	for _, name := range append(down, up...) {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

func migrationFiles(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// NewPool opens a pool against TEST_DATABASE_URL, serializes the test with an
// advisory lock and resets the schema. Cleanup is registered on t.
func NewPool(t testing.TB) (context.Context, *pgxpool.Pool) {
	t.Helper()

	dbURL := RequireEnv(t, "TEST_DATABASE_URL")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("failed to acquire DB lock: %v", err)
	}
	t.Cleanup(func() {
		if err := unlock(); err != nil {
			t.Errorf("failed to release DB lock: %v", err)
		}
	})

	if err := ResetSchema(ctx, pool); err != nil {
		t.Fatalf("failed to reset schema: %v", err)
	}

	return ctx, pool
}

// NewRedis connects to TEST_REDIS_URL and flushes the database.
func NewRedis(t testing.TB) (context.Context, *redis.Client) {
	t.Helper()

	redisURL := RequireEnv(t, "TEST_REDIS_URL")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("failed to parse redis URL: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	if err := FlushRedis(ctx, client); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
	return ctx, client
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an unsaved user with unique username and email.
func NewTestUser(t testing.TB, prefix string) *model.User {
	t.Helper()
	id := UniqueID(prefix)
	return &model.User{
		Username:     id,
		Email:        id + "@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	}
}

// NewTestRecipe creates an unsaved recipe owned by ownerID.
func NewTestRecipe(t testing.TB, ownerID int64, title string) *model.Recipe {
	t.Helper()
	return &model.Recipe{
		OwnerID:     ownerID,
		Title:       title,
		Description: "A test recipe",
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
