// Package dbtest подключает интеграционные тесты репозиториев к тестовой базе.
// Без DB_HOST_TEST тесты пропускаются.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/config"
	"github.com/Khalidabdulkadir/Dhadhan-App/internal/db"
)

var (
	once    sync.Once
	shared  *db.Postgres
	initErr error
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MigrationsDir - каталог migrations/ в корне модуля.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// Config собирает настройки тестовой базы из DB_*_TEST или пропускает тест.
func Config(t *testing.T) config.PostgresConfig {
	t.Helper()

	host := os.Getenv("DB_HOST_TEST")
	if host == "" {
		t.Skip("DB_HOST_TEST is not set, skipping repository test")
	}

	return config.PostgresConfig{
		Host:     host,
		Port:     envOr("DB_PORT_TEST", "5432"),
		User:     envOr("DB_USER_TEST", "postgres"),
		Password: envOr("DB_PASSWORD_TEST", "postgres"),
		DBName:   envOr("DB_NAME_TEST", "marketplace_test"),
		SSLMode:  envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns: 20,
	}
}

// Pool возвращает общий пул с примененными миграциями.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	cfg := Config(t)

	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		shared, initErr = db.New(ctx, cfg)
		if initErr != nil {
			return
		}
		initErr = shared.Migrate(MigrationsDir())
	})
	if initErr != nil {
		t.Fatalf("failed to prepare test database: %v", initErr)
	}

	return shared.Pool
}

// SeedUser создает пользователя с уникальным email.
func SeedUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	email := id.String() + "@test.local"
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, username, email, password_hash) VALUES ($1, $2, $2, 'x')
	`, id, email)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

// SeedProduct создает категорию и товар в ней.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, price decimal.Decimal) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	categoryID := uuid.Must(uuid.NewV4())
	if _, err := pool.Exec(ctx, `INSERT INTO categories (id, name) VALUES ($1, 'Test')`, categoryID); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	productID := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(ctx, `
		INSERT INTO products (id, name, price, category_id) VALUES ($1, 'Test product', $2, $3)
	`, productID, price, categoryID)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return productID
}

// SeedOrder создает пустой заказ нового пользователя.
func SeedOrder(t *testing.T, pool *pgxpool.Pool, total decimal.Decimal) uuid.UUID {
	t.Helper()
	orderID := uuid.Must(uuid.NewV4())
	_, err := pool.Exec(context.Background(), `
		INSERT INTO orders (id, user_id, total_amount) VALUES ($1, $2, $3)
	`, orderID, SeedUser(t, pool), total)
	if err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return orderID
}
