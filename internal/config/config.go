package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

type GoogleConfig struct {
	UserInfoURL  string        `yaml:"userinfo_url"`
	TokenInfoURL string        `yaml:"tokeninfo_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type PaymentConfig struct {
	SecretKey        string        `yaml:"secret_key"`
	PublishableKey   string        `yaml:"publishable_key"`
	TestMode         bool          `yaml:"test_mode"`
	BaseURL          string        `yaml:"base_url"`
	Currency         string        `yaml:"currency"`
	WebhookChallenge string        `yaml:"webhook_challenge"`
	Timeout          time.Duration `yaml:"timeout"`
}

type OrderConfig struct {
	DeliveryFee    decimal.Decimal `yaml:"delivery_fee"`
	PickupSentinel string          `yaml:"pickup_sentinel"`
	MobileMoney    string          `yaml:"mobile_money_method"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	AuthLimit  int           `yaml:"auth_limit"`
	AuthWindow time.Duration `yaml:"auth_window"`
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Auth      AuthConfig      `yaml:"auth"`
	Google    GoogleConfig    `yaml:"google"`
	Payment   PaymentConfig   `yaml:"payment"`
	Order     OrderConfig     `yaml:"order"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "marketplace", Port: "8080", Env: "development"},
		Postgres: PostgresConfig{
			Port:            "5432",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MigrationsPath:  "migrations",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  5 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Google: GoogleConfig{
			UserInfoURL:  "https://www.googleapis.com/oauth2/v3/userinfo",
			TokenInfoURL: "https://oauth2.googleapis.com/tokeninfo",
			Timeout:      10 * time.Second,
		},
		Payment: PaymentConfig{
			TestMode: true,
			Currency: "KES",
			Timeout:  15 * time.Second,
		},
		Order: OrderConfig{
			DeliveryFee:    decimal.NewFromInt(500),
			PickupSentinel: "Pickup",
			MobileMoney:    "mpesa",
		},
		RateLimit: RateLimitConfig{
			AuthLimit:  20,
			AuthWindow: time.Minute,
		},
	}
}

// Load читает YAML (если файл существует), затем .env и переменные окружения.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Port, "APP_PORT")
	setString(&c.App.Env, "APP_ENV")

	setString(&c.Postgres.Host, "DB_HOST")
	setString(&c.Postgres.Port, "DB_PORT")
	setString(&c.Postgres.User, "DB_USER")
	setString(&c.Postgres.Password, "DB_PASSWORD")
	setString(&c.Postgres.DBName, "DB_NAME")
	setString(&c.Postgres.SSLMode, "DB_SSLMODE")
	setString(&c.Postgres.MigrationsPath, "DB_MIGRATIONS_PATH")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	setString(&c.Payment.SecretKey, "INTASEND_SECRET_KEY")
	setString(&c.Payment.PublishableKey, "INTASEND_PUBLISHABLE_KEY")
	setString(&c.Payment.WebhookChallenge, "INTASEND_WEBHOOK_CHALLENGE")
	setString(&c.Payment.BaseURL, "INTASEND_BASE_URL")
	if v := env("INTASEND_TEST_MODE"); v != "" {
		testMode, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid INTASEND_TEST_MODE: %w", err)
		}
		c.Payment.TestMode = testMode
	}

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if v := env("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Postgres.Host == "" {
		return errors.New("postgres host is required (DB_HOST)")
	}
	if c.Postgres.DBName == "" {
		return errors.New("postgres dbname is required (DB_NAME)")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Order.DeliveryFee.IsNegative() {
		return errors.New("delivery fee cannot be negative")
	}
	if c.RateLimit.AuthLimit <= 0 || c.RateLimit.AuthWindow <= 0 {
		return errors.New("ratelimit auth_limit and auth_window must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}
