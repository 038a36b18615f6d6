package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Database     DatabaseConfig     `envPrefix:"DB_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Cache        CacheConfig        `envPrefix:"CACHE_"`
	Notification NotificationConfig `envPrefix:"NOTIFY_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Telemetry    TelemetryConfig    `envPrefix:"OTEL_"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Mode            string        `env:"MODE" envDefault:"release"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DatabaseConfig struct {
	Host        string `env:"HOST" envDefault:"localhost"`
	Port        string `env:"PORT" envDefault:"5432"`
	User        string `env:"USER" envDefault:"postgres"`
	Password    string `env:"PASSWORD" envDefault:"postgres"`
	DBName      string `env:"NAME" envDefault:"postgres"`
	SSLMode     string `env:"SSL_MODE" envDefault:"disable"`
	MaxConns    int32  `env:"MAX_CONNS" envDefault:"25"`
	MinConns    int32  `env:"MIN_CONNS" envDefault:"5"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

// DSN 回傳 pgx 使用的 key=value 連線字串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s timezone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, "UTC")
}

// MigrationURL 回傳 golang-migrate pgx/v5 driver 使用的 URL
func (c DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	// Enable 為 false 時不連線 Redis（快取改用 no-op，佇列只能用 memory）
	Enable   bool   `env:"ENABLED" envDefault:"true"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Enable && c.Host != ""
}

type CacheConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	EventTTL time.Duration `env:"EVENT_TTL" envDefault:"30s"`
}

type NotificationConfig struct {
	Queue          string        `env:"QUEUE" envDefault:"memory"`
	BufferSize     int           `env:"BUFFER_SIZE" envDefault:"1024"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"3s"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"5"`
	AMQPURL        string        `env:"AMQP_URL"`
	AMQPExchange   string        `env:"AMQP_EXCHANGE" envDefault:"registrations"`
	WebhookURL     string        `env:"WEBHOOK_URL"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
}

type LogConfig struct {
	Level string `env:"LEVEL" envDefault:"info"`
}

type TelemetryConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"registration-service"`
}

var AppConfig *Config

// LoadConfig 先讀取 .env（若存在），再從環境變數解析設定
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Notification.Queue != "memory" && cfg.Notification.Queue != "redis" {
		return nil, fmt.Errorf("invalid NOTIFY_QUEUE %q: want memory or redis", cfg.Notification.Queue)
	}
	if cfg.Notification.Queue == "redis" && !cfg.Redis.Enabled() {
		return nil, errors.New("NOTIFY_QUEUE=redis requires REDIS_ENABLED=true")
	}

	AppConfig = &cfg
	return AppConfig, nil
}

func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8081",
			Mode:            "test",
			ShutdownTimeout: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433", // 測試 DB 用 5433 port
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 1,
		},
		Redis: RedisConfig{
			Enable:   true,
			Host:     "localhost",
			Port:     "6380", // 測試 Redis 用 6380 port
			Password: "",
			DB:       1,
		},
		Cache: CacheConfig{
			Enabled:  true,
			EventTTL: 30 * time.Second,
		},
		Notification: NotificationConfig{
			Queue:          "memory",
			BufferSize:     100,
			PublishTimeout: time.Second,
			MaxRetries:     3,
			AMQPExchange:   "registrations",
			WebhookTimeout: time.Second,
		},
		Log: LogConfig{Level: "debug"},
		Telemetry: TelemetryConfig{
			ServiceName: "registration-service-test",
		},
	}
}
