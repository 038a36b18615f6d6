package testutil

import (
	"context"
	"fmt"
	"log"
	"time"

	"cluster-registration/config"
	"cluster-registration/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
)

const containerExpiry = 300 // 秒，測試中斷時容器自動回收

// SetupPostgres 優先連線測試設定中的 Postgres（localhost:5433），
// 連不上時以 dockertest 啟動一個臨時容器；兩者都失敗才回傳錯誤，呼叫端可據此略過整合測試。
// 成功時已跑完 migrations。
func SetupPostgres() (*pgxpool.Pool, func(), error) {
	cfg := config.LoadTestConfig().Database

	if pool, err := database.InitDatabase(&cfg); err == nil {
		if err := database.Migrate(cfg.MigrationURL()); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate test database: %w", err)
		}
		log.Println("Test database connected successfully")
		return pool, pool.Close, nil
	}

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to docker: %w", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		return nil, nil, fmt.Errorf("docker not available: %w", err)
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=" + cfg.User,
			"POSTGRES_PASSWORD=" + cfg.Password,
			"POSTGRES_DB=" + cfg.DBName,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not start postgres container: %w", err)
	}
	_ = resource.Expire(containerExpiry)

	cfg.Host = "localhost"
	cfg.Port = resource.GetPort("5432/tcp")

	var pool *pgxpool.Pool
	dockerPool.MaxWait = 60 * time.Second
	if err := dockerPool.Retry(func() error {
		var err error
		pool, err = database.InitDatabase(&cfg)
		return err
	}); err != nil {
		_ = dockerPool.Purge(resource)
		return nil, nil, fmt.Errorf("could not connect to postgres container: %w", err)
	}

	if err := database.Migrate(cfg.MigrationURL()); err != nil {
		pool.Close()
		_ = dockerPool.Purge(resource)
		return nil, nil, fmt.Errorf("migrate test database: %w", err)
	}

	log.Println("Test database container started")
	cleanup := func() {
		pool.Close()
		if err := dockerPool.Purge(resource); err != nil {
			log.Printf("Could not purge postgres container: %s", err)
		}
	}
	return pool, cleanup, nil
}

// SetupRedis 與 SetupPostgres 相同策略，供快取與 Redis Stream 測試使用
func SetupRedis() (*redis.Client, func(), error) {
	cfg := config.LoadTestConfig().Redis

	if rdb, err := database.InitRedis(&cfg); err == nil {
		log.Println("Test redis connected successfully")
		return rdb, func() { rdb.Close() }, nil
	}

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to docker: %w", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		return nil, nil, fmt.Errorf("docker not available: %w", err)
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not start redis container: %w", err)
	}
	_ = resource.Expire(containerExpiry)

	cfg.Host = "localhost"
	cfg.Port = resource.GetPort("6379/tcp")

	var rdb *redis.Client
	dockerPool.MaxWait = 30 * time.Second
	if err := dockerPool.Retry(func() error {
		var err error
		rdb, err = database.InitRedis(&cfg)
		return err
	}); err != nil {
		_ = dockerPool.Purge(resource)
		return nil, nil, fmt.Errorf("could not connect to redis container: %w", err)
	}

	log.Println("Test redis container started")
	cleanup := func() {
		rdb.Close()
		if err := dockerPool.Purge(resource); err != nil {
			log.Printf("Could not purge redis container: %s", err)
		}
	}
	return rdb, cleanup, nil
}

// TruncateAll 清空報名相關資料表並重置序號
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "TRUNCATE registrations, events RESTART IDENTITY CASCADE")
	return err
}

// CreateEvent 直接寫入一筆活動，回傳 id
func CreateEvent(ctx context.Context, pool *pgxpool.Pool, title string, capacityMax, capacityCurrent int, status string) (int, error) {
	query := `
		INSERT INTO events (title, start_at, end_at, capacity_max, capacity_current, status, price)
		VALUES ($1, NOW() + INTERVAL '1 day', NOW() + INTERVAL '2 days', $2, $3, $4, 0)
		RETURNING id
	`
	var id int
	err := pool.QueryRow(ctx, query, title, capacityMax, capacityCurrent, status).Scan(&id)
	return id, err
}
