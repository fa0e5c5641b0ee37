// Package redis implements a durable job queue and a progress publisher on
// Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key this package writes.
const DefaultPrefix = "docchat"

const connectTimeout = 2 * time.Second

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string `json:"-"`
	DB       int
}

// Connect opens a client and verifies the server is reachable.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type keys struct {
	prefix string
}

func (k keys) stream() string                { return k.prefix + ":jobs" }
func (k keys) index() string                 { return k.prefix + ":jobs:index" }
func (k keys) job(id string) string          { return k.prefix + ":job:" + id }
func (k keys) projectJobs(pid string) string { return k.prefix + ":project:" + pid + ":jobs" }
func (k keys) progress(pid string) string    { return k.prefix + ":progress:" + pid }

func prefixOrDefault(p string) string {
	if p == "" {
		return DefaultPrefix
	}
	return p
}
