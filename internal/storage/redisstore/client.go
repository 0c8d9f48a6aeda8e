// Package redisstore хранит быстро меняющиеся данные (социальный граф, коды
// подтверждения доставки) в Redis.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultKeyPrefix = "eventhub"
	opTimeout        = 3 * time.Second
)

// Options задаёт параметры подключения.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Client оборачивает redis.Client и пространство ключей сервиса.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Open подключается к Redis и проверяет доступность.
func Open(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	client := &Client{rdb: rdb, prefix: opts.KeyPrefix}
	if client.prefix == "" {
		client.prefix = defaultKeyPrefix
	}

	if err := client.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Ping проверяет соединение (используется readiness-проверкой).
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.rdb.Ping(pingCtx).Err()
}

// Close закрывает пул соединений.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}
