package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const (
	connectAttempts = 3
	connectInterval = 2 * time.Second
)

var (
	errNoDatabase = errors.New("MISSIVE_DATABASE_URL is not set")
	errNoRedis    = errors.New("MISSIVE_REDIS_URL is not set")
)

// retry runs fn until it succeeds, the attempts run out or ctx is done.
// The wait grows linearly between attempts.
func retry(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for i := range connectAttempts {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == connectAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(i+1) * connectInterval):
		}
	}
	return err
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, errNoDatabase
	}
	poolCfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse url: %w", err)
	}

	var pool *pgxpool.Pool
	err = retry(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return pool, nil
}

func connectRedis(ctx context.Context, url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, errNoRedis
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := retry(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect: %w", err)
	}
	return client, nil
}

// migrateQueue applies river's schema migrations and returns the versions applied.
func migrateQueue(ctx context.Context, pool *pgxpool.Pool) ([]int, error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("queue: create migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: migrate: %w", err)
	}

	versions := make([]int, len(res.Versions))
	for i, v := range res.Versions {
		versions[i] = v.Version
	}
	return versions, nil
}
