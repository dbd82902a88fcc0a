package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"restaurant-system/internal/config"
	"restaurant-system/internal/logger"
	"restaurant-system/internal/monitoring"
)

const deleteBatchSize = 100

// Redis is a Gateway backed by a Redis server. Every call goes through a
// circuit breaker so an unavailable server fails fast instead of stalling
// each metrics request.
type Redis struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewRedis connects to the server configured in cfg.Redis
func NewRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr(), err)
	}

	return &Redis{
		client:  client,
		breaker: newBreaker("redis-cache", log),
		logger:  log,
	}, nil
}

func newBreaker(name string, log *logger.Logger) *gobreaker.CircuitBreaker {
	monitoring.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// a miss is a normal answer, not a fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			monitoring.CircuitBreakerState.WithLabelValues(cbName).Set(state)

			log.Warn("circuit_breaker_state_changed", "Cache circuit breaker state changed", "", map[string]interface{}{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		value, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return value, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

func (r *Redis) Delete(ctx context.Context, keyOrPattern string) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		if !IsPattern(keyOrPattern) {
			return nil, r.client.Del(ctx, keyOrPattern).Err()
		}
		return nil, r.deletePattern(ctx, keyOrPattern)
	})
	return err
}

// deletePattern walks the keyspace with SCAN so a large cache does not block the server
func (r *Redis) deletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, deleteBatchSize).Iterator()
	batch := make([]string, 0, deleteBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == deleteBatchSize {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Ping checks the server through the breaker
func (r *Redis) Ping(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Ping(ctx).Err()
	})
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}
