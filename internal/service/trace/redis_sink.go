package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CopyFlow/internal/domain/models"
	drepo "CopyFlow/internal/domain/repository"
	applogger "CopyFlow/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes journal entries to a redis channel so an external
// trace consumer can tail them. Pub/sub only: nothing is stored, and a
// publish failure never blocks the journal.
type RedisSink struct {
	client  *redis.Client
	channel string
	log     *applogger.Logger
}

// NewRedisSink connects to redis and verifies it with a ping.
func NewRedisSink(addr, password string, db int, channel string, log *applogger.Logger) (drepo.TraceSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if channel == "" {
		channel = "copyflow:trace"
	}
	return &RedisSink{client: client, channel: channel, log: log}, nil
}

func (s *RedisSink) Trace(ctx context.Context, e models.LogEntry) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.channel, b).Err(); err != nil {
		s.log.Warn("trace publish failed", applogger.Error(err))
	}
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
