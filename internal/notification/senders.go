package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"parking-ledger-backend/internal/logger"
)

// LogSender writes events to the structured log.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log.With("sender", "log")}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Notify(_ context.Context, ev Event) error {
	s.log.Info(ev.Message,
		"kind", ev.Kind, "plate", ev.Plate, "facility_id", ev.FacilityID, "facility", ev.FacilityName)
	return nil
}

// publisher is the part of the redis client RedisSender needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSender publishes events as JSON on a redis pub/sub channel.
type RedisSender struct {
	rdb     publisher
	channel string
	close   func() error
}

// NewRedisSender connects to addr and checks the connection with a ping.
func NewRedisSender(ctx context.Context, addr, channel string) (*RedisSender, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSender{rdb: rdb, channel: channel, close: rdb.Close}, nil
}

func (s *RedisSender) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func (s *RedisSender) Name() string { return "redis" }

func (s *RedisSender) Notify(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, raw).Err()
}
