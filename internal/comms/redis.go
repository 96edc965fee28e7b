package comms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamPrefix = "auraos:comm:"
	channelsKey  = "auraos:comm:channels"
)

// RedisLog stores each channel in its own Redis Stream.
type RedisLog struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// DialRedis connects to redisURL and verifies the connection.
func DialRedis(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisLog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisLog(rdb, logger), nil
}

// NewRedisLog wraps an existing client.
func NewRedisLog(rdb *redis.Client, logger *zap.Logger) *RedisLog {
	return &RedisLog{rdb: rdb, logger: logger}
}

// stream names the directed stream for ch. Ids are query-escaped so a ':'
// inside an id cannot merge two channels.
func stream(ch Channel) string {
	return streamPrefix + url.QueryEscape(ch.From) + ":" + url.QueryEscape(ch.To)
}

func (r *RedisLog) Enable(ctx context.Context, ch Channel) error {
	return r.rdb.SAdd(ctx, channelsKey, ch.From+"\n"+ch.To).Err()
}

func (r *RedisLog) Append(ctx context.Context, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ch := Channel{From: msg.From, To: msg.To}
	if err := r.Enable(ctx, ch); err != nil {
		return err
	}

	key := stream(ch)
	_, err = r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("append to %s: %w", key, err)
	}
	return nil
}

func (r *RedisLog) History(ctx context.Context, ch Channel) ([]*Message, error) {
	key := stream(ch)
	entries, err := r.rdb.XRange(ctx, key, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	out := make([]*Message, 0, len(entries))
	for _, e := range entries {
		data, ok := e.Values["data"].(string)
		if !ok {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			r.logger.Warn("skipping undecodable message",
				zap.String("stream", key),
				zap.String("entry", e.ID),
				zap.Error(err))
			continue
		}
		out = append(out, &msg)
	}
	return out, nil
}

func (r *RedisLog) Channels(ctx context.Context) ([]Channel, error) {
	members, err := r.rdb.SMembers(ctx, channelsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Channel, 0, len(members))
	for _, m := range members {
		from, to, ok := strings.Cut(m, "\n")
		if !ok {
			continue
		}
		out = append(out, Channel{From: from, To: to})
	}
	return out, nil
}

// Close shuts down the Redis connection.
func (r *RedisLog) Close() error {
	return r.rdb.Close()
}
