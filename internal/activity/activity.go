package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"storefront-importer/internal/types"
)

// Sink receives activity records
type Sink interface {
	LogAction(record types.ActivityRecord)
}

// LogLogger writes each record as a structured log entry
type LogLogger struct {
	logger logrus.FieldLogger
}

// NewLogLogger creates a log-backed sink
func NewLogLogger(logger logrus.FieldLogger) *LogLogger {
	return &LogLogger{logger: logger}
}

// LogAction logs the record
func (l *LogLogger) LogAction(record types.ActivityRecord) {
	l.logger.WithFields(logrus.Fields{
		"attempt_id": record.AttemptID,
		"action":     record.Action,
		"platform":   record.Platform,
		"url":        record.URL,
		"success":    record.Success,
		"job_id":     record.JobID,
		"code":       record.Code,
	}).Info("activity")
}

// RedisLogger pushes records as JSON onto a Redis list, newest first
type RedisLogger struct {
	client  *redis.Client
	queue   string
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewRedisLogger creates a Redis-backed sink
func NewRedisLogger(client *redis.Client, queue string, logger logrus.FieldLogger) *RedisLogger {
	if queue == "" {
		queue = "importer:activity"
	}
	return &RedisLogger{
		client:  client,
		queue:   queue,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// LogAction pushes the record. Failures are logged and dropped; activity
// logging never fails an import.
func (r *RedisLogger) LogAction(record types.ActivityRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.Push(ctx, record); err != nil {
		r.logger.WithError(err).WithField("attempt_id", record.AttemptID).Warn("Failed to push activity record")
	}
}

// Push pushes one record onto the list
func (r *RedisLogger) Push(ctx context.Context, record types.ActivityRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := r.client.LPush(ctx, r.queue, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Recent returns up to n of the newest records
func (r *RedisLogger) Recent(ctx context.Context, n int64) ([]types.ActivityRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	raw, err := r.client.LRange(ctx, r.queue, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}

	records := make([]types.ActivityRecord, 0, len(raw))
	for _, item := range raw {
		var record types.ActivityRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			r.logger.WithError(err).Debug("Skipping malformed activity record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

type multi []Sink

func (m multi) LogAction(record types.ActivityRecord) {
	for _, sink := range m {
		sink.LogAction(record)
	}
}

// Multi delivers every record to each sink in order
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

// History returns the Redis sink inside s, which is the only sink that can
// read records back
func History(s Sink) (*RedisLogger, bool) {
	switch t := s.(type) {
	case *RedisLogger:
		return t, t != nil
	case multi:
		for _, sink := range t {
			if r, ok := History(sink); ok {
				return r, true
			}
		}
	}
	return nil, false
}

// NewRedisClient builds a client from an address or a redis:// URL
func NewRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// FromConfig returns the log sink, plus the Redis sink when an address is
// configured. The returned close function releases the Redis client.
func FromConfig(config *types.ActivityConfig, logger logrus.FieldLogger) (Sink, func() error, error) {
	sink := Sink(NewLogLogger(logger))
	if config.RedisAddr == "" {
		return sink, func() error { return nil }, nil
	}

	client, err := NewRedisClient(config.RedisAddr)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis activity sink unreachable; records will be dropped until it recovers")
	}

	return Multi(sink, NewRedisLogger(client, config.Queue, logger)), client.Close, nil
}
