// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the step journal is pushed to.
var DefaultQueueName = "tabletop_steps"

// ConnectRedis initializes the global Redis client for addr and database db
// and checks that it answers.
func ConnectRedis(addr string, db int) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s (db %d): %w", addr, db, err)
	}
	return nil
}

// EncodeStepRecord is the wire form of a journal entry.
func EncodeStepRecord(rec models.StepRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal StepRecord: %w", err)
	}
	return data, nil
}

// DecodeStepRecord parses one popped journal entry.
func DecodeStepRecord(data []byte) (models.StepRecord, error) {
	var rec models.StepRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("invalid step record: %w", err)
	}
	return rec, nil
}

// PublishStep serializes rec and pushes it onto the journal queue.
func PublishStep(ctx context.Context, client *redis.Client, queue string, rec models.StepRecord) error {
	data, err := EncodeStepRecord(rec)
	if err != nil {
		return err
	}
	if err := client.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// DefaultJournalBuffer is how many records a RedisJournal holds before it
// starts dropping them.
const DefaultJournalBuffer = 1024

// RedisJournal publishes committed steps without blocking the caller. Records
// are buffered and pushed by a single goroutine, so they reach the queue in
// the order they were recorded. When the buffer is full new records are
// logged and dropped.
type RedisJournal struct {
	Client  *redis.Client
	Queue   string
	Timeout time.Duration
	Log     *logrus.Entry

	mu      sync.RWMutex
	closed  bool
	records chan models.StepRecord
	done    chan struct{}
}

// NewRedisJournal starts a journal pushing to queue on client. A buffer of
// zero or less uses DefaultJournalBuffer.
func NewRedisJournal(client *redis.Client, queue string, buffer int, log *logrus.Entry) *RedisJournal {
	if buffer <= 0 {
		buffer = DefaultJournalBuffer
	}
	j := &RedisJournal{
		Client:  client,
		Queue:   queue,
		Timeout: 2 * time.Second,
		Log:     log,
		records: make(chan models.StepRecord, buffer),
		done:    make(chan struct{}),
	}
	go j.drain()
	return j
}

// Record queues rec for publishing.
func (j *RedisJournal) Record(rec models.StepRecord) {
	if j == nil || j.Client == nil || j.records == nil {
		return
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.records <- rec:
	default:
		j.warn(rec, nil, "journal buffer full, dropping step")
	}
}

// Close stops accepting records and waits for the buffered ones to be pushed.
func (j *RedisJournal) Close() {
	if j == nil || j.records == nil {
		return
	}
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.records)
	j.mu.Unlock()
	if j.done != nil {
		<-j.done
	}
}

func (j *RedisJournal) drain() {
	defer close(j.done)
	for rec := range j.records {
		ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
		err := PublishStep(ctx, j.Client, j.Queue, rec)
		cancel()
		if err != nil {
			j.warn(rec, err, "failed to journal step")
		}
	}
}

func (j *RedisJournal) warn(rec models.StepRecord, err error, msg string) {
	if j.Log == nil {
		return
	}
	log := j.Log.WithFields(logrus.Fields{
		"table_id": rec.TableID,
		"seq":      rec.Seq,
	})
	if err != nil {
		log = log.WithError(err)
	}
	log.Warn(msg)
}
