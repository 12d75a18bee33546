// internal/historian/historian.go drains the step journal queue from Redis and
// persists the records in batches.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/tabletop/internal/cache"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// FlushFunc stores one batch. It must be safe to call again with records it
// already stored.
type FlushFunc func(ctx context.Context, recs []models.StepRecord) error

// Config holds the historian settings.
type Config struct {
	Client     *redis.Client
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Flush      FlushFunc
	Logger     *logrus.Entry
}

// Service pops journal records and flushes them when the batch is full or
// the flush delay has passed.
type Service struct {
	cfg Config
	log *logrus.Entry

	mu    sync.Mutex
	batch []models.StepRecord

	flushMu sync.Mutex
}

// New fills defaults for unset fields.
func New(cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Queue == "" {
		cfg.Queue = cache.DefaultQueueName
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		cfg:   cfg,
		log:   log.WithField("queue", cfg.Queue),
		batch: make([]models.StepRecord, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Client == nil {
		return errors.New("historian: no redis client")
	}
	s.log.Info("historian started")
	lastFlush := time.Now()

	for {
		if ctx.Err() != nil {
			// final flush gets its own deadline since ctx is gone
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.Flush(flushCtx)
			cancel()
			s.log.Info("historian stopped")
			return nil
		}

		res, err := s.cfg.Client.BLPop(ctx, s.cfg.FlushDelay, s.cfg.Queue).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			if ctx.Err() == nil {
				s.log.WithError(err).Error("BLPop failed")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		case len(res) == 2:
			s.Ingest(ctx, []byte(res[1]))
		}

		if time.Since(lastFlush) >= s.cfg.FlushDelay {
			s.Flush(ctx)
			lastFlush = time.Now()
		}
	}
}

// Ingest decodes one queue payload into the batch. Undecodable payloads are
// logged and dropped.
func (s *Service) Ingest(ctx context.Context, payload []byte) {
	rec, err := cache.DecodeStepRecord(payload)
	if err != nil {
		s.log.WithError(err).Warn("dropping journal entry")
		return
	}

	s.mu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.mu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Pending is the number of records waiting for a flush.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

// Flush stores the current batch and returns how many records were written.
// On failure the records go back to the front of the batch for the next try.
func (s *Service) Flush(ctx context.Context) int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if len(s.batch) == 0 {
		s.mu.Unlock()
		return 0
	}
	out := make([]models.StepRecord, len(s.batch))
	copy(out, s.batch)
	s.batch = s.batch[:0]
	s.mu.Unlock()

	if err := s.cfg.Flush(ctx, out); err != nil {
		s.log.WithError(err).WithField("count", len(out)).Error("flush failed, keeping batch")
		s.mu.Lock()
		s.batch = append(out, s.batch...)
		s.mu.Unlock()
		return 0
	}
	s.log.WithField("count", len(out)).Debug("flushed step records")
	return len(out)
}
