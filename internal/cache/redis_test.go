// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() models.StepRecord {
	return models.StepRecord{
		TableID:   uuid.New(),
		GameID:    uuid.New(),
		Seq:       12,
		Index:     3,
		Kind:      "deal",
		Phase:     "dealing",
		Step:      json.RawMessage(`{"kind":"deal","seat":1}`),
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestStepRecordWireForm(t *testing.T) {
	rec := sampleRecord()
	data, err := EncodeStepRecord(rec)
	require.NoError(t, err)

	got, err := DecodeStepRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec.TableID, got.TableID)
	assert.Equal(t, rec.Seq, got.Seq)
	assert.JSONEq(t, string(rec.Step), string(got.Step))

	_, err = DecodeStepRecord([]byte("{nope"))
	assert.Error(t, err)
}

func TestConnectRedisUsesAddressAndDB(t *testing.T) {
	prev := Rdb
	t.Cleanup(func() {
		Rdb.Close()
		Rdb = prev
	})

	err := ConnectRedis("127.0.0.1:1", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	require.NotNil(t, Rdb)
	assert.Equal(t, "127.0.0.1:1", Rdb.Options().Addr)
	assert.Equal(t, 3, Rdb.Options().DB)
}

func TestNilJournalIsQuiet(t *testing.T) {
	var j *RedisJournal
	j.Record(sampleRecord())
	j.Close()
	(&RedisJournal{}).Record(sampleRecord())
	(&RedisJournal{}).Close()
}

func TestJournalDropsWhenFull(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	// no drain running, so the buffer only fills
	j := &RedisJournal{
		Client:  rdb,
		Queue:   "unused",
		Log:     logrus.NewEntry(logger),
		records: make(chan models.StepRecord, 2),
	}
	for i := 0; i < 5; i++ {
		rec := sampleRecord()
		rec.Seq = int64(i)
		j.Record(rec)
	}

	assert.Len(t, j.records, 2)
	assert.Equal(t, int64(0), (<-j.records).Seq)
	assert.Equal(t, int64(1), (<-j.records).Seq)
	require.Len(t, hook.AllEntries(), 3)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, int64(4), hook.LastEntry().Data["seq"])
}

func TestJournalCloseStopsRecording(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	j := NewRedisJournal(rdb, "unused", 4, logrus.NewEntry(logger))
	j.Close()
	assert.NotPanics(t, func() { j.Record(sampleRecord()) })
	j.Close()
	assert.Empty(t, hook.AllEntries())
}

func localRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return rdb
}

// Needs a local Redis; skipped when none answers.
func TestPublishStepRoundTrip(t *testing.T) {
	rdb := localRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	queue := "tabletop_steps_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	rec := sampleRecord()
	require.NoError(t, PublishStep(ctx, rdb, queue, rec))

	res, err := rdb.BLPop(ctx, time.Second, queue).Result()
	require.NoError(t, err)
	require.Len(t, res, 2)
	got, err := DecodeStepRecord([]byte(res[1]))
	require.NoError(t, err)
	assert.Equal(t, rec.GameID, got.GameID)
}

// Needs a local Redis; skipped when none answers.
func TestJournalKeepsRecordOrder(t *testing.T) {
	rdb := localRedis(t)
	queue := "tabletop_steps_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	j := NewRedisJournal(rdb, queue, 0, nil)
	const n = 200
	for i := 0; i < n; i++ {
		rec := sampleRecord()
		rec.Seq = int64(i)
		j.Record(rec)
	}
	j.Close()

	raw, err := rdb.LRange(context.Background(), queue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, raw, n)
	for i, data := range raw {
		rec, err := DecodeStepRecord([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, int64(i), rec.Seq)
	}
}
