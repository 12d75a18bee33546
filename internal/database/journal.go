// internal/database/journal.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/tabletop/internal/models"
)

// ErrNoPool is returned when the journal is used before ConnectDB.
var ErrNoPool = errors.New("database: not connected")

// Schema creates the step journal table.
const Schema = `
	CREATE TABLE IF NOT EXISTS table_steps (
		table_id   UUID        NOT NULL,
		seq        BIGINT      NOT NULL,
		game_id    UUID        NOT NULL,
		step_index INTEGER     NOT NULL,
		kind       TEXT        NOT NULL,
		phase      TEXT        NOT NULL,
		step       JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (table_id, seq)
	);
	CREATE INDEX IF NOT EXISTS table_steps_game_idx ON table_steps (game_id, seq);
`

// EnsureSchema creates the journal table if it does not exist yet.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return ErrNoPool
	}
	if _, err := DB.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// InsertStepRecordsTx writes recs inside tx. Records already stored are
// skipped, so a batch can be retried.
func InsertStepRecordsTx(ctx context.Context, tx pgx.Tx, recs []models.StepRecord) error {
	q := `
		INSERT INTO table_steps (table_id, seq, game_id, step_index, kind, phase, step, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (table_id, seq) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(q,
			rec.TableID, rec.Seq, rec.GameID, rec.Index, rec.Kind, rec.Phase,
			[]byte(rec.Step), time.UnixMilli(rec.Timestamp),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %d step records: %w", len(recs), err)
	}
	return nil
}

// InsertStepRecords writes recs in a single transaction.
func InsertStepRecords(ctx context.Context, recs []models.StepRecord) error {
	if len(recs) == 0 {
		return nil
	}
	if DB == nil {
		return ErrNoPool
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return InsertStepRecordsTx(ctx, tx, recs)
	})
}

// ListStepRecords returns the journal of one game in commit order.
func ListStepRecords(ctx context.Context, gameID uuid.UUID) ([]models.StepRecord, error) {
	if DB == nil {
		return nil, ErrNoPool
	}
	q := `
		SELECT table_id, seq, game_id, step_index, kind, phase, step, created_at
		FROM table_steps
		WHERE game_id = $1
		ORDER BY table_id, seq
	`
	rows, err := DB.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("query step records: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StepRecord, error) {
		var rec models.StepRecord
		var step []byte
		var created time.Time
		err := row.Scan(&rec.TableID, &rec.Seq, &rec.GameID, &rec.Index, &rec.Kind, &rec.Phase, &step, &created)
		rec.Step = step
		rec.Timestamp = created.UnixMilli()
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan step records: %w", err)
	}
	return recs, nil
}
