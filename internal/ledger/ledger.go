// Package ledger keeps a local record of every answered question in SQLite
// so usage can be reported without the billing backend.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"hoc_companion/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	model_name TEXT NOT NULL,
	question TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	response_time_ms INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_created ON usage_records(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records(model_name, created_at);
`

const insertRecord = `
INSERT OR IGNORE INTO usage_records
	(id, request_id, model_name, question, input_tokens, output_tokens, total_tokens, cost_usd, response_time_ms, created_at)
VALUES
	(:id, :request_id, :model_name, :question, :input_tokens, :output_tokens, :total_tokens, :cost_usd, :response_time_ms, :created_at)`

// SQLiteLedger stores usage records in a SQLite database
type SQLiteLedger struct {
	db *sqlx.DB
}

// record is the row shape; created_at is unix milliseconds so range
// filters compare integers
type record struct {
	ID             string  `db:"id"`
	RequestID      string  `db:"request_id"`
	ModelName      string  `db:"model_name"`
	Question       string  `db:"question"`
	InputTokens    int     `db:"input_tokens"`
	OutputTokens   int     `db:"output_tokens"`
	TotalTokens    int     `db:"total_tokens"`
	CostUSD        float64 `db:"cost_usd"`
	ResponseTimeMS int64   `db:"response_time_ms"`
	CreatedAt      int64   `db:"created_at"`
}

func toRow(r *models.UsageRecord) record {
	id := r.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return record{
		ID:             id.String(),
		RequestID:      r.RequestID,
		ModelName:      r.ModelName,
		Question:       r.Question,
		InputTokens:    r.InputTokens,
		OutputTokens:   r.OutputTokens,
		TotalTokens:    r.TotalTokens,
		CostUSD:        r.CostUSD,
		ResponseTimeMS: r.ResponseTimeMS,
		CreatedAt:      created.UnixMilli(),
	}
}

func (r record) toModel() models.UsageRecord {
	id, _ := uuid.Parse(r.ID)
	return models.UsageRecord{
		ID:             id,
		RequestID:      r.RequestID,
		ModelName:      r.ModelName,
		Question:       r.Question,
		InputTokens:    r.InputTokens,
		OutputTokens:   r.OutputTokens,
		TotalTokens:    r.TotalTokens,
		CostUSD:        r.CostUSD,
		ResponseTimeMS: r.ResponseTimeMS,
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// Open opens or creates the ledger at path (":memory:" for tests)
func Open(path string) (*SQLiteLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Insert stores one record. Inserting the same id twice is a no-op.
func (l *SQLiteLedger) Insert(ctx context.Context, r *models.UsageRecord) error {
	if _, err := l.db.NamedExecContext(ctx, insertRecord, toRow(r)); err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// InsertBatch stores records in one transaction
func (l *SQLiteLedger) InsertBatch(ctx context.Context, records []*models.UsageRecord) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := tx.NamedExecContext(ctx, insertRecord, toRow(r)); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Summary aggregates records created at or after since, per model,
// most expensive first
func (l *SQLiteLedger) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	var out []models.UsageSummary
	err := l.db.SelectContext(ctx, &out, `
		SELECT model_name,
		       COUNT(*) AS requests,
		       COALESCE(SUM(input_tokens), 0) AS input_tokens,
		       COALESCE(SUM(output_tokens), 0) AS output_tokens,
		       COALESCE(SUM(total_tokens), 0) AS total_tokens,
		       COALESCE(SUM(cost_usd), 0) AS cost_usd
		FROM usage_records
		WHERE created_at >= ?
		GROUP BY model_name
		ORDER BY cost_usd DESC, model_name`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	if out == nil {
		out = []models.UsageSummary{}
	}
	return out, nil
}

// Recent returns the newest records first
func (l *SQLiteLedger) Recent(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []record
	if err := l.db.SelectContext(ctx, &rows,
		`SELECT * FROM usage_records ORDER BY created_at DESC, id LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}

	out := make([]models.UsageRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Count returns the number of stored records
func (l *SQLiteLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM usage_records`); err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}
	return n, nil
}

// Prune deletes records created before cutoff and returns how many went
func (l *SQLiteLedger) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM usage_records WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune usage records: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
