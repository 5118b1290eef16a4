package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/storage/models"
	"github.com/ai-demos/gateway/pkg/logger"
	"github.com/ai-demos/gateway/pkg/utils"
)

// Client is the backend call audit log.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an open database handle.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS backend_calls (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		backend TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		method TEXT NOT NULL,
		status_code INTEGER,
		outcome TEXT NOT NULL,
		payload_hash TEXT,
		payload_size INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calls_backend ON backend_calls(backend);
	CREATE INDEX IF NOT EXISTS idx_calls_session ON backend_calls(session_id);
	CREATE INDEX IF NOT EXISTS idx_calls_created ON backend_calls(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// RecordCall stores one settled backend call. Only a hash of the uploaded
// payload is kept.
func (c *Client) RecordCall(ctx context.Context, call httpbase.Call) error {
	record := models.BackendCall{
		ID:          uuid.NewString(),
		SessionID:   call.SessionID,
		Backend:     call.Backend,
		Endpoint:    call.Endpoint,
		Method:      call.Method,
		StatusCode:  call.StatusCode,
		Outcome:     call.Outcome,
		PayloadSize: int64(len(call.Payload)),
		LatencyMS:   call.Duration.Milliseconds(),
		CreatedAt:   time.Now(),
	}
	if len(call.Payload) > 0 {
		record.PayloadHash = utils.HashBytes(call.Payload)
	}

	return c.InsertCall(ctx, &record)
}

func (c *Client) InsertCall(ctx context.Context, record *models.BackendCall) error {
	query := `
		INSERT INTO backend_calls (id, session_id, backend, endpoint, method, status_code, outcome,
			payload_hash, payload_size, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.SessionID,
		record.Backend,
		record.Endpoint,
		record.Method,
		record.StatusCode,
		record.Outcome,
		record.PayloadHash,
		record.PayloadSize,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert backend call: %w", err)
	}

	logger.Debug("Backend call recorded",
		zap.String("call_id", record.ID),
		zap.String("backend", record.Backend),
		zap.String("outcome", record.Outcome),
	)

	return nil
}

// RecentCalls lists the latest calls, newest first. An empty backend lists
// every backend.
func (c *Client) RecentCalls(ctx context.Context, backend string, limit int) ([]models.BackendCall, error) {
	query := `
		SELECT id, session_id, backend, endpoint, method, status_code, outcome,
			payload_hash, payload_size, latency_ms, created_at
		FROM backend_calls
		WHERE (? = '' OR backend = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, backend, backend, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get backend calls: %w", err)
	}
	defer rows.Close()

	calls := []models.BackendCall{}
	for rows.Next() {
		var r models.BackendCall
		var sessionID, payloadHash sql.NullString
		var createdAt int64

		err := rows.Scan(
			&r.ID,
			&sessionID,
			&r.Backend,
			&r.Endpoint,
			&r.Method,
			&r.StatusCode,
			&r.Outcome,
			&payloadHash,
			&r.PayloadSize,
			&r.LatencyMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.SessionID = sessionID.String
		r.PayloadHash = payloadHash.String
		r.CreatedAt = time.Unix(createdAt, 0)
		calls = append(calls, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return calls, nil
}

// OutcomeCounts tallies calls per outcome for a backend.
func (c *Client) OutcomeCounts(ctx context.Context, backend string) (map[string]int, error) {
	query := `SELECT outcome, COUNT(*) FROM backend_calls WHERE (? = '' OR backend = ?) GROUP BY outcome`

	rows, err := c.db.QueryContext(ctx, query, backend, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to count backend calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[outcome] = n
	}

	return counts, rows.Err()
}
