package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/psantana5/navloader/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the attempt journal
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite journal
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL plus a busy timeout keeps concurrent CLI invocations from
	// tripping over SQLITE_BUSY
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to avoid lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_view_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		resolved_at DATETIME,
		duration_ms INTEGER DEFAULT 0,
		error TEXT,
		bytes_read INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_page_view ON attempts(page_view_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_view_id TEXT NOT NULL,
		final_state TEXT NOT NULL,
		winning_tier TEXT,
		degraded BOOLEAN NOT NULL,
		recorded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_recorded ON outcomes(recorded_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordAttempt inserts an attempt record
func (s *SQLiteStore) RecordAttempt(attempt *models.SourceAttempt) error {
	var resolvedAt interface{}
	if !attempt.ResolvedAt.IsZero() {
		resolvedAt = attempt.ResolvedAt
	}

	_, err := s.db.Exec(`
		INSERT INTO attempts (page_view_id, tier, url, status, started_at, resolved_at, duration_ms, error, bytes_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.PageViewID,
		string(attempt.Tier),
		attempt.URL,
		string(attempt.Status),
		attempt.StartedAt,
		resolvedAt,
		attempt.Duration.Milliseconds(),
		attempt.Error,
		attempt.BytesRead,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the most recent attempts, newest first
func (s *SQLiteStore) ListAttempts(limit int) ([]*models.SourceAttempt, error) {
	rows, err := s.db.Query(`
		SELECT page_view_id, tier, url, status, started_at, resolved_at, duration_ms, error, bytes_read
		FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.SourceAttempt, 0, limit)
	for rows.Next() {
		var a models.SourceAttempt
		var tier, status string
		var resolvedAt sql.NullTime
		var durationMs int64
		var errMsg sql.NullString

		if err := rows.Scan(&a.PageViewID, &tier, &a.URL, &status, &a.StartedAt,
			&resolvedAt, &durationMs, &errMsg, &a.BytesRead); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		a.Tier = models.SourceTier(tier)
		a.Status = models.AttemptStatus(status)
		if resolvedAt.Valid {
			a.ResolvedAt = resolvedAt.Time
		}
		a.Duration = time.Duration(durationMs) * time.Millisecond
		if errMsg.Valid {
			a.Error = errMsg.String
		}

		attempts = append(attempts, &a)
	}

	return attempts, rows.Err()
}

// RecordOutcome inserts a page view outcome
func (s *SQLiteStore) RecordOutcome(outcome *models.PageViewOutcome) error {
	recordedAt := outcome.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO outcomes (page_view_id, final_state, winning_tier, degraded, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		outcome.PageViewID,
		string(outcome.FinalState),
		string(outcome.WinningTier),
		outcome.Degraded,
		recordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// ListOutcomes returns the most recent outcomes, newest first
func (s *SQLiteStore) ListOutcomes(limit int) ([]*models.PageViewOutcome, error) {
	rows, err := s.db.Query(`
		SELECT page_view_id, final_state, winning_tier, degraded, recorded_at
		FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]*models.PageViewOutcome, 0, limit)
	for rows.Next() {
		var o models.PageViewOutcome
		var state, tier string

		if err := rows.Scan(&o.PageViewID, &state, &tier, &o.Degraded, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		o.FinalState = models.InitState(state)
		o.WinningTier = models.SourceTier(tier)
		outcomes = append(outcomes, &o)
	}

	return outcomes, rows.Err()
}

// Summary returns aggregate statistics
func (s *SQLiteStore) Summary() (*Summary, error) {
	summary := &Summary{
		ByTier:   make(map[string]int64),
		ByStatus: make(map[string]int64),
	}

	rows, err := s.db.Query(`SELECT tier, status, COUNT(*) FROM attempts GROUP BY tier, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier, status string
		var count int64
		if err := rows.Scan(&tier, &status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary.TotalAttempts += count
		summary.ByTier[tier] += count
		summary.ByStatus[status] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outcomes`).Scan(&summary.TotalViews); err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM outcomes WHERE degraded = 1`).Scan(&summary.DegradedViews); err != nil {
		return nil, fmt.Errorf("failed to count degraded outcomes: %w", err)
	}

	return summary, nil
}

// Vacuum reclaims space from deleted rows
func (s *SQLiteStore) Vacuum() error {
	_, err := s.db.Exec("VACUUM")
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
