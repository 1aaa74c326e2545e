// Package store persists engine outputs — fills, breach events and score
// reports — to SQLite, and exports trade history to CSV. It is a thin
// shell around the core: the engine never depends on it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperr "github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/errors"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/pkg/utils"
)

// SQLiteStore implements persistence on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
	retry  utils.RetryConfig
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		retry:  utils.DefaultRetryConfig(),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		instrument TEXT NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		fees REAL NOT NULL,
		theoretical REAL NOT NULL,
		quote_bid REAL NOT NULL,
		quote_ask REAL NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fills_participant ON fills(participant_id, timestamp);

	CREATE TABLE IF NOT EXISTS breach_events (
		id TEXT PRIMARY KEY,
		participant_id TEXT NOT NULL,
		dimension TEXT NOT NULL,
		severity TEXT NOT NULL,
		value REAL NOT NULL,
		risk_limit REAL NOT NULL,
		opened_at DATETIME NOT NULL,
		closed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_breaches_participant ON breach_events(participant_id, opened_at);

	CREATE TABLE IF NOT EXISTS scores (
		participant_id TEXT NOT NULL,
		realized_pnl REAL NOT NULL,
		breach_penalty REAL NOT NULL,
		var_penalty REAL NOT NULL,
		drawdown_penalty REAL NOT NULL,
		fee_penalty REAL NOT NULL,
		adjusted_score REAL NOT NULL,
		display_score REAL NOT NULL,
		computed_at DATETIME NOT NULL,
		PRIMARY KEY (participant_id, computed_at)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveFill persists a fill record. Errors are logged, not surfaced: the
// worker path must never stall on persistence.
func (s *SQLiteStore) SaveFill(fill models.Fill) {
	err := utils.Retry(context.Background(), s.retry, func() error {
		_, err := s.db.Exec(`INSERT OR IGNORE INTO fills
			(id, order_id, participant_id, instrument, side, price, quantity, fees, theoretical, quote_bid, quote_ask, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fill.ID, fill.OrderID, fill.ParticipantID, fill.Instrument.Key(), string(fill.Side),
			fill.Price, fill.Quantity, fill.Fees, fill.Theoretical, fill.QuoteBid, fill.QuoteAsk, fill.Timestamp)
		return err
	})
	if err != nil {
		s.logger.Error().Err(apperr.NewStorageError("fills", fill.ID, err)).Msg("saving fill")
	}
}

// SaveBreach upserts a breach event; the same event is saved on open and
// again on close with closed_at set.
func (s *SQLiteStore) SaveBreach(ev models.BreachEvent) {
	var closedAt any
	if ev.ClosedAt != nil {
		closedAt = *ev.ClosedAt
	}
	err := utils.Retry(context.Background(), s.retry, func() error {
		_, err := s.db.Exec(`INSERT INTO breach_events
			(id, participant_id, dimension, severity, value, risk_limit, opened_at, closed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET severity=excluded.severity, value=excluded.value, closed_at=excluded.closed_at`,
			ev.ID, ev.ParticipantID, string(ev.Dimension), string(ev.Severity),
			ev.Value, ev.Limit, ev.OpenedAt, closedAt)
		return err
	})
	if err != nil {
		s.logger.Error().Err(apperr.NewStorageError("breach_events", ev.ID, err)).Msg("saving breach event")
	}
}

// SaveScore persists a score report sample.
func (s *SQLiteStore) SaveScore(score models.ScoreResult) {
	err := utils.Retry(context.Background(), s.retry, func() error {
		_, err := s.db.Exec(`INSERT OR REPLACE INTO scores
			(participant_id, realized_pnl, breach_penalty, var_penalty, drawdown_penalty, fee_penalty, adjusted_score, display_score, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			score.ParticipantID, score.RealizedPnL, score.BreachPenalty, score.VaRPenalty,
			score.DrawdownPenalty, score.FeePenalty, score.AdjustedScore, score.DisplayScore, score.ComputedAt)
		return err
	})
	if err != nil {
		s.logger.Error().Err(apperr.NewStorageError("scores", score.ParticipantID, err)).Msg("saving score")
	}
}

// GetFills returns a participant's fills ordered by time.
func (s *SQLiteStore) GetFills(ctx context.Context, participantID string) ([]FillRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, order_id, participant_id, instrument, side,
		price, quantity, fees, theoretical, quote_bid, quote_ask, timestamp
		FROM fills WHERE participant_id = ? ORDER BY timestamp`, participantID)
	if err != nil {
		return nil, fmt.Errorf("querying fills: %w", err)
	}
	defer rows.Close()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.ID, &f.OrderID, &f.ParticipantID, &f.Instrument, &f.Side,
			&f.Price, &f.Quantity, &f.Fees, &f.Theoretical, &f.QuoteBid, &f.QuoteAsk, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning fill: %w", err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// GetBreaches returns a participant's breach events ordered by open time.
func (s *SQLiteStore) GetBreaches(ctx context.Context, participantID string) ([]models.BreachEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, participant_id, dimension, severity, value, risk_limit, opened_at, closed_at
		FROM breach_events WHERE participant_id = ? ORDER BY opened_at`, participantID)
	if err != nil {
		return nil, fmt.Errorf("querying breach events: %w", err)
	}
	defer rows.Close()

	var events []models.BreachEvent
	for rows.Next() {
		var ev models.BreachEvent
		var dim, sev string
		var closedAt sql.NullTime
		if err := rows.Scan(&ev.ID, &ev.ParticipantID, &dim, &sev, &ev.Value, &ev.Limit, &ev.OpenedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scanning breach event: %w", err)
		}
		ev.Dimension = models.RiskDimension(dim)
		ev.Severity = models.BreachSeverity(sev)
		if closedAt.Valid {
			ts := closedAt.Time
			ev.ClosedAt = &ts
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
