package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
)

// FillRecord is the flattened fill row used for queries and CSV export.
type FillRecord struct {
	ID            string    `csv:"fill_id"`
	OrderID       string    `csv:"order_id"`
	ParticipantID string    `csv:"participant_id"`
	Instrument    string    `csv:"instrument"`
	Side          string    `csv:"side"`
	Price         float64   `csv:"price"`
	Quantity      int       `csv:"quantity"`
	Fees          float64   `csv:"fees"`
	Theoretical   float64   `csv:"theoretical"`
	QuoteBid      float64   `csv:"quote_bid"`
	QuoteAsk      float64   `csv:"quote_ask"`
	Timestamp     time.Time `csv:"timestamp"`
}

// ExportTradeHistory writes a participant's fills as CSV.
func (s *SQLiteStore) ExportTradeHistory(ctx context.Context, participantID string, w io.Writer) error {
	fills, err := s.GetFills(ctx, participantID)
	if err != nil {
		return fmt.Errorf("loading fills for export: %w", err)
	}
	if err := gocsv.Marshal(fills, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
