package risk

import (
	"time"

	"github.com/google/uuid"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// BreachTracker owns the open/closed lifecycle of breach events for one
// participant. An event opens on the first evaluation where a dimension
// sits at breach severity or worse, stays open while it remains outside
// the limit, and closes on the first evaluation back inside. Warnings do
// not open events; they only appear in findings.
//
// Not safe for concurrent use; each participant worker owns its tracker.
type BreachTracker struct {
	participantID string
	open          map[models.RiskDimension]*models.BreachEvent
}

// NewBreachTracker creates a breach tracker for a participant.
func NewBreachTracker(participantID string) *BreachTracker {
	return &BreachTracker{
		participantID: participantID,
		open:          make(map[models.RiskDimension]*models.BreachEvent),
	}
}

// Update reconciles the tracker with a fresh set of limit findings.
// Returns newly opened and newly closed events. Severity escalation on an
// already-open event updates the event in place without re-opening it.
func (t *BreachTracker) Update(findings []Finding, now time.Time) (opened, closed []models.BreachEvent) {
	breached := make(map[models.RiskDimension]Finding, len(findings))
	for _, f := range findings {
		if f.Severity == models.SeverityWarning {
			continue
		}
		breached[f.Dimension] = f
	}

	for dim, f := range breached {
		if ev, ok := t.open[dim]; ok {
			ev.Severity = f.Severity
			ev.Value = f.Value
			continue
		}
		ev := &models.BreachEvent{
			ID:            uuid.NewString(),
			ParticipantID: t.participantID,
			Dimension:     dim,
			Severity:      f.Severity,
			Value:         f.Value,
			Limit:         f.Limit,
			OpenedAt:      now,
		}
		t.open[dim] = ev
		opened = append(opened, *ev)
	}

	for dim, ev := range t.open {
		if _, still := breached[dim]; still {
			continue
		}
		ts := now
		ev.ClosedAt = &ts
		closed = append(closed, *ev)
		delete(t.open, dim)
	}

	return opened, closed
}

// Open returns copies of the currently open breach events.
func (t *BreachTracker) Open() []models.BreachEvent {
	out := make([]models.BreachEvent, 0, len(t.open))
	for _, ev := range t.open {
		out = append(out, *ev)
	}
	return out
}

// Reset closes and discards all open events, used at day boundaries.
func (t *BreachTracker) Reset(now time.Time) []models.BreachEvent {
	closed := make([]models.BreachEvent, 0, len(t.open))
	for dim, ev := range t.open {
		ts := now
		ev.ClosedAt = &ts
		closed = append(closed, *ev)
		delete(t.open, dim)
	}
	return closed
}
