package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

func finding(dim models.RiskDimension, sev models.BreachSeverity) Finding {
	return Finding{Dimension: dim, Severity: sev, Value: 100, Limit: 50}
}

func TestBreachLifecycle(t *testing.T) {
	tr := NewBreachTracker("p1")
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	opened, closed := tr.Update([]Finding{finding(models.RiskDelta, models.SeverityBreach)}, t0)
	require.Len(t, opened, 1)
	assert.Empty(t, closed)
	assert.Equal(t, models.RiskDelta, opened[0].Dimension)
	assert.True(t, opened[0].IsOpen())

	// Still outside: no new events.
	opened, closed = tr.Update([]Finding{finding(models.RiskDelta, models.SeverityBreach)}, t0.Add(time.Minute))
	assert.Empty(t, opened)
	assert.Empty(t, closed)
	assert.Len(t, tr.Open(), 1)

	// Back inside: the event closes.
	opened, closed = tr.Update(nil, t0.Add(2*time.Minute))
	assert.Empty(t, opened)
	require.Len(t, closed, 1)
	assert.False(t, closed[0].IsOpen())
	assert.Equal(t, 2*time.Minute, closed[0].Duration(t0.Add(time.Hour)))
	assert.Empty(t, tr.Open())
}

func TestWarningsDoNotOpenEvents(t *testing.T) {
	tr := NewBreachTracker("p1")
	now := time.Now()

	opened, closed := tr.Update([]Finding{finding(models.RiskVega, models.SeverityWarning)}, now)
	assert.Empty(t, opened)
	assert.Empty(t, closed)
	assert.Empty(t, tr.Open())
}

func TestSeverityEscalationKeepsEventOpen(t *testing.T) {
	tr := NewBreachTracker("p1")
	t0 := time.Now()

	opened, _ := tr.Update([]Finding{finding(models.RiskGamma, models.SeverityBreach)}, t0)
	require.Len(t, opened, 1)
	id := opened[0].ID

	opened, closed := tr.Update([]Finding{finding(models.RiskGamma, models.SeverityCritical)}, t0.Add(time.Minute))
	assert.Empty(t, opened)
	assert.Empty(t, closed)

	open := tr.Open()
	require.Len(t, open, 1)
	assert.Equal(t, id, open[0].ID, "escalation updates the same event")
	assert.Equal(t, models.SeverityCritical, open[0].Severity)
}

func TestIndependentDimensions(t *testing.T) {
	tr := NewBreachTracker("p1")
	t0 := time.Now()

	tr.Update([]Finding{
		finding(models.RiskDelta, models.SeverityBreach),
		finding(models.RiskVaR, models.SeverityCritical),
	}, t0)
	assert.Len(t, tr.Open(), 2)

	// Delta returns inside, VaR stays out.
	opened, closed := tr.Update([]Finding{finding(models.RiskVaR, models.SeverityCritical)}, t0.Add(time.Minute))
	assert.Empty(t, opened)
	require.Len(t, closed, 1)
	assert.Equal(t, models.RiskDelta, closed[0].Dimension)
	assert.Len(t, tr.Open(), 1)
}

func TestResetClosesEverything(t *testing.T) {
	tr := NewBreachTracker("p1")
	t0 := time.Now()

	tr.Update([]Finding{
		finding(models.RiskDelta, models.SeverityBreach),
		finding(models.RiskTheta, models.SeverityBreach),
	}, t0)

	closed := tr.Reset(t0.Add(time.Hour))
	assert.Len(t, closed, 2)
	assert.Empty(t, tr.Open())
	for _, ev := range closed {
		assert.False(t, ev.IsOpen())
	}
}
