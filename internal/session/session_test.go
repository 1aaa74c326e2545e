package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// memorySink collects engine outputs for assertions.
type memorySink struct {
	mu       sync.Mutex
	fills    []models.Fill
	breaches []models.BreachEvent
	scores   []models.ScoreResult
}

func (m *memorySink) SaveFill(f models.Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills = append(m.fills, f)
}

func (m *memorySink) SaveBreach(ev models.BreachEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaches = append(m.breaches, ev)
}

func (m *memorySink) SaveScore(s models.ScoreResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, s)
}

func (m *memorySink) fillCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fills)
}

func newTestSession(t *testing.T) (*Session, *memorySink) {
	t.Helper()
	sink := &memorySink{}
	s, err := New(config.Default(), zerolog.Nop(), sink)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, sink
}

func tickAt(futures float64, ts time.Time) Tick {
	return Tick{FuturesPrice: futures, RiskFreeRate: 0.05, Timestamp: ts}
}

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestInvalidConfigurationFailsSetup(t *testing.T) {
	cfg := config.Default()
	cfg.Session.InitialBankroll = -1

	_, err := New(cfg, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestJoinAndDuplicateJoin(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.Join("alice"))
	assert.ErrorIs(t, s.Join("alice"), ErrAlreadyJoined)
}

func TestSubmitBeforeFirstTickIsRejected(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Join("alice"))

	res, err := s.Submit(context.Background(), OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleMarket,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRejected, res.Order.Status)
	assert.Equal(t, models.RejectSessionNotActive, res.Order.Reason)
}

func TestSubmitUnknownParticipant(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Submit(context.Background(), OrderRequest{ParticipantID: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestMarketOrderUpdatesPositionAndReport(t *testing.T) {
	s, sink := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	res, err := s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleMarket,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      2,
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusFilled, res.Order.Status)
	assert.Equal(t, 1, sink.fillCount())

	require.NoError(t, s.PublishTick(ctx, tickAt(83.00, t0.Add(time.Minute))))

	report, err := s.Snapshot("alice")
	require.NoError(t, err)
	require.Len(t, report.Positions, 1)
	assert.Equal(t, 2, report.Positions[0].Quantity)
	// Long two futures contracts at multiplier 1000.
	assert.InDelta(t, 2*1000, report.Greeks.Delta, 1e-9)
	assert.Positive(t, report.Equity)
	assert.Positive(t, report.VaR.VaR95)
}

func TestRestingOrderFillsOnLaterTick(t *testing.T) {
	s, sink := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	res, err := s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleLimit,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      1,
		LimitPrice:    82.00,
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, res.Order.Status)

	// Unchanged market: still resting after repeated ticks.
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(time.Duration(i)*time.Minute))))
	}
	assert.Equal(t, 0, sink.fillCount())

	// Market drops through the limit: exactly one fill.
	require.NoError(t, s.PublishTick(ctx, tickAt(81.50, t0.Add(5*time.Minute))))
	assert.Equal(t, 1, sink.fillCount())

	// Further ticks must not refill the terminal order.
	require.NoError(t, s.PublishTick(ctx, tickAt(81.00, t0.Add(6*time.Minute))))
	assert.Equal(t, 1, sink.fillCount())
}

func TestCancelRestingOrder(t *testing.T) {
	s, sink := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	res, err := s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleLimit,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      1,
		LimitPrice:    82.00,
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, res.Order.Status)

	cancelled, err := s.Cancel(ctx, "alice", res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// The cancelled order never fills, even through the limit.
	require.NoError(t, s.PublishTick(ctx, tickAt(81.00, t0.Add(time.Minute))))
	assert.Equal(t, 0, sink.fillCount())
}

func TestBreachEventsOpenAndClose(t *testing.T) {
	s, sink := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	// 30 futures contracts x 1000 = 30000 delta, past the 25000 cap.
	_, err := s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleMarket,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      30,
	})
	require.NoError(t, err)

	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(time.Minute))))

	report, err := s.Snapshot("alice")
	require.NoError(t, err)
	require.NotEmpty(t, report.OpenBreaches)

	// Flatten: breach closes on the next evaluation.
	_, err = s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideSell,
		Style:         models.OrderStyleMarket,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      30,
	})
	require.NoError(t, err)
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(2*time.Minute))))

	report, err = s.Snapshot("alice")
	require.NoError(t, err)
	assert.Empty(t, report.OpenBreaches)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var sawOpen, sawClosed bool
	for _, ev := range sink.breaches {
		if ev.ClosedAt == nil {
			sawOpen = true
		} else {
			sawClosed = true
		}
	}
	assert.True(t, sawOpen, "open breach was emitted")
	assert.True(t, sawClosed, "closed breach was emitted")
}

func TestLeaderboardConsistentAcrossParticipants(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.Join("bob"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	// Alice trades and pays fees; Bob stays flat.
	_, err := s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleMarket,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      2,
	})
	require.NoError(t, err)

	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(time.Minute))))

	board := s.Leaderboard()
	require.Len(t, board, 2)
	for _, score := range board {
		// Every row reflects the same snapshot version.
		report, err := s.Snapshot(score.ParticipantID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), report.SnapshotVersion)
	}
	// Bob leads: no fees, no drawdown.
	assert.Equal(t, "bob", board[0].ParticipantID)
}

func TestAdvanceDayResetsScoringButKeepsPositions(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	_, err := s.Submit(ctx, OrderRequest{
		ParticipantID: "alice",
		Side:          models.OrderSideBuy,
		Style:         models.OrderStyleMarket,
		Instrument:    models.NewFuture("BRN"),
		Quantity:      2,
	})
	require.NoError(t, err)
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(time.Minute))))

	day, err := s.AdvanceDay(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, day)

	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(2*time.Hour))))
	report, err := s.Snapshot("alice")
	require.NoError(t, err)
	require.Len(t, report.Positions, 1, "positions persist across days")
	assert.Equal(t, 2, report.Positions[0].Quantity)
	assert.Zero(t, report.Score.FeePenalty, "fee penalty cleared at day boundary")
	assert.Zero(t, report.Drawdown.MaxDrawdown)
}

func TestConcurrentSubmissionsSerializePerParticipant(t *testing.T) {
	s, sink := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.Join("alice"))
	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0)))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Submit(ctx, OrderRequest{
				ParticipantID: "alice",
				Side:          models.OrderSideBuy,
				Style:         models.OrderStyleMarket,
				Instrument:    models.NewFuture("BRN"),
				Quantity:      1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, sink.fillCount())

	require.NoError(t, s.PublishTick(ctx, tickAt(82.50, t0.Add(time.Minute))))
	report, err := s.Snapshot("alice")
	require.NoError(t, err)
	require.Len(t, report.Positions, 1)
	assert.Equal(t, n, report.Positions[0].Quantity, "no lost position updates")
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	sink := &memorySink{}
	s, err := New(config.Default(), zerolog.Nop(), sink)
	require.NoError(t, err)
	require.NoError(t, s.Join("alice"))
	s.Close()

	assert.ErrorIs(t, s.Join("bob"), ErrSessionClosed)
	_, err = s.Submit(context.Background(), OrderRequest{ParticipantID: "alice"})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.PublishTick(context.Background(), tickAt(82.50, t0)), ErrSessionClosed)

	// Idempotent close.
	s.Close()
}

func TestPublisherSnapshotImmutability(t *testing.T) {
	p := NewPublisher()
	vols := map[string]float64{"BRN:CALL:85.0000:2026-06-01": 0.3}
	snap := p.Publish(Tick{FuturesPrice: 82.5, ImpliedVols: vols, Timestamp: t0})

	// Mutating the caller's map must not affect the snapshot.
	inst := models.NewOption("BRN", 85, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), models.OptionCall)
	vols[inst.Key()] = 0.9

	assert.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, 82.5, snap.FuturesPrice)
	assert.InDelta(t, 0.3, snap.VolFor(inst, 0.25), 1e-12)

	second := p.Publish(Tick{FuturesPrice: 83.0, Timestamp: t0.Add(time.Minute)})
	assert.Equal(t, uint64(2), second.Version)
	assert.Same(t, second, p.Latest())
	assert.Equal(t, 82.5, snap.FuturesPrice, "earlier snapshot unchanged")
}
