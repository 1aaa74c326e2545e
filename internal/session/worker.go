package session

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/matching"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/metrics"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/risk"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/scoring"
)

// ParticipantReport is the per-tick portfolio snapshot handed outward for
// dashboards and the leaderboard. Positions are clones; the report never
// aliases worker-owned state.
type ParticipantReport struct {
	ParticipantID   string
	Positions       []*models.Position
	Greeks          models.Greeks
	VaR             models.VaRResult
	Score           models.ScoreResult
	Drawdown        models.DrawdownState
	Equity          float64
	OpenBreaches    []models.BreachEvent
	SnapshotVersion uint64
	Timestamp       time.Time
}

// worker command messages. All state transitions for a participant are
// linearized through the worker's single command channel, which is what
// makes fill/cancel races and lost position updates structurally
// impossible.
type submitCmd struct {
	order models.Order
	reply chan matching.Result
}

type cancelCmd struct {
	orderID string
	reply   chan models.Order
}

type tickCmd struct {
	snapshot *models.MarketState
	done     chan *ParticipantReport
}

type resetCmd struct {
	now  time.Time
	done chan struct{}
}

type worker struct {
	participantID string
	session       *Session
	logger        zerolog.Logger

	cmds chan any
	stop chan struct{}
	dead chan struct{}

	// Exclusively owned state. Touched only inside run().
	positions map[string]*models.Position
	pending   map[string]models.Order
	tracker   *scoring.Tracker
	breaches  *risk.BreachTracker
}

func newWorker(participantID string, s *Session) *worker {
	return &worker{
		participantID: participantID,
		session:       s,
		logger:        s.logger.With().Str("component", "worker").Str("participant", participantID).Logger(),
		cmds:          make(chan any, s.cfg.Session.WorkerQueueSize),
		stop:          make(chan struct{}),
		dead:          make(chan struct{}),
		positions:     make(map[string]*models.Position),
		pending:       make(map[string]models.Order),
		tracker:       scoring.NewTracker(participantID, s.cfg.Session.InitialBankroll, s.cfg.Scoring),
		breaches:      risk.NewBreachTracker(participantID),
	}
}

func (w *worker) run() {
	defer close(w.dead)
	for {
		select {
		case <-w.stop:
			return
		case cmd := <-w.cmds:
			switch c := cmd.(type) {
			case submitCmd:
				c.reply <- w.handleSubmit(c.order)
			case cancelCmd:
				c.reply <- w.handleCancel(c.orderID)
			case tickCmd:
				c.done <- w.handleTick(c.snapshot)
			case resetCmd:
				w.handleReset(c.now)
				close(c.done)
			}
		}
	}
}

// send enqueues a command, respecting caller cancellation and worker
// shutdown.
func (w *worker) send(ctx context.Context, cmd any) error {
	select {
	case w.cmds <- cmd:
		return nil
	case <-w.stop:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) handleSubmit(order models.Order) matching.Result {
	snap := w.session.publisher.Latest()
	if snap == nil {
		order.Status = models.OrderStatusRejected
		order.Reason = models.RejectSessionNotActive
		return matching.Result{Order: order}
	}

	res := w.session.engine.Submit(order, snap)
	w.absorb(res, snap)
	return res
}

func (w *worker) handleCancel(orderID string) models.Order {
	order, ok := w.pending[orderID]
	if !ok {
		// Already filled, cancelled or never seen; cancellation is a no-op
		// on terminal orders.
		return models.Order{ID: orderID, Status: models.OrderStatusRejected, Reason: models.RejectNone}
	}
	delete(w.pending, orderID)
	metrics.PendingOrders.Dec()
	return w.session.engine.Cancel(order)
}

// handleTick re-evaluates resting orders against the new snapshot, then
// recomputes portfolio risk, breach state and score, and freezes a report.
func (w *worker) handleTick(snap *models.MarketState) *ParticipantReport {
	// Resting orders first, oldest first for deterministic replay.
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := w.pending[ids[i]], w.pending[ids[j]]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	for _, id := range ids {
		res := w.session.engine.Reevaluate(w.pending[id], snap)
		if res.Order.Status != models.OrderStatusPending {
			delete(w.pending, id)
			metrics.PendingOrders.Dec()
		}
		w.absorb(res, snap)
	}

	return w.evaluate(snap)
}

// absorb applies a matching result to worker-owned state.
func (w *worker) absorb(res matching.Result, snap *models.MarketState) {
	switch res.Order.Status {
	case models.OrderStatusPending:
		if _, known := w.pending[res.Order.ID]; !known {
			w.pending[res.Order.ID] = res.Order
			metrics.PendingOrders.Inc()
		}
	case models.OrderStatusFilled:
		fill := *res.Fill
		pos, ok := w.positions[fill.Instrument.Key()]
		if !ok {
			pos = models.NewPosition(w.participantID, fill.Instrument, w.session.cfg.Session.ContractMultiplier)
			w.positions[fill.Instrument.Key()] = pos
		}
		pos.ApplyFill(fill)
		w.tracker.AddFees(fill.Fees)
		metrics.FillsTotal.WithLabelValues(string(fill.Side)).Inc()
		w.session.emitFill(fill)
	case models.OrderStatusRejected:
		metrics.RejectionsTotal.WithLabelValues(string(res.Order.Reason)).Inc()
	}
}

// evaluate recomputes Greeks, VaR, breach lifecycle, equity and score for
// the current snapshot and returns the frozen report.
func (w *worker) evaluate(snap *models.MarketState) *ParticipantReport {
	positions := w.positionList()

	greeks := w.session.aggregator.Aggregate(positions, snap)
	varRes := w.session.aggregator.EstimateVaR(positions, snap,
		w.session.cfg.Risk.DailyPriceVol, w.session.cfg.Risk.IVShock)

	findings := risk.CheckLimits(greeks, varRes, w.session.cfg.Risk)
	opened, closed := w.breaches.Update(findings, snap.Timestamp)
	for _, ev := range opened {
		w.tracker.OnBreachOpened(ev)
		metrics.BreachesTotal.WithLabelValues(string(ev.Dimension), string(ev.Severity)).Inc()
		w.session.emitBreach(ev)
	}
	for _, ev := range closed {
		w.tracker.OnBreachClosed(ev)
		w.session.emitBreach(ev)
	}
	severities := make(map[models.RiskDimension]models.BreachSeverity)
	for _, ev := range w.breaches.Open() {
		severities[ev.Dimension] = ev.Severity
	}
	w.tracker.Accrue(snap.Timestamp, severities)

	realized, unrealized := w.pnl(snap)
	w.tracker.UpdateEquity(realized, unrealized, snap.Timestamp)

	score := w.tracker.ComputeScore(varRes.VaR95, w.session.cfg.Risk.VaRLimit, snap.Timestamp)
	w.session.emitScore(score)

	clones := make([]*models.Position, 0, len(positions))
	for _, p := range positions {
		clones = append(clones, p.Clone())
	}

	return &ParticipantReport{
		ParticipantID:   w.participantID,
		Positions:       clones,
		Greeks:          greeks,
		VaR:             varRes,
		Score:           score,
		Drawdown:        w.tracker.Drawdown(),
		Equity:          w.tracker.Equity(),
		OpenBreaches:    w.breaches.Open(),
		SnapshotVersion: snap.Version,
		Timestamp:       snap.Timestamp,
	}
}

func (w *worker) handleReset(now time.Time) {
	for _, ev := range w.breaches.Reset(now) {
		w.session.emitBreach(ev)
	}
	w.tracker.Reset()
	// Positions and their cumulative realized P&L persist across days.
}

func (w *worker) positionList() []*models.Position {
	out := make([]*models.Position, 0, len(w.positions))
	for _, p := range w.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Instrument.Key() < out[j].Instrument.Key()
	})
	return out
}

// pnl marks every position against the snapshot's model prices.
func (w *worker) pnl(snap *models.MarketState) (realized, unrealized float64) {
	for _, pos := range w.positions {
		realized += pos.RealizedPnL
		unrealized += pos.UnrealizedPnL(w.session.markPrice(pos.Instrument, snap))
	}
	return realized, unrealized
}
