package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/matching"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/metrics"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/pricing"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/risk"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/spread"
)

// Session errors.
var (
	ErrSessionClosed      = errors.New("session closed")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrAlreadyJoined      = errors.New("participant already joined")
)

// Sink receives engine outputs for persistence and export. Implementations
// must not block for long; they are called from participant workers.
type Sink interface {
	SaveFill(fill models.Fill)
	SaveBreach(ev models.BreachEvent)
	SaveScore(score models.ScoreResult)
}

// OrderRequest is the inbound order-intake message.
type OrderRequest struct {
	ParticipantID string
	Side          models.OrderSide
	Style         models.OrderStyle
	Instrument    models.Instrument
	Quantity      int
	LimitPrice    float64
	IVOverride    *float64
}

// Session wires the pricing kernel, spread model, matching engine and risk
// aggregator into one multi-participant simulation. Each participant gets
// a dedicated worker goroutine owning that participant's state; the
// session fans immutable market snapshots out to all workers and collects
// their frozen per-tick reports for the leaderboard.
type Session struct {
	ID     string
	cfg    *config.Config
	logger zerolog.Logger

	kernel     *pricing.Kernel
	spreads    *spread.Model
	engine     *matching.Engine
	aggregator *risk.Aggregator
	publisher  *Publisher
	sink       Sink

	mu      sync.RWMutex
	workers map[string]*worker
	reports map[string]*ParticipantReport
	day     int
	closed  bool
}

// New creates a session from validated configuration. Configuration
// problems surface here, before any order is accepted.
func New(cfg *config.Config, logger zerolog.Logger, sink Sink) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session configuration: %w", err)
	}

	kernel := pricing.NewKernel(pricing.StepsFromConfig(cfg.Pricing))
	spreads := spread.New(cfg.Spread, cfg.Fees, cfg.Session.ContractMultiplier)

	s := &Session{
		ID:         uuid.NewString(),
		cfg:        cfg,
		logger:     logger.With().Str("component", "session").Logger(),
		kernel:     kernel,
		spreads:    spreads,
		engine:     matching.NewEngine(kernel, spreads, cfg.Pricing, logger),
		aggregator: risk.NewAggregator(kernel, cfg.Session.ContractMultiplier, cfg.Pricing.FallbackIV),
		publisher:  NewPublisher(),
		sink:       sink,
		workers:    make(map[string]*worker),
		reports:    make(map[string]*ParticipantReport),
		day:        1,
	}
	s.logger.Info().Str("session_id", s.ID).Str("symbol", cfg.Session.Symbol).Msg("session created")
	return s, nil
}

// Join adds a participant and starts its worker.
func (s *Session) Join(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.workers[participantID]; ok {
		return ErrAlreadyJoined
	}

	w := newWorker(participantID, s)
	s.workers[participantID] = w
	go w.run()
	metrics.ActiveParticipants.Inc()
	s.logger.Info().Str("participant", participantID).Msg("participant joined")
	return nil
}

// Submit routes an order to the owning participant's worker and waits for
// the matching decision. The fill decision and the position mutation
// happen atomically inside that worker.
func (s *Session) Submit(ctx context.Context, req OrderRequest) (matching.Result, error) {
	w, err := s.worker(req.ParticipantID)
	if err != nil {
		return matching.Result{}, err
	}

	order := models.Order{
		ID:            uuid.NewString(),
		ParticipantID: req.ParticipantID,
		Side:          req.Side,
		Style:         req.Style,
		Instrument:    req.Instrument,
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice,
		IVOverride:    req.IVOverride,
		CreatedAt:     time.Now(),
	}
	metrics.OrdersTotal.WithLabelValues(string(req.Side), string(req.Style)).Inc()

	reply := make(chan matching.Result, 1)
	if err := w.send(ctx, submitCmd{order: order, reply: reply}); err != nil {
		return matching.Result{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return matching.Result{}, ctx.Err()
	}
}

// Cancel requests cancellation of a resting order. The cancel message is
// linearized through the same worker queue as fills, so a cancel can never
// race a concurrent fill decision for the same participant.
func (s *Session) Cancel(ctx context.Context, participantID, orderID string) (models.Order, error) {
	w, err := s.worker(participantID)
	if err != nil {
		return models.Order{}, err
	}

	reply := make(chan models.Order, 1)
	if err := w.send(ctx, cancelCmd{orderID: orderID, reply: reply}); err != nil {
		return models.Order{}, err
	}
	select {
	case order := <-reply:
		return order, nil
	case <-ctx.Done():
		return models.Order{}, ctx.Err()
	}
}

// PublishTick publishes a new immutable snapshot and delivers it to every
// participant worker, waiting until all workers have re-evaluated resting
// orders and frozen their reports. On return the leaderboard reflects a
// consistent view of every participant at this snapshot version.
func (s *Session) PublishTick(ctx context.Context, tick Tick) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSessionClosed
	}
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.RUnlock()

	snap := s.publisher.Publish(tick)
	metrics.TicksTotal.Inc()

	type pending struct {
		w    *worker
		done chan *ParticipantReport
	}
	sent := make([]pending, 0, len(workers))
	for _, w := range workers {
		done := make(chan *ParticipantReport, 1)
		if err := w.send(ctx, tickCmd{snapshot: snap, done: done}); err != nil {
			return err
		}
		sent = append(sent, pending{w: w, done: done})
	}

	for _, p := range sent {
		select {
		case report := <-p.done:
			s.mu.Lock()
			s.reports[p.w.participantID] = report
			s.mu.Unlock()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Snapshot returns the participant's latest frozen report.
func (s *Session) Snapshot(participantID string) (*ParticipantReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[participantID]
	if !ok {
		return nil, ErrUnknownParticipant
	}
	return report, nil
}

// Leaderboard ranks participants by unfloored adjusted score, best first.
// Ties break on lower fees, then participant ID for determinism. Reads
// only frozen reports, never a worker's in-progress state.
func (s *Session) Leaderboard() []models.ScoreResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScoreResult, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r.Score)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AdjustedScore != out[j].AdjustedScore {
			return out[i].AdjustedScore > out[j].AdjustedScore
		}
		if out[i].FeePenalty != out[j].FeePenalty {
			return out[i].FeePenalty < out[j].FeePenalty
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}

// AdvanceDay resets every participant's scoring and breach state at a day
// boundary. Positions and cumulative realized P&L persist.
func (s *Session) AdvanceDay(ctx context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return s.day, ErrSessionClosed
	}
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.RUnlock()

	for _, w := range workers {
		done := make(chan struct{})
		if err := w.send(ctx, resetCmd{now: now, done: done}); err != nil {
			return s.day, err
		}
		select {
		case <-done:
		case <-ctx.Done():
			return s.day, ctx.Err()
		}
	}

	s.mu.Lock()
	s.day++
	day := s.day
	s.mu.Unlock()
	s.logger.Info().Int("day", day).Msg("advanced to next trading day")
	return day, nil
}

// Day returns the current trading day, starting at 1.
func (s *Session) Day() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.day
}

// Close stops all workers. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	workers := make([]*worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		close(w.stop)
		<-w.dead
		metrics.ActiveParticipants.Dec()
	}
	s.logger.Info().Str("session_id", s.ID).Msg("session closed")
}

func (s *Session) worker(participantID string) (*worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	w, ok := s.workers[participantID]
	if !ok {
		return nil, ErrUnknownParticipant
	}
	return w, nil
}

// markPrice returns the model price used for marking a position.
func (s *Session) markPrice(inst models.Instrument, snap *models.MarketState) float64 {
	if !inst.IsOption() {
		return snap.FuturesPrice
	}
	return s.kernel.Price(
		snap.FuturesPrice,
		inst.Strike,
		inst.TimeToExpiry(snap.Timestamp),
		snap.VolFor(inst, s.cfg.Pricing.FallbackIV),
		snap.RiskFreeRate,
		inst.OptionType,
	)
}

func (s *Session) emitFill(fill models.Fill) {
	if s.sink != nil {
		s.sink.SaveFill(fill)
	}
}

func (s *Session) emitBreach(ev models.BreachEvent) {
	if s.sink != nil {
		s.sink.SaveBreach(ev)
	}
}

func (s *Session) emitScore(score models.ScoreResult) {
	if s.sink != nil {
		s.sink.SaveScore(score)
	}
}
