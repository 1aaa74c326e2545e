package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/pricing"
)

func testAggregator(multiplier float64) *Aggregator {
	return NewAggregator(pricing.NewKernel(pricing.DefaultSteps()), multiplier, 0.25)
}

func testSnapshot(futures float64) *models.MarketState {
	return models.NewMarketState(futures, 0.05, nil, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 1)
}

func position(inst models.Instrument, qty int, multiplier float64) *models.Position {
	p := models.NewPosition("p1", inst, multiplier)
	p.Quantity = qty
	return p
}

func TestFuturesContributeOnlyDelta(t *testing.T) {
	a := testAggregator(1000)
	snap := testSnapshot(82.50)

	positions := []*models.Position{position(models.NewFuture("BRN"), 3, 1000)}
	g := a.Aggregate(positions, snap)

	assert.InDelta(t, 3*1000, g.Delta, 1e-9)
	assert.Zero(t, g.Gamma)
	assert.Zero(t, g.Vega)
	assert.InDelta(t, 0, g.Theta, 1e-9, "futures have no time decay")
}

func TestOptionGreeksScaleWithQuantityAndMultiplier(t *testing.T) {
	a := testAggregator(1000)
	snap := testSnapshot(82.50)
	expiry := snap.Timestamp.AddDate(0, 3, 0)
	opt := models.NewOption("BRN", 85, expiry, models.OptionCall)

	one := a.Aggregate([]*models.Position{position(opt, 1, 1000)}, snap)
	five := a.Aggregate([]*models.Position{position(opt, 5, 1000)}, snap)

	assert.InEpsilon(t, 5*one.Delta, five.Delta, 1e-9)
	assert.InEpsilon(t, 5*one.Vega, five.Vega, 1e-9)

	short := a.Aggregate([]*models.Position{position(opt, -1, 1000)}, snap)
	assert.InDelta(t, -one.Delta, short.Delta, 1e-9)
}

func TestPortfolioThetaIsOneDayDecay(t *testing.T) {
	a := testAggregator(1000)
	snap := testSnapshot(82.50)
	expiry := snap.Timestamp.AddDate(0, 3, 0)
	opt := models.NewOption("BRN", 82.5, expiry, models.OptionCall)

	long := a.Aggregate([]*models.Position{position(opt, 10, 1000)}, snap)
	assert.Negative(t, long.Theta, "long ATM options decay")

	short := a.Aggregate([]*models.Position{position(opt, -10, 1000)}, snap)
	assert.Positive(t, short.Theta)
}

func TestVaREmptyPortfolio(t *testing.T) {
	a := testAggregator(1000)
	snap := testSnapshot(82.50)

	vr := a.EstimateVaR(nil, snap, 0.02, 0.05)
	assert.Zero(t, vr.VaR95)
	assert.Empty(t, vr.Scenarios)

	flat := []*models.Position{position(models.NewFuture("BRN"), 0, 1000)}
	assert.Zero(t, a.EstimateVaR(flat, snap, 0.02, 0.05).VaR95)
}

func TestVaRGridShape(t *testing.T) {
	a := testAggregator(1000)
	snap := testSnapshot(82.50)

	positions := []*models.Position{position(models.NewFuture("BRN"), 2, 1000)}
	vr := a.EstimateVaR(positions, snap, 0.02, 0.05)

	require.Len(t, vr.Scenarios, 15)
	assert.InDelta(t, vr.WorstPnL, -vr.VaR95, 1e-9, "VaR95 is the worst scenario of the 15-point grid")
	assert.GreaterOrEqual(t, vr.BestPnL, vr.WorstPnL)
}

func TestVaRMonotonicity(t *testing.T) {
	a := testAggregator(1000)
	snap := testSnapshot(82.50)
	expiry := snap.Timestamp.AddDate(0, 3, 0)

	base := []*models.Position{
		position(models.NewFuture("BRN"), 2, 1000),
		position(models.NewOption("BRN", 85, expiry, models.OptionCall), 5, 1000),
	}
	doubled := []*models.Position{
		position(models.NewFuture("BRN"), 4, 1000),
		position(models.NewOption("BRN", 85, expiry, models.OptionCall), 10, 1000),
	}

	vrBase := a.EstimateVaR(base, snap, 0.02, 0.05)
	vrDouble := a.EstimateVaR(doubled, snap, 0.02, 0.05)
	require.Positive(t, vrBase.VaR95)
	assert.InEpsilon(t, 2*vrBase.VaR95, vrDouble.VaR95, 0.05, "doubling quantities approximately doubles VaR")

	vrWilder := a.EstimateVaR(base, snap, 0.04, 0.05)
	assert.Greater(t, vrWilder.VaR95, vrBase.VaR95, "higher daily vol strictly increases VaR")
}

func TestCheckLimitsSeverities(t *testing.T) {
	rc := config.Default().Risk // delta cap 25000, warning 0.8, critical 1.5x

	within := CheckLimits(models.Greeks{Delta: 10000}, models.VaRResult{}, rc)
	assert.Empty(t, within)

	warning := CheckLimits(models.Greeks{Delta: 21000}, models.VaRResult{}, rc)
	require.Len(t, warning, 1)
	assert.Equal(t, models.SeverityWarning, warning[0].Severity)

	breach := CheckLimits(models.Greeks{Delta: -26000}, models.VaRResult{}, rc)
	require.Len(t, breach, 1)
	assert.Equal(t, models.SeverityBreach, breach[0].Severity)
	assert.Equal(t, models.RiskDelta, breach[0].Dimension)

	critical := CheckLimits(models.Greeks{Delta: 40000}, models.VaRResult{}, rc)
	require.Len(t, critical, 1)
	assert.Equal(t, models.SeverityCritical, critical[0].Severity)

	varBreach := CheckLimits(models.Greeks{}, models.VaRResult{VaR95: 80000}, rc)
	require.Len(t, varBreach, 1)
	assert.Equal(t, models.RiskVaR, varBreach[0].Dimension)
}

func TestCheckLimitsIsPure(t *testing.T) {
	rc := config.Default().Risk
	g := models.Greeks{Delta: 30000}

	first := CheckLimits(g, models.VaRResult{}, rc)
	second := CheckLimits(g, models.VaRResult{}, rc)
	assert.Equal(t, first, second)
}
