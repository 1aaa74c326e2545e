package pricing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// Property: for any valid inputs, C - P = e^{-rT}(F - K) within 1e-6
// relative tolerance. This is the kernel's primary correctness invariant.
func TestPropertyPutCallParity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)
	k := NewKernel(DefaultSteps())

	properties.Property("put-call parity holds", prop.ForAll(
		func(f, strike, tt, sigma, r float64) bool {
			call := k.Price(f, strike, tt, sigma, r, models.OptionCall)
			put := k.Price(f, strike, tt, sigma, r, models.OptionPut)
			want := math.Exp(-r*tt) * (f - strike)
			tol := 1e-6 * math.Max(1, math.Abs(want))
			return math.Abs(call-put-want) <= tol
		},
		gen.Float64Range(10, 500),
		gen.Float64Range(10, 500),
		gen.Float64Range(0.001, 3),
		gen.Float64Range(0.01, 1.5),
		gen.Float64Range(0, 0.15),
	))

	properties.TestingRun(t)
}

// Property: call delta stays in (0,1), put delta in (-1,0), and both
// prices are non-negative for any valid input.
func TestPropertyDeltaAndPriceBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)
	k := NewKernel(DefaultSteps())

	properties.Property("delta and price bounds", prop.ForAll(
		func(f, strike, tt, sigma, r float64) bool {
			call := k.Greeks(f, strike, tt, sigma, r, models.OptionCall)
			put := k.Greeks(f, strike, tt, sigma, r, models.OptionPut)
			return call.Delta > 0 && call.Delta < 1 &&
				put.Delta > -1 && put.Delta < 0 &&
				call.Price >= 0 && put.Price >= 0 &&
				call.Gamma >= 0 && call.Vega >= 0
		},
		gen.Float64Range(20, 300),
		gen.Float64Range(20, 300),
		gen.Float64Range(0.01, 2),
		gen.Float64Range(0.05, 1.0),
		gen.Float64Range(0, 0.1),
	))

	properties.TestingRun(t)
}

// Property: the closed-form delta matches a centered finite difference of
// the price within 1e-4 relative tolerance.
func TestPropertyDeltaMatchesFD(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	k := NewKernel(DefaultSteps())

	properties.Property("closed-form delta equals FD delta", prop.ForAll(
		func(f, strike, tt, sigma float64) bool {
			g := k.Greeks(f, strike, tt, sigma, 0.05, models.OptionCall)
			h := 1e-4 * f
			fd := (k.Price(f+h, strike, tt, sigma, 0.05, models.OptionCall) -
				k.Price(f-h, strike, tt, sigma, 0.05, models.OptionCall)) / (2 * h)
			return math.Abs(fd-g.Delta) <= 1e-4*math.Max(math.Abs(g.Delta), 1e-3)
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(50, 150),
		gen.Float64Range(0.05, 2),
		gen.Float64Range(0.1, 0.8),
	))

	properties.TestingRun(t)
}
