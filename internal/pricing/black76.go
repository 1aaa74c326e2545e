// Package pricing implements a Black-76 futures-option pricer and its
// sensitivities. Delta, gamma and vega are closed-form; theta, vanna and
// vomma are centered finite differences with configurable step sizes.
// The kernel is pure and stateless: same inputs, same outputs, no I/O.
package pricing

import (
	"math"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// StepConfig controls finite-difference step selection. Steps scale with
// the perturbed variable's magnitude and are floored to avoid degenerate
// zero steps for near-zero inputs.
type StepConfig struct {
	TimeFrac float64 // h_T = clamp(TimeFrac*T, TimeMin, TimeMax)
	TimeMin  float64
	TimeMax  float64
	PriceRel float64 // h_F = max(PriceRel*F, Floor)
	VolRel   float64 // h_sigma = max(VolRel*sigma, Floor)
	Floor    float64
}

// DefaultSteps returns the default finite-difference step heuristics.
func DefaultSteps() StepConfig {
	return StepConfig{
		TimeFrac: 0.01,
		TimeMin:  1e-5,
		TimeMax:  1e-3,
		PriceRel: 1e-4,
		VolRel:   1e-4,
		Floor:    1e-6,
	}
}

// StepsFromConfig builds a StepConfig from session pricing configuration.
func StepsFromConfig(pc config.PricingConfig) StepConfig {
	return StepConfig{
		TimeFrac: pc.TimeStepFrac,
		TimeMin:  pc.TimeStepMin,
		TimeMax:  pc.TimeStepMax,
		PriceRel: pc.PriceStepRel,
		VolRel:   pc.VolStepRel,
		Floor:    pc.StepFloor,
	}
}

// Kernel prices futures options under Black-76.
type Kernel struct {
	steps StepConfig
}

// NewKernel creates a pricing kernel with the given step configuration.
func NewKernel(steps StepConfig) *Kernel {
	if steps.Floor <= 0 {
		steps = DefaultSteps()
	}
	return &Kernel{steps: steps}
}

// normCDF is the standard normal CDF computed via the error function.
// math.Erf is accurate to within ~1e-7 absolute error over the real line,
// which keeps put-call parity inside tolerance-based tests.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// intrinsic returns the discounted intrinsic value, the defined result for
// degenerate inputs (T <= 0 or sigma <= 0).
func intrinsic(f, k, t, r float64, optType models.OptionType) float64 {
	df := 1.0
	if t > 0 {
		df = math.Exp(-r * t)
	}
	if optType == models.OptionPut {
		return df * math.Max(k-f, 0)
	}
	return df * math.Max(f-k, 0)
}

// Price returns the Black-76 price of a futures option.
// Degenerate inputs (T <= 0 or sigma <= 0) return discounted intrinsic
// value; this is a defined edge case, not an error.
func (kr *Kernel) Price(f, k, t, sigma, r float64, optType models.OptionType) float64 {
	if t <= 0 || sigma <= 0 || f <= 0 || k <= 0 {
		return intrinsic(f, k, t, r, optType)
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(f/k) + 0.5*sigma*sigma*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	df := math.Exp(-r * t)

	if optType == models.OptionPut {
		return df * (k*normCDF(-d2) - f*normCDF(-d1))
	}
	return df * (f*normCDF(d1) - k*normCDF(d2))
}

// Greeks returns the price and sensitivities of a futures option.
// Delta, gamma and vega are closed-form; theta uses a centered finite
// difference in time-to-expiry, vanna a centered cross difference in
// futures price and volatility, and vomma a centered second difference
// in volatility. Degenerate inputs yield intrinsic value and zero Greeks.
func (kr *Kernel) Greeks(f, k, t, sigma, r float64, optType models.OptionType) models.Greeks {
	if t <= 0 || sigma <= 0 || f <= 0 || k <= 0 {
		return models.Greeks{Price: intrinsic(f, k, t, r, optType)}
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(f/k) + 0.5*sigma*sigma*t) / (sigma * sqrtT)
	df := math.Exp(-r * t)

	g := models.Greeks{
		Price: kr.Price(f, k, t, sigma, r, optType),
		Gamma: df * normPDF(d1) / (f * sigma * sqrtT),
		Vega:  df * f * normPDF(d1) * sqrtT,
	}
	if optType == models.OptionPut {
		g.Delta = -df * normCDF(-d1)
	} else {
		g.Delta = df * normCDF(d1)
	}

	g.Theta = kr.theta(f, k, t, sigma, r, optType)
	g.Vanna = kr.vanna(f, k, t, sigma, r, optType)
	g.Vomma = kr.vomma(f, k, t, sigma, r, optType)
	return g
}

// theta is -dPrice/dT by centered difference in time-to-expiry.
func (kr *Kernel) theta(f, k, t, sigma, r float64, optType models.OptionType) float64 {
	h := clamp(kr.steps.TimeFrac*t, kr.steps.TimeMin, kr.steps.TimeMax)
	up := kr.Price(f, k, t+h, sigma, r, optType)
	down := kr.Price(f, k, t-h, sigma, r, optType)
	return -(up - down) / (2 * h)
}

// vanna is d2Price/(dF dSigma) by centered cross difference.
func (kr *Kernel) vanna(f, k, t, sigma, r float64, optType models.OptionType) float64 {
	hf := math.Max(kr.steps.PriceRel*f, kr.steps.Floor)
	hs := math.Max(kr.steps.VolRel*sigma, kr.steps.Floor)
	pp := kr.Price(f+hf, k, t, sigma+hs, r, optType)
	pm := kr.Price(f+hf, k, t, sigma-hs, r, optType)
	mp := kr.Price(f-hf, k, t, sigma+hs, r, optType)
	mm := kr.Price(f-hf, k, t, sigma-hs, r, optType)
	return (pp - pm - mp + mm) / (4 * hf * hs)
}

// vomma is d2Price/dSigma2 by centered second difference.
func (kr *Kernel) vomma(f, k, t, sigma, r float64, optType models.OptionType) float64 {
	hs := math.Max(kr.steps.VolRel*sigma, kr.steps.Floor)
	up := kr.Price(f, k, t, sigma+hs, r, optType)
	mid := kr.Price(f, k, t, sigma, r, optType)
	down := kr.Price(f, k, t, sigma-hs, r, optType)
	return (up - 2*mid + down) / (hs * hs)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
