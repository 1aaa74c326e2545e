package models

// Greeks holds an option price and its sensitivities. Per-unit-of-underlying
// at the pricing level; position aggregation scales by signed quantity and
// contract multiplier.
type Greeks struct {
	Price float64
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
	Vanna float64
	Vomma float64
}

// Add returns the element-wise sum of two Greeks sets.
func (g Greeks) Add(o Greeks) Greeks {
	return Greeks{
		Price: g.Price + o.Price,
		Delta: g.Delta + o.Delta,
		Gamma: g.Gamma + o.Gamma,
		Vega:  g.Vega + o.Vega,
		Theta: g.Theta + o.Theta,
		Vanna: g.Vanna + o.Vanna,
		Vomma: g.Vomma + o.Vomma,
	}
}

// Scale returns the Greeks multiplied by a scalar (signed quantity times
// contract multiplier during aggregation).
func (g Greeks) Scale(f float64) Greeks {
	return Greeks{
		Price: g.Price * f,
		Delta: g.Delta * f,
		Gamma: g.Gamma * f,
		Vega:  g.Vega * f,
		Theta: g.Theta * f,
		Vanna: g.Vanna * f,
		Vomma: g.Vomma * f,
	}
}
