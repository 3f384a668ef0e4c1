// Package oddsmath converts decimal prices into implied probabilities and
// bookmaker margin, using decimal arithmetic.
package oddsmath

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/matchoracle/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ImpliedProbability returns 1/price. Decimal prices below 1.0 are not
// valid quotes and report ok=false.
func ImpliedProbability(price float64) (decimal.Decimal, bool) {
	if price < 1 {
		return decimal.Zero, false
	}
	return one.Div(decimal.NewFromFloat(price)), true
}

// Margin returns the bookmaker overround (sum of implied probabilities minus
// one). It needs all three prices; a partial book has no meaningful margin.
func Margin(odds domain.Odds) (decimal.Decimal, bool) {
	if odds.HomeWin == nil || odds.Draw == nil || odds.AwayWin == nil {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, p := range []*float64{odds.HomeWin, odds.Draw, odds.AwayWin} {
		ip, ok := ImpliedProbability(*p)
		if !ok {
			return decimal.Zero, false
		}
		sum = sum.Add(ip)
	}
	return sum.Sub(one), true
}

// Percent formats a probability as a percentage with one decimal place,
// e.g. 0.5556 -> "55.6%".
func Percent(p decimal.Decimal) string {
	return p.Mul(hundred).StringFixed(1) + "%"
}

// View builds the MarketView recorded with a prediction. Unresolved prices
// leave their field empty.
func View(odds domain.Odds) domain.MarketView {
	var v domain.MarketView
	v.HomeWin = percentOf(odds.HomeWin)
	v.Draw = percentOf(odds.Draw)
	v.AwayWin = percentOf(odds.AwayWin)
	if m, ok := Margin(odds); ok {
		v.Margin = Percent(m)
	}
	return v
}

func percentOf(price *float64) string {
	if price == nil {
		return ""
	}
	ip, ok := ImpliedProbability(*price)
	if !ok {
		return ""
	}
	return Percent(ip)
}
