package portfolio

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Metrics are the derived portfolio figures. Recomputed after every
// mutation, never independently mutated. Invariant:
// TotalValue == CashBalance + Σ position MarketValue.
type Metrics struct {
	TotalValue        float64   `json:"total_value"`
	CashBalance       float64   `json:"cash_balance"`
	InvestedValue     float64   `json:"invested_value"`
	TotalPL           float64   `json:"total_pl"`
	RealizedPL        float64   `json:"realized_pl"`
	UnrealizedPL      float64   `json:"unrealized_pl"`
	SharpeRatio       float64   `json:"sharpe_ratio"`
	MaxDrawdown       float64   `json:"max_drawdown"`
	Volatility        float64   `json:"volatility"`
	VaR95             float64   `json:"var_95"`
	PositionCount     int       `json:"position_count"`
	ConcentrationRisk float64   `json:"concentration_risk"`
	LastUpdated       time.Time `json:"last_updated"`
}

// recompute refreshes each position's derived fields and the portfolio
// metrics. Caller must hold l.mu.
func (l *Ledger) recompute() {
	invested := 0.0
	unrealized := 0.0
	for _, pos := range l.positions {
		pos.MarketValue = float64(pos.Quantity) * pos.CurrentPrice
		pos.UnrealizedPL = (pos.CurrentPrice - pos.AveragePrice) * float64(pos.Quantity)
		costBasis := pos.AveragePrice * float64(pos.Quantity)
		if costBasis != 0 {
			pos.UnrealizedPLPercent = pos.UnrealizedPL / math.Abs(costBasis) * 100
		} else {
			pos.UnrealizedPLPercent = 0
		}
		invested += pos.MarketValue
		unrealized += pos.UnrealizedPL
	}

	total := l.cash + invested
	returns := periodReturns(l.history)
	vol := stdDev(returns)

	concentration := 0.0
	if total > 0 {
		for _, pos := range l.positions {
			w := pos.MarketValue / total
			concentration += w * w
		}
	}

	l.metrics = Metrics{
		TotalValue:        total,
		CashBalance:       l.cash,
		InvestedValue:     invested,
		TotalPL:           total - l.initialCapital,
		RealizedPL:        l.realized,
		UnrealizedPL:      unrealized,
		SharpeRatio:       sharpeRatio(returns, l.riskFreeRate),
		MaxDrawdown:       maxDrawdown(l.history),
		Volatility:        vol * 100,
		VaR95:             total * l.varZ * vol,
		PositionCount:     len(l.positions),
		ConcentrationRisk: concentration,
		LastUpdated:       time.Now(),
	}
}

// periodReturns converts a value history into period returns.
func periodReturns(history []float64) []float64 {
	if len(history) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		if history[i-1] == 0 {
			continue
		}
		returns = append(returns, history[i]/history[i-1]-1)
	}
	return returns
}

// stdDev returns the sample standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// sharpeRatio computes the annualized Sharpe ratio over period returns.
func sharpeRatio(returns []float64, riskFreeRate float64) float64 {
	sd := stdDev(returns)
	if sd == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	return (mean - riskFreeRate) / sd * math.Sqrt(252)
}

// maxDrawdown returns the largest peak-to-trough decline of the value
// history, in percent.
func maxDrawdown(history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	peak := history[0]
	maxDD := 0.0
	for _, v := range history {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// Risk warning thresholds.
const (
	warnDrawdownPercent   = 15.0
	warnVolatilityPercent = 5.0
	warnConcentration     = 0.5
	warnPositionLossPct   = -10.0
)

// CheckRisks logs a warning for each risk threshold the portfolio
// currently breaches.
func (l *Ledger) CheckRisks() {
	l.mu.Lock()
	m := l.metrics
	losers := make([]Position, 0)
	for _, pos := range l.positions {
		if pos.UnrealizedPLPercent < warnPositionLossPct {
			losers = append(losers, *pos)
		}
	}
	l.mu.Unlock()

	if m.MaxDrawdown > warnDrawdownPercent {
		l.logger.Warn("drawdown threshold breached",
			zap.Float64("max_drawdown_pct", m.MaxDrawdown))
	}
	if m.Volatility > warnVolatilityPercent {
		l.logger.Warn("volatility threshold breached",
			zap.Float64("volatility_pct", m.Volatility))
	}
	if m.ConcentrationRisk > warnConcentration {
		l.logger.Warn("portfolio concentration high",
			zap.Float64("concentration", m.ConcentrationRisk))
	}
	for _, pos := range losers {
		l.logger.Warn("position loss threshold breached",
			zap.String("symbol", pos.Symbol),
			zap.Float64("unrealized_pl_pct", pos.UnrealizedPLPercent))
	}
}
