// Package insights calcula las métricas de rendimiento del journal: win
// rates, comparación de sides, rankings por timeframe/estrategia y análisis
// del ratio riesgo:beneficio. Todo se computa fresco por llamada sobre el
// historial filtrado; nada se cachea entre llamadas.
package insights

import (
	"context"
	"fmt"
	"sort"

	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/ports"
)

// maxCombos limita el ranking combinado (timeframe, estrategia) al top 5.
const maxCombos = 5

// Engine computa el Summary de un usuario contra el Ledger.
type Engine struct {
	ledger ports.Ledger
}

// New crea un Engine sobre el Ledger dado.
func New(ledger ports.Ledger) *Engine {
	return &Engine{ledger: ledger}
}

// Compute devuelve el análisis completo para el filtro dado. La ausencia de
// datos degrada a ceros y nil, nunca a error: un usuario sin trades recibe
// un Summary vacío válido.
func (e *Engine) Compute(ctx context.Context, f ports.TradeFilter) (domain.Summary, error) {
	trades, err := e.ledger.ListTrades(ctx, f)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("insights.Compute: list trades: %w", err)
	}
	closed, err := e.ledger.ClosedWithResults(ctx, f, 0)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("insights.Compute: closed trades: %w", err)
	}

	return domain.Summary{
		Totals:      countTotals(trades),
		Performance: computePerformance(closed),
		Sides:       compareSides(closed),
		LotImpact:   computeLotImpact(closed),
		Timeframes:  rankGroups(closed, timeframeKey),
		Strategies:  rankGroups(closed, strategyKey),
		RiskReward:  riskRewardStats(closed),
		Combos:      rankCombos(closed),
	}, nil
}

func countTotals(trades []domain.Trade) domain.Totals {
	t := domain.Totals{Total: len(trades)}
	for _, tr := range trades {
		switch tr.Status {
		case domain.StatusOpen:
			t.Open++
		case domain.StatusClosed:
			t.Closed++
		}
	}
	return t
}

// computePerformance es el bloque de win-rate sobre trades cerrados con
// resultado. El denominador cero devuelve tasas en cero, jamás divide.
func computePerformance(closed []ports.ClosedTrade) domain.Performance {
	var p domain.Performance
	var winSum, lossSum float64

	for _, ct := range closed {
		p.TotalPL += ct.Result.ProfitLoss
		switch ct.Result.Outcome {
		case domain.OutcomeWin:
			p.Wins++
			winSum += ct.Result.ProfitLoss
		case domain.OutcomeLoss:
			p.Losses++
			lossSum += ct.Result.ProfitLoss
		}
	}

	if total := len(closed); total > 0 {
		p.WinRate = domain.Round2(float64(p.Wins) / float64(total) * 100)
	}
	if p.Wins > 0 {
		p.AvgWin = domain.Round2(winSum / float64(p.Wins))
	}
	if p.Losses > 0 {
		p.AvgLoss = domain.Round2(lossSum / float64(p.Losses)) // signo conservado
	}
	if p.AvgLoss != 0 {
		pf := domain.Round2(abs(p.AvgWin / p.AvgLoss))
		p.ProfitFactor = &pf
	}
	p.TotalPL = domain.Round2(p.TotalPL)
	return p
}

// compareSides calcula BUY vs SELL. Best exige win rate estrictamente mayor;
// el empate (incluido 0 vs 0) es "TIE".
func compareSides(closed []ports.ClosedTrade) domain.SideComparison {
	var buy, sell domain.SideStats
	for _, ct := range closed {
		s := &buy
		if ct.Trade.Side == domain.SideSell {
			s = &sell
		}
		s.Total++
		s.TotalPL += ct.Result.ProfitLoss
		if ct.Result.Outcome == domain.OutcomeWin {
			s.Wins++
		}
	}

	finishSide(&buy)
	finishSide(&sell)

	best := "TIE"
	switch {
	case buy.WinRate > sell.WinRate:
		best = string(domain.SideBuy)
	case sell.WinRate > buy.WinRate:
		best = string(domain.SideSell)
	}
	return domain.SideComparison{Best: best, Buy: buy, Sell: sell}
}

func finishSide(s *domain.SideStats) {
	if s.Total > 0 {
		s.WinRate = domain.Round2(float64(s.Wins) / float64(s.Total) * 100)
	}
	s.TotalPL = domain.Round2(s.TotalPL)
}

func computeLotImpact(closed []ports.ClosedTrade) domain.LotImpact {
	var winSum, lossSum float64
	var wins, losses int
	for _, ct := range closed {
		switch ct.Result.Outcome {
		case domain.OutcomeWin:
			winSum += ct.Trade.LotSize
			wins++
		case domain.OutcomeLoss:
			lossSum += ct.Trade.LotSize
			losses++
		}
	}

	var li domain.LotImpact
	if wins > 0 {
		li.AvgWin = domain.Round2(winSum / float64(wins))
	}
	if losses > 0 {
		li.AvgLoss = domain.Round2(lossSum / float64(losses))
	}
	li.Diff = domain.Round2(li.AvgWin - li.AvgLoss)
	return li
}

func timeframeKey(t domain.Trade) string { return string(t.Timeframe) }
func strategyKey(t domain.Trade) string  { return t.Strategy }

// rankGroups agrupa los trades cerrados por la key dada (vacía = excluido) y
// ordena por win rate descendente con desempate por P/L total descendente.
func rankGroups(closed []ports.ClosedTrade, key func(domain.Trade) string) domain.Ranking {
	type acc struct {
		total int
		wins  int
		pl    float64
	}
	groups := make(map[string]*acc)
	for _, ct := range closed {
		k := key(ct.Trade)
		if k == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.total++
		g.pl += ct.Result.ProfitLoss
		if ct.Result.Outcome == domain.OutcomeWin {
			g.wins++
		}
	}

	all := make([]domain.GroupStats, 0, len(groups))
	for k, g := range groups {
		all = append(all, domain.GroupStats{
			Key:     k,
			Total:   g.total,
			Wins:    g.wins,
			WinRate: domain.Round2(float64(g.wins) / float64(g.total) * 100),
			TotalPL: domain.Round2(g.pl),
		})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].WinRate != all[j].WinRate {
			return all[i].WinRate > all[j].WinRate
		}
		if all[i].TotalPL != all[j].TotalPL {
			return all[i].TotalPL > all[j].TotalPL
		}
		return all[i].Key < all[j].Key // orden estable para outputs reproducibles
	})

	r := domain.Ranking{All: all}
	if len(all) > 0 {
		r.Best = all[0].Key
	}
	return r
}

// rankCombos agrupa por (timeframe, estrategia), ambos requeridos, y devuelve
// el top 5 con la misma regla de ranking.
func rankCombos(closed []ports.ClosedTrade) []domain.ComboStats {
	type comboKey struct{ tf, strat string }
	type acc struct {
		total int
		wins  int
		pl    float64
	}
	groups := make(map[comboKey]*acc)
	for _, ct := range closed {
		k := comboKey{string(ct.Trade.Timeframe), ct.Trade.Strategy}
		if k.tf == "" || k.strat == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.total++
		g.pl += ct.Result.ProfitLoss
		if ct.Result.Outcome == domain.OutcomeWin {
			g.wins++
		}
	}

	combos := make([]domain.ComboStats, 0, len(groups))
	for k, g := range groups {
		combos = append(combos, domain.ComboStats{
			Timeframe: k.tf,
			Strategy:  k.strat,
			Total:     g.total,
			Wins:      g.wins,
			WinRate:   domain.Round2(float64(g.wins) / float64(g.total) * 100),
			TotalPL:   domain.Round2(g.pl),
		})
	}
	sort.Slice(combos, func(i, j int) bool {
		if combos[i].WinRate != combos[j].WinRate {
			return combos[i].WinRate > combos[j].WinRate
		}
		if combos[i].TotalPL != combos[j].TotalPL {
			return combos[i].TotalPL > combos[j].TotalPL
		}
		if combos[i].Timeframe != combos[j].Timeframe {
			return combos[i].Timeframe < combos[j].Timeframe
		}
		return combos[i].Strategy < combos[j].Strategy
	})

	if len(combos) > maxCombos {
		combos = combos[:maxCombos]
	}
	return combos
}

// riskRewardStats promedia el valor numérico del ratio "1:X" por outcome,
// ignorando ratios ausentes o no parseables.
func riskRewardStats(closed []ports.ClosedTrade) domain.RiskRewardStats {
	var winSum, lossSum float64
	var wins, losses int
	for _, ct := range closed {
		v, ok := domain.ParseRiskReward(ct.Trade.RiskReward)
		if !ok {
			continue
		}
		switch ct.Result.Outcome {
		case domain.OutcomeWin:
			winSum += v
			wins++
		case domain.OutcomeLoss:
			lossSum += v
			losses++
		}
	}

	var stats domain.RiskRewardStats
	if wins > 0 {
		v := domain.Round2(winSum / float64(wins))
		stats.AvgWin = &v
	}
	if losses > 0 {
		v := domain.Round2(lossSum / float64(losses))
		stats.AvgLoss = &v
	}
	return stats
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
