package risk

import (
	"fmt"

	"github.com/alejandrodnm/journalbot/internal/domain"
)

// Umbrales fijos de las reglas (los configurables viven en Params).
const (
	criticalLossStreak    = 5
	revengeWindowHours    = 1.0
	overconfidenceWindow  = 5
	overconfidenceMinWins = 3
	overconfidenceJump    = 1.2
	overtradeWindowHours  = 1.0
	criticalRiskPercent   = 5.0
	criticalDrawdown      = 20.0
	emotionalLossCount    = 4
	recentWindow          = 5
	openWindow            = 3
	accountRiskLimit      = 10.0
	criticalAccountRisk   = 20.0
)

// rules enumera las diez heurísticas en orden de detección. El orden importa:
// a igual severidad el reporte conserva esta secuencia.
var rules = []func(snapshot) []domain.Alert{
	checkConsecutiveLosses,
	checkRevengeTrading,
	checkOverconfidence,
	checkOvertrading,
	checkRiskPerTrade,
	checkDrawdown,
	checkEmotionalState,
	checkPoorRiskReward,
	checkMissingStopLoss,
	checkAccountRisk,
}

// candidates devuelve el conjunto de inspección por-trade: los 5 cerrados
// más recientes más los 3 abiertos más recientes.
func (s snapshot) candidates() []domain.Trade {
	out := make([]domain.Trade, 0, recentWindow+openWindow)
	for _, ct := range s.closed[:min(recentWindow, len(s.closed))] {
		out = append(out, ct.Trade)
	}
	out = append(out, s.open[:min(openWindow, len(s.open))]...)
	return out
}

// Regla 1: racha de pérdidas consecutivas desde el trade más reciente.
func checkConsecutiveLosses(s snapshot) []domain.Alert {
	streak := 0
	for _, ct := range s.closed[:min(s.params.RecentTrades, len(s.closed))] {
		if ct.Result.Outcome != domain.OutcomeLoss {
			break
		}
		streak++
	}
	if streak < s.params.ConsecutiveLossThreshold {
		return nil
	}
	sev := domain.SeverityHigh
	if streak >= criticalLossStreak {
		sev = domain.SeverityCritical
	}
	return []domain.Alert{{
		Kind:     domain.AlertConsecutiveLosses,
		Severity: sev,
		Message:  fmt.Sprintf("%d consecutive losses detected. Consider taking a break and reviewing your strategy.", streak),
		Details: map[string]any{
			"consecutive_losses": streak,
			"threshold":          s.params.ConsecutiveLossThreshold,
		},
	}}
}

// Regla 2: trade nuevo abierto a menos de una hora del result de una pérdida.
// Se detiene en el primer par que matchea.
func checkRevengeTrading(s snapshot) []domain.Alert {
	for i := 0; i+1 < len(s.closed); i++ {
		newer, older := s.closed[i], s.closed[i+1]
		if older.Result.Outcome != domain.OutcomeLoss {
			continue
		}
		hours := newer.Trade.OpenedAt.Sub(older.Result.LoggedAt).Hours()
		if hours < revengeWindowHours {
			return []domain.Alert{{
				Kind:     domain.AlertRevengeTrading,
				Severity: domain.SeverityHigh,
				Message:  fmt.Sprintf("Revenge trading detected: new trade opened within %.1f hours after a loss. Wait and analyze before trading again.", hours),
				Details:  map[string]any{"time_since_loss_hours": domain.Round2(hours)},
			}}
		}
	}
	return nil
}

// Regla 3: racha ganadora con lot sizes crecientes. Compara el lot del win
// más reciente contra el más antiguo de la ventana de 5.
func checkOverconfidence(s snapshot) []domain.Alert {
	if len(s.closed) < overconfidenceMinWins {
		return nil
	}
	var wins []domain.Trade
	for _, ct := range s.closed[:min(overconfidenceWindow, len(s.closed))] {
		if ct.Result.Outcome == domain.OutcomeWin {
			wins = append(wins, ct.Trade)
		}
	}
	if len(wins) < overconfidenceMinWins {
		return nil
	}
	newest, oldest := wins[0].LotSize, wins[len(wins)-1].LotSize
	if newest <= oldest*overconfidenceJump {
		return nil
	}
	return []domain.Alert{{
		Kind:     domain.AlertOverconfidence,
		Severity: domain.SeverityMedium,
		Message:  "Overconfidence detected: winning streak with increasing lot sizes. Maintain consistent position sizing.",
		Details: map[string]any{
			"win_streak":        len(wins),
			"lot_size_increase": fmt.Sprintf("%.1f%%", (newest/oldest-1)*100),
		},
	}}
}

// Regla 4: demasiados trades en una hora.
func checkOvertrading(s snapshot) []domain.Alert {
	n := s.params.MaxTradesPerHour
	if len(s.closed) < n {
		return nil
	}
	span := s.closed[0].Trade.OpenedAt.Sub(s.closed[n-1].Trade.OpenedAt).Hours()
	if span > overtradeWindowHours {
		return nil
	}
	return []domain.Alert{{
		Kind:     domain.AlertOvertrading,
		Severity: domain.SeverityHigh,
		Message:  fmt.Sprintf("Overtrading detected: %d+ trades within %.1f hours. Slow down and be more selective.", n, span),
		Details: map[string]any{
			"trades_count":    n,
			"time_span_hours": domain.Round2(span),
		},
	}}
}

// Regla 5: riesgo por trade sobre el balance. Alerta en el primer trade que
// excede el límite y corta.
func checkRiskPerTrade(s snapshot) []domain.Alert {
	for _, t := range s.candidates() {
		if t.Balance <= 0 || t.LotSize <= 0 || t.StopLoss == nil {
			continue
		}
		riskAmount := t.RiskAmount()
		riskPercent := riskAmount / t.Balance * 100
		if riskPercent <= s.params.MaxRiskPerTradePercent {
			continue
		}
		sev := domain.SeverityHigh
		if riskPercent > criticalRiskPercent {
			sev = domain.SeverityCritical
		}
		return []domain.Alert{{
			Kind:     domain.AlertHighRiskPerTrade,
			Severity: sev,
			Message:  fmt.Sprintf("High risk per trade: %.2f%% of balance at risk (limit: %.1f%%). Reduce lot size or widen stop loss.", riskPercent, s.params.MaxRiskPerTradePercent),
			Details: map[string]any{
				"risk_percent": domain.Round2(riskPercent),
				"risk_amount":  domain.Round2(riskAmount),
				"trade_id":     t.ID,
			},
		}}
	}
	return nil
}

// Regla 6: caída desde el pico de balance observado en los cierres recientes.
func checkDrawdown(s snapshot) []domain.Alert {
	if len(s.closed) < 3 {
		return nil
	}
	var balances []float64
	for _, ct := range s.closed {
		if ct.Trade.Balance != 0 {
			balances = append(balances, ct.Trade.Balance)
		}
	}
	if len(balances) < 2 {
		return nil
	}
	peak := balances[0]
	for _, b := range balances[1:] {
		if b > peak {
			peak = b
		}
	}
	if peak <= 0 {
		return nil
	}
	current := balances[0]
	drawdown := (peak - current) / peak * 100
	if drawdown < s.params.DrawdownThresholdPercent {
		return nil
	}
	sev := domain.SeverityHigh
	if drawdown > criticalDrawdown {
		sev = domain.SeverityCritical
	}
	return []domain.Alert{{
		Kind:     domain.AlertDrawdown,
		Severity: sev,
		Message:  fmt.Sprintf("Significant drawdown detected: %.2f%% from peak balance. Consider reducing risk or taking a break.", drawdown),
		Details: map[string]any{
			"drawdown_percent": domain.Round2(drawdown),
			"peak_balance":     peak,
			"current_balance":  current,
		},
	}}
}

// Regla 7: tasa de pérdida alta en la ventana reciente.
func checkEmotionalState(s snapshot) []domain.Alert {
	if len(s.closed) < recentWindow {
		return nil
	}
	losses, wins := 0, 0
	for _, ct := range s.closed[:recentWindow] {
		switch ct.Result.Outcome {
		case domain.OutcomeLoss:
			losses++
		case domain.OutcomeWin:
			wins++
		}
	}
	if losses < emotionalLossCount {
		return nil
	}
	return []domain.Alert{{
		Kind:     domain.AlertEmotional,
		Severity: domain.SeverityHigh,
		Message:  "Emotional trading detected: high loss rate in recent trades. Consider pausing and reviewing your emotional state.",
		Details: map[string]any{
			"recent_losses": losses,
			"recent_wins":   wins,
		},
	}}
}

// Regla 8: ratios riesgo:beneficio peores que 1:1. Una sola alerta agregada.
func checkPoorRiskReward(s snapshot) []domain.Alert {
	var poor []map[string]any
	for _, t := range s.candidates() {
		v, ok := domain.ParseRiskReward(t.RiskReward)
		if !ok || v >= 1.0 {
			continue
		}
		poor = append(poor, map[string]any{
			"trade_id": t.ID,
			"rr_ratio": t.RiskReward,
			"rr_value": v,
		})
	}
	if len(poor) == 0 {
		return nil
	}
	return []domain.Alert{{
		Kind:     domain.AlertPoorRiskReward,
		Severity: domain.SeverityMedium,
		Message:  fmt.Sprintf("Poor risk:reward ratios detected: %d trade(s) with R:R worse than 1:1. Aim for at least 1:2.", len(poor)),
		Details:  map[string]any{"poor_rr_trades": poor},
	}}
}

// Regla 9: trades sin stop loss en el conjunto de inspección.
func checkMissingStopLoss(s snapshot) []domain.Alert {
	var ids []int64
	for _, t := range s.candidates() {
		if t.StopLoss == nil {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return []domain.Alert{{
		Kind:     domain.AlertMissingStopLoss,
		Severity: domain.SeverityCritical,
		Message:  fmt.Sprintf("%d trade(s) without stop loss. Always use stop loss to protect your capital.", len(ids)),
		Details:  map[string]any{"trade_ids": ids},
	}}
}

// Regla 10: riesgo total de las posiciones abiertas sobre el balance más
// reciente.
func checkAccountRisk(s snapshot) []domain.Alert {
	if len(s.open) == 0 {
		return nil
	}
	balance := s.open[0].Balance
	if balance <= 0 {
		return nil
	}
	totalRisk := 0.0
	for _, t := range s.open {
		if t.StopLoss == nil || t.EntryPrice == 0 || t.LotSize == 0 {
			continue
		}
		totalRisk += t.RiskAmount()
	}
	percent := totalRisk / balance * 100
	if percent <= accountRiskLimit {
		return nil
	}
	sev := domain.SeverityHigh
	if percent > criticalAccountRisk {
		sev = domain.SeverityCritical
	}
	return []domain.Alert{{
		Kind:     domain.AlertAccountRisk,
		Severity: sev,
		Message:  fmt.Sprintf("High total account risk: %.2f%% of balance at risk across all open trades. Consider reducing positions.", percent),
		Details: map[string]any{
			"total_risk_percent": domain.Round2(percent),
			"total_risk_amount":  domain.Round2(totalRisk),
			"open_trades":        len(s.open),
		},
	}}
}
