// Package risk implementa el monitor de patrones de riesgo: escanea el
// historial reciente y las posiciones abiertas de un usuario y emite alertas
// ordenadas por severidad.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/metrics"
	"github.com/alejandrodnm/journalbot/internal/ports"
)

// Params son los umbrales configurables del escaneo. Los campos en cero se
// rellenan con los defaults.
type Params struct {
	RecentTrades             int
	ConsecutiveLossThreshold int
	MaxTradesPerHour         int
	MaxRiskPerTradePercent   float64
	DrawdownThresholdPercent float64
}

// DefaultParams devuelve los umbrales por defecto del monitor.
func DefaultParams() Params {
	return Params{
		RecentTrades:             10,
		ConsecutiveLossThreshold: 3,
		MaxTradesPerHour:         5,
		MaxRiskPerTradePercent:   2.0,
		DrawdownThresholdPercent: 10.0,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.RecentTrades <= 0 {
		p.RecentTrades = d.RecentTrades
	}
	if p.ConsecutiveLossThreshold <= 0 {
		p.ConsecutiveLossThreshold = d.ConsecutiveLossThreshold
	}
	if p.MaxTradesPerHour <= 0 {
		p.MaxTradesPerHour = d.MaxTradesPerHour
	}
	if p.MaxRiskPerTradePercent <= 0 {
		p.MaxRiskPerTradePercent = d.MaxRiskPerTradePercent
	}
	if p.DrawdownThresholdPercent <= 0 {
		p.DrawdownThresholdPercent = d.DrawdownThresholdPercent
	}
	return p
}

// Monitor evalúa las diez reglas de riesgo sobre un snapshot fijo del Ledger.
// Sin estado entre llamadas.
type Monitor struct {
	ledger ports.Ledger
}

// New crea un Monitor sobre el Ledger dado.
func New(ledger ports.Ledger) *Monitor {
	return &Monitor{ledger: ledger}
}

// snapshot es la vista inmutable sobre la que corren todas las reglas. Las
// reglas no mutan el snapshot ni dependen de alertas previas.
type snapshot struct {
	closed []ports.ClosedTrade // más recientes primero
	open   []domain.Trade      // más recientes primero
	params Params
}

// Scan ejecuta las diez reglas sobre el historial del usuario y devuelve el
// reporte ordenado por severidad descendente. Las alertas se persisten solo
// si el Ledger acepta escrituras; un backend de solo lectura no es un error.
func (m *Monitor) Scan(ctx context.Context, userID string, p Params) (domain.AlertReport, error) {
	if userID == "" {
		return domain.AlertReport{}, &domain.ValidationError{Field: "user_id", Hint: "user_id is required"}
	}
	p = p.withDefaults()

	closed, err := m.ledger.ClosedWithResults(ctx, ports.TradeFilter{UserID: userID}, 2*p.RecentTrades)
	if err != nil {
		return domain.AlertReport{}, fmt.Errorf("risk.Scan: load closed trades: %w", err)
	}
	open, err := m.ledger.OpenTrades(ctx, userID)
	if err != nil {
		return domain.AlertReport{}, fmt.Errorf("risk.Scan: load open trades: %w", err)
	}

	if len(closed) == 0 && len(open) == 0 {
		return domain.NewAlertReport(nil, "No trades found to analyze"), nil
	}

	snap := snapshot{closed: closed, open: open, params: p}

	var alerts []domain.Alert
	for _, rule := range rules {
		alerts = append(alerts, rule(snap)...)
	}

	now := time.Now().UTC()
	for i := range alerts {
		alerts[i].UserID = userID
		alerts[i].CreatedAt = now
		metrics.AlertsEmitted.WithLabelValues(string(alerts[i].Kind), string(alerts[i].Severity)).Inc()
	}

	if len(alerts) > 0 {
		if m.ledger.Writable() {
			if err := m.ledger.SaveAlerts(ctx, alerts); err != nil {
				return domain.AlertReport{}, fmt.Errorf("risk.Scan: save alerts: %w", err)
			}
		} else {
			slog.Warn("ledger is read-only, alerts not persisted",
				"user_id", userID,
				"alerts", len(alerts),
			)
		}
	}

	slog.Info("risk scan complete",
		"user_id", userID,
		"closed_trades", len(closed),
		"open_trades", len(open),
		"alerts", len(alerts),
	)
	return domain.NewAlertReport(alerts, fmt.Sprintf("Risk analysis complete. Found %d alert(s).", len(alerts))), nil
}
