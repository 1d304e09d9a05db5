package domain

import (
	"sort"
	"time"
)

// AlertKind identifica el patrón de riesgo detectado.
type AlertKind string

const (
	AlertConsecutiveLosses AlertKind = "CONSECUTIVE_LOSSES"
	AlertRevengeTrading    AlertKind = "REVENGE_TRADING"
	AlertOverconfidence    AlertKind = "OVERCONFIDENCE"
	AlertOvertrading       AlertKind = "OVERTRADING"
	AlertHighRiskPerTrade  AlertKind = "HIGH_RISK_PER_TRADE"
	AlertDrawdown          AlertKind = "DRAWDOWN"
	AlertEmotional         AlertKind = "EMOTIONAL"
	AlertPoorRiskReward    AlertKind = "POOR_RISK_REWARD"
	AlertMissingStopLoss   AlertKind = "MISSING_STOP_LOSS"
	AlertAccountRisk       AlertKind = "ACCOUNT_RISK_PERCENTAGE"

	// AlertNone marca un reporte sin hallazgos. Nunca se persiste.
	AlertNone AlertKind = "NONE"
)

// Severity es el nivel de riesgo de una alerta.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Rank devuelve el orden fijo de severidad: CRITICAL=4 > HIGH=3 > MEDIUM=2 > LOW=1.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Alert es una observación de riesgo detectada por el monitor. Append-only:
// el core nunca la modifica ni la borra una vez emitida.
type Alert struct {
	ID           int64
	UserID       string
	Kind         AlertKind
	Severity     Severity
	Message      string
	Details      map[string]any // contexto por regla, solo para el payload
	Acknowledged bool
	CreatedAt    time.Time
}

// AlertReport es el resultado de un escaneo de riesgo completo.
type AlertReport struct {
	Alerts   []Alert
	Total    int
	Critical int
	High     int
	Medium   int
	Low      int
	Message  string
}

// NewAlertReport ordena las alertas por severidad descendente (estable: a
// igual severidad se conserva el orden de detección) y calcula los conteos.
func NewAlertReport(alerts []Alert, message string) AlertReport {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
	})

	r := AlertReport{Alerts: alerts, Total: len(alerts), Message: message}
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			r.Critical++
		case SeverityHigh:
			r.High++
		case SeverityMedium:
			r.Medium++
		case SeverityLow:
			r.Low++
		}
	}
	return r
}
