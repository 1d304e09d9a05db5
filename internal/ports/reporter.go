package ports

import (
	"context"

	"github.com/alejandrodnm/journalbot/internal/domain"
)

// Reporter presenta resultados de análisis al usuario.
type Reporter interface {
	// ReportSummary muestra las métricas de rendimiento.
	// En la implementación de consola, imprime tablas formateadas.
	ReportSummary(ctx context.Context, s domain.Summary) error

	// ReportAlerts muestra las alertas de riesgo ordenadas por severidad.
	ReportAlerts(ctx context.Context, r domain.AlertReport) error
}
