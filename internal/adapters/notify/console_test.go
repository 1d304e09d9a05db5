package notify_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/alejandrodnm/journalbot/internal/adapters/notify"
	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_ReportSummary(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	pf := 2.0
	s := domain.Summary{
		Totals: domain.Totals{Total: 4, Open: 1, Closed: 3},
		Performance: domain.Performance{
			Wins: 2, Losses: 1, TotalPL: 45, WinRate: 66.67,
			AvgWin: 30, AvgLoss: -15, ProfitFactor: &pf,
		},
		Sides: domain.SideComparison{
			Best: "BUY",
			Buy:  domain.SideStats{Total: 2, Wins: 2, WinRate: 100, TotalPL: 60},
			Sell: domain.SideStats{Total: 1, Wins: 0, WinRate: 0, TotalPL: -15},
		},
		Timeframes: domain.Ranking{
			Best: "1h",
			All:  []domain.GroupStats{{Key: "1h", Total: 3, Wins: 2, WinRate: 66.67, TotalPL: 45}},
		},
	}

	require.NoError(t, c.ReportSummary(context.Background(), s))

	out := buf.String()
	assert.Contains(t, out, "win rate 66.67%")
	assert.Contains(t, out, "Best side: BUY")
	assert.Contains(t, out, "Best Timeframe: 1h")
	assert.Contains(t, out, "$45.00")
}

func TestConsole_ReportAlerts(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	report := domain.NewAlertReport([]domain.Alert{
		{Kind: domain.AlertConsecutiveLosses, Severity: domain.SeverityHigh, Message: "3 consecutive losses detected."},
		{Kind: domain.AlertMissingStopLoss, Severity: domain.SeverityCritical, Message: "1 trade(s) without stop loss."},
	}, "Risk analysis complete. Found 2 alert(s).")

	require.NoError(t, c.ReportAlerts(context.Background(), report))

	out := buf.String()
	assert.Contains(t, out, "critical:1 high:1")
	assert.Contains(t, out, "MISSING_STOP_LOSS")
	assert.Contains(t, out, "CONSECUTIVE_LOSSES")
}

func TestConsole_ReportAlerts_Empty(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	report := domain.NewAlertReport(nil, "No trades found to analyze")
	require.NoError(t, c.ReportAlerts(context.Background(), report))

	assert.Contains(t, buf.String(), "No trades found to analyze")
}
