// Package notify implementa los reporters de salida del journal.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/journalbot/internal/domain"
)

// Console implementa ports.Reporter.
type Console struct {
	out io.Writer
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// ReportSummary imprime las métricas de rendimiento en tablas.
func (c *Console) ReportSummary(_ context.Context, s domain.Summary) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d trades — open:%d closed:%d | P/L $%.2f | win rate %.2f%%\n",
		now, s.Totals.Total, s.Totals.Open, s.Totals.Closed,
		s.Performance.TotalPL, s.Performance.WinRate)

	c.printPerformance(s)
	c.printSides(s.Sides)
	if len(s.Timeframes.All) > 0 {
		c.printRanking("Timeframe", s.Timeframes)
	}
	if len(s.Strategies.All) > 0 {
		c.printRanking("Strategy", s.Strategies)
	}
	if len(s.Combos) > 0 {
		c.printCombos(s.Combos)
	}
	return nil
}

func (c *Console) printPerformance(s domain.Summary) {
	pf := "n/a"
	if s.Performance.ProfitFactor != nil {
		pf = fmt.Sprintf("%.2f", *s.Performance.ProfitFactor)
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Wins", "Losses", "Avg win", "Avg loss", "Profit factor", "Lot wins", "Lot losses")
	table.Append(
		fmt.Sprintf("%d", s.Performance.Wins),
		fmt.Sprintf("%d", s.Performance.Losses),
		fmt.Sprintf("$%.2f", s.Performance.AvgWin),
		fmt.Sprintf("$%.2f", s.Performance.AvgLoss),
		pf,
		fmt.Sprintf("%.2f", s.LotImpact.AvgWin),
		fmt.Sprintf("%.2f", s.LotImpact.AvgLoss),
	)
	table.Render()
}

func (c *Console) printSides(sides domain.SideComparison) {
	fmt.Fprintf(c.out, "Best side: %s\n", sides.Best)

	table := tablewriter.NewWriter(c.out)
	table.Header("Side", "Trades", "Wins", "Win rate", "Total P/L")
	for _, row := range []struct {
		name  string
		stats domain.SideStats
	}{
		{"BUY", sides.Buy},
		{"SELL", sides.Sell},
	} {
		table.Append(
			row.name,
			fmt.Sprintf("%d", row.stats.Total),
			fmt.Sprintf("%d", row.stats.Wins),
			fmt.Sprintf("%.2f%%", row.stats.WinRate),
			fmt.Sprintf("$%.2f", row.stats.TotalPL),
		)
	}
	table.Render()
}

func (c *Console) printRanking(label string, r domain.Ranking) {
	fmt.Fprintf(c.out, "Best %s: %s\n", label, r.Best)

	table := tablewriter.NewWriter(c.out)
	table.Header(label, "Trades", "Wins", "Win rate", "Total P/L")
	for _, g := range r.All {
		table.Append(
			g.Key,
			fmt.Sprintf("%d", g.Total),
			fmt.Sprintf("%d", g.Wins),
			fmt.Sprintf("%.2f%%", g.WinRate),
			fmt.Sprintf("$%.2f", g.TotalPL),
		)
	}
	table.Render()
}

func (c *Console) printCombos(combos []domain.ComboStats) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Timeframe", "Strategy", "Trades", "Wins", "Win rate", "Total P/L")
	for _, cb := range combos {
		table.Append(
			cb.Timeframe,
			cb.Strategy,
			fmt.Sprintf("%d", cb.Total),
			fmt.Sprintf("%d", cb.Wins),
			fmt.Sprintf("%.2f%%", cb.WinRate),
			fmt.Sprintf("$%.2f", cb.TotalPL),
		)
	}
	table.Render()
}

// ReportAlerts imprime las alertas ordenadas por severidad.
func (c *Console) ReportAlerts(_ context.Context, r domain.AlertReport) error {
	now := time.Now().Format("15:04:05")
	if len(r.Alerts) == 0 {
		fmt.Fprintf(c.out, "[%s] %s\n", now, r.Message)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] %s — critical:%d high:%d medium:%d low:%d\n",
		now, r.Message, r.Critical, r.High, r.Medium, r.Low)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Severity", "Alert", "Message")
	for i, a := range r.Alerts {
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(a.Severity),
			string(a.Kind),
			a.Message,
		)
	}
	table.Render()
	return nil
}
