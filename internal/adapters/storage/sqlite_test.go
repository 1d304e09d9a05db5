package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/journalbot/internal/adapters/storage"
	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *storage.SQLiteLedger {
	t.Helper()
	led, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })
	return led
}

func fp(v float64) *float64 { return &v }

func makeTrade(user string, openedAt time.Time) domain.Trade {
	return domain.Trade{
		UserID:     user,
		EntryPrice: 2000,
		TakeProfit: fp(2010),
		StopLoss:   fp(1995),
		LotSize:    0.03,
		Balance:    10_000,
		Side:       domain.SideBuy,
		Timeframe:  "1h",
		Strategy:   "smc",
		RiskReward: "1:2.00",
		OpenedAt:   openedAt,
	}
}

func TestSQLiteLedger_SaveAndGetTrade(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	tr := makeTrade("alice", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &tr))
	require.NotZero(t, tr.ID)

	got, err := led.TradeByID(ctx, "alice", tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.Status)
	assert.Equal(t, domain.DefaultPair, got.Pair) // default aplicado
	assert.Equal(t, "1:2.00", got.RiskReward)
	require.NotNil(t, got.TakeProfit)
	assert.InDelta(t, 2010, *got.TakeProfit, 0.001)
}

func TestSQLiteLedger_TradeByID_WrongUser(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	tr := makeTrade("alice", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &tr))

	_, err := led.TradeByID(ctx, "bob", tr.ID)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, tr.ID, nf.TradeID)
}

func TestSQLiteLedger_NullableFieldsRoundTrip(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	tr := domain.Trade{
		UserID:     "alice",
		EntryPrice: 2000,
		LotSize:    0.01,
		Balance:    5000,
		Side:       domain.SideSell,
		OpenedAt:   time.Now().UTC(),
	}
	require.NoError(t, led.SaveTrade(ctx, &tr))

	got, err := led.TradeByID(ctx, "alice", tr.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TakeProfit)
	assert.Nil(t, got.StopLoss)
	assert.Empty(t, got.Timeframe)
	assert.Empty(t, got.Strategy)
	assert.Empty(t, got.RiskReward)
}

func TestSQLiteLedger_CloseTrade(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	tr := makeTrade("alice", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &tr))

	res := domain.Result{
		UserID:     "alice",
		TradeID:    tr.ID,
		Outcome:    domain.OutcomeWin,
		ProfitLoss: 30,
	}
	require.NoError(t, led.CloseTrade(ctx, &res))
	require.NotZero(t, res.ID)

	got, err := led.TradeByID(ctx, "alice", tr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)
}

func TestSQLiteLedger_CloseTrade_AlreadyClosed(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	tr := makeTrade("alice", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &tr))

	first := domain.Result{UserID: "alice", TradeID: tr.ID, Outcome: domain.OutcomeWin, ProfitLoss: 30}
	require.NoError(t, led.CloseTrade(ctx, &first))

	second := domain.Result{UserID: "alice", TradeID: tr.ID, Outcome: domain.OutcomeLoss, ProfitLoss: -15}
	err := led.CloseTrade(ctx, &second)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	// Exactamente un result tras el doble cierre
	closed, err := led.ClosedWithResults(ctx, ports.TradeFilter{UserID: "alice"}, 0)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, domain.OutcomeWin, closed[0].Result.Outcome)
}

func TestSQLiteLedger_CloseTrade_NotFound(t *testing.T) {
	led := openLedger(t)

	res := domain.Result{UserID: "alice", TradeID: 999, Outcome: domain.OutcomeWin, ProfitLoss: 10}
	err := led.CloseTrade(context.Background(), &res)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSQLiteLedger_ListTrades_Filters(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	a := makeTrade("alice", time.Now().UTC())
	a.Timeframe = "1h"
	a.Strategy = "smc"
	require.NoError(t, led.SaveTrade(ctx, &a))

	b := makeTrade("alice", time.Now().UTC())
	b.Timeframe = "4h"
	b.Strategy = "breakout"
	require.NoError(t, led.SaveTrade(ctx, &b))

	c := makeTrade("bob", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &c))

	all, err := led.ListTrades(ctx, ports.TradeFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Filtros compuestos sin armar SQL a mano
	filtered, err := led.ListTrades(ctx, ports.TradeFilter{
		UserID: "alice", Timeframe: "1h", Strategy: "smc", Pair: domain.DefaultPair,
	})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, a.ID, filtered[0].ID)
}

func TestSQLiteLedger_ClosedWithResults_NewestFirst(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		tr := makeTrade("alice", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, led.SaveTrade(ctx, &tr))
		res := domain.Result{UserID: "alice", TradeID: tr.ID, Outcome: domain.OutcomeWin, ProfitLoss: 30}
		require.NoError(t, led.CloseTrade(ctx, &res))
	}

	closed, err := led.ClosedWithResults(ctx, ports.TradeFilter{UserID: "alice"}, 2)
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.True(t, closed[0].Trade.OpenedAt.After(closed[1].Trade.OpenedAt))
}

func TestSQLiteLedger_OpenTrades(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	open := makeTrade("alice", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &open))

	toClose := makeTrade("alice", time.Now().UTC())
	require.NoError(t, led.SaveTrade(ctx, &toClose))
	res := domain.Result{UserID: "alice", TradeID: toClose.ID, Outcome: domain.OutcomeLoss, ProfitLoss: -15}
	require.NoError(t, led.CloseTrade(ctx, &res))

	got, err := led.OpenTrades(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)
}

func TestSQLiteLedger_EnsureUser_Idempotent(t *testing.T) {
	led := openLedger(t)
	ctx := context.Background()

	require.NoError(t, led.EnsureUser(ctx, "alice", ""))
	require.NoError(t, led.EnsureUser(ctx, "alice", "Alice"))
}

func TestSQLiteLedger_SaveAlerts(t *testing.T) {
	led := openLedger(t)

	alerts := []domain.Alert{
		{UserID: "alice", Kind: domain.AlertDrawdown, Severity: domain.SeverityHigh, Message: "drawdown 12%"},
		{UserID: "alice", Kind: domain.AlertMissingStopLoss, Severity: domain.SeverityCritical, Message: "2 trades sin SL"},
	}
	require.NoError(t, led.SaveAlerts(context.Background(), alerts))
	require.NoError(t, led.SaveAlerts(context.Background(), nil)) // lote vacío = no-op
}

func TestSQLiteLedger_Writable(t *testing.T) {
	led := openLedger(t)
	assert.True(t, led.Writable())
}

func TestSQLiteLedger_Writable_ReadOnlyDSN(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	seed, err := storage.NewSQLiteLedger(path)
	require.NoError(t, err)
	tr := makeTrade("alice", time.Now().UTC())
	require.NoError(t, seed.SaveTrade(ctx, &tr))
	require.NoError(t, seed.Close())

	ro, err := storage.NewSQLiteLedger("file:" + path + "?mode=ro")
	require.NoError(t, err)
	t.Cleanup(func() { ro.Close() })

	assert.False(t, ro.Writable())

	// Las lecturas siguen funcionando sobre el backend de solo lectura.
	got, err := ro.TradeByID(ctx, "alice", tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
}
