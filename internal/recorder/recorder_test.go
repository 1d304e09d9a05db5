package recorder_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/journalbot/internal/adapters/storage"
	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/ports"
	"github.com/alejandrodnm/journalbot/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(t *testing.T) (*recorder.Recorder, *storage.SQLiteLedger) {
	t.Helper()
	led, err := storage.NewSQLiteLedger(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })
	return recorder.New(led), led
}

func fp(v float64) *float64 { return &v }

func baseParams() recorder.OpenParams {
	return recorder.OpenParams{
		UserID:     "alice",
		EntryPrice: 2000,
		TakeProfit: fp(2010),
		StopLoss:   fp(1995),
		LotSize:    0.03,
		Balance:    10_000,
		Side:       domain.SideBuy,
	}
}

func TestOpen_ComputesRiskReward(t *testing.T) {
	rec, _ := newRecorder(t)

	receipt, err := rec.Open(context.Background(), baseParams())
	require.NoError(t, err)

	// entry 2000, TP 2010, SL 1995 → "1:2.00"
	assert.Equal(t, "1:2.00", receipt.Trade.RiskReward)
	assert.Equal(t, domain.StatusOpen, receipt.Trade.Status)
	assert.Equal(t, "Trade #1 saved successfully", receipt.Message)

	require.NotNil(t, receipt.PotentialProfit)
	assert.InDelta(t, 30.0, *receipt.PotentialProfit, 0.001)
	require.NotNil(t, receipt.PotentialLoss)
	assert.InDelta(t, 15.0, *receipt.PotentialLoss, 0.001)
}

func TestOpen_RejectsNonPositiveLotSize(t *testing.T) {
	rec, led := newRecorder(t)

	p := baseParams()
	p.LotSize = 0
	_, err := rec.Open(context.Background(), p)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lot_size", verr.Field)

	// Ninguna fila creada
	trades, err := led.ListTrades(context.Background(), ports.TradeFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestOpen_RejectsUnknownTimeframe(t *testing.T) {
	rec, _ := newRecorder(t)

	p := baseParams()
	p.Timeframe = "7h"
	_, err := rec.Open(context.Background(), p)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "timeframe", verr.Field)
}

func TestOpen_NoTargets_NoRatio(t *testing.T) {
	rec, _ := newRecorder(t)

	p := baseParams()
	p.TakeProfit = nil
	p.StopLoss = nil
	receipt, err := rec.Open(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, receipt.Trade.RiskReward)
	assert.Nil(t, receipt.PotentialProfit)
	assert.Nil(t, receipt.PotentialLoss)
}

func TestClose_Win(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	opened, err := rec.Open(ctx, baseParams())
	require.NoError(t, err)

	receipt, err := rec.Close(ctx, "alice", opened.Trade.ID, domain.OutcomeWin, "clean break")
	require.NoError(t, err)

	assert.InDelta(t, 30.0, receipt.Result.ProfitLoss, 0.001)
	assert.InDelta(t, 2010.0, receipt.ExitPrice, 0.001)
	assert.InDelta(t, 10_000.0, receipt.PreviousBalance, 0.001)
	assert.InDelta(t, 10_030.0, receipt.NewBalance, 0.001)
	assert.Contains(t, receipt.Message, "logged as WIN")
}

func TestClose_Loss_NegativeProfitLoss(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	opened, err := rec.Open(ctx, baseParams())
	require.NoError(t, err)

	receipt, err := rec.Close(ctx, "alice", opened.Trade.ID, domain.OutcomeLoss, "")
	require.NoError(t, err)

	assert.InDelta(t, -15.0, receipt.Result.ProfitLoss, 0.001)
	assert.InDelta(t, 1995.0, receipt.ExitPrice, 0.001)
	assert.InDelta(t, 9985.0, receipt.NewBalance, 0.001)
}

func TestClose_WinWithoutTakeProfit_LeavesOpen(t *testing.T) {
	rec, led := newRecorder(t)
	ctx := context.Background()

	p := baseParams()
	p.TakeProfit = nil
	opened, err := rec.Open(ctx, p)
	require.NoError(t, err)

	_, err = rec.Close(ctx, "alice", opened.Trade.ID, domain.OutcomeWin, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "take_profit", verr.Field)

	// El trade sigue OPEN
	got, err := led.TradeByID(ctx, "alice", opened.Trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.Status)
}

func TestClose_LossWithoutStopLoss(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	p := baseParams()
	p.StopLoss = nil
	opened, err := rec.Open(ctx, p)
	require.NoError(t, err)

	_, err = rec.Close(ctx, "alice", opened.Trade.ID, domain.OutcomeLoss, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stop_loss", verr.Field)
}

func TestClose_Twice_Conflict(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	opened, err := rec.Open(ctx, baseParams())
	require.NoError(t, err)

	_, err = rec.Close(ctx, "alice", opened.Trade.ID, domain.OutcomeWin, "")
	require.NoError(t, err)

	_, err = rec.Close(ctx, "alice", opened.Trade.ID, domain.OutcomeWin, "")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, opened.Trade.ID, conflict.TradeID)
}

func TestClose_UnknownTrade_NotFound(t *testing.T) {
	rec, _ := newRecorder(t)

	_, err := rec.Close(context.Background(), "alice", 42, domain.OutcomeWin, "")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(42), nf.TradeID)
}

func TestClose_WrongUser_NotFound(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	opened, err := rec.Open(ctx, baseParams())
	require.NoError(t, err)

	_, err = rec.Close(ctx, "bob", opened.Trade.ID, domain.OutcomeWin, "")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}
