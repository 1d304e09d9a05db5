// Package recorder abre y cierra trades del journal: valida los inputs,
// deriva el ratio riesgo:beneficio al abrir y calcula el P/L al cerrar.
package recorder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/ports"
)

// Recorder registra aperturas y cierres contra el Ledger. Sin estado propio:
// cada llamada es una operación completa.
type Recorder struct {
	ledger ports.Ledger
}

// New crea un Recorder sobre el Ledger dado.
func New(ledger ports.Ledger) *Recorder {
	return &Recorder{ledger: ledger}
}

// OpenParams son los datos de un trade nuevo. TakeProfit y StopLoss son
// opcionales; Pair vacío usa el instrumento por defecto.
type OpenParams struct {
	UserID     string
	EntryPrice float64
	TakeProfit *float64
	StopLoss   *float64
	LotSize    float64
	Balance    float64
	Side       domain.Side
	Pair       string
	Timeframe  domain.Timeframe
	Style      domain.TradeStyle
	Strategy   string
	Notes      string
}

// OpenReceipt es el resultado de abrir un trade. Los potenciales son
// informativos y no se persisten.
type OpenReceipt struct {
	Trade           domain.Trade
	PotentialProfit *float64
	PotentialLoss   *float64
	Message         string
}

// Open valida los parámetros, asegura el usuario y persiste el trade con
// estado OPEN. El ratio riesgo:beneficio se calcula una única vez aquí y
// nunca se recalcula.
func (r *Recorder) Open(ctx context.Context, p OpenParams) (OpenReceipt, error) {
	if p.UserID == "" {
		return OpenReceipt{}, &domain.ValidationError{Field: "user_id", Value: p.UserID, Hint: "user_id is required"}
	}
	if p.LotSize <= 0 {
		return OpenReceipt{}, &domain.ValidationError{
			Field: "lot_size", Value: p.LotSize,
			Hint: "lot size must be a positive number",
		}
	}
	if !p.Side.Valid() {
		return OpenReceipt{}, &domain.ValidationError{Field: "trade_type", Value: string(p.Side), Hint: "must be BUY or SELL"}
	}
	if !p.Timeframe.Valid() {
		return OpenReceipt{}, &domain.ValidationError{Field: "timeframe", Value: string(p.Timeframe), Hint: "must be one of 1m 3m 5m 10m 15m 30m 1h 2h 4h 1d"}
	}
	if !p.Style.Valid() {
		return OpenReceipt{}, &domain.ValidationError{Field: "trade_style", Value: string(p.Style), Hint: "must be swing, day trade or scalp"}
	}

	if err := r.ledger.EnsureUser(ctx, p.UserID, p.UserID); err != nil {
		return OpenReceipt{}, fmt.Errorf("recorder.Open: ensure user: %w", err)
	}

	trade := domain.Trade{
		UserID:     p.UserID,
		EntryPrice: p.EntryPrice,
		TakeProfit: p.TakeProfit,
		StopLoss:   p.StopLoss,
		LotSize:    p.LotSize,
		Balance:    p.Balance,
		Side:       p.Side,
		Pair:       p.Pair,
		Timeframe:  p.Timeframe,
		Style:      p.Style,
		Strategy:   p.Strategy,
		RiskReward: domain.RiskRewardRatio(p.Side, p.EntryPrice, p.TakeProfit, p.StopLoss),
		Notes:      p.Notes,
	}
	if err := r.ledger.SaveTrade(ctx, &trade); err != nil {
		return OpenReceipt{}, fmt.Errorf("recorder.Open: save trade: %w", err)
	}

	slog.Info("trade opened",
		"user", trade.UserID,
		"trade_id", trade.ID,
		"side", trade.Side,
		"pair", trade.Pair,
		"risk_reward", trade.RiskReward,
	)

	return OpenReceipt{
		Trade:           trade,
		PotentialProfit: trade.PotentialProfit(),
		PotentialLoss:   trade.PotentialLoss(),
		Message:         fmt.Sprintf("Trade #%d saved successfully", trade.ID),
	}, nil
}

// CloseReceipt es el resultado de cerrar un trade. NewBalance es informativo:
// no se escribe sobre ninguna entidad, el balance se sigue solo por la cadena
// de results.
type CloseReceipt struct {
	Result          domain.Result
	EntryPrice      float64
	ExitPrice       float64
	LotSize         float64
	PreviousBalance float64
	NewBalance      float64
	Message         string
}

// Close registra el resultado de un trade y lo transiciona a CLOSED. El P/L
// se calcula del trade guardado: WIN exige take profit y LOSS exige stop loss;
// sin el precio objetivo correspondiente la llamada falla con ValidationError
// pidiendo un exit price manual.
func (r *Recorder) Close(ctx context.Context, userID string, tradeID int64, outcome domain.Outcome, notes string) (CloseReceipt, error) {
	if !outcome.Valid() {
		return CloseReceipt{}, &domain.ValidationError{Field: "result", Value: string(outcome), Hint: "must be WIN or LOSS"}
	}

	trade, err := r.ledger.TradeByID(ctx, userID, tradeID)
	if err != nil {
		return CloseReceipt{}, err
	}
	if trade.Status == domain.StatusClosed {
		return CloseReceipt{}, &domain.ConflictError{TradeID: tradeID}
	}

	var profitLoss, exitPrice float64
	switch outcome {
	case domain.OutcomeWin:
		if trade.TakeProfit == nil {
			return CloseReceipt{}, &domain.ValidationError{
				Field: "take_profit", Value: nil,
				Hint: fmt.Sprintf("trade #%d has no take_profit set; provide exit price manually or set take_profit when saving the trade", tradeID),
			}
		}
		exitPrice = *trade.TakeProfit
		profitLoss = trade.WinProfit()
	case domain.OutcomeLoss:
		if trade.StopLoss == nil {
			return CloseReceipt{}, &domain.ValidationError{
				Field: "stop_loss", Value: nil,
				Hint: fmt.Sprintf("trade #%d has no stop_loss set; provide exit price manually or set stop_loss when saving the trade", tradeID),
			}
		}
		exitPrice = *trade.StopLoss
		profitLoss = trade.LossAmount()
	}

	result := domain.Result{
		UserID:     userID,
		TradeID:    tradeID,
		Outcome:    outcome,
		ProfitLoss: profitLoss,
		Notes:      notes,
	}
	// Insert del result + transición de estado en una sola transacción.
	if err := r.ledger.CloseTrade(ctx, &result); err != nil {
		return CloseReceipt{}, err
	}

	newBalance := trade.Balance + profitLoss
	slog.Info("trade closed",
		"user", userID,
		"trade_id", tradeID,
		"outcome", outcome,
		"profit_loss", domain.Round2(profitLoss),
	)

	return CloseReceipt{
		Result:          result,
		EntryPrice:      trade.EntryPrice,
		ExitPrice:       exitPrice,
		LotSize:         trade.LotSize,
		PreviousBalance: trade.Balance,
		NewBalance:      newBalance,
		Message: fmt.Sprintf("Trade #%d logged as %s with P/L: $%.2f. New balance: $%.2f",
			tradeID, outcome, profitLoss, newBalance),
	}, nil
}
