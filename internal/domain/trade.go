package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultPair es el instrumento por defecto cuando el caller no indica uno.
const DefaultPair = "XAU/USD"

// LotMultiplier convierte lot size en P/L por unidad de movimiento de precio.
// Para XAU/USD: 0.01 lotes = $1 de P/L por cada $1 de movimiento.
const LotMultiplier = 100.0

// Side es la dirección de un trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid devuelve true si el side es uno de los dos valores permitidos.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Status es el estado de un trade. La transición es una sola vía: OPEN → CLOSED.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Timeframe es el intervalo de gráfico en el que se tomó el trade.
// Vacío = no indicado.
type Timeframe string

var validTimeframes = map[Timeframe]bool{
	"1m": true, "3m": true, "5m": true, "10m": true, "15m": true,
	"30m": true, "1h": true, "2h": true, "4h": true, "1d": true,
}

// Valid devuelve true si el timeframe es uno de los intervalos fijos o está vacío.
func (t Timeframe) Valid() bool {
	return t == "" || validTimeframes[t]
}

// TradeStyle es el estilo de trading declarado. Vacío = no indicado.
type TradeStyle string

const (
	StyleSwing    TradeStyle = "swing"
	StyleDayTrade TradeStyle = "day trade"
	StyleScalp    TradeStyle = "scalp"
)

// Valid devuelve true si el estilo es conocido o está vacío.
func (s TradeStyle) Valid() bool {
	return s == "" || s == StyleSwing || s == StyleDayTrade || s == StyleScalp
}

// Trade es una posición registrada en el journal, desde apertura hasta cierre.
// TakeProfit y StopLoss son opcionales (nil = no definido).
type Trade struct {
	ID         int64
	UserID     string
	EntryPrice float64
	TakeProfit *float64
	StopLoss   *float64
	LotSize    float64
	Balance    float64 // snapshot del balance de la cuenta al abrir
	Side       Side
	Pair       string
	Timeframe  Timeframe
	Style      TradeStyle
	Strategy   string
	RiskReward string // "1:X.XX", vacío si no se pudo calcular al abrir
	Notes      string
	Status     Status
	OpenedAt   time.Time
}

// --- Derivaciones puras ---

// RiskRewardRatio calcula el ratio riesgo:beneficio al momento de abrir.
// Requiere TP y SL presentes; las distancias se toman en valor absoluto con
// signo dependiente del side:
//
//	BUY:  profit = TP − entry, risk = entry − SL
//	SELL: profit = entry − TP, risk = SL − entry
//
// Devuelve "" si falta algún precio o la distancia de riesgo es cero.
func RiskRewardRatio(side Side, entry float64, takeProfit, stopLoss *float64) string {
	if takeProfit == nil || stopLoss == nil || entry == 0 {
		return ""
	}

	var profitDist, riskDist float64
	if side == SideBuy {
		profitDist = math.Abs(*takeProfit - entry)
		riskDist = math.Abs(entry - *stopLoss)
	} else {
		profitDist = math.Abs(entry - *takeProfit)
		riskDist = math.Abs(*stopLoss - entry)
	}

	if riskDist <= 0 {
		return ""
	}
	return FormatRiskReward(profitDist / riskDist)
}

// FormatRiskReward formatea un ratio numérico como "1:X.XX".
func FormatRiskReward(ratio float64) string {
	return fmt.Sprintf("1:%.2f", ratio)
}

// ParseRiskReward extrae el valor numérico de un ratio "1:X.XX" almacenado.
// Devuelve false si el string está vacío o no es parseable.
func ParseRiskReward(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "1:"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PotentialProfit devuelve la ganancia si el precio alcanza el take profit,
// o nil si no hay TP definido. Valor informativo, no se persiste.
func (t Trade) PotentialProfit() *float64 {
	if t.TakeProfit == nil {
		return nil
	}
	v := math.Abs(*t.TakeProfit-t.EntryPrice) * (t.LotSize * LotMultiplier)
	return &v
}

// PotentialLoss devuelve la pérdida si el precio alcanza el stop loss,
// o nil si no hay SL definido. Valor informativo, no se persiste.
func (t Trade) PotentialLoss() *float64 {
	if t.StopLoss == nil {
		return nil
	}
	v := math.Abs(t.EntryPrice-*t.StopLoss) * (t.LotSize * LotMultiplier)
	return &v
}

// WinProfit calcula el P/L de un trade cerrado en WIN al precio de TP.
// Siempre no-negativo.
func (t Trade) WinProfit() float64 {
	if t.TakeProfit == nil {
		return 0
	}
	var move float64
	if t.Side == SideBuy {
		move = *t.TakeProfit - t.EntryPrice
	} else {
		move = t.EntryPrice - *t.TakeProfit
	}
	return math.Abs(move * (t.LotSize * LotMultiplier))
}

// LossAmount calcula el P/L de un trade cerrado en LOSS al precio de SL.
// Siempre no-positivo.
func (t Trade) LossAmount() float64 {
	if t.StopLoss == nil {
		return 0
	}
	var move float64
	if t.Side == SideBuy {
		move = t.EntryPrice - *t.StopLoss
	} else {
		move = *t.StopLoss - t.EntryPrice
	}
	return -math.Abs(move * (t.LotSize * LotMultiplier))
}

// RiskAmount devuelve el capital en riesgo si el SL se ejecuta:
// distancia al stop × (lotSize × 100). Cero si no hay SL.
func (t Trade) RiskAmount() float64 {
	if t.StopLoss == nil {
		return 0
	}
	return math.Abs(t.EntryPrice-*t.StopLoss) * (t.LotSize * LotMultiplier)
}

// Round2 redondea a 2 decimales. Todas las cifras monetarias y porcentajes
// del journal se reportan así.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
