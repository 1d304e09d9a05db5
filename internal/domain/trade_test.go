package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestRiskRewardRatio_Buy(t *testing.T) {
	// entry 2000, TP 2010, SL 1995 → profit 10 / risk 5 = 2.00
	ratio := RiskRewardRatio(SideBuy, 2000, fp(2010), fp(1995))
	assert.Equal(t, "1:2.00", ratio)
}

func TestRiskRewardRatio_Sell(t *testing.T) {
	// entry 2000, TP 1990, SL 2005 → profit 10 / risk 5 = 2.00
	ratio := RiskRewardRatio(SideSell, 2000, fp(1990), fp(2005))
	assert.Equal(t, "1:2.00", ratio)
}

func TestRiskRewardRatio_MissingTargets(t *testing.T) {
	assert.Equal(t, "", RiskRewardRatio(SideBuy, 2000, nil, fp(1995)))
	assert.Equal(t, "", RiskRewardRatio(SideBuy, 2000, fp(2010), nil))
}

func TestRiskRewardRatio_ZeroRiskDistance(t *testing.T) {
	// SL == entry → distancia de riesgo cero, no hay ratio
	assert.Equal(t, "", RiskRewardRatio(SideBuy, 2000, fp(2010), fp(2000)))
}

func TestParseRiskReward(t *testing.T) {
	v, ok := ParseRiskReward("1:2.50")
	assert.True(t, ok)
	assert.InDelta(t, 2.5, v, 0.001)

	_, ok = ParseRiskReward("")
	assert.False(t, ok)

	_, ok = ParseRiskReward("1:n/a")
	assert.False(t, ok)
}

// --- P/L ---

func TestWinProfit_Buy(t *testing.T) {
	// entry 2000, TP 2010, lot 0.03 → 10 × 3 = $30
	tr := Trade{Side: SideBuy, EntryPrice: 2000, TakeProfit: fp(2010), LotSize: 0.03}
	assert.InDelta(t, 30.0, tr.WinProfit(), 0.001)
}

func TestWinProfit_Sell(t *testing.T) {
	tr := Trade{Side: SideSell, EntryPrice: 2000, TakeProfit: fp(1990), LotSize: 0.05}
	assert.InDelta(t, 50.0, tr.WinProfit(), 0.001)
}

func TestWinProfit_NoTakeProfit(t *testing.T) {
	tr := Trade{Side: SideBuy, EntryPrice: 2000, LotSize: 0.03}
	assert.Equal(t, 0.0, tr.WinProfit())
}

func TestLossAmount_AlwaysNonPositive(t *testing.T) {
	buy := Trade{Side: SideBuy, EntryPrice: 2000, StopLoss: fp(1995), LotSize: 0.02}
	assert.InDelta(t, -10.0, buy.LossAmount(), 0.001)

	sell := Trade{Side: SideSell, EntryPrice: 2000, StopLoss: fp(2005), LotSize: 0.02}
	assert.InDelta(t, -10.0, sell.LossAmount(), 0.001)
}

func TestRiskAmount(t *testing.T) {
	tr := Trade{Side: SideBuy, EntryPrice: 2000, StopLoss: fp(1990), LotSize: 0.05}
	assert.InDelta(t, 50.0, tr.RiskAmount(), 0.001)

	noSL := Trade{Side: SideBuy, EntryPrice: 2000, LotSize: 0.05}
	assert.Equal(t, 0.0, noSL.RiskAmount())
}

func TestPotentialProfitLoss(t *testing.T) {
	tr := Trade{Side: SideBuy, EntryPrice: 2000, TakeProfit: fp(2010), StopLoss: fp(1995), LotSize: 0.03}

	pp := tr.PotentialProfit()
	if assert.NotNil(t, pp) {
		assert.InDelta(t, 30.0, *pp, 0.001)
	}
	pl := tr.PotentialLoss()
	if assert.NotNil(t, pl) {
		assert.InDelta(t, 15.0, *pl, 0.001)
	}

	bare := Trade{Side: SideBuy, EntryPrice: 2000, LotSize: 0.03}
	assert.Nil(t, bare.PotentialProfit())
	assert.Nil(t, bare.PotentialLoss())
}

// --- Enums ---

func TestTimeframeValid(t *testing.T) {
	assert.True(t, Timeframe("1h").Valid())
	assert.True(t, Timeframe("").Valid())
	assert.False(t, Timeframe("7h").Valid())
}

func TestTradeStyleValid(t *testing.T) {
	assert.True(t, StyleDayTrade.Valid())
	assert.True(t, TradeStyle("").Valid())
	assert.False(t, TradeStyle("position").Valid())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.57, Round2(10.567))
	assert.Equal(t, -3.33, Round2(-3.333))
}
