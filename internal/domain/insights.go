package domain

// Summary es el resultado del análisis de rendimiento sobre el historial de
// trades de un usuario. Todas las cifras monetarias y porcentajes vienen
// redondeadas a 2 decimales; la ausencia de datos degrada a cero/nil, nunca
// a error.
type Summary struct {
	Totals      Totals
	Performance Performance
	Sides       SideComparison
	LotImpact   LotImpact
	Timeframes  Ranking
	Strategies  Ranking
	RiskReward  RiskRewardStats
	Combos      []ComboStats
}

// Totals son los conteos de trades por estado.
type Totals struct {
	Total  int
	Open   int
	Closed int
}

// Performance es el bloque de win-rate sobre trades cerrados con resultado.
type Performance struct {
	Wins         int
	Losses       int
	TotalPL      float64
	WinRate      float64  // wins / cerrados con resultado × 100
	AvgWin       float64  // promedio de P/L de los WIN
	AvgLoss      float64  // promedio de P/L de los LOSS (signo conservado)
	ProfitFactor *float64 // |avgWin / avgLoss|, nil si avgLoss == 0
}

// SideStats es el rendimiento de un side (BUY o SELL).
type SideStats struct {
	Total   int
	Wins    int
	WinRate float64
	TotalPL float64
}

// SideComparison compara BUY contra SELL. Best es el side con win rate
// estrictamente mayor, o "TIE" si empatan (incluido el doble cero).
type SideComparison struct {
	Best string
	Buy  SideStats
	Sell SideStats
}

// LotImpact compara el lot size promedio entre trades ganados y perdidos.
type LotImpact struct {
	AvgWin  float64
	AvgLoss float64
	Diff    float64
}

// GroupStats es el rendimiento de un grupo (timeframe o estrategia).
type GroupStats struct {
	Key     string
	Total   int
	Wins    int
	WinRate float64
	TotalPL float64
}

// Ranking es una lista de grupos ordenada por win rate descendente, con
// desempate por P/L total descendente. Best es la key del primero.
type Ranking struct {
	Best string
	All  []GroupStats
}

// RiskRewardStats son los promedios del ratio riesgo:beneficio almacenado,
// separados por outcome. Nil cuando no hay ratios parseables.
type RiskRewardStats struct {
	AvgWin  *float64
	AvgLoss *float64
}

// ComboStats es el rendimiento de una combinación (timeframe, estrategia).
type ComboStats struct {
	Timeframe string
	Strategy  string
	Total     int
	Wins      int
	WinRate   float64
	TotalPL   float64
}
