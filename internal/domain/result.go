package domain

import "time"

// Outcome es el desenlace declarado de un trade cerrado.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Valid devuelve true si el outcome es WIN o LOSS.
func (o Outcome) Valid() bool {
	return o == OutcomeWin || o == OutcomeLoss
}

// Result es el resultado realizado de un trade: outcome y P/L con signo
// (positivo para WIN, negativo para LOSS). Existe exactamente un Result por
// trade cerrado; su creación es lo que cierra el trade.
type Result struct {
	ID         int64
	UserID     string
	TradeID    int64
	Outcome    Outcome
	ProfitLoss float64
	Notes      string
	LoggedAt   time.Time
}

// User es el dueño de trades, results y alerts. Se crea implícitamente con el
// primer trade de un identificador desconocido y nunca se borra.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}
