package ports

import (
	"context"

	"github.com/alejandrodnm/journalbot/internal/domain"
)

// TradeFilter es el predicado tipado de las consultas del Ledger. Cada slot
// vacío significa "sin filtro"; nada de SQL condicional armado a mano en los
// componentes.
type TradeFilter struct {
	UserID    string
	Pair      string
	Timeframe string
	Strategy  string
}

// ClosedTrade es un trade CLOSED junto con su Result.
type ClosedTrade struct {
	Trade  domain.Trade
	Result domain.Result
}

// Ledger es el contrato de persistencia del journal. Las implementaciones
// son transaccionales por operación; el core no mantiene estado entre llamadas.
type Ledger interface {
	// EnsureUser crea el usuario si no existe. Idempotente.
	EnsureUser(ctx context.Context, userID, username string) error

	// SaveTrade persiste un trade nuevo con estado OPEN y asigna su ID.
	SaveTrade(ctx context.Context, t *domain.Trade) error

	// TradeByID devuelve el trade del usuario, o *domain.NotFoundError si el
	// id no existe o pertenece a otro usuario.
	TradeByID(ctx context.Context, userID string, tradeID int64) (domain.Trade, error)

	// CloseTrade persiste el Result y transiciona el trade a CLOSED en UNA
	// transacción. Devuelve *domain.ConflictError si el trade ya estaba
	// cerrado y *domain.NotFoundError si no existe; en ambos casos no se
	// escribe nada. Asigna el ID del result.
	CloseTrade(ctx context.Context, r *domain.Result) error

	// ListTrades devuelve los trades que pasan el filtro, sin orden garantizado.
	ListTrades(ctx context.Context, f TradeFilter) ([]domain.Trade, error)

	// ClosedWithResults devuelve los trades CLOSED con su result, ordenados
	// del más reciente al más antiguo por fecha de apertura. limit <= 0
	// significa sin límite.
	ClosedWithResults(ctx context.Context, f TradeFilter, limit int) ([]ClosedTrade, error)

	// OpenTrades devuelve los trades OPEN del usuario, más recientes primero.
	OpenTrades(ctx context.Context, userID string) ([]domain.Trade, error)

	// SaveAlerts persiste el lote de alertas en una transacción.
	SaveAlerts(ctx context.Context, alerts []domain.Alert) error

	// Writable informa si el backend acepta escrituras. El monitor de riesgo
	// lo consulta antes de persistir alertas en vez de adivinar por el
	// mensaje de error.
	Writable() bool

	// Close cierra la conexión al storage limpiamente.
	Close() error
}
