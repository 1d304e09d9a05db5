package storage

// sqlite.go — el Ledger del journal sobre SQLite.
//
// Decisiones:
//   - Una conexión única (SQLite es single-writer) y transacción explícita
//     para toda escritura multi-fila.
//   - CloseTrade aplica insert del result + transición OPEN→CLOSED en UNA
//     transacción: jamás puede quedar un result sin trade cerrado ni al revés.
//   - La capacidad de escritura se sondea UNA vez al abrir (BEGIN IMMEDIATE
//     de prueba), no adivinando por el texto del error en cada write.
//   - El DSN llega por el constructor; nada de rutas globales resueltas
//     por variables de entorno dentro del adapter.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id    TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     TEXT NOT NULL,
    entry_price REAL NOT NULL,
    take_profit REAL,
    stop_loss   REAL,
    lot_size    REAL NOT NULL,
    balance     REAL NOT NULL,
    side        TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
    pair        TEXT NOT NULL,
    timeframe   TEXT,
    style       TEXT,
    strategy    TEXT,
    risk_reward TEXT,
    notes       TEXT,
    status      TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
    opened_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id     TEXT NOT NULL,
    trade_id    INTEGER NOT NULL REFERENCES trades(id),
    outcome     TEXT NOT NULL CHECK (outcome IN ('WIN', 'LOSS')),
    profit_loss REAL NOT NULL,
    notes       TEXT,
    logged_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      TEXT NOT NULL,
    kind         TEXT NOT NULL,
    severity     TEXT NOT NULL,
    message      TEXT NOT NULL,
    acknowledged INTEGER NOT NULL DEFAULT 0,
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_user_status ON trades(user_id, status);
CREATE INDEX IF NOT EXISTS idx_trades_opened      ON trades(opened_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_trade      ON results(trade_id);
CREATE INDEX IF NOT EXISTS idx_alerts_user        ON alerts(user_id, created_at DESC);
`

const tradeColumns = `t.id, t.user_id, t.entry_price, t.take_profit, t.stop_loss,
	t.lot_size, t.balance, t.side, t.pair, t.timeframe, t.style, t.strategy,
	t.risk_reward, t.notes, t.status, t.opened_at`

// SQLiteLedger implementa ports.Ledger usando SQLite (pure Go, sin CGo).
type SQLiteLedger struct {
	db       *sql.DB
	writable bool
}

// NewSQLiteLedger abre (o crea) la base de datos en el DSN dado, aplica el
// schema y sondea la capacidad de escritura.
func NewSQLiteLedger(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}

	return &SQLiteLedger{
		db:       db,
		writable: probeWritable(context.Background(), db),
	}, nil
}

// probeWritable intenta tomar un lock de escritura y lo suelta. Si el backend
// es de solo lectura (deploy en filesystem inmutable), el BEGIN IMMEDIATE falla.
func probeWritable(ctx context.Context, db *sql.DB) bool {
	conn, err := db.Conn(ctx)
	if err != nil {
		return false
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return false
	}
	_, err = conn.ExecContext(ctx, "ROLLBACK")
	return err == nil
}

// Writable informa si el backend acepta escrituras.
func (s *SQLiteLedger) Writable() bool {
	return s.writable
}

// EnsureUser crea el usuario si no existe. Idempotente.
func (s *SQLiteLedger) EnsureUser(ctx context.Context, userID, username string) error {
	if username == "" {
		username = userID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, username, created_at) VALUES (?, ?, ?)`,
		userID, username, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("storage.EnsureUser: %w", err)
	}
	return nil
}

// SaveTrade persiste un trade nuevo con estado OPEN y asigna su ID.
func (s *SQLiteLedger) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t.Pair == "" {
		t.Pair = domain.DefaultPair
	}
	if t.Status == "" {
		t.Status = domain.StatusOpen
	}
	if t.OpenedAt.IsZero() {
		t.OpenedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(user_id, entry_price, take_profit, stop_loss, lot_size, balance,
			 side, pair, timeframe, style, strategy, risk_reward, notes, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.EntryPrice, t.TakeProfit, t.StopLoss, t.LotSize, t.Balance,
		string(t.Side), t.Pair, nullString(string(t.Timeframe)), nullString(string(t.Style)),
		nullString(t.Strategy), nullString(t.RiskReward), nullString(t.Notes),
		string(t.Status), formatTime(t.OpenedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// TradeByID devuelve el trade del usuario, o NotFoundError si no existe o
// pertenece a otro usuario.
func (s *SQLiteLedger) TradeByID(ctx context.Context, userID string, tradeID int64) (domain.Trade, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades t WHERE t.id = ? AND t.user_id = ?`,
		tradeID, userID,
	)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return domain.Trade{}, &domain.NotFoundError{TradeID: tradeID, UserID: userID}
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("storage.TradeByID: %w", err)
	}
	return t, nil
}

// CloseTrade inserta el Result y marca el trade CLOSED en una única
// transacción. El UPDATE está condicionado a status='OPEN' para que dos
// cierres concurrentes no produzcan jamás dos results.
func (s *SQLiteLedger) CloseTrade(ctx context.Context, r *domain.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.CloseTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE trades SET status = 'CLOSED' WHERE id = ? AND user_id = ? AND status = 'OPEN'`,
		r.TradeID, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("storage.CloseTrade: update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.CloseTrade: rows affected: %w", err)
	}
	if affected == 0 {
		// O no existe, o ya estaba cerrado. Distinguir sin salir de la tx.
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM trades WHERE id = ? AND user_id = ?`,
			r.TradeID, r.UserID,
		).Scan(&status)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{TradeID: r.TradeID, UserID: r.UserID}
		}
		if err != nil {
			return fmt.Errorf("storage.CloseTrade: check status: %w", err)
		}
		return &domain.ConflictError{TradeID: r.TradeID}
	}

	if r.LoggedAt.IsZero() {
		r.LoggedAt = time.Now().UTC()
	}
	ins, err := tx.ExecContext(ctx, `
		INSERT INTO results (user_id, trade_id, outcome, profit_loss, notes, logged_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.UserID, r.TradeID, string(r.Outcome), r.ProfitLoss, nullString(r.Notes), formatTime(r.LoggedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.CloseTrade: insert result: %w", err)
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return fmt.Errorf("storage.CloseTrade: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.CloseTrade: commit: %w", err)
	}
	r.ID = id
	return nil
}

// ListTrades devuelve los trades que pasan el filtro.
func (s *SQLiteLedger) ListTrades(ctx context.Context, f ports.TradeFilter) ([]domain.Trade, error) {
	where, args := buildWhere(f, nil)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades t`+where, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.ListTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListTrades: scan: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ClosedWithResults devuelve trades CLOSED con su result, más recientes
// primero por fecha de apertura.
func (s *SQLiteLedger) ClosedWithResults(ctx context.Context, f ports.TradeFilter, limit int) ([]ports.ClosedTrade, error) {
	where, args := buildWhere(f, []string{"t.status = 'CLOSED'"})
	query := `
		SELECT ` + tradeColumns + `,
		       r.id, r.user_id, r.trade_id, r.outcome, r.profit_loss, r.notes, r.logged_at
		FROM trades t
		INNER JOIN results r ON r.trade_id = t.id` + where + `
		ORDER BY t.opened_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.ClosedWithResults: query: %w", err)
	}
	defer rows.Close()

	var closed []ports.ClosedTrade
	for rows.Next() {
		ct, err := scanClosedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ClosedWithResults: scan: %w", err)
		}
		closed = append(closed, ct)
	}
	return closed, rows.Err()
}

// OpenTrades devuelve los trades OPEN del usuario, más recientes primero.
func (s *SQLiteLedger) OpenTrades(ctx context.Context, userID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades t
		 WHERE t.user_id = ? AND t.status = 'OPEN'
		 ORDER BY t.opened_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.OpenTrades: scan: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveAlerts persiste el lote de alertas en una transacción.
func (s *SQLiteLedger) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveAlerts: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO alerts (user_id, kind, severity, message, acknowledged, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveAlerts: prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		created := a.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			a.UserID, string(a.Kind), string(a.Severity), a.Message, formatTime(created),
		); err != nil {
			return fmt.Errorf("storage.SaveAlerts: insert %s: %w", a.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveAlerts: commit: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// buildWhere arma la cláusula WHERE a partir del filtro tipado. Los slots
// son fijos: no hay concatenación condicional dispersa por los componentes.
func buildWhere(f ports.TradeFilter, extra []string) (string, []any) {
	conds := append([]string{}, extra...)
	var args []any

	if f.UserID != "" {
		conds = append(conds, "t.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Pair != "" {
		conds = append(conds, "t.pair = ?")
		args = append(args, f.Pair)
	}
	if f.Timeframe != "" {
		conds = append(conds, "t.timeframe = ?")
		args = append(args, f.Timeframe)
	}
	if f.Strategy != "" {
		conds = append(conds, "t.strategy = ?")
		args = append(args, f.Strategy)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (domain.Trade, error) {
	var (
		t          domain.Trade
		tp, sl     sql.NullFloat64
		tf, style  sql.NullString
		strat      sql.NullString
		rr, notes  sql.NullString
		side, stat string
		openedAt   string
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.EntryPrice, &tp, &sl,
		&t.LotSize, &t.Balance, &side, &t.Pair, &tf, &style, &strat,
		&rr, &notes, &stat, &openedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}

	if tp.Valid {
		v := tp.Float64
		t.TakeProfit = &v
	}
	if sl.Valid {
		v := sl.Float64
		t.StopLoss = &v
	}
	t.Side = domain.Side(side)
	t.Timeframe = domain.Timeframe(tf.String)
	t.Style = domain.TradeStyle(style.String)
	t.Strategy = strat.String
	t.RiskReward = rr.String
	t.Notes = notes.String
	t.Status = domain.Status(stat)
	t.OpenedAt = parseTime(openedAt)
	return t, nil
}

func scanClosedTrade(rows *sql.Rows) (ports.ClosedTrade, error) {
	var (
		t          domain.Trade
		tp, sl     sql.NullFloat64
		tf, style  sql.NullString
		strat      sql.NullString
		rr, notes  sql.NullString
		side, stat string
		openedAt   string

		r        domain.Result
		outcome  string
		rNotes   sql.NullString
		loggedAt string
	)
	err := rows.Scan(
		&t.ID, &t.UserID, &t.EntryPrice, &tp, &sl,
		&t.LotSize, &t.Balance, &side, &t.Pair, &tf, &style, &strat,
		&rr, &notes, &stat, &openedAt,
		&r.ID, &r.UserID, &r.TradeID, &outcome, &r.ProfitLoss, &rNotes, &loggedAt,
	)
	if err != nil {
		return ports.ClosedTrade{}, err
	}

	if tp.Valid {
		v := tp.Float64
		t.TakeProfit = &v
	}
	if sl.Valid {
		v := sl.Float64
		t.StopLoss = &v
	}
	t.Side = domain.Side(side)
	t.Timeframe = domain.Timeframe(tf.String)
	t.Style = domain.TradeStyle(style.String)
	t.Strategy = strat.String
	t.RiskReward = rr.String
	t.Notes = notes.String
	t.Status = domain.Status(stat)
	t.OpenedAt = parseTime(openedAt)

	r.Outcome = domain.Outcome(outcome)
	r.Notes = rNotes.String
	r.LoggedAt = parseTime(loggedAt)
	return ports.ClosedTrade{Trade: t, Result: r}, nil
}

// timeLayout es RFC3339 en UTC con nanosegundos de ancho fijo: el orden
// lexicográfico de la columna coincide con el cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// formatTime normaliza los timestamps a un único formato de entrada y salida,
// sin ambigüedades del driver.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
