// Package gateway expone las cuatro operaciones del journal sobre HTTP.
// Los payloads replican las claves del protocolo original: errores
// estructurados con contexto, nunca un fallo sin formato.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alejandrodnm/journalbot/internal/domain"
	"github.com/alejandrodnm/journalbot/internal/insights"
	"github.com/alejandrodnm/journalbot/internal/metrics"
	"github.com/alejandrodnm/journalbot/internal/ports"
	"github.com/alejandrodnm/journalbot/internal/recorder"
	"github.com/alejandrodnm/journalbot/internal/risk"
)

// Service enruta las operaciones del journal hacia sus componentes.
type Service struct {
	recorder *recorder.Recorder
	engine   *insights.Engine
	monitor  *risk.Monitor
	limiter  *UserLimiter
}

// NewService crea el gateway. limiter puede ser nil para deshabilitar el
// rate limiting por usuario.
func NewService(rec *recorder.Recorder, eng *insights.Engine, mon *risk.Monitor, limiter *UserLimiter) *Service {
	return &Service{recorder: rec, engine: eng, monitor: mon, limiter: limiter}
}

// Routes arma el router completo del servicio.
func (s *Service) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"journalbot"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/tools", func(r chi.Router) {
		r.Post("/save_trade", s.handleSaveTrade)
		r.Post("/log_trade_result", s.handleLogResult)
		r.Post("/get_trade_insights", s.handleInsights)
		r.Post("/check_risk_alerts", s.handleRiskAlerts)
	})
	return r
}

// --- Request/Response types ---

type saveTradeRequest struct {
	UserID       string   `json:"user_id"`
	EntryPrice   float64  `json:"entry_price"`
	TakeProfit   *float64 `json:"take_profit"`
	StopLoss     *float64 `json:"stop_loss"`
	LotSize      float64  `json:"lot_size"`
	Balance      float64  `json:"balance"`
	TradeType    string   `json:"trade_type"`
	CurrencyPair string   `json:"currency_pair"`
	Timeframe    string   `json:"timeframe"`
	TradeStyle   string   `json:"trade_style"`
	Strategy     string   `json:"strategy"`
	Notes        string   `json:"notes"`
}

type saveTradeResponse struct {
	TradeID         int64    `json:"trade_id"`
	Message         string   `json:"message"`
	Status          string   `json:"status"`
	EntryPrice      float64  `json:"entry_price"`
	TakeProfit      *float64 `json:"take_profit"`
	StopLoss        *float64 `json:"stop_loss"`
	LotSize         float64  `json:"lot_size"`
	Balance         float64  `json:"balance"`
	TradeType       string   `json:"trade_type"`
	CurrencyPair    string   `json:"currency_pair"`
	Timeframe       string   `json:"timeframe"`
	TradeStyle      string   `json:"trade_style"`
	Strategy        string   `json:"strategy"`
	RiskRewardRatio *string  `json:"risk_reward_ratio"`
	PotentialProfit *float64 `json:"potential_profit"`
	PotentialLoss   *float64 `json:"potential_loss"`
	Notes           string   `json:"notes"`
}

type logResultRequest struct {
	UserID  string `json:"user_id"`
	TradeID int64  `json:"trade_id"`
	Result  string `json:"result"`
	Notes   string `json:"notes"`
}

type logResultResponse struct {
	ResultID        int64   `json:"result_id"`
	TradeID         int64   `json:"trade_id"`
	Message         string  `json:"message"`
	Result          string  `json:"result"`
	ProfitLoss      float64 `json:"profit_loss"`
	PreviousBalance float64 `json:"previous_balance"`
	NewBalance      float64 `json:"new_balance"`
	EntryPrice      float64 `json:"entry_price"`
	ExitPrice       float64 `json:"exit_price"`
	LotSize         float64 `json:"lot_size"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes"`
}

type insightsRequest struct {
	UserID       string `json:"user_id"`
	CurrencyPair string `json:"currency_pair"`
	Timeframe    string `json:"timeframe"`
	Strategy     string `json:"strategy"`
	// Reservado por compatibilidad; nunca se consulta.
	DateFilter string `json:"date_filter"`
}

type alertPayload struct {
	AlertType string         `json:"alert_type"`
	RiskLevel string         `json:"risk_level"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

type riskRequest struct {
	UserID                   string  `json:"user_id"`
	RecentTradesCount        int     `json:"recent_trades_count"`
	ConsecutiveLossThreshold int     `json:"consecutive_loss_threshold"`
	MaxTradesPerHour         int     `json:"max_trades_per_hour"`
	MaxRiskPerTradePercent   float64 `json:"max_risk_per_trade_percent"`
	DrawdownThresholdPercent float64 `json:"drawdown_threshold_percent"`
}

type riskResponse struct {
	Alerts         []alertPayload `json:"alerts"`
	TotalAlerts    int            `json:"total_alerts"`
	CriticalAlerts int            `json:"critical_alerts"`
	HighAlerts     int            `json:"high_alerts"`
	MediumAlerts   int            `json:"medium_alerts"`
	LowAlerts      int            `json:"low_alerts"`
	Message        string         `json:"message"`
}

// --- Handlers ---

func (s *Service) handleSaveTrade(w http.ResponseWriter, r *http.Request) {
	var req saveTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.allow(w, req.UserID) {
		return
	}

	receipt, err := s.recorder.Open(r.Context(), recorder.OpenParams{
		UserID:     req.UserID,
		EntryPrice: req.EntryPrice,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		LotSize:    req.LotSize,
		Balance:    req.Balance,
		Side:       domain.Side(req.TradeType),
		Pair:       req.CurrencyPair,
		Timeframe:  domain.Timeframe(req.Timeframe),
		Style:      domain.TradeStyle(req.TradeStyle),
		Strategy:   req.Strategy,
		Notes:      req.Notes,
	})
	if err != nil {
		s.writeDomainError(w, "save_trade", err)
		return
	}

	metrics.OperationsTotal.WithLabelValues("save_trade", "success").Inc()
	t := receipt.Trade
	writeJSON(w, http.StatusOK, saveTradeResponse{
		TradeID:         t.ID,
		Message:         receipt.Message,
		Status:          string(t.Status),
		EntryPrice:      t.EntryPrice,
		TakeProfit:      t.TakeProfit,
		StopLoss:        t.StopLoss,
		LotSize:         t.LotSize,
		Balance:         t.Balance,
		TradeType:       string(t.Side),
		CurrencyPair:    t.Pair,
		Timeframe:       string(t.Timeframe),
		TradeStyle:      string(t.Style),
		Strategy:        t.Strategy,
		RiskRewardRatio: strOrNil(t.RiskReward),
		PotentialProfit: receipt.PotentialProfit,
		PotentialLoss:   receipt.PotentialLoss,
		Notes:           t.Notes,
	})
}

func (s *Service) handleLogResult(w http.ResponseWriter, r *http.Request) {
	var req logResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.allow(w, req.UserID) {
		return
	}

	receipt, err := s.recorder.Close(r.Context(), req.UserID, req.TradeID, domain.Outcome(req.Result), req.Notes)
	if err != nil {
		s.writeDomainError(w, "log_trade_result", err)
		return
	}

	metrics.OperationsTotal.WithLabelValues("log_trade_result", "success").Inc()
	writeJSON(w, http.StatusOK, logResultResponse{
		ResultID:        receipt.Result.ID,
		TradeID:         receipt.Result.TradeID,
		Message:         receipt.Message,
		Result:          string(receipt.Result.Outcome),
		ProfitLoss:      receipt.Result.ProfitLoss,
		PreviousBalance: receipt.PreviousBalance,
		NewBalance:      receipt.NewBalance,
		EntryPrice:      receipt.EntryPrice,
		ExitPrice:       receipt.ExitPrice,
		LotSize:         receipt.LotSize,
		Status:          string(domain.StatusClosed),
		Notes:           receipt.Result.Notes,
	})
}

func (s *Service) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.allow(w, req.UserID) {
		return
	}
	if req.UserID == "" {
		s.writeDomainError(w, "get_trade_insights", &domain.ValidationError{Field: "user_id", Hint: "user_id is required"})
		return
	}

	summary, err := s.engine.Compute(r.Context(), ports.TradeFilter{
		UserID:    req.UserID,
		Pair:      req.CurrencyPair,
		Timeframe: req.Timeframe,
		Strategy:  req.Strategy,
	})
	if err != nil {
		s.writeDomainError(w, "get_trade_insights", err)
		return
	}

	metrics.OperationsTotal.WithLabelValues("get_trade_insights", "success").Inc()
	writeJSON(w, http.StatusOK, summaryPayload(summary))
}

func (s *Service) handleRiskAlerts(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.allow(w, req.UserID) {
		return
	}

	report, err := s.monitor.Scan(r.Context(), req.UserID, risk.Params{
		RecentTrades:             req.RecentTradesCount,
		ConsecutiveLossThreshold: req.ConsecutiveLossThreshold,
		MaxTradesPerHour:         req.MaxTradesPerHour,
		MaxRiskPerTradePercent:   req.MaxRiskPerTradePercent,
		DrawdownThresholdPercent: req.DrawdownThresholdPercent,
	})
	if err != nil {
		s.writeDomainError(w, "check_risk_alerts", err)
		return
	}

	alerts := make([]alertPayload, 0, len(report.Alerts))
	for _, a := range report.Alerts {
		alerts = append(alerts, alertPayload{
			AlertType: string(a.Kind),
			RiskLevel: string(a.Severity),
			Message:   a.Message,
			Details:   a.Details,
		})
	}

	metrics.OperationsTotal.WithLabelValues("check_risk_alerts", "success").Inc()
	writeJSON(w, http.StatusOK, riskResponse{
		Alerts:         alerts,
		TotalAlerts:    report.Total,
		CriticalAlerts: report.Critical,
		HighAlerts:     report.High,
		MediumAlerts:   report.Medium,
		LowAlerts:      report.Low,
		Message:        report.Message,
	})
}

// allow aplica el rate limit por usuario. Devuelve false si el request ya fue
// respondido con 429.
func (s *Service) allow(w http.ResponseWriter, userID string) bool {
	if s.limiter == nil || s.limiter.allow(userID) {
		return true
	}
	metrics.RateLimited.Inc()
	writeError(w, "rate limit exceeded, slow down", http.StatusTooManyRequests)
	return false
}

// writeDomainError traduce la taxonomía de errores del dominio a HTTP:
// validación 400, not found 404, conflicto 200 con warning (recuperable),
// cualquier otra cosa 500 sin filtrar detalles internos.
func (s *Service) writeDomainError(w http.ResponseWriter, op string, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		metrics.OperationsTotal.WithLabelValues(op, "validation_error").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      verr.Error(),
			"field":      verr.Field,
			"value":      verr.Value,
			"suggestion": verr.Hint,
		})
		return
	}
	var nfe *domain.NotFoundError
	if errors.As(err, &nfe) {
		metrics.OperationsTotal.WithLabelValues(op, "not_found").Inc()
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":    nfe.Error(),
			"trade_id": nfe.TradeID,
		})
		return
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		metrics.OperationsTotal.WithLabelValues(op, "conflict").Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"warning":  ce.Error(),
			"trade_id": ce.TradeID,
			"status":   string(domain.StatusClosed),
		})
		return
	}
	metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
	slog.Error("operation failed", "operation", op, "err", err)
	writeError(w, "internal error", http.StatusInternalServerError)
}

// --- Summary payload ---

// summaryPayload aplana el Summary del dominio al shape JSON del protocolo.
func summaryPayload(s domain.Summary) map[string]any {
	groups := func(all []domain.GroupStats, label string) []map[string]any {
		out := make([]map[string]any, 0, len(all))
		for _, g := range all {
			out = append(out, map[string]any{
				label:          g.Key,
				"total_trades": g.Total,
				"wins":         g.Wins,
				"win_rate":     g.WinRate,
				"total_pl":     g.TotalPL,
			})
		}
		return out
	}
	combos := make([]map[string]any, 0, len(s.Combos))
	for _, c := range s.Combos {
		combos = append(combos, map[string]any{
			"timeframe":    c.Timeframe,
			"strategy":     c.Strategy,
			"total_trades": c.Total,
			"wins":         c.Wins,
			"win_rate":     c.WinRate,
			"total_pl":     c.TotalPL,
		})
	}
	side := func(st domain.SideStats) map[string]any {
		return map[string]any{
			"total_trades": st.Total,
			"wins":         st.Wins,
			"win_rate":     st.WinRate,
			"total_pl":     st.TotalPL,
		}
	}

	return map[string]any{
		"summary": map[string]any{
			"total_trades":      s.Totals.Total,
			"open_trades":       s.Totals.Open,
			"closed_trades":     s.Totals.Closed,
			"total_profit_loss": s.Performance.TotalPL,
			"win_rate":          s.Performance.WinRate,
			"wins":              s.Performance.Wins,
			"losses":            s.Performance.Losses,
		},
		"performance_metrics": map[string]any{
			"average_profit_per_win": s.Performance.AvgWin,
			"average_loss_per_loss":  s.Performance.AvgLoss,
			"profit_factor":          s.Performance.ProfitFactor,
		},
		"best_performing_side": map[string]any{
			"side":       s.Sides.Best,
			"buy_stats":  side(s.Sides.Buy),
			"sell_stats": side(s.Sides.Sell),
		},
		"lot_size_impact": map[string]any{
			"average_lot_size_wins":   s.LotImpact.AvgWin,
			"average_lot_size_losses": s.LotImpact.AvgLoss,
			"difference":              s.LotImpact.Diff,
		},
		"timeframe_performance": map[string]any{
			"best_timeframe": strOrNil(s.Timeframes.Best),
			"all_timeframes": groups(s.Timeframes.All, "timeframe"),
		},
		"strategy_performance": map[string]any{
			"best_strategy":  strOrNil(s.Strategies.Best),
			"all_strategies": groups(s.Strategies.All, "strategy"),
		},
		"risk_reward_analysis": map[string]any{
			"average_rr_winning_trades": s.RiskReward.AvgWin,
			"average_rr_losing_trades":  s.RiskReward.AvgLoss,
		},
		"best_combinations": map[string]any{
			"top_5_timeframe_strategy_combos": combos,
		},
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
