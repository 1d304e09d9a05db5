package gateway

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// requestLogger etiqueta cada request con un id y loguea método, ruta,
// status y duración al terminar.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// UserLimiter mantiene un token bucket por usuario. Los buckets se crean
// bajo demanda y nunca se expulsan; el universo de usuarios del journal es
// pequeño.
type UserLimiter struct {
	mu    sync.Mutex
	users map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

// NewUserLimiter crea un limiter de perSec requests por segundo con el burst
// dado, por usuario.
func NewUserLimiter(perSec float64, burst int) *UserLimiter {
	return &UserLimiter{
		users: make(map[string]*rate.Limiter),
		rate:  rate.Limit(perSec),
		burst: burst,
	}
}

func (l *UserLimiter) allow(userID string) bool {
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
