package router

import (
	"context"
	"net/http"
	"time"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Availability interface {
	Configured() bool
}

type Health struct {
	Status    string    `json:"status"`
	Database  bool      `json:"database"`
	AIService bool      `json:"ai_service"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler reports unhealthy (503) when the database is unreachable
// and degraded when lesson generation is not configured.
func HealthHandler(db Pinger, ai Availability, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		h := Health{
			Database:  db.PingContext(ctx) == nil,
			AIService: ai.Configured(),
			Timestamp: time.Now().UTC(),
		}
		status := http.StatusOK
		switch {
		case !h.Database:
			h.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		case !h.AIService:
			h.Status = "degraded"
		default:
			h.Status = "healthy"
		}
		response.WriteJSON(w, status, h)
	}
}
