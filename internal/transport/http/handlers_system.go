package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"crewauction/pkg/platform/httputil"
	"crewauction/pkg/requestcontext"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type SystemHandler struct {
	ledger HealthChecker
}

func NewSystemHandler(ledger HealthChecker) *SystemHandler {
	return &SystemHandler{ledger: ledger}
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Time    string `json:"time"`
}

func (h *SystemHandler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/test", h.HandleTest)
}

// HandleHealth reports 503 when the ledger cannot be reached.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	now := requestcontext.Now(r.Context()).UTC().Format(time.RFC3339Nano)
	if err := h.ledger.Health(ctx); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "degraded", Message: "ledger unreachable", Time: now})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok", Time: now})
}

func (h *SystemHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Message: "Server is running",
		Time:    requestcontext.Now(r.Context()).UTC().Format(time.RFC3339Nano),
	})
}
