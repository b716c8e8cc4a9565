package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"crewauction/internal/admin"
	"crewauction/pkg/platform/httputil"
	adminmw "crewauction/pkg/platform/middleware/admin"
	"crewauction/pkg/platform/middleware/request"
)

// AdminService issues and checks the auctioneer token.
type AdminService interface {
	Issue(code string) (string, error)
	Verify(token string) error
}

type AdminHandler struct {
	admin     AdminService
	logger    *slog.Logger
	authLimit func(http.Handler) http.Handler
}

func NewAdminHandler(svc AdminService, logger *slog.Logger, authLimit func(http.Handler) http.Handler) *AdminHandler {
	return &AdminHandler{admin: svc, logger: logger, authLimit: authLimit}
}

func (h *AdminHandler) Register(r chi.Router) {
	with(r, h.authLimit).Post("/api/admin/auth", h.HandleAuth)
	r.Get("/api/admin/verify", h.HandleVerify)
}

func (h *AdminHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[admin.AuthRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	token, err := h.admin.Issue(req.AccessCode)
	if err != nil {
		h.logger.InfoContext(ctx, "admin authentication failed", "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "admin authenticated", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusOK, admin.AuthResponse{Success: true, Token: token})
}

func (h *AdminHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Verify(adminmw.BearerToken(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin.VerifyResponse{Success: true})
}
