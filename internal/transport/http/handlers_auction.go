package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"crewauction/internal/ledger/models"
	dErrors "crewauction/pkg/domain-errors"
	"crewauction/pkg/platform/httputil"
	"crewauction/pkg/platform/middleware/request"
	"crewauction/pkg/platform/sentinel"
)

// Settler is the mutating side of the auction. Both the HTTP and the live
// transports go through it.
type Settler interface {
	SettleSale(ctx context.Context, lotID models.LotID, houseID models.HouseID, price int64) (*models.Sale, error)
	UpdateBid(ctx context.Context, lotID models.LotID, newBid int64) error
}

// Catalogue answers read-only queries straight from the ledger.
type Catalogue interface {
	ListCatalogue(ctx context.Context) ([]models.CatalogueEntry, error)
	FindLot(ctx context.Context, id models.LotID) (*models.Lot, error)
	FindHouseBySecret(ctx context.Context, secret string) (*models.House, error)
	HouseDetail(ctx context.Context, id models.HouseID) (*models.HouseDetail, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error)
}

type AuctionHandler struct {
	settler   Settler
	catalogue Catalogue
	logger    *slog.Logger
	guard     func(http.Handler) http.Handler
	authLimit func(http.Handler) http.Handler
}

// NewAuctionHandler builds the auction routes. guard, when non-nil, wraps
// the mutating routes; authLimit wraps the access-code exchange.
func NewAuctionHandler(settler Settler, catalogue Catalogue, logger *slog.Logger, guard, authLimit func(http.Handler) http.Handler) *AuctionHandler {
	return &AuctionHandler{settler: settler, catalogue: catalogue, logger: logger, guard: guard, authLimit: authLimit}
}

func (h *AuctionHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.guard != nil {
			r.Use(h.guard)
		}
		r.Post("/api/sell", h.HandleSell)
		r.Post("/api/crew/{id}/bid", h.HandleBid)
	})
	r.Get("/api/crew", h.HandleListCrew)
	r.Get("/api/crew/{id}", h.HandleGetCrew)
	r.Get("/api/production-house/{id}", h.HandleGetHouse)
	r.Get("/api/leaderboard", h.HandleLeaderboard)
	with(r, h.authLimit).Post("/api/auth", h.HandleHouseAuth)
}

func (h *AuctionHandler) HandleSell(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SellRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	sale, err := h.settler.SettleSale(ctx, req.CrewMemberID, req.ProductionHouseID, *req.PurchasePrice)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SaleResponse{
		Success: true,
		Data: SaleData{
			CrewMemberID:      sale.LotID,
			ProductionHouseID: sale.HouseID,
			PurchasePrice:     sale.Price,
			RemainingBudget:   sale.NewBudget,
		},
	})
}

func (h *AuctionHandler) HandleBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[BidRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.settler.UpdateBid(ctx, models.LotID(id), *req.NewBid); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BidResponse{Success: true, LotID: models.LotID(id), NewBid: *req.NewBid})
}

func (h *AuctionHandler) HandleListCrew(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalogue.ListCatalogue(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *AuctionHandler) HandleGetCrew(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lot, err := h.catalogue.FindLot(r.Context(), models.LotID(id))
	if err != nil {
		h.readFailed(w, r, err, "Crew member not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lot)
}

func (h *AuctionHandler) HandleGetHouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	detail, err := h.catalogue.HouseDetail(r.Context(), models.HouseID(id))
	if err != nil {
		h.readFailed(w, r, err, "Production house not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *AuctionHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.catalogue.Leaderboard(r.Context())
	if err != nil {
		h.readFailed(w, r, err, "")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rows)
}

// HandleHouseAuth exchanges a house access code for the house record.
func (h *AuctionHandler) HandleHouseAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AccessCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	house, err := h.catalogue.FindHouseBySecret(ctx, req.AccessCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.logger.InfoContext(ctx, "house authentication failed", "request_id", requestID)
			httputil.WriteError(w, dErrors.New(dErrors.CodeAuthFailure, "Invalid access code"))
			return
		}
		h.readFailed(w, r, err, "")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, house)
}

// readFailed maps a ledger read error to a response. notFound is the message
// used for a missing row.
func (h *AuctionHandler) readFailed(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if notFound != "" && errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, notFound))
		return
	}
	ctx := r.Context()
	h.logger.ErrorContext(ctx, "ledger read failed",
		"request_id", request.GetRequestID(ctx),
		"path", r.URL.Path,
		"error", err,
	)
	code := dErrors.CodeInternal
	if errors.Is(err, sentinel.ErrUnavailable) {
		code = dErrors.CodeTransactionFailure
	}
	httputil.WriteError(w, dErrors.Wrap(err, code, "Something went wrong!"))
}

// with applies mw to a single route when it is set.
func with(r chi.Router, mw func(http.Handler) http.Handler) chi.Router {
	if mw == nil {
		return r
	}
	return r.With(mw)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}
