// Package httptransport is the thin HTTP layer over the settlement engine,
// the ledger read queries and the live connection endpoint. Handlers decode,
// delegate and encode; they hold no auction logic.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crewauction/internal/platform/metrics"
	adminmw "crewauction/pkg/platform/middleware/admin"
	"crewauction/pkg/platform/middleware/cors"
	"crewauction/pkg/platform/middleware/metadata"
	"crewauction/pkg/platform/middleware/request"
	"crewauction/pkg/platform/middleware/requesttime"
)

// Deps are the collaborators the router mounts.
type Deps struct {
	Settler   Settler
	Catalogue Catalogue
	Ledger    HealthChecker
	Admin     AdminService
	Live      http.Handler

	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	// ProtectSales requires an admin bearer token on sell and bid routes.
	ProtectSales bool
	// AuthLimiter, when set, wraps the access-code exchanges.
	AuthLimiter func(http.Handler) http.Handler
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Latency(d.Metrics))
	r.Use(cors.Middleware(d.AllowedOrigins))

	var guard func(http.Handler) http.Handler
	if d.ProtectSales {
		guard = adminmw.RequireAdminToken(d.Admin, d.Logger)
	}

	NewSystemHandler(d.Ledger).Register(r)
	NewAuctionHandler(d.Settler, d.Catalogue, d.Logger, guard, d.AuthLimiter).Register(r)
	NewAdminHandler(d.Admin, d.Logger, d.AuthLimiter).Register(r)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if d.Live != nil {
		r.Handle("/ws", d.Live)
	}
	return r
}
