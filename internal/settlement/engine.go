// Package settlement is the only path that mutates auction state. Every sale
// and bid is committed against the ledger first and broadcast to live
// sessions only afterwards.
package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"crewauction/internal/ledger/models"
	"crewauction/internal/live/events"
	"crewauction/internal/platform/logger"
	"crewauction/internal/platform/metrics"
	dErrors "crewauction/pkg/domain-errors"
	"crewauction/pkg/requestcontext"
	"crewauction/pkg/platform/sentinel"
)

// Ledger is the storage boundary the engine needs. Calls made with the
// context handed to fn join the transaction RunInTx opened.
type Ledger interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindHouse(ctx context.Context, id models.HouseID) (*models.House, error)
	FindLot(ctx context.Context, id models.LotID) (*models.Lot, error)
	MarkLotSold(ctx context.Context, id models.LotID) (bool, error)
	DebitHouse(ctx context.Context, id models.HouseID, amount int64) (int64, bool, error)
	InsertPurchase(ctx context.Context, houseID models.HouseID, lotID models.LotID, price int64) (*models.Purchase, error)
	SetCurrentBid(ctx context.Context, id models.LotID, bid int64) (bool, error)
}

// Broadcaster fans an event out to every live session. It must not block on
// slow receivers and never reports delivery failures.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, payload any)
}

type Engine struct {
	ledger      Ledger
	broadcaster Broadcaster
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) {
		e.broadcaster = b
	}
}

func New(ledger Ledger, opts ...Option) (*Engine, error) {
	if ledger == nil {
		return nil, errors.New("settlement ledger is required")
	}
	e := &Engine{
		ledger: ledger,
		tracer: otel.Tracer("crewauction/settlement"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Discard()
	}
	return e, nil
}

// SettleSale sells a lot to a house at price. In one transaction it checks the
// house exists, flips the lot from available to sold, debits the budget only
// if it covers the price, and records the purchase. Any failed step rolls all
// of them back. A lot that is already sold wins over a short budget, so every
// loser of a race for the same lot sees lot_unavailable.
func (e *Engine) SettleSale(ctx context.Context, lotID models.LotID, houseID models.HouseID, price int64) (*models.Sale, error) {
	ctx, span := e.tracer.Start(ctx, "settlement.SettleSale", trace.WithAttributes(
		attribute.Int64("lot_id", int64(lotID)),
		attribute.Int64("house_id", int64(houseID)),
		attribute.Int64("price", price),
	))
	defer span.End()

	start := time.Now()
	sale, err := e.settle(ctx, lotID, houseID, price)
	outcome := outcomeOf(err)
	e.metrics.ObserveSettlement(outcome, time.Since(start))
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.SetStatus(codes.Error, outcome)
		e.logRejection(ctx, "sale rejected", err, "lot_id", lotID, "house_id", houseID, "price", price)
		return nil, err
	}

	e.logger.InfoContext(ctx, "sale completed",
		"lot_id", lotID, "house_id", houseID, "price", price, "budget", sale.NewBudget)
	e.broadcast(ctx, events.SaleCompleted, events.SaleCompletedPayload{
		LotID: lotID, HouseID: houseID, Price: price,
	})
	e.broadcast(ctx, events.HouseBudgetUpdated, events.BudgetPayload{
		HouseID: houseID, Budget: sale.NewBudget,
	})
	return sale, nil
}

func (e *Engine) settle(ctx context.Context, lotID models.LotID, houseID models.HouseID, price int64) (*models.Sale, error) {
	if price < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "price must not be negative")
	}

	var sale *models.Sale
	err := e.ledger.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := e.ledger.FindHouse(ctx, houseID); err != nil {
			return translate(err, "production house not found")
		}

		sold, err := e.ledger.MarkLotSold(ctx, lotID)
		if err != nil {
			return translate(err, "failed to mark lot sold")
		}
		if !sold {
			return e.lotRejection(ctx, lotID)
		}

		budget, ok, err := e.ledger.DebitHouse(ctx, houseID, price)
		if err != nil {
			return translate(err, "failed to debit budget")
		}
		if !ok {
			return dErrors.New(dErrors.CodeInsufficientFunds, "insufficient budget")
		}

		if _, err := e.ledger.InsertPurchase(ctx, houseID, lotID, price); err != nil {
			return translate(err, "failed to record purchase")
		}

		sale = &models.Sale{LotID: lotID, HouseID: houseID, Price: price, NewBudget: budget}
		return nil
	})
	if err != nil {
		return nil, translate(err, "settlement transaction failed")
	}
	return sale, nil
}

// UpdateBid records newBid as the lot's current bid. Any value is accepted;
// only sold or missing lots are refused, and a refused bid is not broadcast.
func (e *Engine) UpdateBid(ctx context.Context, lotID models.LotID, newBid int64) error {
	ctx, span := e.tracer.Start(ctx, "settlement.UpdateBid", trace.WithAttributes(
		attribute.Int64("lot_id", int64(lotID)),
		attribute.Int64("new_bid", newBid),
	))
	defer span.End()

	err := e.updateBid(ctx, lotID, newBid)
	outcome := outcomeOf(err)
	e.metrics.IncrementBidUpdates(outcome)
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.SetStatus(codes.Error, outcome)
		e.logRejection(ctx, "bid rejected", err, "lot_id", lotID, "new_bid", newBid)
		return err
	}

	e.broadcast(ctx, events.BidUpdated, events.BidPayload{LotID: lotID, NewBid: newBid})
	return nil
}

func (e *Engine) updateBid(ctx context.Context, lotID models.LotID, newBid int64) error {
	ok, err := e.ledger.SetCurrentBid(ctx, lotID, newBid)
	if err != nil {
		return translate(err, "failed to update bid")
	}
	if !ok {
		return e.lotRejection(ctx, lotID)
	}
	return nil
}

// RefreshBudget broadcasts a house's current budget to every session.
func (e *Engine) RefreshBudget(ctx context.Context, houseID models.HouseID) (int64, error) {
	house, err := e.ledger.FindHouse(ctx, houseID)
	if err != nil {
		return 0, translate(err, "production house not found")
	}
	e.broadcast(ctx, events.HouseBudgetUpdated, events.BudgetPayload{
		HouseID: house.ID, Budget: house.Budget,
	})
	return house.Budget, nil
}

// lotRejection explains why a conditional lot write matched no row.
func (e *Engine) lotRejection(ctx context.Context, lotID models.LotID) error {
	if _, err := e.ledger.FindLot(ctx, lotID); err != nil {
		return translate(err, "crew member not found")
	}
	return dErrors.New(dErrors.CodeLotUnavailable, "crew member already sold")
}

func (e *Engine) broadcast(ctx context.Context, event string, payload any) {
	if e.broadcaster == nil {
		return
	}
	e.broadcaster.Broadcast(ctx, event, payload)
}

func (e *Engine) logRejection(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "code", string(dErrors.CodeOf(err)), "error", err)
	if conn := requestcontext.ConnectionID(ctx); conn != "" {
		args = append(args, "connection_id", conn)
	}
	if dErrors.HasCode(err, dErrors.CodeTransactionFailure) || dErrors.HasCode(err, dErrors.CodeInternal) {
		e.logger.ErrorContext(ctx, msg, args...)
		return
	}
	e.logger.InfoContext(ctx, msg, args...)
}

// translate maps ledger sentinels onto domain codes. Domain errors pass
// through; anything else from storage means the transaction did not apply.
func translate(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeLotUnavailable, "crew member already sold")
	default:
		return dErrors.Wrap(err, dErrors.CodeTransactionFailure, msg)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}
