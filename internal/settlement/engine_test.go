package settlement

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks Ledger,Broadcaster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"crewauction/internal/ledger/models"
	"crewauction/internal/live/events"
	"crewauction/internal/platform/metrics"
	"crewauction/internal/settlement/mocks"
	dErrors "crewauction/pkg/domain-errors"
	"crewauction/pkg/platform/sentinel"
)

// =============================================================================
// Settlement Engine Test Suite
// =============================================================================
// Justification for unit tests: the engine decides which rejection a caller
// sees from the outcome of each conditional write, and must never broadcast
// a mutation that did not commit. Mocks let each ledger answer be forced.

type EngineSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	ledger      *mocks.MockLedger
	broadcaster *mocks.MockBroadcaster
	metrics     *metrics.Metrics
	engine      *Engine
	ctx         context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.broadcaster = mocks.NewMockBroadcaster(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()

	var err error
	s.engine, err = New(s.ledger,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithBroadcaster(s.broadcaster),
	)
	s.Require().NoError(err)
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

// expectTx runs the transaction body inline and returns commitErr afterwards,
// standing in for a failed commit when set.
func (s *EngineSuite) expectTx(commitErr error) {
	s.ledger.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			if err := fn(ctx); err != nil {
				return err
			}
			return commitErr
		})
}

const (
	lotID   = models.LotID(7)
	houseID = models.HouseID(3)
)

var house = &models.House{ID: houseID, Name: "Red Chillies", Budget: 100}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *EngineSuite) TestNew() {
	s.Run("nil ledger returns error", func() {
		_, err := New(nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "ledger is required")
	})

	s.Run("defaults to a discard logger", func() {
		e, err := New(s.ledger)
		s.Require().NoError(err)
		s.NotNil(e.logger)
		s.Nil(e.broadcaster)
	})
}

// =============================================================================
// SettleSale
// =============================================================================

func (s *EngineSuite) TestSettleSaleSuccessBroadcastsAfterCommit() {
	s.expectTx(nil)
	gomock.InOrder(
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil),
		s.ledger.EXPECT().MarkLotSold(gomock.Any(), lotID).Return(true, nil),
		s.ledger.EXPECT().DebitHouse(gomock.Any(), houseID, int64(80)).Return(int64(20), true, nil),
		s.ledger.EXPECT().InsertPurchase(gomock.Any(), houseID, lotID, int64(80)).
			Return(&models.Purchase{ID: 1, HouseID: houseID, LotID: lotID, Price: 80}, nil),
		s.broadcaster.EXPECT().Broadcast(gomock.Any(), events.SaleCompleted,
			events.SaleCompletedPayload{LotID: lotID, HouseID: houseID, Price: 80}),
		s.broadcaster.EXPECT().Broadcast(gomock.Any(), events.HouseBudgetUpdated,
			events.BudgetPayload{HouseID: houseID, Budget: 20}),
	)

	sale, err := s.engine.SettleSale(s.ctx, lotID, houseID, 80)
	s.Require().NoError(err)
	s.Equal(&models.Sale{LotID: lotID, HouseID: houseID, Price: 80, NewBudget: 20}, sale)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Settlements.WithLabelValues("ok")))
}

func (s *EngineSuite) TestSettleSaleRejections() {
	s.Run("missing house stops before touching the lot", func() {
		s.expectTx(nil)
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).
			Return(nil, fmt.Errorf("house 3: %w", sentinel.ErrNotFound))

		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, 80)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("sold lot is unavailable", func() {
		s.expectTx(nil)
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil)
		s.ledger.EXPECT().MarkLotSold(gomock.Any(), lotID).Return(false, nil)
		s.ledger.EXPECT().FindLot(gomock.Any(), lotID).
			Return(&models.Lot{ID: lotID, Status: models.LotStatusSold}, nil)

		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, 80)
		s.True(dErrors.HasCode(err, dErrors.CodeLotUnavailable))
	})

	s.Run("missing lot is not found", func() {
		s.expectTx(nil)
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil)
		s.ledger.EXPECT().MarkLotSold(gomock.Any(), lotID).Return(false, nil)
		s.ledger.EXPECT().FindLot(gomock.Any(), lotID).
			Return(nil, fmt.Errorf("lot 7: %w", sentinel.ErrNotFound))

		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, 80)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("short budget is insufficient funds", func() {
		s.expectTx(nil)
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil)
		s.ledger.EXPECT().MarkLotSold(gomock.Any(), lotID).Return(true, nil)
		s.ledger.EXPECT().DebitHouse(gomock.Any(), houseID, int64(500)).Return(int64(0), false, nil)

		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, 500)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	s.Run("duplicate purchase is unavailable", func() {
		s.expectTx(nil)
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil)
		s.ledger.EXPECT().MarkLotSold(gomock.Any(), lotID).Return(true, nil)
		s.ledger.EXPECT().DebitHouse(gomock.Any(), houseID, int64(80)).Return(int64(20), true, nil)
		s.ledger.EXPECT().InsertPurchase(gomock.Any(), houseID, lotID, int64(80)).
			Return(nil, fmt.Errorf("insert purchase: %w", sentinel.ErrConflict))

		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, 80)
		s.True(dErrors.HasCode(err, dErrors.CodeLotUnavailable))
	})

	s.Run("failed commit is a transaction failure and is not broadcast", func() {
		s.expectTx(fmt.Errorf("commit ledger tx: %w", sentinel.ErrUnavailable))
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil)
		s.ledger.EXPECT().MarkLotSold(gomock.Any(), lotID).Return(true, nil)
		s.ledger.EXPECT().DebitHouse(gomock.Any(), houseID, int64(80)).Return(int64(20), true, nil)
		s.ledger.EXPECT().InsertPurchase(gomock.Any(), houseID, lotID, int64(80)).
			Return(&models.Purchase{ID: 1}, nil)

		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, 80)
		s.True(dErrors.HasCode(err, dErrors.CodeTransactionFailure))
	})

	s.Run("negative price never reaches the ledger", func() {
		_, err := s.engine.SettleSale(s.ctx, lotID, houseID, -1)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Equal(2.0, testutil.ToFloat64(s.metrics.Settlements.WithLabelValues("lot_unavailable")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Settlements.WithLabelValues("insufficient_funds")))
}

// =============================================================================
// UpdateBid
// =============================================================================

func (s *EngineSuite) TestUpdateBid() {
	s.Run("open lot records and broadcasts the bid", func() {
		s.ledger.EXPECT().SetCurrentBid(gomock.Any(), lotID, int64(999)).Return(true, nil)
		s.broadcaster.EXPECT().Broadcast(gomock.Any(), events.BidUpdated,
			events.BidPayload{LotID: lotID, NewBid: 999})

		s.NoError(s.engine.UpdateBid(s.ctx, lotID, 999))
	})

	s.Run("lower bids are accepted", func() {
		s.ledger.EXPECT().SetCurrentBid(gomock.Any(), lotID, int64(1)).Return(true, nil)
		s.broadcaster.EXPECT().Broadcast(gomock.Any(), events.BidUpdated, gomock.Any())

		s.NoError(s.engine.UpdateBid(s.ctx, lotID, 1))
	})

	s.Run("sold lot is rejected without broadcast", func() {
		s.ledger.EXPECT().SetCurrentBid(gomock.Any(), lotID, int64(999)).Return(false, nil)
		s.ledger.EXPECT().FindLot(gomock.Any(), lotID).
			Return(&models.Lot{ID: lotID, Status: models.LotStatusSold}, nil)

		err := s.engine.UpdateBid(s.ctx, lotID, 999)
		s.True(dErrors.HasCode(err, dErrors.CodeLotUnavailable))
	})

	s.Run("missing lot is not found", func() {
		s.ledger.EXPECT().SetCurrentBid(gomock.Any(), lotID, int64(5)).Return(false, nil)
		s.ledger.EXPECT().FindLot(gomock.Any(), lotID).Return(nil, sentinel.ErrNotFound)

		err := s.engine.UpdateBid(s.ctx, lotID, 5)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("storage failure is a transaction failure", func() {
		s.ledger.EXPECT().SetCurrentBid(gomock.Any(), lotID, int64(5)).
			Return(false, fmt.Errorf("set current bid: %w", sentinel.ErrUnavailable))

		err := s.engine.UpdateBid(s.ctx, lotID, 5)
		s.True(dErrors.HasCode(err, dErrors.CodeTransactionFailure))
	})

	s.Equal(2.0, testutil.ToFloat64(s.metrics.BidUpdates.WithLabelValues("ok")))
}

// =============================================================================
// RefreshBudget
// =============================================================================

func (s *EngineSuite) TestRefreshBudget() {
	s.Run("broadcasts the stored budget", func() {
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(house, nil)
		s.broadcaster.EXPECT().Broadcast(gomock.Any(), events.HouseBudgetUpdated,
			events.BudgetPayload{HouseID: houseID, Budget: 100})

		budget, err := s.engine.RefreshBudget(s.ctx, houseID)
		s.Require().NoError(err)
		s.Equal(int64(100), budget)
	})

	s.Run("unknown house", func() {
		s.ledger.EXPECT().FindHouse(gomock.Any(), houseID).Return(nil, sentinel.ErrNotFound)

		_, err := s.engine.RefreshBudget(s.ctx, houseID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
