package live_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"crewauction/internal/ledger/ledgertest"
	"crewauction/internal/ledger/store"
	"crewauction/internal/live"
	"crewauction/internal/live/events"
	"crewauction/internal/session"
	"crewauction/internal/settlement"
)

// =============================================================================
// Live protocol suite
// =============================================================================
// Drives real websocket clients against the handler backed by a SQLite
// ledger, so frames are checked exactly as a browser would see them.

type LiveSuite struct {
	suite.Suite
	server   *httptest.Server
	registry *session.Registry
	hub      *live.Hub
	engine   *settlement.Engine
	ledger   *store.Store
	seeded   *store.Seeded
}

func TestLiveSuite(t *testing.T) {
	suite.Run(t, new(LiveSuite))
}

func (s *LiveSuite) SetupTest() {
	ledger := ledgertest.Open(s.T())
	s.ledger = ledger
	s.seeded = ledgertest.Seed(s.T(), ledger, store.DefaultFixture())

	var err error
	s.registry, err = session.NewRegistry(ledger)
	s.Require().NoError(err)
	s.hub = live.NewHub(s.registry)
	s.engine, err = settlement.New(ledger, settlement.WithBroadcaster(s.hub))
	s.Require().NoError(err)

	handler, err := live.NewHandler(s.engine, s.registry, live.WithSendBuffer(16))
	s.Require().NoError(err)
	s.server = httptest.NewServer(handler)
	s.T().Cleanup(s.server.Close)
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *LiveSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = ws.Close() })
	return ws
}

func (s *LiveSuite) send(ws *websocket.Conn, typ string, payload any) {
	s.Require().NoError(ws.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

// expect reads until a frame of type typ arrives, skipping heartbeats and
// other traffic.
func (s *LiveSuite) expect(ws *websocket.Conn, typ string) frame {
	s.T().Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.Require().NoError(ws.SetReadDeadline(deadline))
		var f frame
		s.Require().NoError(ws.ReadJSON(&f), "waiting for %s", typ)
		if f.Type == typ {
			return f
		}
	}
}

// authenticate binds ws to the house with code and returns the auth_success
// payload. Receiving it also proves the server registered the connection.
func (s *LiveSuite) authenticate(ws *websocket.Conn, payload any) events.AuthSuccessPayload {
	s.send(ws, events.Authenticate, payload)
	var ok events.AuthSuccessPayload
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.AuthSuccess).Payload, &ok))
	return ok
}

func (s *LiveSuite) TestAuthenticateCountsPeerConnections() {
	first := s.authenticate(s.dial(), "RED001")
	s.Equal(s.seeded.Houses[0], first.HouseID)
	s.Equal("Red Chillies", first.HouseName)
	s.Equal(1, first.ActiveConnections)

	second := s.authenticate(s.dial(), map[string]string{"accessCode": "RED001"})
	s.Equal(2, second.ActiveConnections)
	s.Equal(2, s.registry.LiveSessionCountFor(s.seeded.Houses[0]))
}

func (s *LiveSuite) TestAuthenticateWithUnknownCode() {
	ws := s.dial()
	s.send(ws, events.Authenticate, "WRONG")

	var msg string
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.AuthError).Payload, &msg))
	s.Equal("Invalid access code", msg)
}

func (s *LiveSuite) TestBidUpdateReachesEveryConnection() {
	bidder := s.dial()
	s.authenticate(bidder, "RED001")
	viewer := s.dial()
	s.Require().Eventually(func() bool { return s.registry.Len() == 2 }, time.Second, 10*time.Millisecond)

	lot := s.seeded.Lots[0]
	s.send(bidder, events.BidUpdate, events.BidPayload{LotID: lot, NewBid: 35_000_000})

	for _, ws := range []*websocket.Conn{bidder, viewer} {
		var bid events.BidPayload
		s.Require().NoError(json.Unmarshal(s.expect(ws, events.BidUpdated).Payload, &bid))
		s.Equal(lot, bid.LotID)
		s.Equal(int64(35_000_000), bid.NewBid)
	}
}

func (s *LiveSuite) TestBidUpdateWithoutBidIsIgnored() {
	ws := s.dial()
	lot := s.seeded.Lots[1]

	s.send(ws, events.BidUpdate, map[string]any{"lotId": lot})
	s.send(ws, events.BidUpdate, map[string]any{"lotId": lot, "newBid": 42})

	// Frames are handled in order, so the first bid_updated seen is the valid one.
	var bid events.BidPayload
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.BidUpdated).Payload, &bid))
	s.Equal(int64(42), bid.NewBid)

	got, err := s.ledger.FindLot(context.Background(), lot)
	s.Require().NoError(err)
	s.Equal(int64(42), got.CurrentBid)
}

func (s *LiveSuite) TestSaleBroadcastsSaleThenBudget() {
	ws := s.dial()
	s.authenticate(ws, "DHA001")
	house, lot := s.seeded.Houses[1], s.seeded.Lots[3]

	_, err := s.engine.SettleSale(context.Background(), lot, house, 20_000_000)
	s.Require().NoError(err)

	var sale events.SaleCompletedPayload
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.SaleCompleted).Payload, &sale))
	s.Equal(events.SaleCompletedPayload{LotID: lot, HouseID: house, Price: 20_000_000}, sale)

	var budget events.BudgetPayload
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.HouseBudgetUpdated).Payload, &budget))
	s.Equal(house, budget.HouseID)
	s.Equal(int64(980_000_000), budget.Budget)
}

func (s *LiveSuite) TestBudgetUpdateRequest() {
	ws := s.dial()
	s.authenticate(ws, "YRF001")

	s.send(ws, events.BudgetUpdate, map[string]any{"houseId": s.seeded.Houses[2]})

	var budget events.BudgetPayload
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.HouseBudgetUpdated).Payload, &budget))
	s.Equal(s.seeded.Houses[2], budget.HouseID)
	s.Equal(int64(1_000_000_000), budget.Budget)
}

func (s *LiveSuite) TestHeartbeatReachesUnauthenticatedViewers() {
	ws := s.dial()
	s.Require().Eventually(func() bool { return s.registry.Len() == 1 }, time.Second, 10*time.Millisecond)

	s.hub.Heartbeat(context.Background())

	var hb events.HeartbeatPayload
	s.Require().NoError(json.Unmarshal(s.expect(ws, events.Heartbeat).Payload, &hb))
	s.InDelta(time.Now().UnixMilli(), hb.Timestamp, 5000)
}

func (s *LiveSuite) TestDisconnectReleasesSession() {
	ws := s.dial()
	s.authenticate(ws, "RED001")
	s.Equal(1, s.registry.LiveSessionCountFor(s.seeded.Houses[0]))

	s.Require().NoError(ws.Close())

	s.Eventually(func() bool {
		return s.registry.LiveSessionCountFor(s.seeded.Houses[0]) == 0
	}, 2*time.Second, 10*time.Millisecond)
	s.Equal(0, s.registry.Len())
}

func (s *LiveSuite) TestMalformedFramesAreIgnored() {
	ws := s.dial()
	s.Require().NoError(ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	s.send(ws, "mystery", nil)
	s.send(ws, events.BidUpdate, "nonsense")

	// The connection is still usable afterwards.
	ok := s.authenticate(ws, "RED001")
	s.Equal(1, ok.ActiveConnections)
}

func TestNewHandlerRequiresCollaborators(t *testing.T) {
	_, err := live.NewHandler(nil, nil)
	assert.Error(t, err)

	registry, err := session.NewRegistry(ledgertest.Open(t))
	require.NoError(t, err)
	_, err = live.NewHandler(nil, registry)
	assert.Error(t, err)
}
