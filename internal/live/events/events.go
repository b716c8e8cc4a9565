// Package events names the live protocol frames and their payloads.
package events

import (
	"encoding/json"

	"crewauction/internal/ledger/models"
)

// Client to server.
const (
	Authenticate = "authenticate"
	BudgetUpdate = "budget_update"
	BidUpdate    = "bid_update"
)

// Server to client.
const (
	AuthSuccess        = "auth_success"
	AuthError          = "auth_error"
	HouseBudgetUpdated = "house_budget_updated"
	BidUpdated         = "bid_updated"
	SaleCompleted      = "sale_completed"
	Heartbeat          = "heartbeat"
)

// Frame is an outbound message.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Inbound is a client message with its payload left for the handler to decode.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type AuthSuccessPayload struct {
	HouseID           models.HouseID `json:"houseId"`
	HouseName         string         `json:"houseName"`
	ActiveConnections int            `json:"activeConnections"`
}

type BudgetPayload struct {
	HouseID models.HouseID `json:"houseId"`
	Budget  int64          `json:"budget"`
}

type BidPayload struct {
	LotID  models.LotID `json:"lotId"`
	NewBid int64        `json:"newBid"`
}

type SaleCompletedPayload struct {
	LotID   models.LotID   `json:"lotId"`
	HouseID models.HouseID `json:"houseId"`
	Price   int64          `json:"price"`
}

// HeartbeatPayload carries the server clock in unix milliseconds.
type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}
