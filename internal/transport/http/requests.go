package httptransport

import (
	"strings"

	"crewauction/internal/ledger/models"
	dErrors "crewauction/pkg/domain-errors"
)

// SellRequest is the body of POST /api/sell.
type SellRequest struct {
	CrewMemberID      models.LotID   `json:"crewMemberId"`
	ProductionHouseID models.HouseID `json:"productionHouseId"`
	PurchasePrice     *int64         `json:"purchasePrice"`
}

func (r *SellRequest) Validate() error {
	if r.CrewMemberID <= 0 || r.ProductionHouseID <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "crewMemberId and productionHouseId are required")
	}
	if r.PurchasePrice == nil {
		return dErrors.New(dErrors.CodeBadRequest, "purchasePrice is required")
	}
	if *r.PurchasePrice < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "purchasePrice must not be negative")
	}
	return nil
}

// BidRequest is the body of POST /api/crew/{id}/bid. Any bid value is
// accepted; ordering is left to the auctioneer.
type BidRequest struct {
	NewBid *int64 `json:"newBid"`
}

func (r *BidRequest) Validate() error {
	if r.NewBid == nil {
		return dErrors.New(dErrors.CodeBadRequest, "newBid is required")
	}
	return nil
}

// AccessCodeRequest is the body of POST /api/auth.
type AccessCodeRequest struct {
	AccessCode string `json:"accessCode"`
}

func (r *AccessCodeRequest) Validate() error {
	r.AccessCode = strings.TrimSpace(r.AccessCode)
	if r.AccessCode == "" {
		return dErrors.New(dErrors.CodeAuthFailure, "Invalid access code")
	}
	return nil
}

// SaleData reports a committed sale.
type SaleData struct {
	CrewMemberID      models.LotID   `json:"crewMemberId"`
	ProductionHouseID models.HouseID `json:"productionHouseId"`
	PurchasePrice     int64          `json:"purchasePrice"`
	RemainingBudget   int64          `json:"remainingBudget"`
}

type SaleResponse struct {
	Success bool     `json:"success"`
	Data    SaleData `json:"data"`
}

type BidResponse struct {
	Success bool         `json:"success"`
	LotID   models.LotID `json:"crewMemberId"`
	NewBid  int64        `json:"newBid"`
}
