package models

import "fmt"

// HouseID identifies a production house (bidder).
type HouseID int64

// LotID identifies a crew member up for auction.
type LotID int64

// LotStatus is the sale state of a lot. Sold is terminal.
type LotStatus string

const (
	LotStatusAvailable LotStatus = "available"
	LotStatusSold      LotStatus = "sold"
)

func (s LotStatus) IsValid() bool {
	return s == LotStatusAvailable || s == LotStatusSold
}

// Crew categories tracked by the leaderboard.
const (
	CategoryLeadActor       = "Lead Actor"
	CategorySupportingActor = "Supporting Actor"
	CategoryMusician        = "Musician"
	CategoryDirector        = "Director"
	CategoryNepoKid         = "Nepo Kid"
	CategoryComedicRelief   = "Comedic Relief"
)

// House is a bidder with a spendable budget. AccessCode is the shared secret
// used to bind live sessions and is never serialized to clients.
type House struct {
	ID         HouseID `json:"id"`
	Name       string  `json:"name"`
	Budget     int64   `json:"budget"`
	AccessCode string  `json:"-"`
}

// Lot is a crew member up for auction.
type Lot struct {
	ID         LotID     `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Rating     int       `json:"rating"`
	BasePrice  int64     `json:"base_price"`
	CurrentBid int64     `json:"current_bid"`
	Status     LotStatus `json:"status"`
}

func (l *Lot) IsSold() bool {
	return l.Status == LotStatusSold
}

// Purchase links a sold lot to the house that bought it. Exactly one exists
// per sold lot.
type Purchase struct {
	ID      int64   `json:"id"`
	HouseID HouseID `json:"production_house_id"`
	LotID   LotID   `json:"crew_member_id"`
	Price   int64   `json:"purchase_price"`
}

// Sale is the committed result of a settlement.
type Sale struct {
	LotID     LotID
	HouseID   HouseID
	Price     int64
	NewBudget int64
}

// CatalogueEntry is a lot joined with its buyer, if sold.
type CatalogueEntry struct {
	Lot
	BuyerName *string  `json:"buyer_name"`
	BuyerID   *HouseID `json:"production_house_id"`
}

// OwnedLot is a lot as it appears in a house's purchase history.
type OwnedLot struct {
	Lot
	PurchasePrice int64 `json:"purchase_price"`
}

// HouseDetail is a house with everything it has bought.
type HouseDetail struct {
	House
	PurchasedCrew []OwnedLot `json:"purchased_crew"`
}

// LeaderboardRow aggregates a house's purchases.
type LeaderboardRow struct {
	ID               HouseID  `json:"id"`
	Name             string   `json:"name"`
	Budget           int64    `json:"budget"`
	CrewCount        int      `json:"crew_count"`
	LeadActors       int      `json:"lead_actors"`
	SupportingActors int      `json:"supporting_actors"`
	Musicians        int      `json:"musicians"`
	Directors        int      `json:"directors"`
	NepoKids         int      `json:"nepo_kids"`
	ComedicRelief    int      `json:"comedic_relief"`
	AverageRating    *float64 `json:"average_rating"`
}

// SeedHouse and SeedLot describe fixture rows; IDs are assigned by the store.
type SeedHouse struct {
	Name       string `toml:"name" yaml:"name"`
	Budget     int64  `toml:"budget" yaml:"budget"`
	AccessCode string `toml:"access_code" yaml:"access_code"`
}

type SeedLot struct {
	Name      string `toml:"name" yaml:"name"`
	Category  string `toml:"category" yaml:"category"`
	Rating    int    `toml:"rating" yaml:"rating"`
	BasePrice int64  `toml:"base_price" yaml:"base_price"`
}

// Fixture is a full auction setup loaded by the seed command.
type Fixture struct {
	Houses []SeedHouse `toml:"houses" yaml:"houses"`
	Lots   []SeedLot   `toml:"lots" yaml:"lots"`
}

// Validate checks fixture rows against the ledger constraints before any
// write is attempted.
func (f Fixture) Validate() error {
	codes := make(map[string]struct{}, len(f.Houses))
	for i, h := range f.Houses {
		if h.Name == "" {
			return fmt.Errorf("house %d: name is required", i)
		}
		if h.Budget < 0 {
			return fmt.Errorf("house %q: budget must not be negative", h.Name)
		}
		if h.AccessCode == "" {
			return fmt.Errorf("house %q: access_code is required", h.Name)
		}
		if _, dup := codes[h.AccessCode]; dup {
			return fmt.Errorf("house %q: duplicate access_code", h.Name)
		}
		codes[h.AccessCode] = struct{}{}
	}
	for i, l := range f.Lots {
		if l.Name == "" || l.Category == "" {
			return fmt.Errorf("lot %d: name and category are required", i)
		}
		if l.BasePrice < 0 {
			return fmt.Errorf("lot %q: base_price must not be negative", l.Name)
		}
	}
	return nil
}
