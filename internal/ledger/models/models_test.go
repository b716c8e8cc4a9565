package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLotStatus(t *testing.T) {
	assert.True(t, LotStatusAvailable.IsValid())
	assert.True(t, LotStatusSold.IsValid())
	assert.False(t, LotStatus("reserved").IsValid())

	lot := Lot{Status: LotStatusSold}
	assert.True(t, lot.IsSold())
}

func TestFixtureValidate(t *testing.T) {
	valid := Fixture{
		Houses: []SeedHouse{{Name: "Red Chillies", Budget: 100, AccessCode: "RED001"}},
		Lots:   []SeedLot{{Name: "AR Rahman", Category: CategoryMusician, Rating: 96, BasePrice: 50}},
	}
	assert.NoError(t, valid.Validate())

	cases := map[string]Fixture{
		"missing house name": {Houses: []SeedHouse{{Budget: 1, AccessCode: "X"}}},
		"negative budget":    {Houses: []SeedHouse{{Name: "A", Budget: -1, AccessCode: "X"}}},
		"missing code":       {Houses: []SeedHouse{{Name: "A", Budget: 1}}},
		"duplicate code": {Houses: []SeedHouse{
			{Name: "A", Budget: 1, AccessCode: "X"},
			{Name: "B", Budget: 1, AccessCode: "X"},
		}},
		"missing category":    {Lots: []SeedLot{{Name: "L", BasePrice: 1}}},
		"negative base price": {Lots: []SeedLot{{Name: "L", Category: "C", BasePrice: -5}}},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, f.Validate())
		})
	}
}
