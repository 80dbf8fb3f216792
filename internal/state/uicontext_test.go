package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebot/internal/model"
)

func TestUIContext_Empty(t *testing.T) {
	ctx := UIContext(NewStore(nil).Snapshot())

	assert.Nil(t, ctx.SelectedProperty)
	assert.Nil(t, ctx.PropertyDetails)
	assert.Equal(t, "explore", ctx.ActiveTab)
	assert.False(t, ctx.HasMarketData)
	assert.Nil(t, ctx.PropertyTabLinks)

	raw, err := json.Marshal(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"selectedProperty":null`)
	assert.Contains(t, string(raw), `"propertiesCount":0`)
}

func TestUIContext_PropertyChat(t *testing.T) {
	s := NewStore(nil)
	s.Dispatch(SetZipCode{ZipCode: "02134"})
	s.Dispatch(SetLocationData{Data: &model.LocationData{
		ZipCode:     "02134",
		Restaurants: []model.LocationResult{{Title: "A"}, {Title: "B"}},
		Transit:     []model.LocationResult{{Title: "T"}},
	}})
	s.Dispatch(SetProperties{Properties: []model.PropertyRef{{ZPID: "1"}, {ZPID: "2"}, {ZPID: "3"}}})
	s.Dispatch(SetMarketTrends{Trends: &model.MarketTrends{Location: "Allston"}})
	s.Dispatch(BeginPropertyChat{ZPID: "123"})
	s.Dispatch(CompletePropertyChat{ZPID: "123", Details: details("123")})

	ctx := UIContext(s.Snapshot())

	require.NotNil(t, ctx.SelectedProperty)
	assert.Equal(t, "123", ctx.SelectedProperty.ZPID)
	require.NotNil(t, ctx.PropertyDetails)
	assert.Equal(t, 1920, ctx.PropertyDetails.YearBuilt)
	require.Len(t, ctx.PropertyDetails.TaxHistory, 2)
	assert.Equal(t, 2023, ctx.PropertyDetails.TaxHistory[0].Year)
	assert.Equal(t, model.Number(7100), ctx.PropertyDetails.TaxHistory[0].Amount)

	assert.True(t, ctx.IsPropertyChat)
	assert.Equal(t, "02134", ctx.ZipCode)
	assert.Equal(t, 3, ctx.PropertiesCount)
	assert.Equal(t, 2, ctx.RestaurantCount)
	assert.Equal(t, 1, ctx.TransitCount)
	assert.True(t, ctx.HasMarketData)
	assert.Equal(t, "Allston", ctx.MarketLocation)
	assert.Equal(t, "#property-schools-tab", ctx.PropertyTabLinks["schools"])
}
