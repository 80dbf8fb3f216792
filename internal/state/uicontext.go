package state

import (
	"rebot/internal/model"
	"rebot/internal/registry"
)

// UIContext summarizes the snapshot for the assistant backend
func UIContext(s Snapshot) model.UIContext {
	ctx := model.UIContext{
		IsPropertyChat:  s.IsPropertyChat,
		ZipCode:         s.ZipCode,
		ActiveTab:       string(s.ActiveTab),
		PropertiesCount: len(s.Properties),
		HasMarketData:   s.MarketTrends != nil,
	}

	if p := s.SelectedProperty; p != nil {
		ctx.SelectedProperty = &model.SelectedPropertySummary{
			ID:      p.ID,
			Address: p.Address,
			ZPID:    p.ZPID,
			Price:   p.Price,
			Beds:    p.Beds,
			Baths:   p.Baths,
			Type:    p.Type,
		}
	}

	if d := s.PropertyDetails; d != nil {
		sum := &model.PropertyDetailsSummary{
			Address:    d.BasicInfo.Address.Full,
			Price:      d.BasicInfo.Price,
			YearBuilt:  d.BasicInfo.YearBuilt,
			TaxHistory: []model.TaxSummary{},
		}
		for i, t := range d.Taxes {
			if i == 2 {
				break
			}
			sum.TaxHistory = append(sum.TaxHistory, model.TaxSummary{Year: t.Year(), Amount: t.TaxPaid})
		}
		ctx.PropertyDetails = sum
	}

	if ld := s.LocationData; ld != nil {
		ctx.RestaurantCount = len(ld.Restaurants)
		ctx.TransitCount = len(ld.Transit)
		ctx.AgentCount = len(ld.Agents)
	}
	if s.MarketTrends != nil {
		ctx.MarketLocation = s.MarketTrends.Location
	}

	if s.IsPropertyChat {
		ctx.PropertyTabLinks = make(map[string]string, len(registry.PropertyTabs()))
		for _, p := range registry.PropertyTabs() {
			ctx.PropertyTabLinks[string(p)] = "#" + p.ElementID()
		}
	}
	return ctx
}
