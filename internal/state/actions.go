package state

import (
	"strings"
	"time"

	"rebot/internal/model"
	"rebot/internal/registry"
)

// Change is a bit set describing which parts of the snapshot an action
// touched. Zero means the action was a no-op.
type Change uint

const (
	ChangeTab Change = 1 << iota
	ChangeProperty
	ChangeZipCode
	ChangeMessages
	ChangeLocation
	ChangeMarketTrends
	ChangeProperties
	ChangeLoading
	ChangeQuestions
)

// Has reports whether any bit of o is set in c
func (c Change) Has(o Change) bool { return c&o != 0 }

var changeNames = []struct {
	c    Change
	name string
}{
	{ChangeTab, "tab"},
	{ChangeProperty, "property"},
	{ChangeZipCode, "zip"},
	{ChangeMessages, "messages"},
	{ChangeLocation, "location"},
	{ChangeMarketTrends, "market"},
	{ChangeProperties, "properties"},
	{ChangeLoading, "loading"},
	{ChangeQuestions, "questions"},
}

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range changeNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Action is a named mutation of the snapshot. The set is closed: only
// types in this package implement it.
type Action interface {
	Name() string
	apply(s *Snapshot) Change
}

// SetActiveTab switches the top-level tab. Unknown tabs are ignored.
type SetActiveTab struct {
	Tab registry.Tab
}

func (SetActiveTab) Name() string { return "set_active_tab" }

func (a SetActiveTab) apply(s *Snapshot) Change {
	if !a.Tab.Valid() || s.ActiveTab == a.Tab {
		return 0
	}
	s.ActiveTab = a.Tab
	return ChangeTab
}

// SelectProperty marks a listing as selected. Selecting a different
// property than the loaded property chat leaves that chat.
type SelectProperty struct {
	Property model.PropertyRef
}

func (SelectProperty) Name() string { return "select_property" }

func (a SelectProperty) apply(s *Snapshot) Change {
	p := a.Property
	s.SelectedProperty = &p
	if s.IsPropertyChat && s.LoadedZPID() != p.ZPID {
		s.IsPropertyChat = false
		s.PropertyDetails = nil
		s.PendingZPID = ""
		s.Loading.PropertyDetails = false
	}
	return ChangeProperty
}

// ClearProperty closes the selected property and any property chat
type ClearProperty struct{}

func (ClearProperty) Name() string { return "clear_property" }

func (ClearProperty) apply(s *Snapshot) Change {
	if s.SelectedProperty == nil && !s.IsPropertyChat {
		return 0
	}
	s.SelectedProperty = nil
	s.IsPropertyChat = false
	s.PropertyDetails = nil
	s.PendingZPID = ""
	s.Loading.PropertyDetails = false
	return ChangeProperty | ChangeLoading
}

// BeginPropertyChat optimistically enters a property chat before its
// record has loaded.
type BeginPropertyChat struct {
	ZPID string
}

func (BeginPropertyChat) Name() string { return "begin_property_chat" }

func (a BeginPropertyChat) apply(s *Snapshot) Change {
	s.IsPropertyChat = true
	s.SelectedProperty = nil
	s.PropertyDetails = nil
	s.PendingZPID = a.ZPID
	s.Loading.PropertyDetails = true
	return ChangeProperty | ChangeLoading
}

// CompletePropertyChat fills in the record fetched for ZPID. It is
// dropped when the session has since left or switched the property chat.
// A failed fetch (Err set) keeps IsPropertyChat with nil details.
type CompletePropertyChat struct {
	ZPID    string
	Details *model.PropertyDetails
	Err     error
}

func (CompletePropertyChat) Name() string { return "complete_property_chat" }

func (a CompletePropertyChat) apply(s *Snapshot) Change {
	if !s.IsPropertyChat || s.PendingZPID != a.ZPID {
		return 0
	}
	s.PendingZPID = ""
	s.Loading.PropertyDetails = false
	if a.Err != nil || a.Details == nil {
		return ChangeLoading
	}
	s.PropertyDetails = a.Details
	s.SelectedProperty = a.Details.Ref()
	if s.SelectedProperty.ZPID == "" {
		s.SelectedProperty.ZPID = a.ZPID
		s.SelectedProperty.ID = a.ZPID
	}
	return ChangeProperty | ChangeLoading
}

// SetZipCode replaces the zip code
type SetZipCode struct {
	ZipCode string
}

func (SetZipCode) Name() string { return "set_zip_code" }

func (a SetZipCode) apply(s *Snapshot) Change {
	if s.ZipCode == a.ZipCode {
		return 0
	}
	s.ZipCode = a.ZipCode
	return ChangeZipCode
}

// AppendMessage adds a message to the transcript. The store assigns the
// id and timestamp and writes them back into Message.
type AppendMessage struct {
	Message model.Message
}

func (*AppendMessage) Name() string { return "append_message" }

func (a *AppendMessage) apply(s *Snapshot) Change {
	s.nextID++
	a.Message.ID = s.nextID
	if a.Message.CreatedAt.IsZero() {
		a.Message.CreatedAt = time.Now()
	}
	s.Messages = append(s.Messages, a.Message)
	return ChangeMessages
}

// SetLocationData replaces the cached location data. Results fetched
// for a zip code (ZipCode set) are dropped once the session moved on to
// another one.
type SetLocationData struct {
	Data    *model.LocationData
	ZipCode string
}

func (SetLocationData) Name() string { return "set_location_data" }

func (a SetLocationData) apply(s *Snapshot) Change {
	if a.ZipCode != "" && a.ZipCode != s.ZipCode {
		return 0
	}
	s.LocationData = a.Data
	s.Loading.Location = false
	return ChangeLocation | ChangeLoading
}

// SetMarketTrends replaces the cached market trends
type SetMarketTrends struct {
	Trends  *model.MarketTrends
	ZipCode string
}

func (SetMarketTrends) Name() string { return "set_market_trends" }

func (a SetMarketTrends) apply(s *Snapshot) Change {
	if a.ZipCode != "" && a.ZipCode != s.ZipCode {
		return 0
	}
	s.MarketTrends = a.Trends
	s.Loading.MarketTrends = false
	return ChangeMarketTrends | ChangeLoading
}

// SetProperties replaces the listing results
type SetProperties struct {
	Properties []model.PropertyRef
	ZipCode    string
}

func (SetProperties) Name() string { return "set_properties" }

func (a SetProperties) apply(s *Snapshot) Change {
	if a.ZipCode != "" && a.ZipCode != s.ZipCode {
		return 0
	}
	s.Properties = append([]model.PropertyRef(nil), a.Properties...)
	s.Loading.Properties = false
	return ChangeProperties | ChangeLoading
}

// LoadingFlag names one of the Loading fields
type LoadingFlag string

const (
	LoadingChat            LoadingFlag = "chat"
	LoadingLocation        LoadingFlag = "location"
	LoadingProperties      LoadingFlag = "properties"
	LoadingMarketTrends    LoadingFlag = "marketTrends"
	LoadingPropertyDetails LoadingFlag = "propertyDetails"
)

// SetLoading flips one loading flag
type SetLoading struct {
	Flag LoadingFlag
	On   bool
}

func (SetLoading) Name() string { return "set_loading" }

func (a SetLoading) apply(s *Snapshot) Change {
	var f *bool
	switch a.Flag {
	case LoadingChat:
		f = &s.Loading.Chat
	case LoadingLocation:
		f = &s.Loading.Location
	case LoadingProperties:
		f = &s.Loading.Properties
	case LoadingMarketTrends:
		f = &s.Loading.MarketTrends
	case LoadingPropertyDetails:
		f = &s.Loading.PropertyDetails
	default:
		return 0
	}
	if *f == a.On {
		return 0
	}
	*f = a.On
	return ChangeLoading
}

// SetDynamicQuestions replaces the follow-up suggestions. Only complete
// sets of three from a generation newer than the current one are applied.
type SetDynamicQuestions struct {
	Questions []string
	Seq       uint64
}

func (SetDynamicQuestions) Name() string { return "set_dynamic_questions" }

func (a SetDynamicQuestions) apply(s *Snapshot) Change {
	if len(a.Questions) != 3 || a.Seq <= s.QuestionsSeq {
		return 0
	}
	for _, q := range a.Questions {
		if strings.TrimSpace(q) == "" {
			return 0
		}
	}
	s.DynamicQuestions = append([]string(nil), a.Questions...)
	s.QuestionsSeq = a.Seq
	return ChangeQuestions
}
