// Package state holds the per-session application snapshot. All
// mutations go through named actions applied by a reducer, so every
// write made by the router or the session is observable by listeners.
package state

import (
	"rebot/internal/model"
	"rebot/internal/registry"
)

// Loading groups the in-flight flags shown by the view
type Loading struct {
	Chat            bool `json:"chat"`
	Location        bool `json:"location"`
	Properties      bool `json:"properties"`
	MarketTrends    bool `json:"marketTrends"`
	PropertyDetails bool `json:"propertyDetails"`
}

// Snapshot is the single source of truth for one chat session.
//
// PropertyDetails is non-nil only while IsPropertyChat is true.
// IsPropertyChat may be true with nil details while a load is pending.
type Snapshot struct {
	ActiveTab        registry.Tab           `json:"activeTab"`
	SelectedProperty *model.PropertyRef     `json:"selectedProperty"`
	IsPropertyChat   bool                   `json:"isPropertyChat"`
	PropertyDetails  *model.PropertyDetails `json:"propertyDetails"`
	PendingZPID      string                 `json:"pendingZpid,omitempty"`
	ZipCode          string                 `json:"zipCode"`
	LocationData     *model.LocationData    `json:"locationData"`
	MarketTrends     *model.MarketTrends    `json:"marketTrends"`
	Properties       []model.PropertyRef    `json:"properties"`
	Messages         []model.Message        `json:"messages"`
	DynamicQuestions []string               `json:"dynamicQuestions"`
	Loading          Loading                `json:"loading"`

	QuestionsSeq uint64 `json:"-"`
	nextID       int64
}

// LoadedZPID returns the zpid of the property chat that is loaded or
// loading, or "" outside a property chat.
func (s Snapshot) LoadedZPID() string {
	if !s.IsPropertyChat {
		return ""
	}
	if s.PendingZPID != "" {
		return s.PendingZPID
	}
	if s.PropertyDetails != nil {
		return s.PropertyDetails.BasicInfo.ZPID
	}
	if s.SelectedProperty != nil {
		return s.SelectedProperty.ZPID
	}
	return ""
}

// LastMessage returns the most recent message, if any
func (s Snapshot) LastMessage() (model.Message, bool) {
	if len(s.Messages) == 0 {
		return model.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Message looks a message up by id
func (s Snapshot) Message(id int64) (model.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

// clone copies the slices so callers can't reach the store's backing
// arrays. Fetched records behind pointers are replaced wholesale and
// never mutated in place, so they are shared.
func (s *Snapshot) clone() Snapshot {
	c := *s
	c.Messages = append([]model.Message(nil), s.Messages...)
	c.Properties = append([]model.PropertyRef(nil), s.Properties...)
	c.DynamicQuestions = append([]string(nil), s.DynamicQuestions...)
	if s.SelectedProperty != nil {
		p := *s.SelectedProperty
		c.SelectedProperty = &p
	}
	return c
}
