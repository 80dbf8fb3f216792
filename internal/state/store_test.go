package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rebot/internal/model"
	"rebot/internal/registry"
)

func details(zpid string) *model.PropertyDetails {
	return &model.PropertyDetails{
		BasicInfo: model.BasicInfo{
			ZPID:      zpid,
			Address:   model.PropertyAddress{Full: "1 Main St, Boston, MA 02134"},
			Price:     650000,
			YearBuilt: 1920,
		},
		Taxes: []model.TaxRecord{
			{Time: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), TaxPaid: 7100},
			{Time: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), TaxPaid: 6900},
			{Time: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), TaxPaid: 6500},
		},
	}
}

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))
	snap := s.Snapshot()

	assert.Equal(t, registry.TabExplore, snap.ActiveTab)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, int64(1), snap.Messages[0].ID)
	assert.Equal(t, model.MessageBot, snap.Messages[0].Type)
	assert.Nil(t, snap.SelectedProperty)
	assert.False(t, snap.IsPropertyChat)
}

func TestAppend_AssignsSequentialIDs(t *testing.T) {
	s := NewStore(nil)
	a := s.Append(model.MessageUser, "hi", false)
	b := s.Append(model.MessageBot, "hello", true)

	assert.Equal(t, int64(2), a.ID)
	assert.Equal(t, int64(3), b.ID)
	assert.False(t, b.CreatedAt.IsZero())

	got, ok := s.Snapshot().Message(3)
	require.True(t, ok)
	assert.True(t, got.LinksResolved)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewStore(nil)
	s.Dispatch(SelectProperty{Property: model.PropertyRef{ZPID: "1"}})

	snap := s.Snapshot()
	snap.Messages[0].Content = "mutated"
	snap.SelectedProperty.ZPID = "mutated"

	again := s.Snapshot()
	assert.Equal(t, model.WelcomeMessage, again.Messages[0].Content)
	assert.Equal(t, "1", again.SelectedProperty.ZPID)
}

func TestSetActiveTab(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, ChangeTab, s.Dispatch(SetActiveTab{Tab: registry.TabAI}))
	assert.Zero(t, s.Dispatch(SetActiveTab{Tab: registry.TabAI}))
	assert.Zero(t, s.Dispatch(SetActiveTab{Tab: "settings"}))
	assert.Equal(t, registry.TabAI, s.Snapshot().ActiveTab)
}

func TestPropertyChatLifecycle(t *testing.T) {
	s := NewStore(nil)
	s.Dispatch(SelectProperty{Property: model.PropertyRef{ZPID: "123", Address: "1 Main St"}})

	s.Dispatch(BeginPropertyChat{ZPID: "123"})
	snap := s.Snapshot()
	assert.True(t, snap.IsPropertyChat)
	assert.Nil(t, snap.SelectedProperty)
	assert.Nil(t, snap.PropertyDetails)
	assert.True(t, snap.Loading.PropertyDetails)
	assert.Equal(t, "123", snap.LoadedZPID())

	s.Dispatch(CompletePropertyChat{ZPID: "123", Details: details("123")})
	snap = s.Snapshot()
	assert.True(t, snap.IsPropertyChat)
	require.NotNil(t, snap.PropertyDetails)
	require.NotNil(t, snap.SelectedProperty)
	assert.Equal(t, "123", snap.SelectedProperty.ZPID)
	assert.Equal(t, "1 Main St, Boston, MA 02134", snap.SelectedProperty.Address)
	assert.False(t, snap.Loading.PropertyDetails)
	assert.Empty(t, snap.PendingZPID)

	s.Dispatch(ClearProperty{})
	snap = s.Snapshot()
	assert.False(t, snap.IsPropertyChat)
	assert.Nil(t, snap.PropertyDetails)
	assert.Nil(t, snap.SelectedProperty)
}

func TestCompletePropertyChat_DropsStale(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Store)
	}{
		{
			name: "closed before fetch returned",
			setup: func(s *Store) {
				s.Dispatch(BeginPropertyChat{ZPID: "123"})
				s.Dispatch(ClearProperty{})
			},
		},
		{
			name: "switched to another property",
			setup: func(s *Store) {
				s.Dispatch(BeginPropertyChat{ZPID: "123"})
				s.Dispatch(BeginPropertyChat{ZPID: "456"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil)
			tt.setup(s)
			assert.Zero(t, s.Dispatch(CompletePropertyChat{ZPID: "123", Details: details("123")}))
			assert.Nil(t, s.Snapshot().PropertyDetails)
		})
	}
}

func TestCompletePropertyChat_FailureKeepsLoadingState(t *testing.T) {
	s := NewStore(nil)
	s.Dispatch(BeginPropertyChat{ZPID: "123"})
	s.Dispatch(CompletePropertyChat{ZPID: "123", Err: errors.New("boom")})

	snap := s.Snapshot()
	assert.True(t, snap.IsPropertyChat)
	assert.Nil(t, snap.PropertyDetails)
	assert.False(t, snap.Loading.PropertyDetails)
}

func TestSelectProperty_LeavesOtherPropertyChat(t *testing.T) {
	s := NewStore(nil)
	s.Dispatch(BeginPropertyChat{ZPID: "123"})
	s.Dispatch(CompletePropertyChat{ZPID: "123", Details: details("123")})

	s.Dispatch(SelectProperty{Property: model.PropertyRef{ZPID: "123"}})
	assert.True(t, s.Snapshot().IsPropertyChat)

	s.Dispatch(SelectProperty{Property: model.PropertyRef{ZPID: "999"}})
	snap := s.Snapshot()
	assert.False(t, snap.IsPropertyChat)
	assert.Nil(t, snap.PropertyDetails)
	assert.Equal(t, "999", snap.SelectedProperty.ZPID)
}

func TestDetailsImplyPropertyChat(t *testing.T) {
	s := NewStore(nil)
	actions := []Action{
		SelectProperty{Property: model.PropertyRef{ZPID: "1"}},
		BeginPropertyChat{ZPID: "1"},
		CompletePropertyChat{ZPID: "1", Details: details("1")},
		SelectProperty{Property: model.PropertyRef{ZPID: "2"}},
		BeginPropertyChat{ZPID: "2"},
		ClearProperty{},
		CompletePropertyChat{ZPID: "2", Details: details("2")},
	}
	for _, a := range actions {
		s.Dispatch(a)
		snap := s.Snapshot()
		if snap.PropertyDetails != nil {
			assert.True(t, snap.IsPropertyChat, "after %s", a.Name())
		}
	}
}

func TestSetDynamicQuestions(t *testing.T) {
	s := NewStore(nil)
	three := []string{"a?", "b?", "c?"}

	assert.Zero(t, s.Dispatch(SetDynamicQuestions{Questions: []string{"a?", "b?"}, Seq: 1}))
	assert.Zero(t, s.Dispatch(SetDynamicQuestions{Questions: []string{"a?", " ", "c?"}, Seq: 1}))
	assert.Equal(t, ChangeQuestions, s.Dispatch(SetDynamicQuestions{Questions: three, Seq: 2}))
	assert.Zero(t, s.Dispatch(SetDynamicQuestions{Questions: []string{"x?", "y?", "z?"}, Seq: 1}))
	assert.Equal(t, three, s.Snapshot().DynamicQuestions)
}

func TestSetLoading(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, ChangeLoading, s.Dispatch(SetLoading{Flag: LoadingMarketTrends, On: true}))
	assert.Zero(t, s.Dispatch(SetLoading{Flag: LoadingMarketTrends, On: true}))
	assert.Zero(t, s.Dispatch(SetLoading{Flag: "bogus", On: true}))

	s.Dispatch(SetMarketTrends{Trends: &model.MarketTrends{Location: "02134"}})
	assert.False(t, s.Snapshot().Loading.MarketTrends)
}

func TestSubscribe(t *testing.T) {
	s := NewStore(nil)
	var (
		mu     sync.Mutex
		events []Event
	)
	cancel := s.Subscribe(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	s.Dispatch(SetZipCode{ZipCode: "02134"})
	s.Dispatch(SetZipCode{ZipCode: "02134"})
	cancel()
	s.Dispatch(SetZipCode{ZipCode: "10001"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "set_zip_code", events[0].Action.Name())
	assert.True(t, events[0].Changes.Has(ChangeZipCode))
	assert.Equal(t, "02134", events[0].Snapshot.ZipCode)
}

func TestListenerMayDispatch(t *testing.T) {
	s := NewStore(nil)
	s.Subscribe(func(e Event) {
		if e.Changes.Has(ChangeZipCode) {
			s.Dispatch(SetLoading{Flag: LoadingLocation, On: true})
		}
	})
	s.Dispatch(SetZipCode{ZipCode: "02134"})
	assert.True(t, s.Snapshot().Loading.Location)
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "none", Change(0).String())
	assert.Equal(t, "property|loading", (ChangeProperty | ChangeLoading).String())
}
