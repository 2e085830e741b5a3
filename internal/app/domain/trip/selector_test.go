package trip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

func TestSelectPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected []models.Component
	}{
		{
			name:     "full plan phrase wins over keywords",
			message:  "give me the full plan with flights only",
			expected: allComponents,
		},
		{
			name:     "only with single keyword set",
			message:  "only the flights please",
			expected: []models.Component{models.ComponentFlights},
		},
		{
			name:     "two keyword sets",
			message:  "find flights and hotels to Rome",
			expected: []models.Component{models.ComponentFlights, models.ComponentHotels},
		},
		{
			name:     "single keyword set",
			message:  "what hotels are good in Tokyo",
			expected: []models.Component{models.ComponentHotels},
		},
		{
			name:     "no keywords defaults to all",
			message:  "plan a trip to Tokyo",
			expected: allComponents,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(failingCaller(), zap.NewNop())
			assert.Equal(t, tt.expected, s.Select(context.Background(), tt.message))
		})
	}
}

func TestSelectOnlyWithMultipleSetsDelegates(t *testing.T) {
	m := new(MockCaller)
	m.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("HOTELS", nil)
	s := NewSelector(m, zap.NewNop())

	got := s.Select(context.Background(), "just the hotels, not the flights")
	assert.Equal(t, []models.Component{models.ComponentHotels}, got)
	m.AssertExpectations(t)
}

func TestSelectDelegationFailureDefaultsToAll(t *testing.T) {
	s := NewSelector(failingCaller(), zap.NewNop())

	got := s.Select(context.Background(), "just the hotels, not the flights")
	assert.Equal(t, allComponents, got)
}

func TestSelectIdempotent(t *testing.T) {
	s := NewSelector(failingCaller(), zap.NewNop())
	msg := "find flights and hotels to Rome"

	assert.Equal(t, s.Select(context.Background(), msg), s.Select(context.Background(), msg))
}

func TestMissingFields(t *testing.T) {
	s := NewSelector(failingCaller(), zap.NewNop())

	tests := []struct {
		name       string
		req        models.TripRequest
		components []models.Component
		expected   []string
	}{
		{
			name:       "destination only, all components",
			req:        models.TripRequest{Destination: "Tokyo"},
			components: allComponents,
			expected:   []string{FieldDepartDate, FieldOrigin},
		},
		{
			name:       "nothing known",
			req:        models.TripRequest{},
			components: allComponents,
			expected:   []string{FieldDestination, FieldDepartDate, FieldOrigin},
		},
		{
			name:       "itinerary needs return date or trip length",
			req:        models.TripRequest{Destination: "Tokyo", DepartDate: "2025-12-20"},
			components: []models.Component{models.ComponentItinerary},
			expected:   []string{FieldReturnOrLen},
		},
		{
			name: "trip length preference satisfies itinerary",
			req: models.TripRequest{
				Destination: "Tokyo",
				DepartDate:  "2025-12-20",
				Preferences: map[string]any{"trip_length": float64(5)},
			},
			components: []models.Component{models.ComponentItinerary},
			expected:   nil,
		},
		{
			name: "hotels complete",
			req: models.TripRequest{
				Destination: "Tokyo",
				DepartDate:  "2025-12-20",
			},
			components: []models.Component{models.ComponentHotels},
			expected:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.MissingFields(tt.req, tt.components))
		})
	}
}

func TestClarificationFallbackTemplate(t *testing.T) {
	s := NewSelector(failingCaller(), zap.NewNop())

	q := s.Clarification(context.Background(), models.TripRequest{Destination: "Tokyo"}, []string{FieldDepartDate, FieldOrigin})
	assert.Equal(t, "When would you like to depart?", q)

	assert.Empty(t, s.Clarification(context.Background(), models.TripRequest{}, nil))
}
