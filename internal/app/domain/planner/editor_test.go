package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

func priorPlan() models.Plan {
	return models.Plan{
		Request: models.TripRequest{
			Origin:      "Lisbon",
			Destination: "Tokyo",
			DepartDate:  "2025-12-20",
			ReturnDate:  "2025-12-22",
			AdultCount:  2,
		},
		Flights:   []models.Flight{{Airline: "TAP"}},
		Hotels:    []models.Hotel{{Name: "Park Hyatt"}},
		Itinerary: sampleDays("2025-12-20", "2025-12-21", "2025-12-22"),
		Summary:   "old summary",
	}
}

func itineraryDates(days []models.Day) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Date
	}
	return out
}

func TestEditorRemovesDayByDate(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryRemove, TargetDate: "2025-12-21"}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	assert.Equal(t, []string{"2025-12-20", "2025-12-22"}, itineraryDates(outcome.Plan.Itinerary))
	assert.NotEqual(t, "old summary", outcome.Plan.Summary)
	assert.False(t, outcome.Plan.Meta.GeneratedAt.IsZero())
}

func TestEditorRemoveDayFallsBackToDayNumber(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryRemove, TargetDate: "2025-12-25", DayNumber: 3}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	assert.Equal(t, []string{"2025-12-20", "2025-12-21"}, itineraryDates(outcome.Plan.Itinerary))
}

func TestEditorRemoveDayNotFoundKeepsPlanUntouched(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryRemove, TargetDate: "2026-01-01"}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	assert.False(t, outcome.Changed)
	assert.Contains(t, outcome.Message, "couldn't find that day")
	assert.Equal(t, priorPlan(), outcome.Plan)
}

func TestEditorRegeneratesSingleDay(t *testing.T) {
	stub := &stubAgents{builtDay: models.Day{Blocks: []models.Block{
		{TimeLabel: "morning", Activities: []models.Activity{
			{Name: "Fresh pick", Category: models.CategoryAttraction},
		}},
	}}}
	editor := testEditor(stub, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryDay, DayNumber: 2}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	require.Len(t, outcome.Plan.Itinerary, 3)
	rebuilt := outcome.Plan.Itinerary[1]
	assert.Equal(t, "2025-12-21", rebuilt.Date)
	assert.Equal(t, "Fresh pick", rebuilt.Blocks[0].Activities[0].Name)

	// Days around the rebuilt one are untouched.
	assert.Equal(t, "Attraction 2025-12-20", outcome.Plan.Itinerary[0].Blocks[0].Activities[0].Name)
	assert.Equal(t, "Attraction 2025-12-22", outcome.Plan.Itinerary[2].Blocks[0].Activities[0].Name)

	// Names from the other days are excluded from reuse; the rebuilt day's
	// own names are not.
	assert.True(t, stub.lastUsed.Activities["attraction 2025-12-20"])
	assert.True(t, stub.lastUsed.Activities["attraction 2025-12-22"])
	assert.False(t, stub.lastUsed.Activities["attraction 2025-12-21"])
	assert.True(t, stub.lastUsed.Restaurants["restaurant 2025-12-20"])
}

func TestEditorRegenerateDayOutOfRange(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryDay, DayNumber: 9}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	assert.False(t, outcome.Changed)
	assert.Equal(t, priorPlan(), outcome.Plan)
}

func TestEditorRegenerateFailureReturnsOriginal(t *testing.T) {
	stub := &stubAgents{daysErr: errStub}
	editor := testEditor(stub, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryDay, DayNumber: 2}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	assert.False(t, outcome.Changed)
	assert.Equal(t, priorPlan(), outcome.Plan)
	assert.NotEmpty(t, outcome.Message)
}

func TestEditorActivityEditRegeneratesWholeDay(t *testing.T) {
	stub := &stubAgents{builtDay: models.Day{Blocks: []models.Block{
		{TimeLabel: "morning", Activities: []models.Activity{
			{Name: "Fresh pick", Category: models.CategoryAttraction},
		}},
	}}}
	editor := testEditor(stub, failingCaller())
	intent := models.EditIntent{
		Type:         models.EditItineraryActivity,
		DayNumber:    2,
		ActivityName: "Experience 2025-12-21",
	}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	assert.Equal(t, 1, stub.buildDayCalls)
	assert.Equal(t, "Fresh pick", outcome.Plan.Itinerary[1].Blocks[0].Activities[0].Name)
}

func TestEditorActivityEditNeedsDayAndName(t *testing.T) {
	stub := &stubAgents{}
	editor := testEditor(stub, failingCaller())
	intent := models.EditIntent{Type: models.EditItineraryActivity}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	assert.False(t, outcome.Changed)
	assert.Contains(t, outcome.Message, "Which day")
	assert.Equal(t, 0, stub.buildDayCalls)
}

func TestEditorSwapsBlocksBetweenDays(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{
		Type:         models.EditItinerarySwap,
		ActivityName: "Experience 2025-12-20",
		SourceDay:    1,
		TargetDay:    3,
	}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	day1 := outcome.Plan.Itinerary[0]
	day3 := outcome.Plan.Itinerary[2]
	assert.Equal(t, "Experience 2025-12-22", day1.Blocks[1].Activities[0].Name)
	assert.Equal(t, "Experience 2025-12-20", day3.Blocks[1].Activities[0].Name)

	// Non-matching blocks stay put.
	assert.Equal(t, "Attraction 2025-12-20", day1.Blocks[0].Activities[0].Name)
	assert.Equal(t, "Restaurant 2025-12-22", day3.Blocks[2].Activities[0].Name)
}

func TestEditorSwapUnknownActivityAsksForClarification(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{
		Type:         models.EditItinerarySwap,
		ActivityName: "Sky Jump",
		SourceDay:    1,
		TargetDay:    2,
	}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	assert.False(t, outcome.Changed)
	assert.Contains(t, outcome.Message, "couldn't find that activity")
	assert.Equal(t, priorPlan(), outcome.Plan)
}

func TestEditorSwapWithoutActivityAsksForClarification(t *testing.T) {
	editor := testEditor(&stubAgents{}, failingCaller())
	intent := models.EditIntent{Type: models.EditItinerarySwap, SourceDay: 1, TargetDay: 2}

	outcome := editor.Apply(context.Background(), priorPlan(), intent, "", time.Time{}, NewEmitter(&capturingSink{}))

	assert.False(t, outcome.Changed)
	assert.Contains(t, outcome.Message, "Which activity")
}

func TestEditorDatesEditCanMakeTripOneWay(t *testing.T) {
	stub := &stubAgents{
		flights: []models.Flight{{Airline: "ANA"}},
		hotels:  []models.Hotel{{Name: "Aman Tokyo"}},
	}
	editor := testEditor(stub, failingCaller())
	today := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	intent := models.EditIntent{Type: models.EditDates}

	outcome := editor.Apply(context.Background(), priorPlan(), intent,
		"change my departure, fly out march 5 instead", today, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	assert.Equal(t, "2025-03-05", outcome.Plan.Request.DepartDate)
	assert.Empty(t, outcome.Plan.Request.ReturnDate)

	// Everything but the dates survives from the existing trip.
	assert.Equal(t, "Tokyo", outcome.Plan.Request.Destination)
	assert.Equal(t, "Lisbon", outcome.Plan.Request.Origin)
	assert.Equal(t, 2, outcome.Plan.Request.AdultCount)

	// One-way trips carry no itinerary and the itinerary agent never runs.
	assert.Empty(t, outcome.Plan.Itinerary)
	assert.Equal(t, 0, stub.itineraryCalls)
	assert.Equal(t, 1, stub.flightCalls)
	assert.Equal(t, 1, stub.hotelCalls)
	assert.Equal(t, []models.Flight{{Airline: "ANA"}}, outcome.Plan.Flights)
}

func TestEditorDatesEditRerunsItineraryWhenRoundTrip(t *testing.T) {
	stub := &stubAgents{
		flights: []models.Flight{{Airline: "ANA"}},
		hotels:  []models.Hotel{{Name: "Aman Tokyo"}},
		days:    sampleDays("2025-12-18", "2025-12-19"),
	}
	editor := testEditor(stub, failingCaller())
	today := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	intent := models.EditIntent{Type: models.EditDates}

	outcome := editor.Apply(context.Background(), priorPlan(), intent,
		"change the dates: 18 december and 19 december", today, NewEmitter(&capturingSink{}))

	require.True(t, outcome.Changed)
	assert.Equal(t, "2025-12-18", outcome.Plan.Request.DepartDate)
	assert.Equal(t, "2025-12-19", outcome.Plan.Request.ReturnDate)
	assert.Equal(t, 1, stub.itineraryCalls)
	assert.Equal(t, []string{"2025-12-18", "2025-12-19"}, itineraryDates(outcome.Plan.Itinerary))
}
