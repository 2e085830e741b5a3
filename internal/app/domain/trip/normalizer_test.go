package trip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var assertAnError = errors.New("llm unavailable")

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNormalizeRegexFallback(t *testing.T) {
	logger := zap.NewNop()
	today := date("2025-01-01")

	tests := []struct {
		name    string
		message string
		origin  string
		dest    string
		depart  string
		ret     string
	}{
		{
			name:    "city aliases and month-day form",
			message: "Flight from NYC to LA on Jan 15",
			origin:  "New York",
			dest:    "Los Angeles",
			depart:  "2025-01-15",
		},
		{
			name:    "day-month form with return",
			message: "trip to Tokyo from Paris 22 december and return by 27",
			origin:  "Paris",
			dest:    "Tokyo",
			depart:  "2025-12-22",
			ret:     "2025-12-27",
		},
		{
			name:    "bare return day rolls to next month",
			message: "going to Rome 22 december, return by 2",
			dest:    "Rome",
			depart:  "2025-12-22",
			ret:     "2026-01-02",
		},
		{
			name:    "month typo still parses",
			message: "heading to Lisbon on decemeber 22",
			dest:    "Lisbon",
			depart:  "2025-12-22",
		},
		{
			name:    "no dates is a valid empty result",
			message: "plan a trip to Tokyo",
			dest:    "Tokyo",
		},
		{
			name:    "verb phrase wins over bare to",
			message: "I want to go to Paris on 2025-03-10",
			dest:    "Paris",
			depart:  "2025-03-10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(failingCaller(), logger)
			req := n.Normalize(context.Background(), tt.message, today)

			assert.Equal(t, tt.origin, req.Origin)
			assert.Equal(t, tt.dest, req.Destination)
			assert.Equal(t, tt.depart, req.DepartDate)
			assert.Equal(t, tt.ret, req.ReturnDate)
			assert.GreaterOrEqual(t, req.AdultCount, 1)
		})
	}
}

func TestYearDisambiguation(t *testing.T) {
	n := NewNormalizer(failingCaller(), zap.NewNop())

	// Not yet passed: stays in the current year.
	dates := n.ExtractDates("fly on december 22", date("2025-08-31"))
	assert.Equal(t, []string{"2025-12-22"}, dates)

	// Already passed this year: rolls to next year.
	dates = n.ExtractDates("fly on january 5", date("2025-08-31"))
	assert.Equal(t, []string{"2026-01-05"}, dates)

	// Today itself is not in the past.
	dates = n.ExtractDates("fly on august 31", date("2025-08-31"))
	assert.Equal(t, []string{"2025-08-31"}, dates)
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(failingCaller(), zap.NewNop())
	today := date("2025-06-15")

	first := n.Normalize(context.Background(), "from Lisbon to Rome on july 4, return by 10", today)
	second := n.Normalize(context.Background(), "from Lisbon to Rome on july 4, return by 10", today)
	assert.Equal(t, first, second)
}

func TestNormalizeReturnYearAnchoring(t *testing.T) {
	// Scenario: the extractor hands back a return date whose year lags the
	// departure. The normalizer anchors it to the departure year and
	// advances it one more year since it would still precede departure.
	m := new(MockCaller)
	m.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"origin": "Lisbon", "destination": "Tokyo", "depart_date": "2024-12-12", "return_date": "2024-01-05", "adult_count": 2}`, nil)

	n := NewNormalizer(m, zap.NewNop())
	req := n.Normalize(context.Background(), "trip to Tokyo", date("2024-01-01"))

	assert.Equal(t, "2024-12-12", req.DepartDate)
	assert.Equal(t, "2025-01-05", req.ReturnDate)
	assert.Equal(t, 2, req.AdultCount)
}

func TestNormalizeCanonicalDatesUnchanged(t *testing.T) {
	m := new(MockCaller)
	m.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"destination": "Paris", "depart_date": "2025-03-10", "return_date": "2025-03-20"}`, nil)

	n := NewNormalizer(m, zap.NewNop())
	req := n.Normalize(context.Background(), "anything", date("2025-01-01"))

	assert.Equal(t, "2025-03-10", req.DepartDate)
	assert.Equal(t, "2025-03-20", req.ReturnDate)
}

func TestNormalizeContextLinesWin(t *testing.T) {
	n := NewNormalizer(failingCaller(), zap.NewNop())
	msg := "Origin: lisbon\nDestination: rome\nchange the dates to december 20"

	req := n.Normalize(context.Background(), msg, date("2025-08-31"))
	assert.Equal(t, "Lisbon", req.Origin)
	assert.Equal(t, "Rome", req.Destination)
	assert.Equal(t, "2025-12-20", req.DepartDate)
}

func TestAnchorYearToTrip(t *testing.T) {
	assert.Equal(t, "2024-12-22", AnchorYearToTrip("2025-12-22", "2024-12-20"))
	assert.Equal(t, "2025-12-22", AnchorYearToTrip("2025-12-22", "not-a-date"))
	assert.Equal(t, "garbage", AnchorYearToTrip("garbage", "2024-12-20"))
}
