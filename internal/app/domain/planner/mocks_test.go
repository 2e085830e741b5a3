package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/agents"
	"github.com/FACorreiaa/plangenie/internal/app/domain/trip"
	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

var errStub = errors.New("stubbed failure")

// capturingSink records every pushed segment for assertions.
type capturingSink struct {
	mu       sync.Mutex
	segments []models.Segment
}

func (s *capturingSink) Push(segment models.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, segment)
}

func (s *capturingSink) all() []models.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

func (s *capturingSink) byType(segType models.SegmentType) []models.Segment {
	var out []models.Segment
	for _, seg := range s.all() {
		if seg.Type == segType {
			out = append(out, seg)
		}
	}
	return out
}

// MockCaller is a testify mock for the LLM collaborator.
type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Generate(ctx context.Context, role llm.Role, prompt string) (string, error) {
	args := m.Called(ctx, role, prompt)
	return args.String(0), args.Error(1)
}

func failingCaller() *MockCaller {
	m := new(MockCaller)
	m.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errStub)
	return m
}

// stubAgents implements the three agent collaborators with canned data.
type stubAgents struct {
	mu sync.Mutex

	flights    []models.Flight
	flightsErr error
	panicOn    models.Component

	hotels    []models.Hotel
	reasoning string
	hotelsErr error

	days    []models.Day
	daysErr error

	flightCalls    int
	hotelCalls     int
	itineraryCalls int
	buildDayCalls  int
	lastUsed       agents.UsedNames
	builtDay       models.Day
}

func (s *stubAgents) SearchFlights(_ context.Context, _ models.TripRequest) ([]models.Flight, error) {
	s.mu.Lock()
	s.flightCalls++
	s.mu.Unlock()
	if s.panicOn == models.ComponentFlights {
		panic("flight agent exploded")
	}
	return s.flights, s.flightsErr
}

func (s *stubAgents) SearchHotels(_ context.Context, _ models.TripRequest) ([]models.Hotel, string, error) {
	s.mu.Lock()
	s.hotelCalls++
	s.mu.Unlock()
	if s.panicOn == models.ComponentHotels {
		panic("hotel agent exploded")
	}
	return s.hotels, s.reasoning, s.hotelsErr
}

func (s *stubAgents) PlanDays(_ context.Context, _ models.TripRequest, onDay func(days []models.Day)) ([]models.Day, error) {
	s.mu.Lock()
	s.itineraryCalls++
	s.mu.Unlock()
	if s.panicOn == models.ComponentItinerary {
		panic("itinerary agent exploded")
	}
	if s.daysErr != nil {
		return nil, s.daysErr
	}
	if onDay != nil {
		for i := range s.days {
			snapshot := make([]models.Day, i+1)
			copy(snapshot, s.days[:i+1])
			onDay(snapshot)
		}
	}
	return s.days, nil
}

func (s *stubAgents) BuildDay(_ context.Context, _ models.TripRequest, date string, used agents.UsedNames) (models.Day, error) {
	s.mu.Lock()
	s.buildDayCalls++
	s.lastUsed = used
	s.mu.Unlock()
	if s.daysErr != nil {
		return models.Day{}, s.daysErr
	}
	day := s.builtDay
	day.Date = date
	return day, nil
}

// MockRepo is a testify mock for the plan persistence collaborator.
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) LoadLatest(ctx context.Context, threadID string) (*models.Plan, error) {
	args := m.Called(ctx, threadID)
	if plan, ok := args.Get(0).(*models.Plan); ok {
		return plan, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepo) Save(ctx context.Context, threadID string, plan models.Plan, userMessage, assistantMessage string) error {
	args := m.Called(ctx, threadID, plan, userMessage, assistantMessage)
	return args.Error(0)
}

func testSupervisor(stub *stubAgents) *Supervisor {
	return NewSupervisor(stub, stub, stub, zap.NewNop())
}

func testEditor(stub *stubAgents, ai llm.Caller) *Editor {
	logger := zap.NewNop()
	normalizer := trip.NewNormalizer(ai, logger)
	return NewEditor(normalizer, testSupervisor(stub), NewAssembler(ai, logger), stub, logger)
}

func sampleDays(dates ...string) []models.Day {
	days := make([]models.Day, len(dates))
	for i, d := range dates {
		days[i] = models.Day{Date: d, Blocks: []models.Block{
			{TimeLabel: "morning", Activities: []models.Activity{
				{Name: "Attraction " + d, Category: models.CategoryAttraction},
			}},
			{TimeLabel: "afternoon", Activities: []models.Activity{
				{Name: "Experience " + d, Category: models.CategoryExperience},
			}},
			{TimeLabel: "evening", Activities: []models.Activity{
				{Name: "Restaurant " + d, Category: models.CategoryRestaurant},
			}},
		}}
	}
	return days
}
