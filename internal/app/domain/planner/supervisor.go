package planner

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/agents"
	"github.com/FACorreiaa/plangenie/internal/app/models"
)

// FlightSearcher is the flight search collaborator.
type FlightSearcher interface {
	SearchFlights(ctx context.Context, req models.TripRequest) ([]models.Flight, error)
}

// HotelSearcher is the hotel search collaborator.
type HotelSearcher interface {
	SearchHotels(ctx context.Context, req models.TripRequest) ([]models.Hotel, string, error)
}

// ItineraryBuilder plans whole itineraries and regenerates single days.
type ItineraryBuilder interface {
	PlanDays(ctx context.Context, req models.TripRequest, onDay func(days []models.Day)) ([]models.Day, error)
	BuildDay(ctx context.Context, req models.TripRequest, date string, used agents.UsedNames) (models.Day, error)
}

// Supervisor runs the requested sub-agents concurrently. Each agent's
// failure is isolated into an error-wrapped result for its key; each
// agent streams its segment the moment it completes.
type Supervisor struct {
	flights   FlightSearcher
	hotels    HotelSearcher
	itinerary ItineraryBuilder
	logger    *zap.Logger
}

func NewSupervisor(flights FlightSearcher, hotels HotelSearcher, itinerary ItineraryBuilder, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		flights:   flights,
		hotels:    hotels,
		itinerary: itinerary,
		logger:    logger,
	}
}

// Run launches one worker per requested component and collects their
// results. No ordering is guaranteed between agents.
func (s *Supervisor) Run(ctx context.Context, req models.TripRequest, components []models.Component, em *Emitter) map[models.Component]models.AgentResult {
	ctx, span := otel.Tracer("PlanSupervisor").Start(ctx, "Run", trace.WithAttributes(
		attribute.Int("agents.count", len(components)),
	))
	defer span.End()

	resultCh := make(chan models.AgentResult, len(components))

	var wg sync.WaitGroup
	for _, component := range components {
		wg.Add(1)
		go func(component models.Component) {
			defer wg.Done()
			resultCh <- s.runAgent(ctx, component, req, em)
		}(component)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[models.Component]models.AgentResult, len(components))
	failures := 0
	for result := range resultCh {
		if result.Err != "" {
			failures++
		}
		results[result.Component] = result
	}

	span.SetAttributes(attribute.Int("agents.failed", failures))
	span.SetStatus(codes.Ok, "Agent execution completed")
	return results
}

// runAgent executes one agent, converting panics and errors into an
// error-wrapped result so siblings are never affected.
func (s *Supervisor) runAgent(ctx context.Context, component models.Component, req models.TripRequest, em *Emitter) (result models.AgentResult) {
	ctx, span := otel.Tracer("PlanSupervisor").Start(ctx, "runAgent", trace.WithAttributes(
		attribute.String("agent.name", string(component)),
	))
	defer span.End()

	result = models.AgentResult{Component: component}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("agent %s panicked: %v", component, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Agent panicked")
			s.logger.Error("Agent panicked", zap.String("agent", string(component)), zap.Any("panic", r))
			result = models.AgentResult{Component: component, Err: err.Error()}
		}
	}()

	switch component {
	case models.ComponentFlights:
		flights, err := s.flights.SearchFlights(ctx, req)
		if err != nil {
			return s.failed(span, component, err)
		}
		result.Flights = flights
		em.Emit(models.SegmentFlights, flights)

	case models.ComponentHotels:
		hotels, reasoning, err := s.hotels.SearchHotels(ctx, req)
		if err != nil {
			return s.failed(span, component, err)
		}
		result.Hotels = hotels
		result.HotelReasoning = reasoning
		em.Emit(models.SegmentHotels, hotels)

	case models.ComponentItinerary:
		days, err := s.itinerary.PlanDays(ctx, req, func(days []models.Day) {
			em.Emit(models.SegmentItinerary, days)
		})
		if err != nil {
			return s.failed(span, component, err)
		}
		result.Days = days

	default:
		return s.failed(span, component, fmt.Errorf("unknown agent %q", component))
	}

	span.SetStatus(codes.Ok, "Agent completed")
	return result
}

func (s *Supervisor) failed(span trace.Span, component models.Component, err error) models.AgentResult {
	span.RecordError(err)
	span.SetStatus(codes.Error, "Agent failed")
	s.logger.Warn("Agent failed", zap.String("agent", string(component)), zap.Error(err))
	return models.AgentResult{Component: component, Err: err.Error()}
}
