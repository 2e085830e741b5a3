package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

var planSources = []string{"SerpAPI", "Tavily"}

// Assembler merges agent results into a unified plan and owns summary
// text generation.
type Assembler struct {
	ai     llm.Caller
	logger *zap.Logger
}

func NewAssembler(ai llm.Caller, logger *zap.Logger) *Assembler {
	return &Assembler{ai: ai, logger: logger}
}

// Assemble builds a fresh plan from the agent-result mapping. Only
// requested components carry data; everything else is explicitly empty.
// Each failed agent contributes one error item alongside whatever its
// siblings produced.
func (a *Assembler) Assemble(ctx context.Context, req models.TripRequest, results map[models.Component]models.AgentResult, components []models.Component) models.Plan {
	plan := models.Plan{
		Request: req,
		Meta: models.Meta{
			GeneratedAt: time.Now().UTC(),
			Sources:     planSources,
		},
	}

	for _, component := range components {
		result, ok := results[component]
		if !ok {
			continue
		}
		if result.Err != "" {
			plan.Errors = append(plan.Errors, models.ErrorItem{
				Agent:   string(component),
				Message: result.Err,
			})
			continue
		}
		switch component {
		case models.ComponentFlights:
			plan.Flights = result.Flights
		case models.ComponentHotels:
			plan.Hotels = result.Hotels
			plan.HotelReasoning = result.HotelReasoning
		case models.ComponentItinerary:
			plan.Itinerary = result.Days
		}
	}

	plan.Summary = a.Summarize(ctx, &plan)
	return plan
}

// Summarize produces the plan's narrative summary via the LLM, falling
// back to deterministic status phrases so the summary is never empty.
func (a *Assembler) Summarize(ctx context.Context, plan *models.Plan) string {
	fallback := fallbackSummary(plan)

	prompt := fmt.Sprintf(`Write a short friendly trip summary (2-3 sentences) for the user based on this status: %s
Destination: %s, departing %s, returning %s. Do not invent details.`,
		fallback, plan.Request.Destination, plan.Request.DepartDate, plan.Request.ReturnDate)

	response, err := a.ai.Generate(ctx, llm.RoleSummary, prompt)
	if err != nil {
		a.logger.Warn("Narrative summary call failed, using fallback", zap.Error(err))
		return fallback
	}
	if response = strings.TrimSpace(response); response == "" {
		return fallback
	}
	return response
}

func fallbackSummary(plan *models.Plan) string {
	var parts []string

	if len(plan.Flights) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d flight options", len(plan.Flights)))
	}
	if len(plan.Hotels) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d hotel options", len(plan.Hotels)))
	} else if plan.HotelReasoning != "" {
		parts = append(parts, "Hotels: "+plan.HotelReasoning)
	}
	if len(plan.Itinerary) > 0 {
		parts = append(parts, fmt.Sprintf("Created %d-day itinerary", len(plan.Itinerary)))
	}
	for _, item := range plan.Errors {
		parts = append(parts, fmt.Sprintf("%s failed: %s", item.Agent, item.Message))
	}

	if len(parts) == 0 {
		return "Your plan is ready."
	}
	return strings.Join(parts, ". ")
}
