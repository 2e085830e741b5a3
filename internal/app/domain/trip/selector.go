package trip

import (
	"context"
	"fmt"
	"strings"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

var flightKeywords = []string{"flight", "flights", "fly", "flying", "airfare", "plane", "airline"}

var hotelKeywords = []string{"hotel", "hotels", "stay", "accommodation", "accommodations", "lodging", "airbnb", "hostel"}

var itineraryKeywords = []string{"itinerary", "activities", "things to do", "schedule", "attractions", "restaurants", "sightseeing", "day plan"}

var fullPlanPhrases = []string{"full plan", "entire trip", "complete plan", "whole trip", "plan everything", "full trip", "everything"}

var onlyQualifiers = []string{"only", "just"}

// Missing-field identifiers surfaced to the clarification step.
const (
	FieldDestination = "destination"
	FieldDepartDate  = "depart_date"
	FieldOrigin      = "origin"
	FieldReturnOrLen = "return_date_or_trip_length"
)

// Selector decides which sub-agents a message asks for and which required
// fields are still missing before any agent may launch.
type Selector struct {
	ai     llm.Caller
	logger *zap.Logger

	flightAC    ahocorasick.AhoCorasick
	hotelAC     ahocorasick.AhoCorasick
	itineraryAC ahocorasick.AhoCorasick
	fullPlanAC  ahocorasick.AhoCorasick
	onlyAC      ahocorasick.AhoCorasick
}

func NewSelector(ai llm.Caller, logger *zap.Logger) *Selector {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	return &Selector{
		ai:          ai,
		logger:      logger,
		flightAC:    builder.Build(flightKeywords),
		hotelAC:     builder.Build(hotelKeywords),
		itineraryAC: builder.Build(itineraryKeywords),
		fullPlanAC:  builder.Build(fullPlanPhrases),
		onlyAC:      builder.Build(onlyQualifiers),
	}
}

var allComponents = []models.Component{models.ComponentFlights, models.ComponentHotels, models.ComponentItinerary}

// Select returns the requested component set in fixed order. Precedence,
// first match wins: full-plan phrasing; "only"/"just" with exactly one
// keyword set; "only"/"just" with several sets (delegated to a single-word
// classifier); exactly two sets; exactly one set; default all three.
func (s *Selector) Select(ctx context.Context, message string) []models.Component {
	if len(s.fullPlanAC.FindAll(message)) > 0 {
		return allComponents
	}

	var present []models.Component
	if len(s.flightAC.FindAll(message)) > 0 {
		present = append(present, models.ComponentFlights)
	}
	if len(s.hotelAC.FindAll(message)) > 0 {
		present = append(present, models.ComponentHotels)
	}
	if len(s.itineraryAC.FindAll(message)) > 0 {
		present = append(present, models.ComponentItinerary)
	}

	if len(s.onlyAC.FindAll(message)) > 0 {
		if len(present) == 1 {
			return present
		}
		if len(present) > 1 {
			return s.llmComponentPick(ctx, message)
		}
	}

	switch len(present) {
	case 1, 2:
		return present
	default:
		return allComponents
	}
}

func (s *Selector) llmComponentPick(ctx context.Context, message string) []models.Component {
	prompt := fmt.Sprintf("Which single part of a trip plan is this message asking for? Answer with exactly one word from: FLIGHTS, HOTELS, ITINERARY, ALL.\n\nMessage: %q", message)
	response, err := s.ai.Generate(ctx, llm.RoleOrchestrator, prompt)
	if err != nil {
		s.logger.Warn("Component classification call failed, defaulting to all components", zap.Error(err))
		return allComponents
	}
	switch strings.ToUpper(strings.TrimSpace(response)) {
	case string(models.ComponentFlights):
		return []models.Component{models.ComponentFlights}
	case string(models.ComponentHotels):
		return []models.Component{models.ComponentHotels}
	case string(models.ComponentItinerary):
		return []models.Component{models.ComponentItinerary}
	default:
		return allComponents
	}
}

// MissingFields reports, in stable order, the required fields still absent
// for the requested components. An empty result means agents may launch.
func (s *Selector) MissingFields(req models.TripRequest, components []models.Component) []string {
	var missing []string
	add := func(field string) {
		for _, f := range missing {
			if f == field {
				return
			}
		}
		missing = append(missing, field)
	}

	for _, c := range components {
		switch c {
		case models.ComponentFlights:
			if req.Destination == "" {
				add(FieldDestination)
			}
			if req.DepartDate == "" {
				add(FieldDepartDate)
			}
			if req.Origin == "" {
				add(FieldOrigin)
			}
		case models.ComponentHotels:
			if req.Destination == "" {
				add(FieldDestination)
			} else if req.DepartDate == "" {
				add(FieldDepartDate)
			}
		case models.ComponentItinerary:
			if req.Destination == "" {
				add(FieldDestination)
			} else if req.DepartDate == "" {
				add(FieldDepartDate)
			} else if req.ReturnDate == "" {
				if _, ok := req.TripLength(); !ok {
					add(FieldReturnOrLen)
				}
			}
		}
	}
	return missing
}

var clarificationTemplates = map[string]string{
	FieldDestination: "Where would you like to go?",
	FieldDepartDate:  "When would you like to depart?",
	FieldOrigin:      "Where will you be traveling from?",
	FieldReturnOrLen: "When will you be returning, or how many days should the trip last?",
}

// Clarification produces one question covering the missing fields, via the
// LLM with a deterministic template fallback keyed by the first gap.
func (s *Selector) Clarification(ctx context.Context, req models.TripRequest, missing []string) string {
	if len(missing) == 0 {
		return ""
	}

	prompt := fmt.Sprintf("You are a travel assistant. The user wants a trip to %q but has not provided: %s. Ask one short friendly question to collect the missing details.",
		req.Destination, strings.Join(missing, ", "))
	response, err := s.ai.Generate(ctx, llm.RoleOrchestrator, prompt)
	if err == nil {
		if response = strings.TrimSpace(response); response != "" {
			return response
		}
	} else {
		s.logger.Warn("Clarification call failed, using template", zap.Error(err))
	}

	if q, ok := clarificationTemplates[missing[0]]; ok {
		return q
	}
	return "Could you share a few more details about your trip?"
}
