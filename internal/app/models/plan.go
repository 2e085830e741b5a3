package models

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Component identifies one of the plan sub-agents.
type Component string

const (
	ComponentFlights   Component = "FLIGHTS"
	ComponentHotels    Component = "HOTELS"
	ComponentItinerary Component = "ITINERARY"
)

// BudgetTier buckets the user's stated budget.
type BudgetTier string

const (
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

// TripRequest is the canonical structured form of a user's travel ask.
// Empty strings mean the information is absent, not invalid; an empty
// ReturnDate means a one-way trip. Dates are always YYYY-MM-DD.
type TripRequest struct {
	Origin      string         `json:"origin,omitempty"`
	Destination string         `json:"destination,omitempty"`
	DepartDate  string         `json:"depart_date,omitempty"`
	ReturnDate  string         `json:"return_date,omitempty"`
	AdultCount  int            `json:"adult_count"`
	ChildCount  int            `json:"child_count"`
	BudgetTier  BudgetTier     `json:"budget_tier,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// TripLength returns the trip_length preference in days, if set.
func (r TripRequest) TripLength() (int, bool) {
	if r.Preferences == nil {
		return 0, false
	}
	switch v := r.Preferences["trip_length"].(type) {
	case int:
		return v, v > 0
	case float64:
		return int(v), v > 0
	default:
		return 0, false
	}
}

// Flight is one flight option as returned by the flight search agent.
type Flight struct {
	Airline       string `json:"airline"`
	Price         string `json:"price,omitempty"`
	DepartureTime string `json:"departure_time,omitempty"`
	ArrivalTime   string `json:"arrival_time,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Stops         int    `json:"stops"`
}

// Hotel is one hotel option as returned by the hotel search agent.
type Hotel struct {
	Name          string `json:"name"`
	PricePerNight string `json:"price_per_night,omitempty"`
	Rating        string `json:"rating,omitempty"`
	Link          string `json:"link,omitempty"`
}

// ActivityCategory distinguishes restaurants from everything else for
// used-name tracking during day regeneration.
type ActivityCategory string

const (
	CategoryAttraction ActivityCategory = "attraction"
	CategoryRestaurant ActivityCategory = "restaurant"
	CategoryExperience ActivityCategory = "experience"
)

// Activity is a single thing to do inside a time block.
type Activity struct {
	Name        string           `json:"name"`
	Category    ActivityCategory `json:"category"`
	Description string           `json:"description,omitempty"`
	MapLink     string           `json:"map_link,omitempty"`
}

// NameKey is the lower-cased trimmed form used when tracking which
// activity names are already taken across days.
func (a Activity) NameKey() string {
	return strings.ToLower(strings.TrimSpace(a.Name))
}

// Block groups activities under a time-of-day label. Blocks are matched
// across days by identical label when swapping.
type Block struct {
	TimeLabel  string     `json:"time_label"`
	Activities []Activity `json:"activities"`
}

// Day is one itinerary day. Date is unique within an itinerary and is the
// primary key for removal and lookup.
type Day struct {
	Date   string  `json:"date"`
	Blocks []Block `json:"blocks"`
}

// ErrorItem records a single agent failure. Items are appended alongside
// successful partial results, never replacing them.
type ErrorItem struct {
	Agent   string `json:"agent"`
	Message string `json:"message"`
}

// Meta carries plan generation metadata.
type Meta struct {
	GeneratedAt time.Time `json:"generated_at"`
	Sources     []string  `json:"sources"`
}

// Plan is the unit of persistence: one per conversation thread, replaced
// wholesale on fresh generation, mutated in place on edits.
type Plan struct {
	Request        TripRequest `json:"request"`
	Flights        []Flight    `json:"flights"`
	Hotels         []Hotel     `json:"hotels"`
	HotelReasoning string      `json:"hotel_reasoning,omitempty"`
	Itinerary      []Day       `json:"itinerary"`
	Summary        string      `json:"summary,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	Errors         []ErrorItem `json:"errors,omitempty"`
	Meta           Meta        `json:"meta"`
}

// Clone deep-copies the plan so edits never leak into the persisted
// original before they succeed.
func (p Plan) Clone() Plan {
	out := p
	out.Request.Preferences = maps.Clone(p.Request.Preferences)
	out.Flights = slices.Clone(p.Flights)
	out.Hotels = slices.Clone(p.Hotels)
	out.Errors = slices.Clone(p.Errors)
	out.Meta.Sources = slices.Clone(p.Meta.Sources)
	out.Itinerary = make([]Day, len(p.Itinerary))
	for i, day := range p.Itinerary {
		out.Itinerary[i] = day.Clone()
	}
	return out
}

// Clone deep-copies a day with its blocks and activities.
func (d Day) Clone() Day {
	out := d
	out.Blocks = make([]Block, len(d.Blocks))
	for i, block := range d.Blocks {
		out.Blocks[i] = Block{
			TimeLabel:  block.TimeLabel,
			Activities: slices.Clone(block.Activities),
		}
	}
	return out
}

// AgentResult is one sub-agent's raw output. Exactly one of the data
// fields is populated depending on which agent produced it; Err is set
// instead when the agent failed.
type AgentResult struct {
	Component      Component `json:"component"`
	Flights        []Flight  `json:"flights,omitempty"`
	Hotels         []Hotel   `json:"hotels,omitempty"`
	HotelReasoning string    `json:"hotel_reasoning,omitempty"`
	Days           []Day     `json:"days,omitempty"`
	Err            string    `json:"error,omitempty"`
}
