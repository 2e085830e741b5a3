package planner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/agents"
	"github.com/FACorreiaa/plangenie/internal/app/domain/trip"
	"github.com/FACorreiaa/plangenie/internal/app/models"
)

// EditOutcome is what applying an edit produced. Message carries a
// clarification or explanation to stream; when Changed is false the plan
// is the pre-edit plan, untouched.
type EditOutcome struct {
	Plan    models.Plan
	Message string
	Changed bool
}

// Editor applies scoped mutations to an existing plan. Unresolvable
// targets are explicit not-found outcomes, never panics, and any failure
// mid-mutation returns the pre-edit plan unchanged.
type Editor struct {
	normalizer *trip.Normalizer
	supervisor *Supervisor
	assembler  *Assembler
	itinerary  ItineraryBuilder
	logger     *zap.Logger
}

func NewEditor(normalizer *trip.Normalizer, supervisor *Supervisor, assembler *Assembler, itinerary ItineraryBuilder, logger *zap.Logger) *Editor {
	return &Editor{
		normalizer: normalizer,
		supervisor: supervisor,
		assembler:  assembler,
		itinerary:  itinerary,
		logger:     logger,
	}
}

// Apply dispatches on the edit intent and returns the resulting plan.
// Only sections implicated by the edit are regenerated; the summary is
// refreshed after any successful mutation.
func (e *Editor) Apply(ctx context.Context, prior models.Plan, intent models.EditIntent, message string, today time.Time, em *Emitter) EditOutcome {
	working := prior.Clone()

	var outcome EditOutcome
	switch intent.Type {
	case models.EditDates:
		outcome = e.applyDates(ctx, working, message, today, em)
	case models.EditFlights:
		outcome = e.applyComponent(ctx, working, message, today, models.ComponentFlights, em)
	case models.EditHotels:
		outcome = e.applyComponent(ctx, working, message, today, models.ComponentHotels, em)
	case models.EditItineraryRemove:
		outcome = e.applyRemoveDay(working, intent)
	case models.EditItineraryDay:
		outcome = e.applyRegenerateDay(ctx, working, intent.DayNumber)
	case models.EditItineraryActivity:
		if intent.DayNumber < 1 || intent.ActivityName == "" {
			return EditOutcome{
				Plan:    prior,
				Message: "Which day and which activity would you like changed? For example: \"replace the temple visit on day 2\".",
			}
		}
		outcome = e.applyRegenerateDay(ctx, working, intent.DayNumber)
	case models.EditItinerarySwap:
		outcome = e.applySwap(working, intent)
	default:
		return EditOutcome{Plan: prior, Message: "I wasn't sure what to change, so I left your plan as it is."}
	}

	if !outcome.Changed {
		// Resolution failures return the untouched original, never a
		// partially mutated clone.
		outcome.Plan = prior
		return outcome
	}

	outcome.Plan.Summary = e.assembler.Summarize(ctx, &outcome.Plan)
	outcome.Plan.Meta.GeneratedAt = time.Now().UTC()
	return outcome
}

// mergeRequest layers newly extracted fields onto the existing request:
// explicit new values override, absent values preserve what the trip
// already knows.
func mergeRequest(existing, derived models.TripRequest) models.TripRequest {
	merged := derived
	if merged.Origin == "" {
		merged.Origin = existing.Origin
	}
	if merged.Destination == "" {
		merged.Destination = existing.Destination
	}
	if merged.DepartDate == "" {
		merged.DepartDate = existing.DepartDate
	}
	if merged.ReturnDate == "" {
		merged.ReturnDate = existing.ReturnDate
	}
	if merged.AdultCount < 1 {
		merged.AdultCount = existing.AdultCount
	}
	if merged.BudgetTier == "" {
		merged.BudgetTier = existing.BudgetTier
	}
	if merged.Preferences == nil {
		merged.Preferences = existing.Preferences
	}
	return merged
}

// mergeDates keeps everything from the existing request except the travel
// dates, which the edit message fully determines. A depart date without a
// return date means the trip became one-way.
func mergeDates(existing, derived models.TripRequest) models.TripRequest {
	merged := existing
	if derived.DepartDate != "" {
		merged.DepartDate = derived.DepartDate
		merged.ReturnDate = derived.ReturnDate
	}
	return merged
}

// applyDates re-derives the request from the edit message, reruns flights
// and hotels unconditionally, and reruns the itinerary only when a return
// date exists. One-way trips carry no itinerary.
func (e *Editor) applyDates(ctx context.Context, working models.Plan, message string, today time.Time, em *Emitter) EditOutcome {
	derived := e.normalizer.Normalize(ctx, message, today)
	working.Request = mergeDates(working.Request, derived)

	components := []models.Component{models.ComponentFlights, models.ComponentHotels}
	if working.Request.ReturnDate != "" {
		components = append(components, models.ComponentItinerary)
	} else {
		working.Itinerary = nil
	}

	results := e.supervisor.Run(ctx, working.Request, components, em)
	e.mergeResults(&working, results, components)
	return EditOutcome{Plan: working, Changed: true}
}

// applyComponent re-derives relevant fields and reruns exactly one agent,
// leaving every other plan section untouched.
func (e *Editor) applyComponent(ctx context.Context, working models.Plan, message string, today time.Time, component models.Component, em *Emitter) EditOutcome {
	derived := e.normalizer.Normalize(ctx, message, today)
	working.Request = mergeRequest(working.Request, derived)

	components := []models.Component{component}
	results := e.supervisor.Run(ctx, working.Request, components, em)
	e.mergeResults(&working, results, components)
	return EditOutcome{Plan: working, Changed: true}
}

func (e *Editor) mergeResults(plan *models.Plan, results map[models.Component]models.AgentResult, components []models.Component) {
	for _, component := range components {
		result, ok := results[component]
		if !ok {
			continue
		}
		if result.Err != "" {
			plan.Errors = append(plan.Errors, models.ErrorItem{Agent: string(component), Message: result.Err})
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
}

// dayRef is an explicit found/not-found day lookup result.
type dayRef struct {
	index int
	found bool
}

func findDayByDate(days []models.Day, date string) dayRef {
	for i, day := range days {
		if day.Date == date {
			return dayRef{index: i, found: true}
		}
	}
	return dayRef{}
}

func dayByNumber(days []models.Day, number int) dayRef {
	if number < 1 || number > len(days) {
		return dayRef{}
	}
	return dayRef{index: number - 1, found: true}
}

// applyRemoveDay resolves the target by exact date first, then by 1-based
// day number, and removes exactly one day preserving the order of the
// rest. An unresolvable target is non-fatal.
func (e *Editor) applyRemoveDay(working models.Plan, intent models.EditIntent) EditOutcome {
	ref := dayRef{}
	if intent.TargetDate != "" {
		ref = findDayByDate(working.Itinerary, intent.TargetDate)
	}
	if !ref.found && intent.DayNumber > 0 {
		ref = dayByNumber(working.Itinerary, intent.DayNumber)
	}
	if !ref.found {
		e.logger.Warn("Day removal target not found",
			zap.String("target_date", intent.TargetDate),
			zap.Int("day_number", intent.DayNumber))
		return EditOutcome{Message: "I couldn't find that day in your itinerary, so nothing was changed."}
	}

	working.Itinerary = append(working.Itinerary[:ref.index], working.Itinerary[ref.index+1:]...)
	return EditOutcome{Plan: working, Changed: true}
}

// applyRegenerateDay rebuilds one day in place, excluding activity names
// already used by every other day. Restaurants are tracked separately.
func (e *Editor) applyRegenerateDay(ctx context.Context, working models.Plan, dayNumber int) EditOutcome {
	ref := dayByNumber(working.Itinerary, dayNumber)
	if !ref.found {
		e.logger.Warn("Day regeneration target out of range", zap.Int("day_number", dayNumber))
		return EditOutcome{Message: "That day number isn't in your itinerary, so nothing was changed."}
	}

	used := agents.NewUsedNames()
	for i, day := range working.Itinerary {
		if i == ref.index {
			continue
		}
		used.CollectFrom([]models.Day{day})
	}

	date := working.Itinerary[ref.index].Date
	regenerated, err := e.itinerary.BuildDay(ctx, working.Request, date, used)
	if err != nil {
		e.logger.Error("Day regeneration failed, keeping original plan", zap.Error(err))
		return EditOutcome{Message: "I hit a problem rebuilding that day, so I left your plan as it was."}
	}

	working.Itinerary[ref.index] = regenerated
	return EditOutcome{Plan: working, Changed: true}
}

// applySwap exchanges the time-matched blocks of two days. The activity
// name locates the block within the source day; the target day's block is
// matched by identical time label. Anything unresolvable is a
// clarification, with no mutation.
func (e *Editor) applySwap(working models.Plan, intent models.EditIntent) EditOutcome {
	if intent.ActivityName == "" {
		return EditOutcome{Message: "Which activity should I swap? Name one, for example: \"swap the temple visit between day 2 and day 4\"."}
	}
	source := dayByNumber(working.Itinerary, intent.SourceDay)
	target := dayByNumber(working.Itinerary, intent.TargetDay)
	if !source.found || !target.found {
		return EditOutcome{Message: "I couldn't match those day numbers to your itinerary. Which days should I swap between?"}
	}

	sourceDay := &working.Itinerary[source.index]
	blockIdx := -1
	needle := models.Activity{Name: intent.ActivityName}
	for i, block := range sourceDay.Blocks {
		for _, act := range block.Activities {
			if act.NameKey() == needle.NameKey() {
				blockIdx = i
				break
			}
		}
		if blockIdx != -1 {
			break
		}
	}
	if blockIdx == -1 {
		return EditOutcome{Message: "I couldn't find that activity on the source day, so nothing was swapped."}
	}

	label := sourceDay.Blocks[blockIdx].TimeLabel
	targetDay := &working.Itinerary[target.index]
	targetIdx := -1
	for i, block := range targetDay.Blocks {
		if block.TimeLabel == label {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return EditOutcome{Message: "The other day has no matching " + label + " block, so nothing was swapped."}
	}

	sourceDay.Blocks[blockIdx], targetDay.Blocks[targetIdx] = targetDay.Blocks[targetIdx], sourceDay.Blocks[blockIdx]
	return EditOutcome{Plan: working, Changed: true}
}
