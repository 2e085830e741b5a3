package trip

import (
	"context"
	"fmt"
	"strings"
	"time"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/pkg/jsonutil"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

// travelKeywords triggers an immediate travel-related verdict without an
// LLM round trip.
var travelKeywords = []string{
	"flight", "flights", "fly", "hotel", "hotels", "trip", "travel",
	"vacation", "holiday", "itinerary", "visit", "book", "destination",
	"tour", "airbnb", "hostel", "getaway",
}

// editKeywords gates whether edit analysis runs at all.
var editKeywords = []string{
	"change", "edit", "update", "modify", "replace", "swap", "remove",
	"delete", "redo", "regenerate", "different", "instead", "instead of",
	"rather than", "block", "skip", "cancel",
}

// removalVerbs combined with a month name synthesize a day removal when
// the edit classifier yields nothing.
var removalVerbs = []string{"block", "remove", "delete", "skip", "cancel"}

var monthKeywords = []string{
	"january", "jan", "february", "feb", "march", "mar", "april", "apr",
	"may", "june", "jun", "july", "jul", "august", "aug", "september",
	"sep", "sept", "october", "oct", "november", "nov", "december", "dec",
}

// Classification is the outcome of intent analysis for one message.
type Classification struct {
	TravelRelated bool
	Edit          models.EditIntent
}

// Classifier decides whether a message is travel-related and, when a plan
// already exists, whether it asks for an edit and of what kind.
type Classifier struct {
	ai         llm.Caller
	normalizer *Normalizer
	logger     *zap.Logger

	travelAC  ahocorasick.AhoCorasick
	editAC    ahocorasick.AhoCorasick
	removalAC ahocorasick.AhoCorasick
	monthAC   ahocorasick.AhoCorasick
}

func NewClassifier(ai llm.Caller, normalizer *Normalizer, logger *zap.Logger) *Classifier {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	return &Classifier{
		ai:         ai,
		normalizer: normalizer,
		logger:     logger,
		travelAC:   builder.Build(travelKeywords),
		editAC:     builder.Build(editKeywords),
		removalAC:  builder.Build(removalVerbs),
		monthAC:    builder.Build(monthKeywords),
	}
}

// Classify runs travel relevance first, then edit detection when a prior
// plan exists. Classifier failures always fall toward the safe default:
// not travel-related, or not an edit.
func (c *Classifier) Classify(ctx context.Context, message string, prior *models.Plan, today time.Time) Classification {
	out := Classification{Edit: models.EditIntent{Type: models.EditNone}}

	if len(c.travelAC.FindAll(message)) > 0 {
		out.TravelRelated = true
	} else {
		out.TravelRelated = c.llmTravelCheck(ctx, message)
	}
	if !out.TravelRelated || prior == nil {
		return out
	}

	if len(c.editAC.FindAll(message)) == 0 {
		return out
	}
	out.Edit = c.classifyEdit(ctx, message, prior, today)
	return out
}

func (c *Classifier) llmTravelCheck(ctx context.Context, message string) bool {
	prompt := fmt.Sprintf("Is the following message about planning or changing travel (flights, hotels, trips, itineraries)? Answer only yes or no.\n\nMessage: %q", message)
	response, err := c.ai.Generate(ctx, llm.RoleOrchestrator, prompt)
	if err != nil {
		c.logger.Warn("Travel relevance call failed, defaulting to not travel-related", zap.Error(err))
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "yes")
}

func editPrompt(planSummary, message string) string {
	return fmt.Sprintf(`A user has an existing trip plan and sent a follow-up message.
Plan summary: %s

Decide what they want changed. Respond ONLY with a JSON object:
{"edit_type": "dates|flights|hotels|itinerary_day|itinerary_remove|itinerary_activity|itinerary_swap|full|none",
 "day_number": null, "target_date": "", "activity_name": "", "source_day": null, "target_day": null}

Message: %q`, planSummary, message)
}

func (c *Classifier) classifyEdit(ctx context.Context, message string, prior *models.Plan, today time.Time) models.EditIntent {
	intent := models.EditIntent{Type: models.EditNone}

	response, err := c.ai.Generate(ctx, llm.RoleOrchestrator, editPrompt(prior.Summary, message))
	if err != nil {
		c.logger.Warn("Edit classification call failed", zap.Error(err))
	} else {
		var rec struct {
			EditType     string `json:"edit_type"`
			DayNumber    any    `json:"day_number"`
			TargetDate   string `json:"target_date"`
			ActivityName string `json:"activity_name"`
			SourceDay    any    `json:"source_day"`
			TargetDay    any    `json:"target_day"`
		}
		if jsonutil.DecodeObject(response, &rec) {
			intent = models.EditIntent{
				Type:         validEditType(rec.EditType),
				DayNumber:    coerceInt(rec.DayNumber),
				TargetDate:   strings.TrimSpace(rec.TargetDate),
				ActivityName: strings.TrimSpace(rec.ActivityName),
				SourceDay:    coerceInt(rec.SourceDay),
				TargetDay:    coerceInt(rec.TargetDay),
			}
		}
	}

	if intent.Type == models.EditNone {
		intent = c.removalFallback(message, prior, today)
	}

	// Bare-day edit targets are anchored to the trip's year, not today's.
	if intent.TargetDate != "" && prior.Request.DepartDate != "" {
		if normalized := c.normalizer.normalizeDateString(intent.TargetDate, today); normalized != "" {
			intent.TargetDate = AnchorYearToTrip(normalized, prior.Request.DepartDate)
		}
	}
	return intent
}

// removalFallback synthesizes an itinerary_remove when the message pairs a
// removal verb with a month name and the classifier produced nothing.
func (c *Classifier) removalFallback(message string, prior *models.Plan, today time.Time) models.EditIntent {
	if len(c.removalAC.FindAll(message)) == 0 || len(c.monthAC.FindAll(message)) == 0 {
		return models.EditIntent{Type: models.EditNone}
	}
	dates := c.normalizer.ExtractDates(message, today)
	if len(dates) == 0 {
		return models.EditIntent{Type: models.EditNone}
	}
	target := dates[0]
	if prior.Request.DepartDate != "" {
		target = AnchorYearToTrip(target, prior.Request.DepartDate)
	}
	return models.EditIntent{Type: models.EditItineraryRemove, TargetDate: target}
}

func validEditType(s string) models.EditType {
	switch t := models.EditType(strings.ToLower(strings.TrimSpace(s))); t {
	case models.EditDates, models.EditFlights, models.EditHotels,
		models.EditItineraryDay, models.EditItineraryRemove,
		models.EditItineraryActivity, models.EditItinerarySwap, models.EditFull:
		return t
	default:
		return models.EditNone
	}
}
