package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/domain/trip"
	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

// PlanRepository is the persistence collaborator: one plan per thread,
// read fresh at the start of each turn, last write wins.
type PlanRepository interface {
	LoadLatest(ctx context.Context, threadID string) (*models.Plan, error)
	Save(ctx context.Context, threadID string, plan models.Plan, userMessage, assistantMessage string) error
}

// Orchestrator drives one conversation turn end to end: classify, extract,
// select, supervise agents (or edit), assemble, persist and stream.
type Orchestrator struct {
	ai         llm.Caller
	normalizer *trip.Normalizer
	classifier *trip.Classifier
	selector   *trip.Selector
	supervisor *Supervisor
	assembler  *Assembler
	editor     *Editor
	repo       PlanRepository
	logger     *zap.Logger

	now func() time.Time
}

func NewOrchestrator(
	ai llm.Caller,
	normalizer *trip.Normalizer,
	classifier *trip.Classifier,
	selector *trip.Selector,
	supervisor *Supervisor,
	assembler *Assembler,
	editor *Editor,
	repo PlanRepository,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		ai:         ai,
		normalizer: normalizer,
		classifier: classifier,
		selector:   selector,
		supervisor: supervisor,
		assembler:  assembler,
		editor:     editor,
		repo:       repo,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessMessage handles one user message for a thread, pushing segments
// to the sink as work progresses. It never surfaces a raw failure to the
// client: unexpected panics become a single error segment.
func (o *Orchestrator) ProcessMessage(ctx context.Context, threadID, message string, sink Sink) {
	ctx, span := otel.Tracer("Orchestrator").Start(ctx, "ProcessMessage", trace.WithAttributes(
		attribute.String("thread.id", threadID),
		attribute.Int("message.length", len(message)),
	))
	defer span.End()

	em := NewEmitter(sink)
	var progress *ProgressReporter

	defer func() {
		if r := recover(); r != nil {
			if progress != nil {
				progress.Abort()
			}
			span.SetStatus(codes.Error, "Orchestration panicked")
			o.logger.Error("Orchestration failed", zap.String("thread_id", threadID), zap.Any("panic", r))
			em.Emit(models.SegmentError, "Something went wrong while planning your trip. Please try again.")
			em.EmitFinal(models.SegmentDone, nil)
		}
	}()

	today := o.now()

	prior, err := o.repo.LoadLatest(ctx, threadID)
	if err != nil {
		o.logger.Warn("Loading prior plan failed, treating as absent",
			zap.String("thread_id", threadID), zap.Error(err))
		prior = nil
	}

	classification := o.classifier.Classify(ctx, message, prior, today)
	if !classification.TravelRelated {
		em.Text(o.nonTravelReply(ctx, message))
		em.EmitFinal(models.SegmentDone, nil)
		return
	}

	if prior != nil && classification.Edit.Type != models.EditNone && classification.Edit.Type != models.EditFull {
		o.processEdit(ctx, threadID, message, *prior, classification.Edit, today, em)
		return
	}

	o.processFresh(ctx, threadID, message, prior, today, em, &progress)
}

func (o *Orchestrator) processEdit(ctx context.Context, threadID, message string, prior models.Plan, intent models.EditIntent, today time.Time, em *Emitter) {
	outcome := o.editor.Apply(ctx, prior, intent, message, today, em)
	if outcome.Message != "" {
		em.Text(outcome.Message)
	}

	if outcome.Changed {
		em.Emit(models.SegmentItinerary, outcome.Plan.Itinerary)
		em.Emit(models.SegmentSummary, outcome.Plan.Summary)
		if err := o.repo.Save(ctx, threadID, outcome.Plan, message, outcome.Plan.Summary); err != nil {
			o.logger.Error("Saving edited plan failed", zap.String("thread_id", threadID), zap.Error(err))
		}
	}
	em.EmitFinal(models.SegmentDone, nil)
}

func (o *Orchestrator) processFresh(ctx context.Context, threadID, message string, prior *models.Plan, today time.Time, em *Emitter, progress **ProgressReporter) {
	req := o.normalizer.Normalize(ctx, message, today)
	if prior != nil {
		req = mergeRequest(prior.Request, req)
	}

	components := o.selector.Select(ctx, message)
	if missing := o.selector.MissingFields(req, components); len(missing) > 0 {
		em.Text(o.selector.Clarification(ctx, req, missing))
		em.EmitFinal(models.SegmentDone, nil)
		return
	}

	p := StartProgress(ctx, em, components)
	*progress = p

	results := o.supervisor.Run(ctx, req, components, em)

	// Cancellation is awaited so no stray progress message can land after
	// the summary.
	p.Stop()
	*progress = nil

	em.Text("Finalizing your plan...")
	plan := o.assembler.Assemble(ctx, req, results, components)
	em.Emit(models.SegmentSummary, plan.Summary)

	if err := o.repo.Save(ctx, threadID, plan, message, plan.Summary); err != nil {
		o.logger.Error("Saving plan failed", zap.String("thread_id", threadID), zap.Error(err))
	}
	em.EmitFinal(models.SegmentDone, nil)
}

// nonTravelReply answers briefly and redirects toward trip planning, with
// a template fallback when the LLM is unavailable.
func (o *Orchestrator) nonTravelReply(ctx context.Context, message string) string {
	prompt := fmt.Sprintf("Answer the user's message in one short sentence, then remind them that you are a trip-planning assistant and can help with flights, hotels and itineraries.\n\nMessage: %q", message)
	response, err := o.ai.Generate(ctx, llm.RoleOrchestrator, prompt)
	if err != nil || strings.TrimSpace(response) == "" {
		return "I'm a trip-planning assistant. Ask me about flights, hotels or an itinerary and I'll put a plan together."
	}
	return strings.TrimSpace(response)
}

// GenerateTitle produces a short chat title for a thread's first message,
// with a deterministic truncation fallback.
func (o *Orchestrator) GenerateTitle(ctx context.Context, message string) string {
	prompt := fmt.Sprintf("Create a title of at most five words for a travel chat that starts with this message. Respond with the title only.\n\nMessage: %q", message)
	response, err := o.ai.Generate(ctx, llm.RoleOrchestrator, prompt)
	if err == nil {
		if title := strings.Trim(strings.TrimSpace(response), `"`); title != "" {
			return title
		}
	}

	words := strings.Fields(message)
	if len(words) > 6 {
		words = words[:6]
	}
	if len(words) == 0 {
		return "New trip"
	}
	return strings.Join(words, " ")
}
