// Package routes wires the dependency graph and mounts the API routes.
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/agents"
	"github.com/FACorreiaa/plangenie/internal/app/domain/planner"
	"github.com/FACorreiaa/plangenie/internal/app/domain/trip"
	"github.com/FACorreiaa/plangenie/internal/app/handlers"
	"github.com/FACorreiaa/plangenie/internal/app/memory"
	"github.com/FACorreiaa/plangenie/internal/app/streaming"
	"github.com/FACorreiaa/plangenie/internal/pkg/config"
	"github.com/FACorreiaa/plangenie/internal/pkg/llm"
)

const (
	janitorInterval = 5 * time.Minute
	sessionMaxAge   = 30 * time.Minute
)

// Setup builds every service from configuration and mounts the routes.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) error {
	pool, err := llm.NewKeyPool(cfg.Gemini.Keys)
	if err != nil {
		return errors.Wrap(err, "building LLM key pool")
	}
	ai := llm.NewClient(pool, logger)

	serp := agents.NewSerpAPIClient(cfg.Search.SerpAPIKey, logger)
	tavily := agents.NewTavilyClient(cfg.Search.TavilyKey, logger)
	itinerary := agents.NewItineraryPlanner(tavily, logger)

	normalizer := trip.NewNormalizer(ai, logger)
	classifier := trip.NewClassifier(ai, normalizer, logger)
	selector := trip.NewSelector(ai, logger)

	supervisor := planner.NewSupervisor(serp, serp, itinerary, logger)
	assembler := planner.NewAssembler(ai, logger)
	editor := planner.NewEditor(normalizer, supervisor, assembler, itinerary, logger)

	store := memory.NewPlanStore(dbPool, logger)
	orchestrator := planner.NewOrchestrator(
		ai, normalizer, classifier, selector, supervisor, assembler, editor, store, logger)

	streams := streaming.NewManager(logger)
	streams.StartJanitor(context.Background(), janitorInterval, sessionMaxAge)

	chat := handlers.NewChatHandlers(orchestrator, streams, store, logger)
	health := handlers.NewHealthHandler(dbPool, logger)

	api := r.Group("/api")
	{
		api.GET("/health", health.Health)

		chatGroup := api.Group("/chat")
		{
			chatGroup.POST("/message/stream", chat.StartMessage)
			chatGroup.GET("/stream/:sessionId", chat.StreamEvents)
			chatGroup.GET("/plan/:threadId", chat.GetPlan)
			chatGroup.GET("/title/:threadId", chat.GetTitle)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		logger.Info("404 - route not found",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("ip", c.ClientIP()),
		)
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return nil
}
