// Package handlers exposes the HTTP surface: message intake, the SSE
// segment stream and plan retrieval.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/domain/planner"
	"github.com/FACorreiaa/plangenie/internal/app/models"
	"github.com/FACorreiaa/plangenie/internal/app/streaming"
)

const (
	turnTimeout       = 3 * time.Minute
	keepaliveInterval = 15 * time.Second
)

// Orchestrator is the planning collaborator behind the chat endpoints.
type Orchestrator interface {
	ProcessMessage(ctx context.Context, threadID, message string, sink planner.Sink)
	GenerateTitle(ctx context.Context, message string) string
}

// PlanReader serves stored conversation state.
type PlanReader interface {
	LoadLatest(ctx context.Context, threadID string) (*models.Plan, error)
	Title(ctx context.Context, threadID string) (string, error)
	UpsertTitle(ctx context.Context, threadID, title string) error
}

type ChatHandlers struct {
	orchestrator Orchestrator
	streams      *streaming.Manager
	store        PlanReader
	logger       *zap.Logger
}

func NewChatHandlers(orchestrator Orchestrator, streams *streaming.Manager, store PlanReader, logger *zap.Logger) *ChatHandlers {
	return &ChatHandlers{
		orchestrator: orchestrator,
		streams:      streams,
		store:        store,
		logger:       logger,
	}
}

type messageRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message" binding:"required"`
}

// StartMessage accepts a chat message, kicks off orchestration in the
// background and returns the stream id to attach to.
func (h *ChatHandlers) StartMessage(c *gin.Context) {
	_, span := otel.Tracer("ChatHandlers").Start(c.Request.Context(), "StartMessage")
	defer span.End()

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	isNewThread := req.ThreadID == ""
	if isNewThread {
		req.ThreadID = uuid.New().String()
	}
	span.SetAttributes(attribute.String("thread.id", req.ThreadID))

	session := h.streams.Create(req.ThreadID)
	h.logger.Info("Starting chat turn",
		zap.String("thread_id", req.ThreadID),
		zap.String("session_id", session.ID))

	go h.runTurn(req.ThreadID, req.Message, session, isNewThread)

	c.JSON(http.StatusOK, gin.H{
		"stream_id": session.ID,
		"thread_id": req.ThreadID,
	})
}

// runTurn drives one orchestration turn detached from the request context,
// closing the session when the turn completes.
func (h *ChatHandlers) runTurn(threadID, message string, session *streaming.Session, isNewThread bool) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()
	defer h.streams.Close(session.ID)

	if isNewThread {
		title := h.orchestrator.GenerateTitle(ctx, message)
		if err := h.store.UpsertTitle(ctx, threadID, title); err != nil {
			h.logger.Warn("Saving thread title failed", zap.String("thread_id", threadID), zap.Error(err))
		}
	}

	h.orchestrator.ProcessMessage(ctx, threadID, message, session)
}

// StreamEvents is the SSE endpoint draining a session's segments.
func (h *ChatHandlers) StreamEvents(c *gin.Context) {
	sessionID := c.Param("sessionId")

	session, ok := h.streams.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stream"})
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("Streaming unsupported by response writer")
		c.Status(http.StatusInternalServerError)
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			h.logger.Info("Client disconnected from stream", zap.String("session_id", sessionID))
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case segment, open := <-session.Segments:
			if !open {
				return
			}
			if err := writeSegment(w, segment); err != nil {
				h.logger.Warn("Writing segment failed", zap.Error(err))
				return
			}
			flusher.Flush()
			if segment.Final {
				return
			}
		}
	}
}

func writeSegment(w http.ResponseWriter, segment models.Segment) error {
	payload, err := json.Marshal(segment)
	if err != nil {
		return err
	}
	eventName := strings.ToLower(string(segment.Type))
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName, payload); err != nil {
		return err
	}
	return nil
}

// GetPlan returns the latest stored plan for a thread.
func (h *ChatHandlers) GetPlan(c *gin.Context) {
	threadID := c.Param("threadId")

	plan, err := h.store.LoadLatest(c.Request.Context(), threadID)
	if err != nil {
		h.logger.Error("Loading plan failed", zap.String("thread_id", threadID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load plan"})
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no plan for thread"})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetTitle returns the stored thread title.
func (h *ChatHandlers) GetTitle(c *gin.Context) {
	threadID := c.Param("threadId")

	title, err := h.store.Title(c.Request.Context(), threadID)
	if err != nil {
		h.logger.Error("Loading title failed", zap.String("thread_id", threadID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load title"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": threadID, "title": title})
}
