package handler

import (
	"log/slog"

	"github.com/renderlab/render-service/internal/orchestrator"
	"github.com/renderlab/render-service/internal/storage"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Orchestrator *orchestrator.Orchestrator
	Store        storage.ArtifactStore
}

// RenderHandler handles render-job HTTP requests
type RenderHandler struct {
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	store        storage.ArtifactStore
}

// NewRenderHandler creates a new RenderHandler instance
func NewRenderHandler(deps *Dependencies) *RenderHandler {
	return &RenderHandler{
		logger:       deps.Logger,
		orchestrator: deps.Orchestrator,
		store:        deps.Store,
	}
}
