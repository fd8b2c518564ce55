package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/renderlab/render-service/internal/api/dto"
	"github.com/renderlab/render-service/internal/job"
	"github.com/renderlab/render-service/internal/orchestrator"
	"github.com/renderlab/render-service/internal/storage"
)

// CreateRender handles POST /api/v1/renders
// Accepts source code for rendering. With ?wait=true the request blocks
// until the job reaches a terminal state; otherwise it returns 202 and the
// job can be polled.
func (h *RenderHandler) CreateRender(c *gin.Context) {
	var req dto.CreateRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobID, err := h.orchestrator.Submit(req.JobID, req.SourceCode)
	if err != nil {
		if errors.Is(err, job.ErrJobExists) {
			// Never render twice for one id; hand back the existing job.
			existing, statusErr := h.orchestrator.Status(jobID)
			if statusErr != nil {
				c.JSON(http.StatusConflict, gin.H{
					"error": "job already exists",
				})
				return
			}
			c.JSON(http.StatusConflict, toDTO(existing))
			return
		}
		if errors.Is(err, orchestrator.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "render queue is full, retry later",
			})
			return
		}
		h.logger.Error("Failed to submit job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to submit job",
		})
		return
	}

	if c.Query("wait") == "true" {
		result, err := h.orchestrator.Await(c.Request.Context(), jobID)
		if err != nil {
			h.logger.Error("Await failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"job_id": jobID,
				"error":  "timed out waiting for render; poll the job instead",
			})
			return
		}
		c.JSON(http.StatusOK, toDTO(result))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"state":  string(job.StatePending),
	})
}

// GetRender handles GET /api/v1/renders/:job_id
// Returns the current job snapshot, including error classification and the
// renderer's diagnostic log on terminal jobs.
func (h *RenderHandler) GetRender(c *gin.Context) {
	jobID := c.Param("job_id")

	j, err := h.orchestrator.Status(jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toDTO(j))
}

// GetArtifact handles GET /api/v1/renders/:job_id/artifact
// Streams the rendered artifact bytes for a succeeded job.
func (h *RenderHandler) GetArtifact(c *gin.Context) {
	jobID := c.Param("job_id")

	j, err := h.orchestrator.Status(jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	if j.State != job.StateSucceeded {
		c.JSON(http.StatusConflict, gin.H{
			"error": "job has no artifact",
			"state": string(j.State),
		})
		return
	}

	data, err := h.store.Download(c.Request.Context(), j.ArtifactKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "artifact not found in storage",
			})
			return
		}
		h.logger.Error("Failed to download artifact",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to download artifact",
		})
		return
	}

	c.Data(http.StatusOK, "video/mp4", data)
}

// toDTO converts a job snapshot into its wire representation.
func toDTO(j job.Job) dto.RenderJobDTO {
	out := dto.RenderJobDTO{
		JobID:       j.ID,
		State:       string(j.State),
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
		ArtifactURL: j.ArtifactURL,
		Log:         j.Log,
	}
	if !j.CompletedAt.IsZero() {
		out.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}
	if j.Error != nil {
		out.ErrorKind = string(j.Error.Kind)
		out.ErrorMessage = j.Error.Message
		if j.Error.Kind == job.KindRenderFailure {
			exitCode := j.Error.ExitCode
			out.ExitCode = &exitCode
		}
	}
	return out
}
