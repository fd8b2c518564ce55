package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderlab/render-service/internal/api/handler"
	"github.com/renderlab/render-service/internal/api/router"
	"github.com/renderlab/render-service/internal/job"
	"github.com/renderlab/render-service/internal/orchestrator"
	"github.com/renderlab/render-service/internal/storage"
)

// scriptedRenderer returns a fixed outcome without any subprocess.
type scriptedRenderer struct {
	outcome func(jobID, source string) *job.Outcome
}

func (s *scriptedRenderer) Render(ctx context.Context, jobID, source string) *job.Outcome {
	return s.outcome(jobID, source)
}

func successRenderer() *scriptedRenderer {
	return &scriptedRenderer{outcome: func(jobID, source string) *job.Outcome {
		return &job.Outcome{Artifact: []byte("video-bytes"), Stdout: "rendered"}
	}}
}

func newTestServer(t *testing.T, renderer orchestrator.Renderer) (*gin.Engine, storage.ArtifactStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFilesystemStore(t.TempDir(), "http://localhost/artifacts", logger)
	require.NoError(t, err)

	orch := orchestrator.New(orchestrator.Config{
		Concurrency:   2,
		QueueSize:     16,
		Retention:     time.Hour,
		SweepInterval: time.Hour,
	}, renderer, store, logger)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	return router.SetupRouter(&handler.Dependencies{
		Logger:       logger,
		Orchestrator: orch,
		Store:        store,
	}), store
}

func TestCreateRenderSynchronous(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	body := `{"source_code": "class Alpha(Scene):\n    pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders?wait=true", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(job.StateSucceeded), resp["state"])
	assert.NotEmpty(t, resp["artifact_url"])
	assert.NotEmpty(t, resp["job_id"])
	assert.Equal(t, "rendered", resp["log"])
}

func TestCreateRenderAsyncAndPoll(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	body := `{"job_id": "poll-me", "source_code": "class Alpha(Scene):\n    pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	// Poll until terminal.
	deadline := time.Now().Add(5 * time.Second)
	var resp map[string]interface{}
	for {
		req = httptest.NewRequest(http.MethodGet, "/api/v1/renders/poll-me", nil)
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		state := job.State(resp["state"].(string))
		if state.Terminal() {
			break
		}
		require.True(t, time.Now().Before(deadline), "job never reached a terminal state")
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, string(job.StateSucceeded), resp["state"])
	assert.NotEmpty(t, resp["completed_at"])
}

func TestCreateRenderRejectsBadBody(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders", strings.NewReader(`{"job_id": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRenderDuplicateID(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	body := `{"job_id": "dup", "source_code": "class Alpha(Scene):\n    pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders?wait=true", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/renders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dup", resp["job_id"])
}

func TestGetRenderNotFound(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/renders/unknown", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRenderFailureDetails(t *testing.T) {
	renderer := &scriptedRenderer{outcome: func(jobID, source string) *job.Outcome {
		err := &job.RenderError{
			Kind:     job.KindRenderFailure,
			Message:  "renderer exited with code 1",
			Stderr:   "Traceback: boom",
			ExitCode: 1,
		}
		return &job.Outcome{Stderr: err.Stderr, Err: err}
	}}
	r, _ := newTestServer(t, renderer)

	body := `{"source_code": "broken"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders?wait=true", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(job.StateFailed), resp["state"])
	assert.Equal(t, string(job.KindRenderFailure), resp["error_kind"])
	assert.Contains(t, resp["log"], "Traceback: boom")
	assert.Equal(t, float64(1), resp["exit_code"])
}

func TestGetArtifact(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	body := `{"job_id": "with-artifact", "source_code": "class Alpha(Scene):\n    pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders?wait=true", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/renders/with-artifact/artifact", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Equal(t, "video-bytes", w.Body.String())
}

func TestGetArtifactForFailedJob(t *testing.T) {
	renderer := &scriptedRenderer{outcome: func(jobID, source string) *job.Outcome {
		err := &job.RenderError{Kind: job.KindRenderFailure, ExitCode: 1}
		return &job.Outcome{Err: err}
	}}
	r, _ := newTestServer(t, renderer)

	body := `{"job_id": "failed-job", "source_code": "broken"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/renders?wait=true", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/renders/failed-job/artifact", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestServer(t, successRenderer())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
