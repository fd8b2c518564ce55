package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renderlab/render-service/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "render-service",
		})
	})

	renderHandler := handler.NewRenderHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		renders := v1.Group("/renders")
		{
			// POST /api/v1/renders - Submit a render job (?wait=true for sync mode)
			renders.POST("", renderHandler.CreateRender)

			// GET /api/v1/renders/:job_id - Get job status
			renders.GET("/:job_id", renderHandler.GetRender)

			// GET /api/v1/renders/:job_id/artifact - Fetch the rendered artifact
			renders.GET("/:job_id/artifact", renderHandler.GetArtifact)
		}
	}

	return r
}
