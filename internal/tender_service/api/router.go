package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the tender service.
func RegisterRoutes(router *gin.Engine, api *API) {
	// All routes will be under /api/v1
	v1 := router.Group("/api/v1")

	documents := v1.Group("/documents")
	{
		documents.POST("/ingest", api.IngestHandler)
		documents.POST("/summarize", api.SummarizeHandler)
	}

	sections := v1.Group("/sections")
	{
		sections.POST("/generate", api.GenerateSectionHandler)
	}
}
