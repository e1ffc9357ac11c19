package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/content-vault-api/internal/middleware"
	"github.com/noah-isme/content-vault-api/internal/models"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Batches *BatchHandler
	Content *ContentHandler
	Memes   *MemeHandler
	Ranking *RankingHandler
	Admin   *AdminHandler
	Metrics *MetricsHandler
}

// RegisterRoutes mounts the public, review and staff routes under api.
// session must be the anonymous session middleware; staff guards the admin
// group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, session gin.HandlerFunc, staff ...gin.HandlerFunc) {
	public := api.Group("", session)

	batches := public.Group("/batches")
	batches.POST("", h.Batches.Create)
	batches.POST("/:id/files", h.Batches.AddFiles)
	batches.GET("/:id/files", h.Batches.ListFiles)
	batches.GET("/:id/files/:fileId", h.Batches.DownloadFile)
	batches.DELETE("/:id/files/:fileId", h.Batches.DeleteFile)
	batches.GET("/:id/archive", h.Batches.Archive)

	content := public.Group("/content")
	content.POST("", h.Content.Submit)
	content.GET("", h.Content.List)
	content.GET("/facets", h.Content.Facets)
	content.GET("/bundle", h.Content.Bundle)
	content.GET("/:id/download", h.Content.Download)

	memes := public.Group("/memes")
	memes.POST("", h.Memes.Submit)
	memes.GET("", h.Memes.List)
	memes.GET("/:id/image", h.Memes.Image)
	memes.POST("/:id/like", h.Memes.Like)

	ranking := public.Group("/ranking")
	ranking.GET("/next", h.Ranking.Next)
	ranking.POST("/votes", h.Ranking.Vote)
	ranking.GET("/results", h.Ranking.Results)

	api.GET("/review/batches/:id/archive", h.Batches.ReviewArchive)

	admin := api.Group("/admin", staff...)
	admin.Use(middleware.RequireRoles(models.StaffRoles...))
	admin.GET("/batches", h.Admin.Queue)
	admin.GET("/batches/export", h.Admin.Export)
	admin.GET("/batches/:id/review-link", h.Admin.ReviewLink)
	admin.POST("/batches/status", h.Admin.SetStatus(models.TargetBatch))
	admin.POST("/content/status", h.Admin.SetStatus(models.TargetContent))
	admin.POST("/memes/status", h.Admin.SetStatus(models.TargetMeme))
	admin.GET("/blobs/verify", h.Admin.VerifyBlobs)
	admin.GET("/metrics", h.Metrics.Summary)
}
