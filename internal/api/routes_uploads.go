package api

import (
	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/handlers"
)

func registerUploadRoutes(r *gin.Engine, uploads *handlers.UploadHandler) {
	r.GET("/uploads/:filename", uploads.Serve)
}
