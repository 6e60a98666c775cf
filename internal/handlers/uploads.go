package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/storage"
	"github.com/growcoach/jobboard/pkg/response"
)

// UploadHandler serves stored files.
type UploadHandler struct {
	files *storage.FileStore
}

// NewUploadHandler constructs an UploadHandler.
func NewUploadHandler(files *storage.FileStore) *UploadHandler {
	return &UploadHandler{files: files}
}

// GET /uploads/:filename
func (h *UploadHandler) Serve(c *gin.Context) {
	name := c.Param("filename")
	file, err := h.files.Open(name)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
