package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/config"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/services"
)

type DocumentHandler struct {
	log             *logger.Logger
	cfg             *config.Config
	documentService services.DocumentService
	processService  services.ProcessService
}

func NewDocumentHandler(log *logger.Logger, cfg *config.Config, dsvc services.DocumentService, psvc services.ProcessService) *DocumentHandler {
	return &DocumentHandler{
		log:             log.With("handler", "DocumentHandler"),
		cfg:             cfg,
		documentService: dsvc,
		processService:  psvc,
	}
}

type documentProcessRequest struct {
	ProjectName  string   `json:"project_name" binding:"required"`
	FileNames    []string `json:"file_names" binding:"required"`
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
}

type documentFlushRequest struct {
	ProjectName string   `json:"project_name" binding:"required"`
	FileNames   []string `json:"file_names" binding:"required"`
}

// POST /api/documents/upload/:project_name (multipart, field "files")
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, apierr.Validation("invalid multipart form: %v", err))
		return
	}
	parts := form.File["files"]
	if len(parts) == 0 {
		RespondError(c, apierr.Validation("no files in upload; send them under the \"files\" field"))
		return
	}

	files := make([]services.UploadFile, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			RespondError(c, apierr.Validation("cannot open uploaded part %q: %v", part.Filename, err))
			return
		}
		content, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxFileSizeBytes()+1))
		f.Close()
		if err != nil {
			RespondError(c, apierr.Internal(err))
			return
		}
		files = append(files, services.UploadFile{Filename: part.Filename, Content: content})
	}

	docs, err := h.documentService.Upload(c.Request.Context(), c.Param("project_name"), files)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": docs})
}

// POST /api/documents/process
func (h *DocumentHandler) Process(c *gin.Context) {
	var req documentProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	if req.ChunkSize <= 0 {
		req.ChunkSize = h.cfg.ChunkSize
	}
	if req.ChunkOverlap < 0 {
		RespondError(c, apierr.Validation("chunk_overlap must be non-negative"))
		return
	}
	if req.ChunkOverlap == 0 {
		req.ChunkOverlap = h.cfg.ChunkOverlap
	}
	if req.ChunkOverlap >= req.ChunkSize {
		RespondError(c, apierr.Validation("chunk_overlap (%d) must be smaller than chunk_size (%d)", req.ChunkOverlap, req.ChunkSize))
		return
	}
	docs, err := h.processService.ProcessDocuments(c.Request.Context(), req.ProjectName, req.FileNames, req.ChunkSize, req.ChunkOverlap)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "processed_docs": docs})
}

// POST /api/documents/flush
func (h *DocumentHandler) Flush(c *gin.Context) {
	var req documentFlushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	docs, err := h.documentService.Flush(c.Request.Context(), req.ProjectName, req.FileNames)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "flushed_docs": docs})
}

// GET /api/documents?project_name=&filter=&offset=&limit=
func (h *DocumentHandler) List(c *gin.Context) {
	projectName := c.Query("project_name")
	if projectName == "" {
		RespondError(c, apierr.Validation("project_name query parameter is required"))
		return
	}
	filter, err := repos.ParseDocumentFilter(c.Query("filter"))
	if err != nil {
		RespondError(c, err)
		return
	}
	offset, limit, err := parsePage(c, 20)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, err := h.documentService.List(c.Request.Context(), projectName, filter, offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": page})
}

// DELETE /api/documents?project_name=&filename=
func (h *DocumentHandler) Delete(c *gin.Context) {
	projectName := c.Query("project_name")
	filename := c.Query("filename")
	if projectName == "" || filename == "" {
		RespondError(c, apierr.Validation("project_name and filename query parameters are required"))
		return
	}
	doc, err := h.documentService.Delete(c.Request.Context(), projectName, filename)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": doc})
}
