package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/requestdata"
	"github.com/docquery/docquery-backend/internal/services"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		log:            log.With("handler", "ProjectHandler"),
		projectService: projectService,
	}
}

type projectCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type projectUpdateRequest struct {
	NewName     *string `json:"new_name"`
	Description *string `json:"description"`
}

// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	project, err := h.projectService.Create(c.Request.Context(), req.Name, req.Description, rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, gin.H{"status": "success", "data": project})
}

// GET /api/projects?offset=0&limit=20
func (h *ProjectHandler) List(c *gin.Context) {
	offset, limit, err := parsePage(c, 20)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, err := h.projectService.List(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": page})
}

// GET /api/projects/:name
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": project})
}

// PUT /api/projects/:name
func (h *ProjectHandler) Update(c *gin.Context) {
	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	if req.NewName == nil && req.Description == nil {
		RespondError(c, apierr.Validation("at least one of new_name or description must be provided"))
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), c.Param("name"), req.NewName, req.Description)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": project})
}

// DELETE /api/projects/:name
func (h *ProjectHandler) Delete(c *gin.Context) {
	project, err := h.projectService.Delete(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "success", "data": project})
}

func parsePage(c *gin.Context, defaultLimit int) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, apierr.Validation("offset must be a non-negative integer")
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		return 0, 0, apierr.Validation("limit must be a positive integer")
	}
	return offset, limit, nil
}
