package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/config"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/requestdata"
	"github.com/docquery/docquery-backend/internal/services"
)

type QueryHandler struct {
	log          *logger.Logger
	cfg          *config.Config
	queryService services.QueryService
}

func NewQueryHandler(log *logger.Logger, cfg *config.Config, queryService services.QueryService) *QueryHandler {
	return &QueryHandler{
		log:          log.With("handler", "QueryHandler"),
		cfg:          cfg,
		queryService: queryService,
	}
}

type queryRequest struct {
	ProjectName string `json:"project_name" binding:"required"`
	Query       string `json:"query" binding:"required"`
	K           int    `json:"k"`
}

// POST /api/query
func (h *QueryHandler) Answer(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	if req.K < 0 {
		RespondError(c, apierr.Validation("k must be non-negative"))
		return
	}
	if req.K == 0 {
		req.K = h.cfg.DefaultTopK
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	answer, err := h.queryService.Answer(c.Request.Context(), rd.UserID, req.ProjectName, req.Query, req.K)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"data": answer, "message": "answered query for project '" + req.ProjectName + "'"})
}
