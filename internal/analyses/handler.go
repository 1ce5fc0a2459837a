package analyses

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/images/analyze", h.analyze)
}

type analyzeRequest struct {
	ImageID        string `json:"image_id"`
	ForceReanalyze bool   `json:"force_reanalyze"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.ImageID = strings.TrimSpace(req.ImageID)
	if req.ImageID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "image_id is required", nil)
		return
	}
	c.Set("imageId", req.ImageID)

	analysis, err := h.Svc.Analyze(c.Request.Context(), req.ImageID, req.ForceReanalyze)
	if err != nil {
		var perr *PipelineError
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "image not found", nil)
		case errors.Is(err, ErrInProgress):
			respond.Error(c, http.StatusConflict, "CONFLICT", "analysis already in progress", nil)
		case errors.As(err, &perr):
			respond.Error(c, statusForCode(perr.Code), perr.Code, perr.Err.Error(), gin.H{
				"analysis_id": analysis.ID,
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis failed", nil)
		}
		return
	}

	respond.OK(c, analysis)
}

func statusForCode(code string) int {
	switch code {
	case CodeStorageUnavailable, CodeAIServiceError, CodeAIResponseInvalid:
		return http.StatusBadGateway
	case CodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
