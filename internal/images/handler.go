package images

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wheelcity-backend/internal/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// AnalysisSource looks up the current analysis for an image, if one exists.
// It is wired from the analyses package to avoid an import cycle.
type AnalysisSource interface {
	CurrentForImage(ctx context.Context, imageID string) (any, bool, error)
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc      *Service
	Analyses AnalysisSource
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, analyses AnalysisSource) *Handler {
	return &Handler{Svc: svc, Analyses: analyses}
}

// RegisterRoutes attaches image routes. internalOnly guards privileged routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, internalOnly gin.HandlerFunc) {
	grp := rg.Group("/images")
	grp.POST("/upload", h.upload)
	grp.GET("/", h.list)
	grp.GET("/:id", h.get)
	grp.DELETE("/:id", internalOnly, h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the 10MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > maxUploadSize {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the 10MB limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	img, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		FileName: fileHeader.Filename,
		PlaceID:  strings.TrimSpace(c.PostForm("place_id")),
		UserID:   strings.TrimSpace(c.PostForm("user_id")),
		Body:     file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedFormat):
			respond.Error(c, http.StatusBadRequest, "unsupported_format", "supported formats: .jpg, .jpeg, .png, .webp, .bmp", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusBadGateway, "STORAGE_UNAVAILABLE", "failed to store image", nil)
		}
		return
	}

	c.Set("imageId", img.ID)
	respond.JSON(c, http.StatusCreated, gin.H{
		"image_id":   img.ID,
		"status":     img.Status,
		"size_bytes": img.SizeBytes,
	})
}

func (h *Handler) get(c *gin.Context) {
	imageID := c.Param("id")
	c.Set("imageId", imageID)

	img, url, err := h.Svc.Get(c.Request.Context(), imageID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "image not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch image", nil)
		return
	}

	resp := gin.H{"image": img}
	if url != "" {
		resp["url"] = url
	}
	if h.Analyses != nil {
		analysis, found, err := h.Analyses.CurrentForImage(c.Request.Context(), imageID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
			return
		}
		if found {
			resp["analysis"] = analysis
		}
	}
	respond.OK(c, resp)
}

func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{Limit: 20}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			filter.Offset = parsed
		}
	}
	filter.AnalyzedOnly = c.Query("analyzed_only") == "true"

	imgs, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list images", nil)
		return
	}
	if imgs == nil {
		imgs = []Image{}
	}
	respond.OK(c, gin.H{
		"images": imgs,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) delete(c *gin.Context) {
	imageID := c.Param("id")
	c.Set("imageId", imageID)

	if err := h.Svc.Delete(c.Request.Context(), imageID); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "image not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete image", nil)
		return
	}
	respond.OK(c, gin.H{"deleted": true, "image_id": imageID})
}
