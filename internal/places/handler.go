package places

import (
	"errors"
	"net/http"
	"strconv"

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

// RegisterRoutes attaches place routes. internalOnly guards privileged routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, internalOnly gin.HandlerFunc) {
	grp := rg.Group("/places")
	grp.POST("/", internalOnly, h.create)
	grp.GET("/nearby", h.nearby)
	grp.GET("/bbox", h.bbox)
	grp.GET("/:id", h.get)
	grp.POST("/:id/ingest", internalOnly, h.ingest)
	grp.POST("/:id/react", h.react)
	grp.GET("/:id/reactions", h.reactions)
}

type createRequest struct {
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	ImageURL string  `json:"image_url"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	place, err := h.Svc.Create(c.Request.Context(), CreateInput{
		Name:     req.Name,
		Address:  req.Address,
		Lat:      req.Lat,
		Lng:      req.Lng,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create place", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, place)
}

func (h *Handler) get(c *gin.Context) {
	place, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "place not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch place", nil)
		return
	}
	respond.OK(c, place)
}

func (h *Handler) nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "lat and lng are required", nil)
		return
	}
	radius := float64(0)
	if v := c.Query("radius"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "radius must be a number", nil)
			return
		}
		radius = parsed
	}

	nearby, err := h.Svc.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to query places", nil)
		return
	}
	if nearby == nil {
		nearby = []NearbyPlace{}
	}
	respond.OK(c, gin.H{"places": nearby})
}

func (h *Handler) bbox(c *gin.Context) {
	minLat, err1 := strconv.ParseFloat(c.Query("minLat"), 64)
	minLng, err2 := strconv.ParseFloat(c.Query("minLng"), 64)
	maxLat, err3 := strconv.ParseFloat(c.Query("maxLat"), 64)
	maxLng, err4 := strconv.ParseFloat(c.Query("maxLng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "minLat, minLng, maxLat and maxLng are required", nil)
		return
	}

	found, err := h.Svc.Bbox(c.Request.Context(), minLat, minLng, maxLat, maxLng)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to query places", nil)
		return
	}
	if found == nil {
		found = []Place{}
	}
	respond.OK(c, gin.H{"places": found})
}

func (h *Handler) ingest(c *gin.Context) {
	var pred map[string]any
	if err := c.ShouldBindJSON(&pred); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	if err := h.Svc.Ingest(c.Request.Context(), c.Param("id"), pred); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "place not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to ingest prediction", nil)
		}
		return
	}
	respond.OK(c, gin.H{"ok": true})
}

type reactRequest struct {
	Vote string `json:"vote"`
}

func (h *Handler) react(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	up, down, err := h.Svc.React(c.Request.Context(), c.Param("id"), req.Vote)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "place not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record reaction", nil)
		}
		return
	}
	respond.OK(c, gin.H{"place_id": c.Param("id"), "up": up, "down": down})
}

func (h *Handler) reactions(c *gin.Context) {
	up, down, err := h.Svc.Reactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "place not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch reactions", nil)
		return
	}
	respond.OK(c, gin.H{"place_id": c.Param("id"), "up": up, "down": down})
}
