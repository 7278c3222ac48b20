package anime

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

// Notifier pushes catalog changes to registered clients. Nil means no
// push channel is configured.
type Notifier interface {
	BroadcastCatalogUpdate(animeID, nameEn, airingStatus string)
}

type Handler struct {
	Service *Service
	Notify  Notifier
}

func NewHandler(service *Service, notify Notifier) *Handler {
	return &Handler{Service: service, Notify: notify}
}

// RegisterRoutes mounts the read endpoints on rg and the mutating
// endpoints on admin.
func (h *Handler) RegisterRoutes(rg, admin *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/:id", h.getByID)

	admin.POST("", h.create)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.remove)
}

// RegisterReferenceRoutes mounts the genre and studio listings.
func (h *Handler) RegisterReferenceRoutes(rg *gin.RouterGroup) {
	rg.GET("/genres", h.genres)
	rg.GET("/studios", h.studios)
}

func (h *Handler) list(c *gin.Context) {
	// name=... short-circuits to an exact lookup
	if name := c.Query("name"); name != "" {
		a, err := h.Service.GetByName(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
			return
		}
		if a == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, a)
		return
	}

	skip := parseInt(c.Query("skip"), 0)
	limit := parseInt(c.Query("limit"), 10)

	items, err := h.Service.GetWithPagination(
		c.Request.Context(),
		genreParams(c, "include_genres"),
		genreParams(c, "exclude_genres"),
		skip, limit,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"skip":  skip,
		"limit": limit,
		"items": items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	a, err := h.Service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

type createReq struct {
	NameEn        string                `json:"name_en"`
	NameJp        string                `json:"name_jp"`
	Type          models.AnimeType      `json:"type"`
	AiringStatus  models.AiringStatus   `json:"airing_status"`
	AiringStart   time.Time             `json:"airing_start"`
	AiringEnd     *time.Time            `json:"airing_end"`
	TotalEpisodes *int                  `json:"total_episodes"`
	Description   string                `json:"description"`
	Rating        string                `json:"rating"`
	Episodes      []models.EpisodeParam `json:"episodes"`
	Genres        []string              `json:"genres"`
	Studios       []string              `json:"studios"`
	Franchise     string                `json:"franchise"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.NameEn) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name_en is required"})
		return
	}

	a, err := h.Service.Create(c.Request.Context(), CreateParams{
		NameEn:        req.NameEn,
		NameJp:        req.NameJp,
		Type:          req.Type,
		AiringStatus:  req.AiringStatus,
		AiringStart:   req.AiringStart,
		AiringEnd:     req.AiringEnd,
		TotalEpisodes: req.TotalEpisodes,
		Description:   req.Description,
		Rating:        req.Rating,
		Episodes:      req.Episodes,
		Genres:        req.Genres,
		Studios:       req.Studios,
		Franchise:     req.Franchise,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "anime already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	if h.Notify != nil {
		go h.Notify.BroadcastCatalogUpdate(a.ID, a.NameEn, string(a.AiringStatus))
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) update(c *gin.Context) {
	var patch models.AnimePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	a, err := h.Service.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(err, storage.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "name already taken"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}

	if h.Notify != nil {
		go h.Notify.BroadcastCatalogUpdate(a.ID, a.NameEn, string(a.AiringStatus))
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) remove(c *gin.Context) {
	err := h.Service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) genres(c *gin.Context) {
	out, err := h.Service.Genres(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) studios(c *gin.Context) {
	out, err := h.Service.Studios(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// genreParams accepts both ?k=Action,Drama and ?k=Action&k=Drama.
func genreParams(c *gin.Context, key string) []string {
	names := c.QueryArray(key)
	if len(names) == 1 && strings.Contains(names[0], ",") {
		names = strings.Split(names[0], ",")
	}
	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
