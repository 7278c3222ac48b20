package user

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"animehub/internal/anime"
	"animehub/internal/auth"
	"animehub/internal/storage"
	"animehub/internal/sync"
	"animehub/pkg/models"
)

type Handler struct {
	Users *Service
	Anime *anime.Service
	Hub   *sync.Hub
}

func NewHandler(users *Service, animeSvc *anime.Service, hub *sync.Hub) *Handler {
	return &Handler{Users: users, Anime: animeSvc, Hub: hub}
}

// RegisterRoutes mounts the profile and watchlist endpoints on a group
// that already runs the auth middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.POST("/me/watchlist", h.addEntry)
	rg.PATCH("/me/watchlist/:id", h.updateEntry)
	rg.DELETE("/me/watchlist/:anime_id", h.removeEntry)
}

// currentUser loads the authenticated user or writes the error reply.
func (h *Handler) currentUser(c *gin.Context) *models.User {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return nil
	}
	u, err := h.Users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get user failed"})
		return nil
	}
	if u == nil || !u.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil
	}
	return u
}

func (h *Handler) me(c *gin.Context) {
	u := h.currentUser(c)
	if u == nil {
		return
	}
	c.JSON(http.StatusOK, u)
}

type addEntryReq struct {
	AnimeID            string `json:"anime_id"`
	Status             string `json:"status"`
	NumWatchedEpisodes int    `json:"num_watched_episodes"`
}

func (h *Handler) addEntry(c *gin.Context) {
	u := h.currentUser(c)
	if u == nil {
		return
	}

	var req addEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	status, ok := parseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if req.NumWatchedEpisodes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "num_watched_episodes must be >= 0"})
		return
	}

	a, err := h.Anime.GetByID(c.Request.Context(), req.AnimeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get anime failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	entry, err := h.Users.CreateWatchingEntry(c.Request.Context(), status, req.NumWatchedEpisodes, u, a)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "already on watchlist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add entry failed"})
		return
	}

	h.broadcast(sync.WatchlistEvent{
		Type:               "watchlist.update",
		UserID:             u.ID,
		AnimeID:            a.ID,
		Status:             string(entry.Status),
		NumWatchedEpisodes: entry.NumWatchedEpisodes,
		At:                 time.Now().UTC(),
	})
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) updateEntry(c *gin.Context) {
	u := h.currentUser(c)
	if u == nil {
		return
	}

	var patch models.WatchlistPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if patch.Status != nil {
		status, ok := parseStatus(string(*patch.Status))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		patch.Status = &status
	}
	if patch.NumWatchedEpisodes != nil && *patch.NumWatchedEpisodes < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "num_watched_episodes must be >= 0"})
		return
	}

	entry, err := h.Users.UpdateWatchlistEntry(c.Request.Context(), u, c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update entry failed"})
		return
	}

	h.broadcast(sync.WatchlistEvent{
		Type:               "watchlist.update",
		UserID:             u.ID,
		AnimeID:            entry.AnimeID,
		Status:             string(entry.Status),
		NumWatchedEpisodes: entry.NumWatchedEpisodes,
		At:                 time.Now().UTC(),
	})
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) removeEntry(c *gin.Context) {
	u := h.currentUser(c)
	if u == nil {
		return
	}

	a, err := h.Anime.GetByID(c.Request.Context(), c.Param("anime_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get anime failed"})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return
	}

	removed, err := h.Users.RemoveWatchlistEntry(c.Request.Context(), u, a)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove entry failed"})
		return
	}

	h.broadcast(sync.WatchlistEvent{
		Type:    "watchlist.remove",
		UserID:  u.ID,
		AnimeID: removed.AnimeID,
		At:      time.Now().UTC(),
	})
	c.Status(http.StatusNoContent)
}

func (h *Handler) broadcast(ev sync.WatchlistEvent) {
	if h.Hub == nil {
		return
	}
	go h.Hub.BroadcastJSON(ev)
}

func parseStatus(s string) (models.WatchingStatus, bool) {
	switch models.WatchingStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case models.WatchingStatusWatching:
		return models.WatchingStatusWatching, true
	case models.WatchingStatusCompleted:
		return models.WatchingStatusCompleted, true
	case models.WatchingStatusDropped:
		return models.WatchingStatusDropped, true
	case models.WatchingStatusPlanning:
		return models.WatchingStatusPlanning, true
	}
	return "", false
}
