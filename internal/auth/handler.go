package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"animehub/internal/storage"
	"animehub/pkg/models"
)

// UserService is the slice of the user service the auth endpoints need.
type UserService interface {
	UserSource
	Create(ctx context.Context, login, password string) (*models.User, error)
	GetByLoginAuth(ctx context.Context, login, password string) (*models.User, error)
}

type Handler struct {
	Users     UserService
	Tokens    TokenService
	Blacklist *Blacklist
}

func NewHandler(users UserService, tokens TokenService, blacklist *Blacklist) *Handler {
	return &Handler{Users: users, Tokens: tokens, Blacklist: blacklist}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/token", h.token)
}

type registerReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Login = strings.TrimSpace(req.Login)
	if len(req.Login) < 3 || len(req.Login) > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login must be 3-30 chars"})
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be 8-72 chars"})
		return
	}

	u, err := h.Users.Create(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "login already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{
			"id":    u.ID,
			"login": u.Login,
		},
	})
}

type tokenReq struct {
	GrantType    string `json:"grant_type"`
	Login        string `json:"login"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

// token issues an access/refresh pair. grant_type=password
// authenticates with credentials; grant_type=refresh_token rotates a
// refresh token, blacklisting the spent one so it cannot be replayed.
func (h *Handler) token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var userID string
	switch req.GrantType {
	case "password":
		u, err := h.Users.GetByLoginAuth(c.Request.Context(), req.Login, req.Password)
		if err != nil || u == nil {
			// don't reveal which part failed
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect login or password"})
			return
		}
		userID = u.ID

	case "refresh_token":
		if h.Blacklist.Contains(req.RefreshToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect refresh token"})
			return
		}
		claims, err := h.Tokens.Parse(req.RefreshToken, KindRefresh)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect refresh token"})
			return
		}
		u, err := h.Users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil || u == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect refresh token"})
			return
		}
		// rotation: the spent refresh token is dead from here on
		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		h.Blacklist.Add(req.RefreshToken, exp)
		userID = u.ID

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported grant_type"})
		return
	}

	access, refresh, exp, err := h.Tokens.SignPair(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_at":    exp.UTC().Format(time.RFC3339),
	})
}
