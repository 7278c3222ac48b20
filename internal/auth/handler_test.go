package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"animehub/internal/auth"
	"animehub/internal/storage/memory"
	"animehub/internal/user"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := user.NewService(memory.NewStore())
	tokens := auth.TokenService{
		Secret:     []byte("test-secret"),
		Issuer:     "animehub-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}

	router := gin.New()
	auth.NewHandler(users, tokens, auth.NewBlacklist()).RegisterRoutes(router.Group("/auth"))
	return router
}

func post(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister(t *testing.T) {
	router := newRouter(t)

	w := post(t, router, "/auth/register", gin.H{"login": "spike", "password": "space-cowboy"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// same login again
	w = post(t, router, "/auth/register", gin.H{"login": "spike", "password": "space-cowboy"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}

	// validation
	w = post(t, router, "/auth/register", gin.H{"login": "ab", "password": "space-cowboy"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short login status = %d, want 400", w.Code)
	}
	w = post(t, router, "/auth/register", gin.H{"login": "valid", "password": "short"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", w.Code)
	}
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func TestTokenPasswordGrant(t *testing.T) {
	router := newRouter(t)
	post(t, router, "/auth/register", gin.H{"login": "faye", "password": "whatever-happens"})

	w := post(t, router, "/auth/token", gin.H{
		"grant_type": "password", "login": "faye", "password": "whatever-happens",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp tokenResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.TokenType != "bearer" {
		t.Errorf("resp = %+v", resp)
	}

	w = post(t, router, "/auth/token", gin.H{
		"grant_type": "password", "login": "faye", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", w.Code)
	}

	w = post(t, router, "/auth/token", gin.H{"grant_type": "authorization_code"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown grant status = %d, want 400", w.Code)
	}
}

func TestTokenRefreshRotation(t *testing.T) {
	router := newRouter(t)
	post(t, router, "/auth/register", gin.H{"login": "jet", "password": "black-dog-serenade"})

	w := post(t, router, "/auth/token", gin.H{
		"grant_type": "password", "login": "jet", "password": "black-dog-serenade",
	})
	var first tokenResp
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// spend the refresh token
	w = post(t, router, "/auth/token", gin.H{
		"grant_type": "refresh_token", "refresh_token": first.RefreshToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", w.Code, w.Body.String())
	}
	var second tokenResp
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token not rotated")
	}

	// the spent token is dead
	w = post(t, router, "/auth/token", gin.H{
		"grant_type": "refresh_token", "refresh_token": first.RefreshToken,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh status = %d, want 401", w.Code)
	}

	// an access token is not a refresh token
	w = post(t, router, "/auth/token", gin.H{
		"grant_type": "refresh_token", "refresh_token": second.AccessToken,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("access-as-refresh status = %d, want 401", w.Code)
	}
}
