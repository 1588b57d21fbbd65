package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/middleware"
	"github.com/simp-lee/saleads/internal/pkg"
)

// mockService implements Service for handler testing.
type mockService struct {
	loginResp   *TokenResponse
	loginErr    error
	registerRes *domain.User
	registerErr error
}

func (m *mockService) Login(_ context.Context, _, _ string) (*TokenResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *mockService) Register(_ context.Context, _, _, _ string) (*domain.User, error) {
	return m.registerRes, m.registerErr
}

func setupAuthRouter(h *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModule(h).RegisterRoutes(r.Group("/api/v1"), r.Group(""))
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	expires := time.Now().Add(time.Hour).Unix()
	svc := &mockService{
		loginResp: &TokenResponse{Token: "tok-123", ExpiresAt: expires},
	}
	r := setupAuthRouter(NewHandler(svc, false))

	w := postJSON(r, "/api/v1/auth/login", `{"email":"alice@example.com","password":"secret1234"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Code    int           `json:"code"`
		Message string        `json:"message"`
		Data    TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message != "success" {
		t.Errorf("expected message 'success', got %q", resp.Message)
	}
	if resp.Data.Token != "tok-123" || resp.Data.ExpiresAt != expires {
		t.Errorf("data = %+v", resp.Data)
	}

	cookie := findCookie(w, middleware.TokenCookieName)
	if cookie == nil {
		t.Fatal("expected token cookie to be set")
	}
	if cookie.Value != "tok-123" || !cookie.HttpOnly || cookie.MaxAge <= 0 {
		t.Errorf("cookie = %+v", cookie)
	}
}

func TestAuthHandler_Login_ValidationError(t *testing.T) {
	r := setupAuthRouter(NewHandler(&mockService{}, false))

	w := postJSON(r, "/api/v1/auth/login", `{"email":"","password":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var resp pkg.ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected code 400, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_ServiceError(t *testing.T) {
	r := setupAuthRouter(NewHandler(&mockService{loginErr: domain.ErrUnauthorized}, false))

	w := postJSON(r, "/api/v1/auth/login", `{"email":"alice@example.com","password":"wrongpassword"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
	if findCookie(w, middleware.TokenCookieName) != nil {
		t.Error("failed login must not set a cookie")
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockService{
		registerRes: &domain.User{
			BaseModel: domain.BaseModel{ID: 1, CreatedAt: time.Now()},
			Username:  "alice",
			Email:     "alice@example.com",
		},
	}
	r := setupAuthRouter(NewHandler(svc, false))

	w := postJSON(r, "/api/v1/auth/register", `{"username":"alice","email":"alice@example.com","password":"secret1234"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "alice@example.com") {
		t.Error("response must not echo the email address")
	}

	var resp struct {
		Code    int              `json:"code"`
		Message string           `json:"message"`
		Data    RegisterResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message != "user registered successfully" {
		t.Errorf("expected message 'user registered successfully', got %q", resp.Message)
	}
	if resp.Data.ID != 1 || resp.Data.Username != "alice" || resp.Data.CreatedAt.IsZero() {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	r := setupAuthRouter(NewHandler(&mockService{}, false))

	w := postJSON(r, "/api/v1/auth/register", `{"username":"","email":"","password":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestAuthHandler_Register_ServiceError(t *testing.T) {
	svc := &mockService{
		registerErr: domain.NewAppError(domain.CodeAlreadyExists, "username already exists", nil),
	}
	r := setupAuthRouter(NewHandler(svc, false))

	w := postJSON(r, "/api/v1/auth/register", `{"username":"alice","email":"alice@example.com","password":"secret1234"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	r := setupAuthRouter(NewHandler(&mockService{}, true))

	w := postJSON(r, "/api/v1/auth/logout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	cookie := findCookie(w, middleware.TokenCookieName)
	if cookie == nil || cookie.MaxAge >= 0 || !cookie.Secure {
		t.Errorf("expected an expiring secure cookie, got %+v", cookie)
	}
}

func TestAuthHandler_SignOut(t *testing.T) {
	r := setupAuthRouter(NewHandler(&mockService{}, false))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: "token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	cookie := findCookie(w, middleware.TokenCookieName)
	if cookie == nil || cookie.MaxAge >= 0 || !cookie.HttpOnly {
		t.Errorf("expected an expiring http-only cookie, got %+v", cookie)
	}
}
