package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/pkg"
)

const testCSRFSecret = "board-forms-secret"

// setupFormsRouter mounts the sign-in form behind CSRF and an API route
// without it, the way the page and API groups are split.
func setupFormsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	pages := r.Group("/", CSRF(testCSRFSecret))
	pages.GET("/login", func(c *gin.Context) { c.String(http.StatusOK, GetCSRFToken(c)) })
	pages.POST("/login", func(c *gin.Context) { c.String(http.StatusOK, "signed in") })
	pages.POST("/logout", func(c *gin.Context) { c.String(http.StatusOK, "signed out") })
	r.POST("/api/v1/ads", func(c *gin.Context) { c.String(http.StatusCreated, "created") })
	r.DELETE("/api/v1/ads/1", func(c *gin.Context) { c.String(http.StatusOK, "deleted") })
	return r
}

func csrfCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "_csrf_token" {
			return c
		}
	}
	return nil
}

// openLoginForm renders the sign-in form and returns the issued token.
func openLoginForm(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	c := csrfCookie(w)
	if w.Code != http.StatusOK || c == nil {
		t.Fatalf("GET /login: status %d, cookie %v", w.Code, c)
	}
	if c.Value != w.Body.String() {
		t.Fatalf("cookie %q differs from the form token %q", c.Value, w.Body.String())
	}
	return c.Value
}

func TestCSRF_IssuesToken(t *testing.T) {
	r := setupFormsRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	c := csrfCookie(w)
	if c == nil {
		t.Fatal("_csrf_token cookie not set")
	}
	if !validToken(c.Value, testCSRFSecret) {
		t.Error("issued token does not verify")
	}
	if c.HttpOnly || c.Path != "/" || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie attributes = httponly %v path %q samesite %v", c.HttpOnly, c.Path, c.SameSite)
	}
}

func TestCSRF_ReusesOrReplacesCookie(t *testing.T) {
	r := setupFormsRouter()
	token := openLoginForm(t, r)

	tests := []struct {
		name      string
		cookie    string
		wantFresh bool
	}{
		{"valid cookie kept", token, false},
		{"garbage replaced", "garbage", true},
		{"foreign signature replaced", mustGenerateToken("another-site"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/login", nil)
			req.AddCookie(&http.Cookie{Name: "_csrf_token", Value: tt.cookie})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			fresh := csrfCookie(w)
			if (fresh != nil) != tt.wantFresh {
				t.Fatalf("new cookie issued = %v, want %v", fresh != nil, tt.wantFresh)
			}
			if fresh == nil && w.Body.String() != tt.cookie {
				t.Errorf("form token = %q, want the kept cookie", w.Body.String())
			}
			if fresh != nil && !validToken(fresh.Value, testCSRFSecret) {
				t.Error("replacement token does not verify")
			}
		})
	}
}

func TestCSRF_Submissions(t *testing.T) {
	r := setupFormsRouter()
	token := openLoginForm(t, r)
	forged := mustGenerateToken(testCSRFSecret)
	nonce, _, _ := strings.Cut(forged, ".")
	resigned := nonce + "." + signNonce(nonce, "wrong-secret")

	tests := []struct {
		name        string
		path        string
		cookie      string
		field       string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{"form field", "/login", token, token, "", http.StatusOK, ""},
		{"header", "/logout", token, "", token, http.StatusOK, ""},
		{"missing cookie", "/login", "", token, "", http.StatusForbidden, "CSRF token missing"},
		{"missing token", "/logout", token, "", "", http.StatusForbidden, "CSRF token missing"},
		{"token from another form", "/login", token, forged, "", http.StatusForbidden, "CSRF token invalid"},
		{"matching unsigned pair", "/login", "forged", "forged", "", http.StatusForbidden, "CSRF token invalid"},
		{"matching pair signed elsewhere", "/logout", resigned, "", resigned, http.StatusForbidden, "CSRF token invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.field != "" {
				form.Set("_csrf_token", tt.field)
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "_csrf_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantMessage == "" {
				return
			}
			var resp pkg.Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != http.StatusForbidden || resp.Message != tt.wantMessage {
				t.Errorf("response = %+v, want code 403 and message %q", resp, tt.wantMessage)
			}
		})
	}
}

func TestCSRF_APIRoutesExempt(t *testing.T) {
	r := setupFormsRouter()

	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		path := "/api/v1/ads"
		if method == http.MethodDelete {
			path += "/1"
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		if w.Code == http.StatusForbidden {
			t.Errorf("%s %s rejected without a page form", method, path)
		}
	}
}

func TestCSRF_SecureCookieInRelease(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/login", CSRF(testCSRFSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	if c := csrfCookie(w); c == nil || !c.Secure {
		t.Errorf("cookie = %+v, want a Secure _csrf_token", c)
	}
}

func TestCSRF_BlankSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reached := false
	r.GET("/login", CSRF("  "), func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	if w.Code != http.StatusInternalServerError || reached {
		t.Errorf("status = %d, handler reached = %v; want 500 and no handler", w.Code, reached)
	}
}

func TestValidToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"issued here", mustGenerateToken(testCSRFSecret), true},
		{"issued elsewhere", mustGenerateToken("another-site"), false},
		{"empty", "", false},
		{"no separator", "abcdef1234", false},
		{"empty nonce", "." + signNonce("", testCSRFSecret), false},
		{"empty signature", "abcdef.", false},
		{"swapped nonce", "swapped." + signNonce("original", testCSRFSecret), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validToken(tt.token, testCSRFSecret); got != tt.want {
				t.Errorf("validToken() = %v, want %v", got, tt.want)
			}
		})
	}
	if tokensMatch(mustGenerateToken(testCSRFSecret), "other") {
		t.Error("different tokens should not match")
	}
}

func mustGenerateToken(secret string) string {
	token, err := generateToken(secret)
	if err != nil {
		panic(err)
	}
	return token
}
