package category

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/cond"
	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/middleware"
)

// staticParser accepts the tokens "staff" and "member".
type staticParser struct{}

func (staticParser) ParseToken(token string) (*domain.Principal, error) {
	switch token {
	case "staff":
		return &domain.Principal{UserID: 1, Username: "admin", Staff: true}, nil
	case "member":
		return &domain.Principal{UserID: 2, Username: "member"}, nil
	}
	return nil, errors.New("bad token")
}

// fixedCounter returns the same per-category counts for any condition.
type fixedCounter struct {
	counts map[uint]int64
	err    error
	where  cond.Expr
}

func (f *fixedCounter) CountByCategory(_ context.Context, where cond.Expr) (map[uint]int64, error) {
	f.where = where
	return f.counts, f.err
}

func setupCategoryRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return setupCategoryRouterWithCounter(t, nil)
}

func setupCategoryRouterWithCounter(t *testing.T, counter AdCounter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	h := NewHandler(NewService(seedSample(t, db), nil), counter)

	r := gin.New()
	r.Use(middleware.Authenticate(staticParser{}))
	NewModule(h).RegisterRoutes(r.Group("/api/v1"), nil)
	return r
}

type treeResponse struct {
	Code int        `json:"code"`
	Data []TreeNode `json:"data"`
}

type nodeResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    TreeNode `json:"data"`
}

func TestCategoryHandler_Tree(t *testing.T) {
	r := setupCategoryRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp treeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Name != "Electronics" || resp.Data[1].Name != "Vehicles" {
		t.Fatalf("roots = %+v", resp.Data)
	}
	vehicles := resp.Data[1]
	if vehicles.URL != "/?c=1" {
		t.Errorf("url = %q, want /?c=1", vehicles.URL)
	}
	if len(vehicles.Children) != 2 || vehicles.Children[0].Name != "bikes" {
		t.Fatalf("children = %+v", vehicles.Children)
	}
	cars := vehicles.Children[1]
	if len(cars.Children) != 1 || cars.Children[0].FullName != "Vehicles"+FullNameSeparator+"Cars"+FullNameSeparator+"Sedans" {
		t.Errorf("grandchildren = %+v", cars.Children)
	}
}

func TestCategoryHandler_Tree_AdCounts(t *testing.T) {
	counter := &fixedCounter{counts: map[uint]int64{4: 2, 3: 1, 6: 5}}
	r := setupCategoryRouterWithCounter(t, counter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp treeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	electronics, vehicles := resp.Data[0], resp.Data[1]
	if electronics.AdCount != 5 || vehicles.AdCount != 3 {
		t.Errorf("root counts = %d/%d, want 5/3", electronics.AdCount, vehicles.AdCount)
	}
	if cars := vehicles.Children[1]; cars.AdCount != 2 || cars.Children[0].AdCount != 2 {
		t.Errorf("cars subtree counts = %+v", cars)
	}
	if counter.where == nil {
		t.Error("expected the counter to receive a verified-only condition")
	}
}

func TestCategoryHandler_Tree_CounterError(t *testing.T) {
	r := setupCategoryRouterWithCounter(t, &fixedCounter{err: domain.ErrInternal})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestCategoryHandler_Get(t *testing.T) {
	r := setupCategoryRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp nodeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Data.Name != "Cars" || resp.Data.ParentID == nil || *resp.Data.ParentID != 1 {
		t.Errorf("data = %+v", resp.Data)
	}
	if len(resp.Data.Children) != 1 || len(resp.Data.Children[0].Children) != 0 {
		t.Errorf("expected one level of children, got %+v", resp.Data.Children)
	}
}

func TestCategoryHandler_Get_Errors(t *testing.T) {
	r := setupCategoryRouter(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/categories/99", http.StatusNotFound},
		{"/api/v1/categories/abc", http.StatusBadRequest},
		{"/api/v1/categories/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
		}
	}
}

func TestCategoryHandler_Create(t *testing.T) {
	tests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"anonymous", "", `{"name":"Boats"}`, http.StatusUnauthorized},
		{"not staff", "member", `{"name":"Boats"}`, http.StatusForbidden},
		{"invalid token", "forged", `{"name":"Boats"}`, http.StatusUnauthorized},
		{"missing name", "staff", `{}`, http.StatusBadRequest},
		{"duplicate", "staff", `{"name":"vehicles"}`, http.StatusConflict},
		{"created", "staff", `{"name":"Trucks","parent_id":1,"ultimate":true}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupCategoryRouter(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.want, w.Body.String())
			}
			if tt.want != http.StatusCreated {
				return
			}
			var resp nodeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Data.FullName != "Vehicles"+FullNameSeparator+"Trucks" || !resp.Data.Ultimate {
				t.Errorf("data = %+v", resp.Data)
			}
		})
	}
}
