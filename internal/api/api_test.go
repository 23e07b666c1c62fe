package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/openfmea/openfmea/backend/worksheet-service/internal/store"
)

// setGinTestMode ensures Gin does not write noisy logs during tests
func setGinTestMode() { gin.SetMode(gin.TestMode) }

func demoRouter() (*gin.Engine, string) {
	mem := store.NewMemory()
	id := store.SeedDemo(mem)
	h := NewHandlerWithStore(mem)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/api/v1/failure-cascade", h.GetFailureCascade)
	r.POST("/api/v1/worksheets", h.CreateWorksheet)
	return r, id
}

func TestHealth_NoDatabase(t *testing.T) {
	setGinTestMode()
	r, _ := demoRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"database":"none"`) {
		t.Fatalf("expected database:none in body, got %s", w.Body.String())
	}
}

func TestGetFailureCascade_Demo(t *testing.T) {
	setGinTestMode()
	r, id := demoRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/failure-cascade?worksheetId="+id, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	var resp failureCascadeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.WorksheetID != id {
		t.Fatalf("expected worksheet id %s, got %s", id, resp.WorksheetID)
	}
	if resp.Strategy != "join" {
		t.Fatalf("expected join strategy for demo store, got %s", resp.Strategy)
	}
	if len(resp.Rows) == 0 {
		t.Fatalf("expected flattened rows, got none")
	}
	if resp.Stats.ProcessCount != 3 {
		t.Fatalf("expected 3 processes, got %d", resp.Stats.ProcessCount)
	}
	if !resp.Rows[0].Product.Show || resp.Rows[0].Product.RowSpan != len(resp.Rows) {
		t.Fatalf("expected product cell on first row spanning %d rows, got %+v", len(resp.Rows), resp.Rows[0].Product)
	}
}

func TestGetFailureCascade_CaseInsensitiveID(t *testing.T) {
	setGinTestMode()
	r, id := demoRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/failure-cascade?worksheetId="+strings.ToLower(id), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK for lowercase id, got %d", w.Code)
	}
	var resp failureCascadeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.WorksheetID != id {
		t.Fatalf("expected normalized id %s, got %s", id, resp.WorksheetID)
	}
}

func TestGetFailureCascade_MissingParam(t *testing.T) {
	setGinTestMode()
	r, _ := demoRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/failure-cascade", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing worksheetId, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "MISSING_WORKSHEET_ID") {
		t.Fatalf("expected MISSING_WORKSHEET_ID error code, got %s", w.Body.String())
	}
}

func TestGetFailureCascade_NotFound(t *testing.T) {
	setGinTestMode()
	r, _ := demoRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/failure-cascade?worksheetId=NO-SUCH-SHEET", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown worksheet, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "WORKSHEET_NOT_FOUND") {
		t.Fatalf("expected WORKSHEET_NOT_FOUND error code, got %s", w.Body.String())
	}
}

func TestWritesRejectedInDemoMode(t *testing.T) {
	setGinTestMode()
	r, _ := demoRouter()

	body := strings.NewReader(`{"id":"WS-1","name":"New sheet"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/worksheets", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for write without database, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "READ_ONLY") {
		t.Fatalf("expected READ_ONLY error code, got %s", w.Body.String())
	}
}

func signTestToken(t *testing.T, secret, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"email":   "admin@example.com",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestAuthMiddleware_RejectsMissingToken(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.Use(AuthMiddleware(), AdminMiddleware())
	r.GET("/admin/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", w.Code)
	}
}

func TestAuthMiddleware_AdminToken(t *testing.T) {
	setGinTestMode()
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Unsetenv("JWT_SECRET")

	r := gin.New()
	r.Use(AuthMiddleware(), AdminMiddleware())
	r.GET("/admin/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "test-secret", "Admin"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminMiddleware_RejectsNonAdminRole(t *testing.T) {
	setGinTestMode()
	os.Setenv("JWT_SECRET", "test-secret")
	defer os.Unsetenv("JWT_SECRET")

	r := gin.New()
	r.Use(AuthMiddleware(), AdminMiddleware())
	r.GET("/admin/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "test-secret", "Viewer"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin role, got %d", w.Code)
	}
}

func TestOptionalAuthMiddleware_PassesWithoutHeader(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.Use(OptionalAuthMiddleware())
	r.GET("/public", func(c *gin.Context) {
		_, hasRole := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"has_role": hasRole})
	})

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 without auth header, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"has_role":false`) {
		t.Fatalf("expected no role to be set, got %s", w.Body.String())
	}
}
