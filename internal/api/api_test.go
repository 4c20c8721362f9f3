package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/api/middleware"
	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
	"github.com/andresuchdata/replenish/internal/service"
)

const countsCSV = "SKU,Description,Vendor,2024-06-03,2024-06-10,2024-06-17\n" +
	"A-1,Blue widget,Acme,40,20,5\n" +
	"B-2,Red widget,Acme,10,9,8\n"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	today := time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC)
	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time { return today }
	svc := service.NewAnalysisService(engine.New(cfg), t.TempDir(), ingest.ResolveOptions{Today: today})
	return NewRouter(&Services{AnalysisService: svc}, []string{"*"}, 8)
}

func upload(t *testing.T, router *gin.Engine, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(NewRouter(nil, nil, 0), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadDatasetAndQuery(t *testing.T) {
	router := newTestRouter(t)

	rec := upload(t, router, "/api/v1/datasets", "counts.csv", countsCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var uploaded struct {
		Skus   int `json:"skus"`
		Report struct {
			Status string `json:"status"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	assert.Equal(t, 2, uploaded.Skus)

	rec = do(router, http.MethodGet, "/api/v1/skus?vendor=acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	rec = do(router, http.MethodGet, "/api/v1/skus/A-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/skus/A-1/decision", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var d struct {
		SKU      string `json:"sku"`
		Decision string `json:"decision"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "A-1", d.SKU)
	assert.NotEmpty(t, d.Decision)

	rec = do(router, http.MethodGet, "/api/v1/validation", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status"`)

	rec = do(router, http.MethodGet, "/api/v1/decisions?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, router, "/api/v1/datasets", "counts.csv", countsCSV).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown sku", http.MethodGet, "/api/v1/skus/Z-9", "", http.StatusNotFound},
		{"unknown sku decision", http.MethodGet, "/api/v1/skus/Z-9/decision", "", http.StatusNotFound},
		{"reassign unknown sku", http.MethodPut, "/api/v1/skus/Z-9/vendor", `{"vendor":"Acme"}`, http.StatusNotFound},
		{"negative lead time", http.MethodPut, "/api/v1/vendors/Acme/lead_time", `{"weeks":-1}`, http.StatusBadRequest},
		{"missing weeks", http.MethodPut, "/api/v1/vendors/Acme/lead_time", `{}`, http.StatusBadRequest},
		{"bad window", http.MethodPut, "/api/v1/planning/window", `{"days":45}`, http.StatusBadRequest},
		{"good window", http.MethodPut, "/api/v1/planning/window", `{"days":30}`, http.StatusOK},
		{"lead override", http.MethodPut, "/api/v1/vendors/Acme/lead_time", `{"weeks":3}`, http.StatusOK},
		{"clear override", http.MethodDelete, "/api/v1/vendors/Acme/lead_time", "", http.StatusOK},
		{"reassign vendor", http.MethodPut, "/api/v1/skus/A-1/vendor", `{"vendor":"Globex"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := upload(t, router, "/api/v1/datasets", "counts.pdf", countsCSV)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, router, "/api/v1/datasets", "flat.csv", "SKU,2024-06-03\nA-1,4\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"no_demand_columns":true`)

	rec = upload(t, router, "/api/v1/purchase_orders", "po.csv", "Vendor,Qty\nAcme,3\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/datasets", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanningAndVendors(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusOK, upload(t, router, "/api/v1/datasets", "counts.csv", countsCSV).Code)

	rec := upload(t, router, "/api/v1/purchase_orders", "po.csv",
		"SKU,Vendor,Order Date,Received Date\nA-1,Acme,2024-05-01,2024-05-22\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(router, http.MethodGet, "/api/v1/vendors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"vendor":"Acme"`)

	rec = do(router, http.MethodGet, "/api/v1/planning", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st service.PlanningState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 90, st.WindowDays)
	assert.Equal(t, []int{0, 30, 60, 90}, st.Options)
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(middleware.Logger(), middleware.Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := do(router, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	parsed, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", ""})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, parsed)
	assert.False(t, all)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
