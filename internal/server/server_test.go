package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fishfarm-backend/internal/auth"
	"fishfarm-backend/internal/config"
	"fishfarm-backend/internal/models"
	"fishfarm-backend/internal/sizing"
	"fishfarm-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret-that-is-at-least-32-chars"

type harness struct {
	app   *fiber.App
	db    *gorm.DB
	token string
}

func newHarness(t *testing.T, role models.UserRole) harness {
	t.Helper()
	db := testutil.NewDB(t)
	c, err := sizing.NewClassifier(sizing.DefaultBands())
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: secret, CORSOrigins: "http://localhost:5173"}
	app := New(cfg, db, testutil.NoRetry, sizing.NewHolder(c))

	user := testutil.User(t, db, "api", role)
	token, err := auth.GenerateToken(secret, &user)
	require.NoError(t, err)
	return harness{app: app, db: db, token: token}
}

func (h harness) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestRequiresToken(t *testing.T) {
	h := newHarness(t, models.RoleViewer)
	h.token = ""
	resp, _ := h.do(t, http.MethodGet, "/api/storage-locations", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestViewerCannotWrite(t *testing.T) {
	h := newHarness(t, models.RoleViewer)
	resp, _ := h.do(t, http.MethodPost, "/api/disposals", map[string]any{})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDisposalFlowOverHTTP(t *testing.T) {
	h := newHarness(t, models.RoleAdmin)
	processed := time.Now().AddDate(0, 0, -40)
	batch := testutil.Batch(t, h.db, "SB-1", &processed)
	tank := testutil.Location(t, h.db, "Tank A", 1000, models.StorageActive)
	rec := testutil.Stock(t, h.db, batch.ID, &tank.ID, 3, 10, 5000)

	resp, raw := h.do(t, http.MethodGet, "/api/disposals/candidates?min_age_days=30", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	var cands struct {
		Candidates []struct {
			StockRecordID string `json:"stock_record_id"`
			Reason        string `json:"reason"`
			DaysInStorage int    `json:"days_in_storage"`
		} `json:"candidates"`
		TotalWeightKg float64 `json:"total_weight_kg"`
	}
	require.NoError(t, json.Unmarshal(raw, &cands))
	require.Len(t, cands.Candidates, 1)
	assert.Equal(t, rec.ID, cands.Candidates[0].StockRecordID)
	assert.Equal(t, "age", cands.Candidates[0].Reason)
	assert.Equal(t, 40, cands.Candidates[0].DaysInStorage)
	assert.Equal(t, 5.0, cands.TotalWeightKg)

	resp, raw = h.do(t, http.MethodGet, "/api/disposals/candidates/export?format=csv&min_age_days=30", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	lines := strings.Split(strings.TrimSpace(string(raw)), "\r\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], `"`+rec.ID+`"`))

	body := map[string]any{
		"stock_record_ids": []string{rec.ID},
		"method":           "compost",
		"cost":             "12.50",
		"policy":           map[string]any{"min_age_days": 30},
	}
	resp, raw = h.do(t, http.MethodPost, "/api/disposals", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(raw))
	var created models.DisposalRecord
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "DSP-000001", created.SequenceNumber)

	resp, raw = h.do(t, http.MethodPost, "/api/disposals", body)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, string(raw))

	resp, _ = h.do(t, http.MethodPost, "/api/disposals/"+created.ID+"/approve", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, raw = h.do(t, http.MethodGet, "/api/audit-logs?entity_type=disposal", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var logs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &logs))
	assert.Len(t, logs, 2)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	h := newHarness(t, models.RoleAdmin)

	resp, raw := h.do(t, http.MethodGet, "/api/disposals/candidates?min_age_days=abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(raw), "min_age_days")

	resp, _ = h.do(t, http.MethodGet, "/api/storage-locations/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/dispatches/00000000-0000-0000-0000-000000000000/approve", map[string]any{"driver_name": "Can"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSizeClassesAndMetrics(t *testing.T) {
	h := newHarness(t, models.RoleAdmin)

	resp, raw := h.do(t, http.MethodGet, "/api/size-classes/classify?total_weight_grams=5000&pieces=10", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))
	assert.JSONEq(t, `{"size_class":6,"unit_weight_grams":500}`, string(raw))

	resp, raw = h.do(t, http.MethodPut, "/api/size-classes", []map[string]any{
		{"class": 0, "min_grams": 0, "max_grams": 1000},
		{"class": 1, "min_grams": 1000, "max_grams": 0},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(raw))

	resp, raw = h.do(t, http.MethodGet, "/api/size-classes/classify?total_weight_grams=5000&pieces=10", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"size_class":0,"unit_weight_grams":500}`, string(raw))

	resp, _ = h.do(t, http.MethodPut, "/api/size-classes", []map[string]any{{"class": 0, "min_grams": 10, "max_grams": 5}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, raw = h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "fishfarm_store_retries_total")
}
