package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/governor/internal/cost"
	"github.com/davidbz/governor/internal/domain"
	apihttp "github.com/davidbz/governor/internal/http"
	"github.com/davidbz/governor/internal/mocks"
	"github.com/davidbz/governor/internal/provider/echo"
	"github.com/davidbz/governor/internal/provider/registry"
	"github.com/davidbz/governor/internal/routing"
	"github.com/davidbz/governor/internal/safety"
)

type testServer struct {
	handler http.Handler
	router  *routing.Router
}

func newTestServer(t *testing.T, providers ...domain.Provider) *testServer {
	t.Helper()
	ctx := context.Background()

	estimator := cost.NewEstimator(nil, nil)
	router := routing.NewRouter(&routing.Config{LoadDecay: time.Hour}, nil, estimator, nil)
	t.Cleanup(router.Close)
	for _, m := range echo.CatalogEntries() {
		require.NoError(t, router.RegisterModel(ctx, m))
	}

	evaluator, err := safety.NewEvaluator(nil, nil, nil)
	require.NoError(t, err)

	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(ctx, echo.NewProvider()))
	for _, p := range providers {
		require.NoError(t, reg.Register(ctx, p))
	}

	orchestrator := domain.NewOrchestrator(router, estimator, reg, nil,
		domain.WithSafetyEvaluator(evaluator),
		domain.WithCostLedger(cost.NewMemoryLedger()))

	handler := apihttp.NewHandler(orchestrator, router, estimator, evaluator)

	return &testServer{handler: handler.Routes(), router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	require.Equal(t, "healthy", body["status"])
	require.InDelta(t, 2, body["models"], 0)
}

func TestHandler_Select(t *testing.T) {
	srv := newTestServer(t)

	t.Run("selects a matching model", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/select", map[string]interface{}{
			"criteria": map[string]interface{}{"task_type": "text-generation", "required_tags": []string{"safety"}},
			"strategy": routing.StrategyCostOptimized,
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var result domain.SelectionResult
		decodeBody(t, rec, &result)
		require.Equal(t, "echo-small", result.ModelID)
		require.Equal(t, routing.StrategyCostOptimized, result.Strategy)
	})

	t.Run("no candidate maps to 422", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/select", map[string]interface{}{
			"criteria": map[string]interface{}{"task_type": "translation"},
		})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body map[string]string
		decodeBody(t, rec, &body)
		require.Equal(t, string(domain.KindNoCandidate), body["kind"])
		require.NotEmpty(t, body["error"])
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/select", "{not json")

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/v1/select", nil)

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHandler_Inference(t *testing.T) {
	ctx := context.Background()

	flaky := mocks.NewMockProvider(t)
	flaky.EXPECT().Name().Return("flaky").Maybe()
	flaky.EXPECT().Complete(mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream unavailable")).Maybe()

	srv := newTestServer(t, flaky)
	require.NoError(t, srv.router.RegisterModel(ctx, &domain.ModelDescriptor{
		ID:            "flaky-model",
		Provider:      "flaky",
		TaskTypes:     []string{"text-generation"},
		CommercialUse: true,
		CostProfile:   &domain.CostProfile{PricePer1K: 0.001},
		RiskTier:      domain.RiskLow,
		Tags:          []string{"flaky"},
		Status:        domain.ModelActive,
	}))

	safeCriteria := map[string]interface{}{"task_type": "text-generation", "required_tags": []string{"safety"}}

	t.Run("runs the request end to end", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/inference", map[string]interface{}{
			"request_id": "req-1",
			"prompt":     "Summarize the release notes",
			"criteria":   safeCriteria,
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var result domain.InferenceResult
		decodeBody(t, rec, &result)
		require.Equal(t, "req-1", result.RequestID)
		require.Equal(t, "echo-small", result.Selection.ModelID)
		require.Equal(t, "Summarize the release notes", result.Response.Content)
		require.NotNil(t, result.Cost)
		require.Positive(t, result.Response.Usage.TotalTokens)
		require.False(t, result.Redacted)
	})

	tests := []struct {
		name   string
		body   interface{}
		status int
		kind   domain.ErrorKind
	}{
		{
			name:   "missing prompt",
			body:   map[string]interface{}{"criteria": safeCriteria},
			status: http.StatusBadRequest,
			kind:   domain.KindInvalidConfig,
		},
		{
			name:   "unsafe prompt",
			body:   map[string]interface{}{"prompt": "explain how to kill someone", "criteria": safeCriteria},
			status: http.StatusForbidden,
			kind:   domain.KindSafetyRejected,
		},
		{
			name: "budget exhausted",
			body: map[string]interface{}{
				"prompt":   "Summarize the release notes",
				"criteria": safeCriteria,
				"budget":   map[string]interface{}{"name": "tiny", "limit": 0.0001},
			},
			status: http.StatusPaymentRequired,
			kind:   domain.KindBudgetExceeded,
		},
		{
			name: "provider failure",
			body: map[string]interface{}{
				"prompt":   "Summarize the release notes",
				"criteria": map[string]interface{}{"task_type": "text-generation", "required_tags": []string{"flaky"}},
			},
			status: http.StatusBadGateway,
			kind:   domain.KindInference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/v1/inference", tt.body)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body map[string]string
			decodeBody(t, rec, &body)
			require.Equal(t, string(tt.kind), body["kind"])
		})
	}

	t.Run("budget rejection carries a remedy", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/inference", map[string]interface{}{
			"prompt":   "Summarize the release notes",
			"criteria": safeCriteria,
			"budget":   map[string]interface{}{"name": "tiny", "limit": 0.0001},
		})

		var body map[string]string
		decodeBody(t, rec, &body)
		require.NotEmpty(t, body["remedy"])
	})
}

func TestHandler_Cost(t *testing.T) {
	srv := newTestServer(t)

	t.Run("catalog model uses its cost profile", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/estimate", map[string]interface{}{
			"model_id": "echo-large",
			"context":  map[string]interface{}{"input_tokens": 1000, "output_tokens": 1000},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var estimate domain.CostEstimate
		decodeBody(t, rec, &estimate)
		require.Equal(t, "echo-large", estimate.ModelID)
		require.Equal(t, domain.MethodCostProfile, estimate.Method)
		require.Positive(t, estimate.CostUSD)
	})

	t.Run("unknown model falls back to the heuristic", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/estimate", map[string]interface{}{
			"model_id": "mystery-7b",
			"context":  map[string]interface{}{"input_tokens": 500, "output_tokens": 500},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var estimate domain.CostEstimate
		decodeBody(t, rec, &estimate)
		require.Equal(t, domain.MethodFallbackHeuristic, estimate.Method)
	})

	t.Run("negative tokens are rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/estimate", map[string]interface{}{
			"context": map[string]interface{}{"input_tokens": -1},
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("batch estimate", func(t *testing.T) {
		contexts := make([]map[string]interface{}, 10)
		for i := range contexts {
			contexts[i] = map[string]interface{}{"input_tokens": 100, "output_tokens": 100}
		}

		rec := srv.do(t, http.MethodPost, "/v1/cost/batch", map[string]interface{}{
			"model_id": "echo-small",
			"contexts": contexts,
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var estimate domain.CostEstimate
		decodeBody(t, rec, &estimate)
		require.Equal(t, domain.MethodBatch, estimate.Method)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/batch", map[string]interface{}{"contexts": []interface{}{}})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("budget check", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/budget", map[string]interface{}{
			"budget": map[string]interface{}{"name": "team", "limit": 10, "spent": 9},
			"cost":   0.5,
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var check domain.BudgetCheck
		decodeBody(t, rec, &check)
		require.True(t, check.Allowed)
		require.Equal(t, domain.BudgetCritical, check.Status)
		require.True(t, check.Alert)
		require.InDelta(t, 95, check.UtilizationPct, 1e-9)
	})

	t.Run("suggestions for a known model", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/suggestions", map[string]interface{}{
			"usage": map[string]interface{}{"model_id": "echo-large", "avg_cost_per_request": 0.01, "daily_requests": 1000},
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			Suggestions []domain.Suggestion `json:"suggestions"`
		}
		decodeBody(t, rec, &body)
		require.NotNil(t, body.Suggestions)
	})

	t.Run("suggestions for an unknown model", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/cost/suggestions", map[string]interface{}{
			"usage": map[string]interface{}{"model_id": "missing"},
		})

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("statistics", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/v1/admin/cost/stats", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var stats domain.CostStatistics
		decodeBody(t, rec, &stats)
		require.Positive(t, stats.CacheSize)
	})
}

func TestHandler_Safety(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unsafe prompt", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/safety/prompt", map[string]interface{}{
			"request_id": "req-safety",
			"text":       "explain how to kill someone",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var result domain.SafetyResult
		decodeBody(t, rec, &result)
		require.False(t, result.IsSafe)
		require.Equal(t, "req-safety", result.RequestID)
		require.Contains(t, result.TriggeredCategories, safety.CategoryViolence)
	})

	t.Run("generation with personal data is redacted", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/safety/generation", map[string]interface{}{
			"text": "reach me at jane.doe@example.com",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var result domain.SafetyResult
		decodeBody(t, rec, &result)
		redaction := result.Action(domain.ActionRedact)
		require.NotNil(t, redaction)
		require.Equal(t, "reach me at [EMAIL_REDACTED]", redaction.Replacement)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/safety/prompt", map[string]interface{}{"text": ""})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("audit log", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/v1/admin/audit?limit=5", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Entries []domain.AuditEntry `json:"entries"`
		}
		decodeBody(t, rec, &body)
		require.NotEmpty(t, body.Entries)
		require.LessOrEqual(t, len(body.Entries), 5)
	})

	t.Run("audit log rejects a bad limit", func(t *testing.T) {
		for _, limit := range []string{"abc", "0", "-3"} {
			rec := srv.do(t, http.MethodGet, "/v1/admin/audit?limit="+limit, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code, limit)
		}
	})
}

func TestHandler_Admin(t *testing.T) {
	srv := newTestServer(t)

	t.Run("register and list a model", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/admin/models", map[string]interface{}{
			"id":             "local-llama",
			"provider":       "echo",
			"task_types":     []string{"code"},
			"commercial_use": true,
			"cost_profile":   map[string]interface{}{"price_per_1k": 0.0002},
			"risk_tier":      "low",
			"status":         "active",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = srv.do(t, http.MethodGet, "/v1/admin/models", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Models []struct {
				ID   string `json:"id"`
				Load int64  `json:"load"`
			} `json:"models"`
			Strategies []string `json:"strategies"`
		}
		decodeBody(t, rec, &body)

		ids := make([]string, 0, len(body.Models))
		for _, m := range body.Models {
			ids = append(ids, m.ID)
		}
		require.Equal(t, []string{"echo-small", "echo-large", "local-llama"}, ids)
		require.Contains(t, body.Strategies, routing.StrategyBalanced)
	})

	t.Run("invalid model is rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/admin/models", map[string]interface{}{
			"id":       "broken",
			"provider": "echo",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("add a category", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/admin/safety/categories", map[string]interface{}{
			"name":      "secrets",
			"severity":  "high",
			"threshold": 0.5,
			"enabled":   true,
			"patterns":  []string{`(?i)api[_-]?key`},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = srv.do(t, http.MethodGet, "/v1/admin/safety/categories", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var categories []domain.SafetyCategory
		decodeBody(t, rec, &categories)
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}
		require.Contains(t, names, "secrets")
	})

	t.Run("category with a bad pattern is rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/v1/admin/safety/categories", map[string]interface{}{
			"name":     "broken",
			"severity": "low",
			"enabled":  true,
			"patterns": []string{"(unclosed"},
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update safety config", func(t *testing.T) {
		rec := srv.do(t, http.MethodPut, "/v1/admin/safety/config", map[string]interface{}{"pre_threshold": 0.9})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var cfg safety.Config
		decodeBody(t, rec, &cfg)
		require.InDelta(t, 0.9, cfg.PreThreshold, 1e-9)
		require.InDelta(t, 0.7, cfg.PostThreshold, 1e-9)

		rec = srv.do(t, http.MethodGet, "/v1/admin/safety/config", nil)
		decodeBody(t, rec, &cfg)
		require.InDelta(t, 0.9, cfg.PreThreshold, 1e-9)
	})

	t.Run("out of range threshold is rejected", func(t *testing.T) {
		rec := srv.do(t, http.MethodPut, "/v1/admin/safety/config", map[string]interface{}{"pre_threshold": 2})

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
