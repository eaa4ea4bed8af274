package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/score"
	"github.com/opensource-finance/harrier/internal/validate"
)

// createTestServer creates a server wired to an in-process pipeline.
func createTestServer() *Server {
	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	engine := score.NewEngine(score.DefaultRules())
	pipe := pipeline.New(validate.New(), engine, pipeline.WithBatchWorkers(4))

	return NewServer(cfg, pipe, engine, nil, nil, "test-v1")
}

func strongApplication() map[string]any {
	return map[string]any{
		"age":              35,
		"monthly_income":   25000.0,
		"current_debt":     3000.0,
		"credit_history":   2,
		"years_at_job":     6,
		"dependents":       1,
		"housing_type":     "Owned",
		"loan_purpose":     "Business",
		"requested_amount": 15000.0,
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("SuccessfulEvaluation", func(t *testing.T) {
		body, _ := json.Marshal(EvaluateRequest{Fields: strongApplication()})
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var res domain.EvaluationResult
		if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if res.ID == "" {
			t.Error("expected evaluation id in response")
		}
		if res.Decision != domain.DecisionApproved {
			t.Errorf("expected APPROVED, got %s", res.Decision)
		}
		if res.FinalScore < 80 {
			t.Errorf("expected score at or above the threshold, got %d", res.FinalScore)
		}
	})

	t.Run("InvalidApplicationStillReturns200", func(t *testing.T) {
		fields := strongApplication()
		fields["age"] = 15 // below minimum

		body, _ := json.Marshal(EvaluateRequest{Fields: fields})
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var res domain.EvaluationResult
		if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if res.Decision != domain.DecisionRejected {
			t.Errorf("expected REJECTED for invalid input, got %s", res.Decision)
		}
		if len(res.Errors) == 0 {
			t.Error("expected validation errors in response")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		body, _ := json.Marshal(EvaluateRequest{Fields: strongApplication()})
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestBatchEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("BatchPreservesOrder", func(t *testing.T) {
		weak := strongApplication()
		weak["credit_history"] = 0
		weak["current_debt"] = 16000.0

		body, _ := json.Marshal(BatchRequest{
			Applications: []map[string]any{strongApplication(), weak, strongApplication()},
		})
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate/batch", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp BatchResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 3 {
			t.Fatalf("expected 3 results, got %d", resp.Count)
		}
		for i, res := range resp.Results {
			if res.Index != i {
				t.Errorf("result %d carries index %d", i, res.Index)
			}
		}
		if resp.Results[0].Decision != domain.DecisionApproved {
			t.Errorf("expected first result APPROVED, got %s", resp.Results[0].Decision)
		}
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate/batch", bytes.NewBufferString(`{"applications":[]}`))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestStatsAndRulesEndpoints(t *testing.T) {
	server := createTestServer()

	t.Run("Stats", func(t *testing.T) {
		// Drive one evaluation so stats are non-trivial
		body, _ := json.Marshal(EvaluateRequest{Fields: strongApplication()})
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		req = httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
		rr = httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var stats domain.SessionStats
		if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
			t.Fatalf("failed to parse stats: %v", err)
		}
		if stats.Total != 1 {
			t.Errorf("expected 1 evaluation in session, got %d", stats.Total)
		}
	})

	t.Run("Rules", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count == 0 {
			t.Error("expected loaded rules")
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer()

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("NotReadyWithoutRules", func(t *testing.T) {
		engine := score.NewEngine(nil)
		pipe := pipeline.New(validate.New(), engine)
		empty := NewServer(domain.ServerConfig{}, pipe, engine, nil, nil, "test-v1")

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		empty.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedRequestID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
