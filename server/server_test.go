package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/tbdose-api/config"
	"github.com/giygas/tbdose-api/data"
	"github.com/giygas/tbdose-api/drugtable"
	"github.com/giygas/tbdose-api/handlers"
	"github.com/giygas/tbdose-api/health"
	"github.com/giygas/tbdose-api/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "8123",
		Address:              "127.0.0.1",
		Env:                  config.EnvTest,
		MaxRequestBody:       1048576,
		MaxHeaderSize:        1048576,
		TableCheckIntervalMn: 60,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logging.InitLogger("")

	table, err := drugtable.NewEmbeddedLoader().Load()
	if err != nil {
		t.Fatalf("Failed to load embedded table: %v", err)
	}

	container := data.NewDataContainer()
	if err := container.Load(table); err != nil {
		t.Fatal(err)
	}
	container.SetServerStartTime(time.Now())

	return NewServer(testConfig(), container, health.NewHealthChecker(container, time.Hour))
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/v1/drugs", http.StatusOK},
		{http.MethodGet, "/v1/drugs/amikacin", http.StatusOK},
		{http.MethodGet, "/v1/drugs/unknown", http.StatusNotFound},
		{http.MethodGet, "/v1/doses?weight=60", http.StatusOK},
		{http.MethodGet, "/v1/doses?weight=0", http.StatusBadRequest},
		{http.MethodGet, "/v1/doses/levofloxacin-iv?weight=60", http.StatusOK},
		{http.MethodGet, "/v1/doses/unknown?weight=60", http.StatusNotFound},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/nowhere", http.StatusNotFound},
		{http.MethodPost, "/v1/doses", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rr := serve(s, tt.method, tt.target)
			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestServerDosesEndToEnd(t *testing.T) {
	s := newTestServer(t)

	rr := serve(s, http.MethodGet, "/v1/doses?weight=60")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected rate limit headers on the response")
	}

	var resp handlers.DosesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 8 || len(resp.FirstLine) != 4 || len(resp.SecondLine) != 4 {
		t.Errorf("Expected 8 results split 4/4, got %d %d/%d", len(resp.Results), len(resp.FirstLine), len(resp.SecondLine))
	}
	if resp.Results[2].Drug.ID != "pyrazinamide" || resp.Results[2].FormattedDose != "1500 mg" {
		t.Errorf("Unexpected pyrazinamide result: %+v", resp.Results[2])
	}
}

func TestServerHealth(t *testing.T) {
	s := newTestServer(t)

	rr := serve(s, http.MethodGet, "/health")
	var resp handlers.HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}
	if resp.Data["drugs"] != float64(8) {
		t.Errorf("Expected 8 drugs in health data, got %v", resp.Data["drugs"])
	}
}

func TestServerMetricsExposition(t *testing.T) {
	s := newTestServer(t)

	serve(s, http.MethodGet, "/v1/doses?weight=72")
	rr := serve(s, http.MethodGet, "/metrics")

	body := rr.Body.String()
	for _, want := range []string{
		`http_request_total{method="GET",path="/v1/doses",status="200"}`,
		`dose_weight_band_total{band="70+"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in metrics output", want)
		}
	}
}

func TestServerRecoversFromPanic(t *testing.T) {
	s := newTestServer(t)
	s.router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := serve(s, http.MethodGet, "/panic")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rr.Code)
	}
}

func TestServerStartShutdown(t *testing.T) {
	s := newTestServer(t)
	s.server.Addr = "127.0.0.1:0"

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start did not return after shutdown")
	}
}
