package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/newsdesk/internal/model"
)

// --- モック定義 ---

// mockScheduleStore はScheduleStoreのモック実装。
type mockScheduleStore struct {
	loadFn func(ctx context.Context) (model.ScheduleSettings, error)
	saveFn func(ctx context.Context, settings model.ScheduleSettings) error
}

func (m *mockScheduleStore) Load(ctx context.Context) (model.ScheduleSettings, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return model.DefaultScheduleSettings(), nil
}

func (m *mockScheduleStore) Save(ctx context.Context, settings model.ScheduleSettings) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, settings)
	}
	return nil
}

// mockScheduleController はScheduleControllerのモック実装。
type mockScheduleController struct {
	applyFn    func(ctx context.Context) error
	armed      bool
	applyCalls int
	stopCalls  int
}

func (m *mockScheduleController) Apply(ctx context.Context) error {
	m.applyCalls++
	if m.applyFn != nil {
		return m.applyFn(ctx)
	}
	return nil
}

func (m *mockScheduleController) Stop() {
	m.stopCalls++
	m.armed = false
}

func (m *mockScheduleController) Armed() bool {
	return m.armed
}

// mockScraperService はScraperServiceのモック実装。
type mockScraperService struct {
	runFn     func(ctx context.Context, regionIDs []string, trigger model.RunTrigger) (*model.RunSummary, error)
	killAllFn func(ctx context.Context) int
	stopFn    func(ctx context.Context, jobID string) (bool, error)
	jobs      []model.ScraperJob
}

func (m *mockScraperService) Run(ctx context.Context, regionIDs []string, trigger model.RunTrigger) (*model.RunSummary, error) {
	if m.runFn != nil {
		return m.runFn(ctx, regionIDs, trigger)
	}
	return &model.RunSummary{}, nil
}

func (m *mockScraperService) KillAll(ctx context.Context) int {
	if m.killAllFn != nil {
		return m.killAllFn(ctx)
	}
	return 0
}

func (m *mockScraperService) Stop(ctx context.Context, jobID string) (bool, error) {
	if m.stopFn != nil {
		return m.stopFn(ctx, jobID)
	}
	return false, nil
}

func (m *mockScraperService) Jobs() []model.ScraperJob {
	return m.jobs
}

// mockLogLister はScraperLogListerのモック実装。
type mockLogLister struct {
	listRecentFn func(ctx context.Context, limit int) ([]*model.ScraperLog, error)
}

func (m *mockLogLister) ListRecent(ctx context.Context, limit int) ([]*model.ScraperLog, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- テストヘルパー ---

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testDeps はモックで構成したRouterDepsを返す。
func testDeps(buf *bytes.Buffer) *RouterDeps {
	return &RouterDeps{
		Logger:             newTestLogger(buf),
		CORSAllowedOrigin:  "http://localhost:3000",
		HealthChecker:      &mockHealthChecker{},
		ScheduleStore:      &mockScheduleStore{},
		ScheduleController: &mockScheduleController{},
		ScraperService:     &mockScraperService{},
		ScraperLogs:        &mockLogLister{},
	}
}

// serve はルーター経由でリクエストを処理する。
func serve(t *testing.T, deps *RouterDeps, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
	return body
}
