package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// ScraperService はスクレイパー実行のインターフェース。
type ScraperService interface {
	Run(ctx context.Context, regionIDs []string, trigger model.RunTrigger) (*model.RunSummary, error)
	KillAll(ctx context.Context) int
	Stop(ctx context.Context, jobID string) (bool, error)
	Jobs() []model.ScraperJob
}

// ScraperLogLister は実行履歴の取得インターフェース。
type ScraperLogLister interface {
	ListRecent(ctx context.Context, limit int) ([]*model.ScraperLog, error)
}

// ScraperHandler はスクレイパー実行のHTTPハンドラー。
type ScraperHandler struct {
	service ScraperService
	logs    ScraperLogLister
	logger  *slog.Logger
}

// NewScraperHandler はScraperHandlerを生成する。
func NewScraperHandler(service ScraperService, logs ScraperLogLister, logger *slog.Logger) *ScraperHandler {
	return &ScraperHandler{
		service: service,
		logs:    logs,
		logger:  logger,
	}
}

// runScraperRequest はスクレイパー実行リクエストのボディ。
type runScraperRequest struct {
	Regions []string `json:"regions"`
}

// runScraperResponse はスクレイパー実行のAPIレスポンス。
type runScraperResponse struct {
	Success bool `json:"success"`
	*model.RunSummary
}

// RunScraper は指定地域のスクレイパーを順に実行し、集計結果を返す。
// 実行は全地域の完了まで同期的に行う。クライアントの切断ではプロセスを止めず、
// 停止は全停止エンドポイントで行う。
// POST /api/run-scraper
func (h *ScraperHandler) RunScraper(w http.ResponseWriter, r *http.Request) {
	var req runScraperRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	summary, err := h.service.Run(context.WithoutCancel(r.Context()), req.Regions, model.RunTriggerManual)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, runScraperResponse{
		Success:    true,
		RunSummary: summary,
	})
}

// KillAll は実行中の全スクレイパープロセスを停止する。
// POST /api/kill-all
func (h *ScraperHandler) KillAll(w http.ResponseWriter, r *http.Request) {
	killed := h.service.KillAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"killed":  killed,
	})
}

// ListJobs は実行中のスクレイパープロセス一覧を返す。
// GET /api/scraper/jobs
func (h *ScraperHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"jobs":    h.service.Jobs(),
	})
}

// StopJob は指定ジョブのプロセスを停止する。終了済みのジョブの停止は成功として扱う。
// POST /api/scraper/jobs/{id}/stop
func (h *ScraperHandler) StopJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	stopped, err := h.service.Stop(r.Context(), jobID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stopped": stopped,
	})
}

// ListLogs は新しい順に実行履歴を返す。
// GET /api/scraper/logs?limit=
func (h *ScraperHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeInvalidLimit(w)
			return
		}
		limit = min(n, maxLogLimit)
	}

	logs, err := h.logs.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if logs == nil {
		logs = []*model.ScraperLog{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"logs":    logs,
	})
}

// writeInvalidLimit はlimitパラメータが不正な場合の400を書き込む。
func writeInvalidLimit(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "limit には1以上の整数を指定してください。",
		Category: "validation",
		Action:   "limit の値を確認してください。",
		Field:    "limit",
	})
}
