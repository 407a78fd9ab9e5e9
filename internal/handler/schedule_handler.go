package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newsdesk/internal/model"
)

// ScheduleStore はスケジュール設定の読み書きインターフェース。
type ScheduleStore interface {
	Load(ctx context.Context) (model.ScheduleSettings, error)
	Save(ctx context.Context, settings model.ScheduleSettings) error
}

// ScheduleController はプロセス内タイマーの操作インターフェース。
type ScheduleController interface {
	Apply(ctx context.Context) error
	Stop()
	Armed() bool
}

// ScheduleHandler は自動収集スケジュールのHTTPハンドラー。
type ScheduleHandler struct {
	store     ScheduleStore
	scheduler ScheduleController
	logger    *slog.Logger
}

// NewScheduleHandler はScheduleHandlerを生成する。
func NewScheduleHandler(store ScheduleStore, scheduler ScheduleController, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		store:     store,
		scheduler: scheduler,
		logger:    logger,
	}
}

// scheduleResponse はスケジュール設定のAPIレスポンス。
type scheduleResponse struct {
	Success  bool                   `json:"success"`
	Settings model.ScheduleSettings `json:"settings"`
	Armed    bool                   `json:"armed"`
}

// GetConfig は保存済みのスケジュール設定を返す。
// GET /api/schedule-config
func (h *ScheduleHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Load(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		Success:  true,
		Settings: settings,
		Armed:    h.scheduler.Armed(),
	})
}

// SaveConfig はスケジュール設定を保存し、タイマーに反映する。
// POST /api/schedule-config
func (h *ScheduleHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var settings model.ScheduleSettings
	if !decodeJSON(w, r, &settings) {
		return
	}

	if err := h.store.Save(r.Context(), settings); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if err := h.scheduler.Apply(r.Context()); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		Success:  true,
		Settings: settings,
		Armed:    h.scheduler.Armed(),
	})
}

// StopSchedule はタイマーを停止する。保存済みの設定は変更しない。
// POST /api/schedule-config/stop
func (h *ScheduleHandler) StopSchedule(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{
		"success": true,
		"armed":   h.scheduler.Armed(),
	})
}
