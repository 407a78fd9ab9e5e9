package model

import "time"

// RunTrigger はスクレイパー実行の起点を表す。
type RunTrigger string

const (
	// RunTriggerManual は管理画面からの手動実行。
	RunTriggerManual RunTrigger = "manual"
	// RunTriggerSchedule は自動収集スケジュールによる実行。
	RunTriggerSchedule RunTrigger = "schedule"
)

// RunResult は1地域分のスクレイパー実行結果を表す。
// 永続化はされず、実行結果のレスポンスにのみ含まれる。
type RunResult struct {
	Region    string        `json:"region"`
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMs int64         `json:"elapsed_ms"`
}

// RunSummary は複数地域のスクレイパー実行結果の集計を表す。
type RunSummary struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Results   []RunResult `json:"results"`
}

// ScraperLogStatus は実行履歴の状態を表す。
type ScraperLogStatus string

const (
	ScraperLogStatusRunning ScraperLogStatus = "running"
	ScraperLogStatusSuccess ScraperLogStatus = "success"
	ScraperLogStatusFailed  ScraperLogStatus = "failed"
	ScraperLogStatusStopped ScraperLogStatus = "stopped"
)

// ScraperLog はscraper_logsテーブルの1行（1地域1回分の実行履歴）を表す。
type ScraperLog struct {
	ID         string           `json:"id"`
	JobID      string           `json:"job_id"`
	Region     string           `json:"region"`
	Status     ScraperLogStatus `json:"status"`
	Trigger    RunTrigger       `json:"trigger"`
	Message    string           `json:"message"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// ScraperJob は実行中のスクレイパープロセスを表す。
type ScraperJob struct {
	ID        string    `json:"id"`
	Region    string    `json:"region"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}
