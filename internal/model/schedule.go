package model

import "time"

// ScheduleSettingsKey は自動収集スケジュールを保存する設定キー。
const ScheduleSettingsKey = "automation_schedule"

// スケジュール設定の許容範囲
const (
	MinIntervalMinutes = 30
	MaxIntervalMinutes = 240
)

// ScheduleSettings は自動収集スケジュールの設定を表す。
// 設定テーブルにJSONとして1行だけ保存される。
type ScheduleSettings struct {
	Enabled         bool       `json:"enabled"`
	StartHour       int        `json:"startHour"`
	EndHour         int        `json:"endHour"`
	IntervalMinutes int        `json:"intervalMinutes"`
	RunOnMinute     int        `json:"runOnMinute"`
	LastRun         *time.Time `json:"lastRun,omitempty"`
}

// DefaultScheduleSettings は設定が未保存の場合に使用するデフォルト値を返す。
func DefaultScheduleSettings() ScheduleSettings {
	return ScheduleSettings{
		Enabled:         false,
		StartHour:       9,
		EndHour:         20,
		IntervalMinutes: 60,
		RunOnMinute:     30,
	}
}

// Setting はキーバリュー形式の設定テーブルの1行を表す。
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
