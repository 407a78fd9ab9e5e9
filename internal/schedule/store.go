// Package schedule は自動収集スケジュールの設定の永続化と、
// 設定に基づくプロセス内タイマーの制御を提供する。
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/repository"
)

// Store はスケジュール設定を設定テーブルの固定キーに読み書きする。
type Store struct {
	repo repository.SettingsRepository
}

// NewStore はStoreを生成する。
func NewStore(repo repository.SettingsRepository) *Store {
	return &Store{repo: repo}
}

// Load は現在のスケジュール設定を返す。
// 未保存の場合はデフォルト値を返し、書き戻しは行わない。
func (s *Store) Load(ctx context.Context) (model.ScheduleSettings, error) {
	row, err := s.repo.Get(ctx, model.ScheduleSettingsKey)
	if err != nil {
		return model.ScheduleSettings{}, fmt.Errorf("スケジュール設定の読み込みに失敗: %w", err)
	}
	if row == nil {
		return model.DefaultScheduleSettings(), nil
	}

	var settings model.ScheduleSettings
	if err := json.Unmarshal([]byte(row.Value), &settings); err != nil {
		return model.ScheduleSettings{}, fmt.Errorf("%w: %v", model.NewSettingsCorruptedError(model.ScheduleSettingsKey), err)
	}
	return settings, nil
}

// Save は設定を検証し、JSONとして丸ごと上書き保存する。
// 検証に失敗した場合は対象フィールドを示すAPIErrorを返し、何も書き込まない。
func (s *Store) Save(ctx context.Context, settings model.ScheduleSettings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("スケジュール設定のシリアライズに失敗: %w", err)
	}

	if err := s.repo.Upsert(ctx, model.ScheduleSettingsKey, string(payload)); err != nil {
		return fmt.Errorf("スケジュール設定の保存に失敗: %w", err)
	}
	return nil
}

// RecordLastRun は最終実行日時を記録する。
// 設定全体を読み直して置き換えるため、同時に保存された設定とは後勝ちになる。
func (s *Store) RecordLastRun(ctx context.Context, at time.Time) error {
	settings, err := s.Load(ctx)
	if err != nil {
		return err
	}
	settings.LastRun = &at

	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("スケジュール設定のシリアライズに失敗: %w", err)
	}
	if err := s.repo.Upsert(ctx, model.ScheduleSettingsKey, string(payload)); err != nil {
		return fmt.Errorf("最終実行日時の保存に失敗: %w", err)
	}
	return nil
}

// Validate はスケジュール設定の各フィールドが許容範囲内かを検証する。
func Validate(settings model.ScheduleSettings) error {
	checks := []struct {
		field    string
		value    int
		min, max int
	}{
		{"startHour", settings.StartHour, 0, 23},
		{"endHour", settings.EndHour, 0, 23},
		{"intervalMinutes", settings.IntervalMinutes, model.MinIntervalMinutes, model.MaxIntervalMinutes},
		{"runOnMinute", settings.RunOnMinute, 0, 59},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return model.NewInvalidScheduleFieldError(c.field, c.value, c.min, c.max)
		}
	}
	return nil
}
