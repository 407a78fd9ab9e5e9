// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// SettingsRepository はキーバリュー形式の設定テーブルの永続化インターフェース。
type SettingsRepository interface {
	// Get は指定キーの設定を取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, key string) (*model.Setting, error)

	// Upsert は指定キーの値を丸ごと置き換える。存在しない場合は作成する。
	Upsert(ctx context.Context, key, value string) error
}

// ScraperLogRepository はスクレイパー実行履歴の永続化インターフェース。
type ScraperLogRepository interface {
	// Create は実行開始時の履歴を作成する。
	Create(ctx context.Context, log *model.ScraperLog) error

	// Finish は履歴を完了状態（success/failed）に更新する。
	Finish(ctx context.Context, id string, status model.ScraperLogStatus, message string, finishedAt time.Time, durationMs int64) error

	// MarkRunningAsStopped はrunning状態の全履歴をstoppedに更新し、更新件数を返す。
	MarkRunningAsStopped(ctx context.Context, finishedAt time.Time) (int64, error)

	// ListRecent は新しい順に最大limit件の履歴を返す。
	ListRecent(ctx context.Context, limit int) ([]*model.ScraperLog, error)
}
