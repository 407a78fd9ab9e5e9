package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresSettingsRepo はPostgreSQLを使用した設定リポジトリ。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// Get は指定キーの設定を取得する。見つからない場合はnilを返す。
func (r *PostgresSettingsRepo) Get(ctx context.Context, key string) (*model.Setting, error) {
	s := &model.Setting{}
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM app_settings WHERE key = $1`,
		key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("設定の取得に失敗しました: %w", err)
	}

	return s, nil
}

// Upsert は指定キーの値を丸ごと置き換える。
// 楽観ロックは行わず、同時更新は後勝ちとなる。
func (r *PostgresSettingsRepo) Upsert(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_settings (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("設定の保存に失敗しました: %w", err)
	}
	return nil
}
