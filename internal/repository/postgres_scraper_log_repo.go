package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresScraperLogRepo はPostgreSQLを使用したスクレイパー実行履歴リポジトリ。
type PostgresScraperLogRepo struct {
	db *sql.DB
}

// NewPostgresScraperLogRepo はPostgresScraperLogRepoを生成する。
func NewPostgresScraperLogRepo(db *sql.DB) *PostgresScraperLogRepo {
	return &PostgresScraperLogRepo{db: db}
}

// Create は実行開始時の履歴を作成する。
func (r *PostgresScraperLogRepo) Create(ctx context.Context, log *model.ScraperLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scraper_logs (id, job_id, region, status, trigger, message, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.JobID, log.Region, string(log.Status), string(log.Trigger), log.Message, log.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("実行履歴の作成に失敗しました: %w", err)
	}
	return nil
}

// Finish は履歴を完了状態に更新する。
// 既にstoppedになっている履歴は上書きしない。
func (r *PostgresScraperLogRepo) Finish(ctx context.Context, id string, status model.ScraperLogStatus, message string, finishedAt time.Time, durationMs int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scraper_logs
		 SET status = $2, message = $3, finished_at = $4, duration_ms = $5
		 WHERE id = $1 AND status = 'running'`,
		id, string(status), message, finishedAt, durationMs,
	)
	if err != nil {
		return fmt.Errorf("実行履歴の更新に失敗しました: %w", err)
	}
	return nil
}

// MarkRunningAsStopped はrunning状態の全履歴をstoppedに更新する。
func (r *PostgresScraperLogRepo) MarkRunningAsStopped(ctx context.Context, finishedAt time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE scraper_logs
		 SET status = 'stopped', message = '強制停止されました', finished_at = $1,
		     duration_ms = (EXTRACT(EPOCH FROM ($1::timestamptz - started_at)) * 1000)::bigint
		 WHERE status = 'running'`,
		finishedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("実行中履歴の停止処理に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// ListRecent は新しい順に最大limit件の履歴を返す。
func (r *PostgresScraperLogRepo) ListRecent(ctx context.Context, limit int) ([]*model.ScraperLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, job_id, region, status, trigger, message, started_at, finished_at, duration_ms
		 FROM scraper_logs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("実行履歴一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var logs []*model.ScraperLog
	for rows.Next() {
		l := &model.ScraperLog{}
		var status, trigger string
		var finishedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.JobID, &l.Region, &status, &trigger, &l.Message, &l.StartedAt, &finishedAt, &l.DurationMs); err != nil {
			return nil, fmt.Errorf("実行履歴行の読み取りに失敗しました: %w", err)
		}
		l.Status = model.ScraperLogStatus(status)
		l.Trigger = model.RunTrigger(trigger)
		if finishedAt.Valid {
			t := finishedAt.Time
			l.FinishedAt = &t
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("実行履歴一覧の走査に失敗しました: %w", err)
	}
	return logs, nil
}
