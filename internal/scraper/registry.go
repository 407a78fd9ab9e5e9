package scraper

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/hitoshi/newsdesk/internal/model"
)

// Registry は実行中のスクレイパープロセスをジョブIDで管理する。
// 複数のリクエストから同時に参照されるためmutexで保護する。
type Registry struct {
	mu     sync.Mutex
	jobs   map[string]model.ScraperJob
	kill   func(pid int) error
	logger *slog.Logger
}

// NewRegistry はRegistryを生成する。
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		jobs:   make(map[string]model.ScraperJob),
		kill:   killProcessTree,
		logger: logger,
	}
}

// Register は起動したプロセスを登録する。
func (r *Registry) Register(job model.ScraperJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Unregister は終了したプロセスの登録を解除する。
func (r *Registry) Unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

// Len は登録中のプロセス数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// List は登録中のプロセスを開始日時の古い順に返す。
func (r *Registry) List() []model.ScraperJob {
	r.mu.Lock()
	jobs := make([]model.ScraperJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].StartedAt.Equal(jobs[j].StartedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].StartedAt.Before(jobs[j].StartedAt)
	})
	return jobs
}

// Kill は指定ジョブのプロセスツリーを終了する。
// 未登録または終了済みのジョブの場合は何もせずfalseを返す。
func (r *Registry) Kill(jobID string) (bool, error) {
	r.mu.Lock()
	job, ok := r.jobs[jobID]
	r.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := r.kill(job.PID); err != nil {
		return false, err
	}
	return true, nil
}

// KillAll は登録中の全プロセスツリーを終了し、終了できた件数を返す。
// 個別の失敗はログに記録して残りの処理を続ける。
func (r *Registry) KillAll() int {
	killed := 0
	for _, job := range r.List() {
		if err := r.kill(job.PID); err != nil {
			r.logger.Warn("スクレイパープロセスの終了に失敗しました",
				slog.String("job_id", job.ID),
				slog.String("region", job.Region),
				slog.Int("pid", job.PID),
				slog.String("error", err.Error()),
			)
			continue
		}
		killed++
	}
	return killed
}
