package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/region"
	"github.com/hitoshi/newsdesk/internal/repository"
	"github.com/hitoshi/newsdesk/internal/security"
)

// DefaultTimeout は1地域あたりの既定の実行制限時間。
const DefaultTimeout = 120 * time.Second

// stoppedMessage は全停止により起動されなかった地域の結果メッセージ。
const stoppedMessage = "全停止によりスキップされました"

// Config はスクレイパープロセスの起動設定を表す。
// 各地域は "Command Entrypoint --region <id>" としてWorkDirで起動される。
type Config struct {
	Command       string
	Entrypoint    string
	WorkDir       string
	Timeout       time.Duration
	MaxConcurrent int
}

// Invoker は地域ごとにスクレイパープロセスを起動し、結果を集計する。
type Invoker struct {
	cfg       Config
	runner    ProcessRunner
	registry  *Registry
	logs      repository.ScraperLogRepository
	sanitizer security.MessageSanitizer
	logger    *slog.Logger
	metrics   metrics.MetricsCollector

	now   func() time.Time
	newID func() string

	mu      sync.Mutex
	batches map[string]context.CancelFunc
}

// NewInvoker はInvokerを生成する。
// logsがnilの場合は実行履歴を記録しない。collectorがnilの場合はメトリクスを記録しない。
func NewInvoker(
	cfg Config,
	runner ProcessRunner,
	registry *Registry,
	logs repository.ScraperLogRepository,
	sanitizer security.MessageSanitizer,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Invoker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Invoker{
		cfg:       cfg,
		runner:    runner,
		registry:  registry,
		logs:      logs,
		sanitizer: sanitizer,
		logger:    logger,
		metrics:   collector,
		now:       time.Now,
		newID:     uuid.NewString,
		batches:   make(map[string]context.CancelFunc),
	}
}

// Run は指定地域のスクレイパーを実行し、呼び出し順の結果一覧と成功件数を返す。
// 地域が空の場合、または未知の地域IDが含まれる場合はプロセスを起動せずバリデーションエラーを返す。
// 1地域の失敗は他の地域の実行に影響しない。
func (inv *Invoker) Run(ctx context.Context, regionIDs []string, trigger model.RunTrigger) (*model.RunSummary, error) {
	if len(regionIDs) == 0 {
		return nil, model.NewNoRegionsError()
	}
	var unknown []string
	for _, id := range regionIDs {
		if !region.IsScraperTarget(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return nil, model.NewNoValidRegionsError(unknown)
	}

	batchCtx, done := inv.startBatch(ctx)
	defer done()

	inv.logger.Info("スクレイパーの一括実行を開始します",
		slog.Int("regions", len(regionIDs)),
		slog.String("trigger", string(trigger)),
		slog.Int("max_concurrent", inv.cfg.MaxConcurrent),
	)

	results := make([]model.RunResult, len(regionIDs))
	if inv.cfg.MaxConcurrent == 1 {
		for i, id := range regionIDs {
			results[i] = inv.runRegion(batchCtx, id, trigger)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(inv.cfg.MaxConcurrent)
		for i, id := range regionIDs {
			g.Go(func() error {
				results[i] = inv.runRegion(batchCtx, id, trigger)
				return nil
			})
		}
		_ = g.Wait()
	}

	summary := &model.RunSummary{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		}
	}

	inv.logger.Info("スクレイパーの一括実行が完了しました",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.String("trigger", string(trigger)),
	)
	return summary, nil
}

// runRegion は1地域分のプロセスを起動し、結果を記録する。
func (inv *Invoker) runRegion(ctx context.Context, regionID string, trigger model.RunTrigger) model.RunResult {
	if ctx.Err() != nil {
		return model.RunResult{Region: regionID, Success: false, Message: stoppedMessage}
	}

	jobID := inv.newID()
	start := inv.now()
	logID := inv.createLog(ctx, jobID, regionID, trigger, start)

	cmd := inv.command(regionID)
	res, err := inv.runner.Run(ctx, cmd, inv.cfg.Timeout, func(pid int) {
		inv.registry.Register(model.ScraperJob{
			ID:        jobID,
			Region:    regionID,
			PID:       pid,
			StartedAt: start,
		})
		inv.metrics.SetRunningJobs(inv.registry.Len())
	})
	inv.registry.Unregister(jobID)
	inv.metrics.SetRunningJobs(inv.registry.Len())

	elapsed := inv.now().Sub(start)
	result := model.RunResult{
		Region:    regionID,
		Success:   err == nil,
		Message:   inv.sanitizer.Sanitize(outputMessage(res, err)),
		Elapsed:   elapsed,
		ElapsedMs: elapsed.Milliseconds(),
	}

	status := model.ScraperLogStatusSuccess
	switch {
	case result.Success:
	case ctx.Err() != nil:
		// 全停止でバッチが中断された
		status = model.ScraperLogStatusStopped
	default:
		status = model.ScraperLogStatusFailed
	}
	inv.finishLog(logID, status, result.Message, start.Add(elapsed), elapsed)
	inv.metrics.RecordScraperRun(regionID, result.Success, elapsed)

	attrs := []any{
		slog.String("job_id", jobID),
		slog.String("region", regionID),
		slog.Int64("duration_ms", result.ElapsedMs),
	}
	if res != nil && res.Truncated {
		attrs = append(attrs, slog.Bool("output_truncated", true))
	}
	if result.Success {
		inv.logger.Info("スクレイパーが完了しました", attrs...)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
		inv.logger.Warn("スクレイパーが失敗しました", attrs...)
	}
	return result
}

// command は地域IDに対応する起動コマンドを組み立てる。
func (inv *Invoker) command(regionID string) Command {
	args := make([]string, 0, 3)
	if inv.cfg.Entrypoint != "" {
		args = append(args, inv.cfg.Entrypoint)
	}
	args = append(args, "--region", regionID)
	return Command{
		Binary: inv.cfg.Command,
		Args:   args,
		Dir:    inv.cfg.WorkDir,
	}
}

// outputMessage は実行結果から応答メッセージを選ぶ。
// 成功時は標準出力、失敗時は標準エラーを優先し、空の場合はエラー内容を使う。
func outputMessage(res *ExecResult, err error) string {
	if err == nil {
		if res == nil {
			return ""
		}
		return res.Stdout
	}
	if res != nil && res.Stderr != "" {
		return res.Stderr
	}
	return err.Error()
}

// createLog は実行開始の履歴を作成し、そのIDを返す。記録に失敗した場合は空文字列を返す。
func (inv *Invoker) createLog(ctx context.Context, jobID, regionID string, trigger model.RunTrigger, start time.Time) string {
	if inv.logs == nil {
		return ""
	}
	entry := &model.ScraperLog{
		ID:        inv.newID(),
		JobID:     jobID,
		Region:    regionID,
		Status:    model.ScraperLogStatusRunning,
		Trigger:   trigger,
		StartedAt: start,
	}
	if err := inv.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		inv.logger.Error("実行履歴の作成に失敗しました",
			slog.String("job_id", jobID),
			slog.String("region", regionID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return entry.ID
}

// finishLog は履歴を完了状態に更新する。バッチが止められていても記録は行う。
func (inv *Invoker) finishLog(logID string, status model.ScraperLogStatus, message string, finishedAt time.Time, elapsed time.Duration) {
	if inv.logs == nil || logID == "" {
		return
	}
	if err := inv.logs.Finish(context.Background(), logID, status, message, finishedAt, elapsed.Milliseconds()); err != nil {
		inv.logger.Error("実行履歴の更新に失敗しました",
			slog.String("log_id", logID),
			slog.String("error", err.Error()),
		)
	}
}

// startBatch は全停止で中断できるバッチ用のコンテキストを登録する。
func (inv *Invoker) startBatch(ctx context.Context) (context.Context, func()) {
	batchCtx, cancel := context.WithCancel(ctx)
	id := inv.newID()

	inv.mu.Lock()
	inv.batches[id] = cancel
	inv.mu.Unlock()

	return batchCtx, func() {
		inv.mu.Lock()
		delete(inv.batches, id)
		inv.mu.Unlock()
		cancel()
	}
}

// Jobs は実行中のプロセス一覧を返す。
func (inv *Invoker) Jobs() []model.ScraperJob {
	return inv.registry.List()
}

// Stop は指定ジョブのプロセスを終了する。未知または終了済みのジョブはfalseを返す。
func (inv *Invoker) Stop(ctx context.Context, jobID string) (bool, error) {
	stopped, err := inv.registry.Kill(jobID)
	if err != nil {
		return false, err
	}
	if stopped {
		inv.metrics.RecordKilledProcesses(1)
		inv.logger.Info("スクレイパープロセスを停止しました", slog.String("job_id", jobID))
	}
	return stopped, nil
}

// KillAll は実行中のバッチを中断して残りの地域を起動させないようにしてから全プロセスツリーを終了し、
// running状態のまま残った履歴をstoppedにする。終了したプロセス数を返す。
func (inv *Invoker) KillAll(ctx context.Context) int {
	tracked := inv.registry.Len()

	inv.mu.Lock()
	for _, cancel := range inv.batches {
		cancel()
	}
	inv.mu.Unlock()

	killed := inv.registry.KillAll()
	// キャンセルで先に終了したプロセスも停止数に含める
	if tracked > killed {
		killed = tracked
	}

	inv.markStopped(ctx)

	inv.metrics.RecordKilledProcesses(killed)
	inv.logger.Info("全スクレイパープロセスを停止しました", slog.Int("killed", killed))
	return killed
}

// RecoverStaleLogs は前回のプロセスで終了できなかったrunning状態の履歴をstoppedにする。
// 起動時に1回だけ呼ぶ。起動直後は追跡中のプロセスが存在しないため全てが対象になる。
func (inv *Invoker) RecoverStaleLogs(ctx context.Context) {
	inv.markStopped(ctx)
}

// markStopped はrunning状態の履歴をstoppedにする。失敗はログに記録するだけにする。
func (inv *Invoker) markStopped(ctx context.Context) {
	if inv.logs == nil {
		return
	}
	marked, err := inv.logs.MarkRunningAsStopped(ctx, inv.now())
	if err != nil {
		inv.logger.Error("実行履歴の停止記録に失敗しました", slog.String("error", err.Error()))
		return
	}
	if marked > 0 {
		inv.logger.Info("実行中の履歴を停止済みにしました", slog.Int64("count", marked))
	}
}
