package schedule

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
)

// SettingsSource はスケジューラが必要とする設定の読み書きインターフェース。
type SettingsSource interface {
	Load(ctx context.Context) (model.ScheduleSettings, error)
	RecordLastRun(ctx context.Context, at time.Time) error
}

// BatchRunner は複数地域のスクレイパーを実行するインターフェース。
type BatchRunner interface {
	Run(ctx context.Context, regionIDs []string, trigger model.RunTrigger) (*model.RunSummary, error)
}

// Scheduler は保存済みのスケジュール設定に従ってプロセス内タイマーを管理する。
// 有効なタイマーはプロセス全体で常に高々1つ。
// プロセス再起動後はApplyが呼ばれるまで停止状態のままとなる。
type Scheduler struct {
	store   SettingsSource
	runner  BatchRunner
	regions func() []string
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
	loc   *time.Location

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	loops  atomic.Int32
	firing atomic.Bool
}

// NewScheduler はSchedulerを生成する。regionsは発火時に実行する地域IDの一覧を返す。
func NewScheduler(
	store SettingsSource,
	runner BatchRunner,
	regions func() []string,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Scheduler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Scheduler{
		store:   store,
		runner:  runner,
		regions: regions,
		logger:  logger,
		metrics: collector,
		now:     time.Now,
		after:   time.After,
		loc:     time.Local,
	}
}

// SetLocation は実行時間帯と実行分を判定するタイムゾーンを設定する。
// 次のApplyから反映される。nilの場合はプロセスのローカルタイムゾーンを使う。
func (s *Scheduler) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = loc
}

// clock はlocのタイムゾーンでの現在時刻を返す。
func (s *Scheduler) clock(loc *time.Location) time.Time {
	return s.now().In(loc)
}

// Apply は最新の設定を読み直し、既存のタイマーを止めてから設定に従って再設定する。
// 無効な設定の場合はタイマーを止めたままにする。
// 設定の読み込みに失敗した場合は現在のタイマーをそのまま残してエラーを返す。
func (s *Scheduler) Apply(ctx context.Context) error {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if !settings.Enabled {
		s.logger.Info("自動収集スケジュールは無効です")
		return nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.loops.Add(1)

	go s.loop(loopCtx, settings, s.loc, done)

	s.logger.Info("自動収集スケジュールを開始しました",
		slog.Int("start_hour", settings.StartHour),
		slog.Int("end_hour", settings.EndHour),
		slog.Int("interval_minutes", settings.IntervalMinutes),
		slog.Int("run_on_minute", settings.RunOnMinute),
	)
	return nil
}

// Stop はタイマーを停止する。実行中の収集バッチは中断しない。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.logger.Info("自動収集スケジュールを停止しました")
	}
}

// Armed はタイマーが有効かどうかを返す。
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// stopLocked は有効なタイマーを止め、ループの終了を待つ。s.muを保持して呼ぶこと。
func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	return true
}

// loop は最初の発火を分がrunOnMinuteになる時刻に合わせ、以降はintervalMinutesごとに発火する。
func (s *Scheduler) loop(ctx context.Context, settings model.ScheduleSettings, loc *time.Location, done chan struct{}) {
	defer close(done)
	defer s.loops.Add(-1)

	wait := firstFireDelay(s.clock(loc), settings.RunOnMinute)
	interval := time.Duration(settings.IntervalMinutes) * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
			s.fire(settings, loc)
			wait = interval
		}
	}
}

// fire は実行時間帯と分を確認し、条件を満たせば全地域の収集をバックグラウンドで開始する。
// 前回の収集が終わっていない場合は今回の発火をスキップする。
func (s *Scheduler) fire(settings model.ScheduleSettings, loc *time.Location) {
	now := s.clock(loc)
	if !ShouldRun(now, settings) {
		s.metrics.RecordScheduleFire(false)
		s.logger.Debug("実行時間帯外のため自動収集をスキップします",
			slog.String("now", now.Format(time.RFC3339)),
		)
		return
	}

	if !s.firing.CompareAndSwap(false, true) {
		s.metrics.RecordScheduleFire(false)
		s.logger.Warn("前回の自動収集が実行中のためスキップします")
		return
	}
	s.metrics.RecordScheduleFire(true)

	go func() {
		defer s.firing.Store(false)

		ctx := context.Background()
		summary, err := s.runner.Run(ctx, s.regions(), model.RunTriggerSchedule)
		if err != nil {
			s.logger.Error("自動収集の実行に失敗しました",
				slog.String("error", err.Error()),
			)
			return
		}

		s.logger.Info("自動収集が完了しました",
			slog.Int("total", summary.Total),
			slog.Int("succeeded", summary.Succeeded),
		)

		if err := s.store.RecordLastRun(ctx, now); err != nil {
			s.logger.Error("最終実行日時の記録に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}()
}
