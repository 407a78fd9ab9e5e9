package schedule

import (
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// ShouldRun は指定時刻に自動収集を実行すべきかを判定する。
// 有効かつ startHour <= 時 < endHour かつ 分 == runOnMinute のときにtrueを返す。
// startHour >= endHour の場合は実行時間帯が空になる。
func ShouldRun(now time.Time, settings model.ScheduleSettings) bool {
	if !settings.Enabled {
		return false
	}
	hour := now.Hour()
	if hour < settings.StartHour || hour >= settings.EndHour {
		return false
	}
	return now.Minute() == settings.RunOnMinute
}

// firstFireDelay は次に分がrunOnMinuteとなる時刻（秒0）までの待ち時間を返す。
// nowがちょうどその時刻の場合は1時間後を返す。
func firstFireDelay(now time.Time, runOnMinute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), runOnMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next.Sub(now)
}
