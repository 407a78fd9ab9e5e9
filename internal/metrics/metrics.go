// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// スクレイパー実行やスケジューラから利用する。
type MetricsCollector interface {
	RecordScraperRun(region string, success bool, duration time.Duration)
	RecordScheduleFire(triggered bool)
	RecordKilledProcesses(count int)
	SetRunningJobs(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	runTotal     *prometheus.CounterVec
	runLatency   prometheus.Histogram
	scheduleFire *prometheus.CounterVec
	killedTotal  prometheus.Counter
	runningJobs  prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_scraper_runs_total",
			Help: "地域別・結果別のスクレイパー実行数",
		}, []string{"region", "result"}),
		runLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsdesk_scraper_run_duration_seconds",
			Help:    "1地域あたりのスクレイパー実行時間（秒）",
			Buckets: []float64{1, 5, 10, 30, 60, 90, 120, 180},
		}),
		scheduleFire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_schedule_fires_total",
			Help: "スケジュールタイマーの発火数（実行したかどうか別）",
		}, []string{"triggered"}),
		killedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdesk_scraper_killed_total",
			Help: "強制停止したスクレイパープロセスの合計数",
		}),
		runningJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "newsdesk_scraper_running_jobs",
			Help: "実行中のスクレイパープロセス数",
		}),
	}

	reg.MustRegister(
		c.runTotal,
		c.runLatency,
		c.scheduleFire,
		c.killedTotal,
		c.runningJobs,
	)

	return c
}

// RecordScraperRun は1地域分の実行結果とレイテンシを記録する。
func (c *Collector) RecordScraperRun(region string, success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	c.runTotal.WithLabelValues(region, result).Inc()
	c.runLatency.Observe(duration.Seconds())
}

// RecordScheduleFire はタイマー発火を記録する。
func (c *Collector) RecordScheduleFire(triggered bool) {
	label := "false"
	if triggered {
		label = "true"
	}
	c.scheduleFire.WithLabelValues(label).Inc()
}

// RecordKilledProcesses は強制停止したプロセス数を記録する。
func (c *Collector) RecordKilledProcesses(count int) {
	c.killedTotal.Add(float64(count))
}

// SetRunningJobs は実行中のプロセス数を設定する。
func (c *Collector) SetRunningJobs(count int) {
	c.runningJobs.Set(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordScraperRun(string, bool, time.Duration) {}
func (Nop) RecordScheduleFire(bool)                      {}
func (Nop) RecordKilledProcesses(int)                    {}
func (Nop) SetRunningJobs(int)                           {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
