// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TimerMetricsCollector はタイマーライフサイクルのメトリクス収集インターフェース。
// ハンドラーやサービス層から利用する。
type TimerMetricsCollector interface {
	RecordTimerStart()
	RecordTimerCommit()
	RecordTimerDiscard()
	RecordTimerResume()
	RecordCommitLatency(duration time.Duration)
	RecordMarkerInconsistency()
	RecordEntryWriteFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	timerStarts          prometheus.Counter
	timerCommits         prometheus.Counter
	timerDiscards        prometheus.Counter
	timerResumes         prometheus.Counter
	commitLatency        prometheus.Histogram
	markerInconsistency  prometheus.Counter
	entryWriteFailures   prometheus.Counter
	staleMarkersDetected prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		timerStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_timer_starts_total",
			Help: "タイマー開始の合計数",
		}),
		timerCommits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_timer_commits_total",
			Help: "タイマー確定（時間記録の作成）の合計数",
		}),
		timerDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_timer_discards_total",
			Help: "タイマー破棄の合計数",
		}),
		timerResumes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_timer_resumes_total",
			Help: "永続マーカーからのタイマー再開の合計数",
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timeman_timer_commit_latency_seconds",
			Help:    "タイマー確定（記録の永続化＋マーカークリア）のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		markerInconsistency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_marker_inconsistencies_total",
			Help: "確定済み記録とマーカーが併存した回復可能な不整合の合計数",
		}),
		entryWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_entry_write_failures_total",
			Help: "時間記録の永続化失敗の合計数",
		}),
		staleMarkersDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeman_stale_markers_detected_total",
			Help: "スイープジョブが検出した残留マーカー候補の合計数",
		}),
	}

	reg.MustRegister(
		c.timerStarts,
		c.timerCommits,
		c.timerDiscards,
		c.timerResumes,
		c.commitLatency,
		c.markerInconsistency,
		c.entryWriteFailures,
		c.staleMarkersDetected,
	)

	return c
}

// RecordTimerStart はタイマー開始を記録する。
func (c *Collector) RecordTimerStart() {
	c.timerStarts.Inc()
}

// RecordTimerCommit はタイマー確定を記録する。
func (c *Collector) RecordTimerCommit() {
	c.timerCommits.Inc()
}

// RecordTimerDiscard はタイマー破棄を記録する。
func (c *Collector) RecordTimerDiscard() {
	c.timerDiscards.Inc()
}

// RecordTimerResume はマーカーからの再開を記録する。
func (c *Collector) RecordTimerResume() {
	c.timerResumes.Inc()
}

// RecordCommitLatency は確定処理のレイテンシを記録する。
func (c *Collector) RecordCommitLatency(duration time.Duration) {
	c.commitLatency.Observe(duration.Seconds())
}

// RecordMarkerInconsistency はマーカー不整合の発生を記録する。
func (c *Collector) RecordMarkerInconsistency() {
	c.markerInconsistency.Inc()
}

// RecordEntryWriteFailure は時間記録の永続化失敗を記録する。
func (c *Collector) RecordEntryWriteFailure() {
	c.entryWriteFailures.Inc()
}

// RecordStaleMarkerDetected はスイープジョブによる残留マーカー検出を記録する。
func (c *Collector) RecordStaleMarkerDetected() {
	c.staleMarkersDetected.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ TimerMetricsCollector = (*Collector)(nil)
