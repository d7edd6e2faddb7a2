// Package sweep はアクティブタイマーマーカーの整合性スイープジョブを提供する。
// 長時間放置されたマーカー（残留マーカー候補）を定期的に検出し、
// ログとメトリクスで運用者に通知する。マーカーの自動クリアは行わない:
// 走行中の正当な長時間タイマーと区別できないためで、判断は人間に委ねる。
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/timeman/internal/model"
)

// DefaultMarkerMaxAge は残留候補とみなすマーカーの経過時間のデフォルト値。
const DefaultMarkerMaxAge = 24 * time.Hour

// StaleMarkerLister は閾値より古いアクティブマーカーを持つプロフィールの取得インターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type StaleMarkerLister interface {
	ListActiveMarkersOlderThan(ctx context.Context, threshold time.Time) ([]*model.Profile, error)
}

// OverlapChecker はマーカー区間と重なる確定済み記録の存在確認インターフェース。
// repository.TimeEntryRepositoryの部分集合として定義する。
type OverlapChecker interface {
	ExistsOverlapping(ctx context.Context, userID string, start, end time.Time) (bool, error)
}

// SweepMetrics はスイープジョブが記録するメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。
type SweepMetrics interface {
	RecordStaleMarkerDetected()
	RecordMarkerInconsistency()
}

// Job はマーカー整合性スイープのバッチジョブ。
// 定期実行され、冪等に動作する。検出のみを行い、状態を変更しない。
type Job struct {
	profiles StaleMarkerLister
	entries  OverlapChecker
	metrics  SweepMetrics
	logger   *slog.Logger

	// MarkerMaxAge はこの経過時間を超えたマーカーを残留候補として報告する。
	MarkerMaxAge time.Duration
}

// NewJob は新しいスイープジョブを生成する。metricsはnilでもよい。
func NewJob(profiles StaleMarkerLister, entries OverlapChecker, metrics SweepMetrics, logger *slog.Logger) *Job {
	return &Job{
		profiles:     profiles,
		entries:      entries,
		metrics:      metrics,
		logger:       logger,
		MarkerMaxAge: DefaultMarkerMaxAge,
	}
}

// Start は指定間隔のティッカーでスイープを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("マーカー整合性スイープを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("marker_max_age", j.MarkerMaxAge),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("マーカースイープの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("マーカー整合性スイープを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("マーカースイープの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は残留マーカー候補を1回検出する。
//
// 検出の分類:
//   - マーカー区間と重なる確定済み記録が存在する場合は「不整合」
//     （確定時のマーカークリア失敗の残骸である可能性が高い）
//   - 重なる記録がない場合は「残留候補」
//     （クラッシュ等で放置された走行中タイマー、または正当な長時間タイマー）
func (j *Job) RunOnce(ctx context.Context) error {
	start := time.Now()
	threshold := start.Add(-j.MarkerMaxAge)

	profiles, err := j.profiles.ListActiveMarkersOlderThan(ctx, threshold)
	if err != nil {
		return err
	}

	if len(profiles) == 0 {
		j.logger.Info("残留マーカー候補はありません")
		return nil
	}

	for _, p := range profiles {
		if p.ActiveTimerStart == nil {
			continue
		}
		markerStart := *p.ActiveTimerStart

		overlapping, err := j.entries.ExistsOverlapping(ctx, p.ID, markerStart, start)
		if err != nil {
			j.logger.Error("重複記録の確認に失敗しました",
				slog.String("user_id", p.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if overlapping {
			// 確定済み記録とマーカーが併存している。確定時のクリア失敗の残骸とみられる。
			j.logger.Warn("確定済み記録と併存する残留マーカーを検出しました",
				slog.String("user_id", p.ID),
				slog.Time("marker_start", markerStart),
			)
			if j.metrics != nil {
				j.metrics.RecordMarkerInconsistency()
			}
		} else {
			j.logger.Warn("長時間放置されたアクティブマーカーを検出しました",
				slog.String("user_id", p.ID),
				slog.Time("marker_start", markerStart),
				slog.Duration("age", start.Sub(markerStart)),
			)
		}

		if j.metrics != nil {
			j.metrics.RecordStaleMarkerDetected()
		}
	}

	j.logger.Info("マーカースイープが完了しました",
		slog.Int("candidate_count", len(profiles)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
