// Package cleanup は監査ログの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過した監査ログを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AuditLogPruner は保持期間を超過した監査ログの削除インターフェース。
// repository.AuditLogRepositoryの部分集合として定義する。
type AuditLogPruner interface {
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// CleanupJob は保持期間を超過した監査ログの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	auditLogs     AuditLogPruner
	logger        *slog.Logger
	RetentionDays int // 監査ログの保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は90日。
func NewCleanupJob(auditLogs AuditLogPruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		auditLogs:     auditLogs,
		logger:        logger,
		RetentionDays: 90,
	}
}

// Run は保持期間を超過した監査ログを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.auditLogs.DeleteOlderThan(ctx, j.RetentionDays)
	if err != nil {
		j.logger.Error("監査ログクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("監査ログクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("監査ログクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
