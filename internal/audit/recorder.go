// Package audit は監査イベントのfire-and-forget記録を提供する。
//
// 記録は本体のトランザクションがコミットされた後に非同期で行われ、
// その成否は呼び出し元の結果に一切影響しない。失敗はログに記録されるのみで、
// ユーザーに表示されることもロールバックを引き起こすこともない。
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/timeman/internal/model"
	"github.com/hitoshi/timeman/internal/repository"
)

// recordTimeout は1件の監査記録に許容する最大時間。
// 呼び出し元のリクエストコンテキストには紐付けない:
// レスポンス返却後も記録は完了まで継続される。
const recordTimeout = 5 * time.Second

// Recorder は監査ログの非同期レコーダー。
type Recorder struct {
	repo   repository.AuditLogRepository
	logger *slog.Logger
}

// NewRecorder はRecorderを生成する。
func NewRecorder(repo repository.AuditLogRepository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// EntryCreated は時間記録の作成イベントを記録する。
func (r *Recorder) EntryCreated(actorID string, entry *model.TimeEntry) {
	r.dispatch(actorID, model.AuditTimeEntryCreated, entry.ID, nil, entryValues(entry))
}

// EntryUpdated は時間記録の更新イベントを記録する。
func (r *Recorder) EntryUpdated(actorID string, old, updated *model.TimeEntry) {
	r.dispatch(actorID, model.AuditTimeEntryUpdated, updated.ID, entryValues(old), entryValues(updated))
}

// EntryDeleted は時間記録の削除イベントを記録する。
func (r *Recorder) EntryDeleted(actorID string, entry *model.TimeEntry) {
	r.dispatch(actorID, model.AuditTimeEntryDeleted, entry.ID, entryValues(entry), nil)
}

// dispatch は監査ログの書き込みをバックグラウンドで実行する。
// 失敗はWARNログに記録するのみで、呼び出し元には伝播しない。
func (r *Recorder) dispatch(actorID string, action model.AuditAction, entityID string, oldValues, newValues map[string]any) {
	log := &model.AuditLog{
		ID:         uuid.New().String(),
		UserID:     actorID,
		Action:     action,
		EntityType: model.EntityTimeEntry,
		EntityID:   entityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := r.repo.Create(ctx, log); err != nil {
			r.logger.Warn("failed to record audit log",
				slog.String("action", string(action)),
				slog.String("entity_id", entityID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// entryValues は監査ログに格納する時間記録のスナップショットを構築する。
func entryValues(entry *model.TimeEntry) map[string]any {
	if entry == nil {
		return nil
	}
	values := map[string]any{
		"user_id":          entry.UserID,
		"start_time":       entry.StartTime.UTC().Format(time.RFC3339),
		"end_time":         entry.EndTime.UTC().Format(time.RFC3339),
		"duration_seconds": entry.DurationSeconds,
	}
	if entry.ProjectID != nil {
		values["project_id"] = *entry.ProjectID
	}
	if entry.CategoryID != nil {
		values["category_id"] = *entry.CategoryID
	}
	if entry.Notes != nil {
		values["notes"] = *entry.Notes
	}
	return values
}
