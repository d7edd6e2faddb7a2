// Package entry は時間記録の確定（マテリアライズ）とCRUDのドメインロジックを提供する。
package entry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/timeman/internal/model"
	"github.com/hitoshi/timeman/internal/repository"
)

// MarkerClearer はアクティブタイマーマーカーのクリアに必要なインターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type MarkerClearer interface {
	ClearTimerMarker(ctx context.Context, userID string) error
}

// AuditNotifier は監査イベントのfire-and-forget通知インターフェース。
// 呼び出しはブロックせず、失敗しても本体の処理には影響しない。
type AuditNotifier interface {
	EntryCreated(actorID string, entry *model.TimeEntry)
	EntryUpdated(actorID string, old, updated *model.TimeEntry)
	EntryDeleted(actorID string, entry *model.TimeEntry)
}

// NotesSanitizer はメモ欄のサニタイズインターフェース。
type NotesSanitizer interface {
	SanitizeNotes(notes string) string
}

// MaterializerMetrics は確定処理のメトリクス記録インターフェース。
type MaterializerMetrics interface {
	RecordCommitLatency(duration time.Duration)
	RecordMarkerInconsistency()
	RecordEntryWriteFailure()
}

// Materializer は区間＋計上先＋メモを検証済みの時間記録として永続化する。
// タイマー停止からの確定と手動のクイック入力の両方で同一の検証を適用する。
type Materializer struct {
	entryRepo  repository.TimeEntryRepository
	markers    MarkerClearer
	projects   repository.ProjectRepository
	categories repository.CategoryRepository
	audit      AuditNotifier
	sanitizer  NotesSanitizer
	metrics    MaterializerMetrics
}

// NewMaterializer はMaterializerを生成する。
// audit・sanitizer・metricsはnilを許容する（その場合は対応する処理をスキップする）。
func NewMaterializer(
	entryRepo repository.TimeEntryRepository,
	markers MarkerClearer,
	projects repository.ProjectRepository,
	categories repository.CategoryRepository,
	audit AuditNotifier,
	sanitizer NotesSanitizer,
	metrics MaterializerMetrics,
) *Materializer {
	return &Materializer{
		entryRepo:  entryRepo,
		markers:    markers,
		projects:   projects,
		categories: categories,
		audit:      audit,
		sanitizer:  sanitizer,
		metrics:    metrics,
	}
}

// Materialize は区間を検証して時間記録を永続化する（クイック入力経路）。
// 検証規則:
//  1. endTime > startTime（厳密）でなければINVALID_INTERVAL
//  2. プロジェクト／カテゴリのちょうど一方が指定されていなければMISSING_TARGET
//  3. duration_secondsはサーバー側で floor(endTime − startTime) として計算する。
//     クライアント入力の値は一切信用しない（時計操作への防御）。
func (m *Materializer) Materialize(ctx context.Context, userID string, startTime, endTime time.Time, target model.TimerTarget, notes string) (*model.TimeEntry, error) {
	entry, err := m.buildValidated(ctx, userID, startTime, endTime, target, notes)
	if err != nil {
		return nil, err
	}

	if err := m.entryRepo.Create(ctx, entry); err != nil {
		m.recordWriteFailure()
		return nil, fmt.Errorf("failed to persist time entry: %w", err)
	}

	if m.audit != nil {
		m.audit.EntryCreated(userID, entry)
	}
	return entry, nil
}

// MaterializeTimer は停止済みタイマーを時間記録として確定する（タイマー経路）。
//
// コミットプロトコル: 記録の永続化が成功した後にのみマーカーのクリアを発行する
// （厳密な順序）。永続化が失敗した場合はマーカーを残したままエラーを返し、
// 捕捉済みの区間を失わずに再試行できる。クリアが失敗した場合は確定済み記録と
// 残留マーカーが併存するが、これは回復可能な不整合として扱い、確定自体は成功させる。
// 残留マーカーは次回再開時に「幻のタイマー」として現れ、ユーザーが停止・破棄できる。
func (m *Materializer) MaterializeTimer(ctx context.Context, userID string, startedAt, stoppedAt time.Time, target model.TimerTarget, notes string) (*model.TimeEntry, error) {
	commitStart := time.Now()

	entry, err := m.buildValidated(ctx, userID, startedAt, stoppedAt, target, notes)
	if err != nil {
		return nil, err
	}

	// 1. 記録を永続化する。失敗したらマーカーには触れない。
	if err := m.entryRepo.Create(ctx, entry); err != nil {
		m.recordWriteFailure()
		return nil, fmt.Errorf("failed to persist time entry: %w", err)
	}

	// 2. 永続化が確認できた後にのみマーカーをクリアする。
	if err := m.markers.ClearTimerMarker(ctx, userID); err != nil {
		slog.Warn("time entry committed but marker clear failed",
			slog.String("user_id", userID),
			slog.String("entry_id", entry.ID),
			slog.String("error", err.Error()),
		)
		if m.metrics != nil {
			m.metrics.RecordMarkerInconsistency()
		}
	}

	if m.audit != nil {
		m.audit.EntryCreated(userID, entry)
	}
	if m.metrics != nil {
		m.metrics.RecordCommitLatency(time.Since(commitStart))
	}
	return entry, nil
}

// buildValidated は検証を通過した未永続の時間記録を構築する。
func (m *Materializer) buildValidated(ctx context.Context, userID string, startTime, endTime time.Time, target model.TimerTarget, notes string) (*model.TimeEntry, error) {
	if !endTime.After(startTime) {
		return nil, model.NewInvalidIntervalError()
	}
	if !target.Valid() {
		return nil, model.NewMissingTargetError()
	}
	if err := m.ensureTargetExists(ctx, target); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &model.TimeEntry{
		ID:              uuid.New().String(),
		UserID:          userID,
		ProjectID:       target.ProjectID(),
		CategoryID:      target.CategoryID(),
		StartTime:       startTime,
		EndTime:         endTime,
		DurationSeconds: model.DurationSecondsBetween(startTime, endTime),
		Notes:           m.sanitizedNotes(notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return entry, nil
}

// ensureTargetExists は計上先が有効なプロジェクト・カテゴリであることを検証する。
func (m *Materializer) ensureTargetExists(ctx context.Context, target model.TimerTarget) error {
	switch target.Kind {
	case model.TargetKindProject:
		project, err := m.projects.FindActiveByID(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("failed to verify project: %w", err)
		}
		if project == nil {
			return model.NewTargetNotFoundError(target.Kind, target.ID)
		}
	case model.TargetKindCategory:
		category, err := m.categories.FindActiveByID(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("failed to verify category: %w", err)
		}
		if category == nil {
			return model.NewTargetNotFoundError(target.Kind, target.ID)
		}
	}
	return nil
}

// sanitizedNotes はメモをサニタイズし、空ならnilを返す。
func (m *Materializer) sanitizedNotes(notes string) *string {
	if m.sanitizer != nil {
		notes = m.sanitizer.SanitizeNotes(notes)
	}
	if notes == "" {
		return nil
	}
	return &notes
}

func (m *Materializer) recordWriteFailure() {
	if m.metrics != nil {
		m.metrics.RecordEntryWriteFailure()
	}
}
