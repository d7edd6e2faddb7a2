package entry

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/timeman/internal/model"
	"github.com/hitoshi/timeman/internal/repository"
)

// ProfileFinder は操作者のロール解決に必要なインターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// Service は時間記録の一覧・編集・削除のサービス層。
// 所有者または管理者のみが記録を変更できるというアクセス規則を強制する。
type Service struct {
	entryRepo    repository.TimeEntryRepository
	profiles     ProfileFinder
	materializer *Materializer
	audit        AuditNotifier
	sanitizer    NotesSanitizer
}

// NewService はServiceを生成する。
func NewService(
	entryRepo repository.TimeEntryRepository,
	profiles ProfileFinder,
	materializer *Materializer,
	audit AuditNotifier,
	sanitizer NotesSanitizer,
) *Service {
	return &Service{
		entryRepo:    entryRepo,
		profiles:     profiles,
		materializer: materializer,
		audit:        audit,
		sanitizer:    sanitizer,
	}
}

// CreateQuick は手動のクイック入力で時間記録を作成する。
// 検証はタイマー確定経路と同一（Materializer）であり、マーカーには関与しない。
func (s *Service) CreateQuick(ctx context.Context, userID string, startTime, endTime time.Time, projectID, categoryID *string, notes string) (*model.TimeEntry, error) {
	target, ok := model.TargetFromIDs(projectID, categoryID)
	if !ok {
		return nil, model.NewMissingTargetError()
	}
	return s.materializer.Materialize(ctx, userID, startTime, endTime, target, notes)
}

// List は操作者自身の時間記録一覧を返す。
func (s *Service) List(ctx context.Context, userID string, filter repository.EntryListFilter) ([]*model.TimeEntry, error) {
	entries, err := s.entryRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	return entries, nil
}

// UpdateInput は時間記録の更新内容を表す。
// duration_secondsは受け取らない: 常に区間から再計算される。
type UpdateInput struct {
	StartTime  time.Time
	EndTime    time.Time
	ProjectID  *string
	CategoryID *string
	Notes      string
}

// Update は時間記録を更新する。所有者または管理者のみ実行できる。
// 作成時と同一の検証を適用し、duration_secondsを再計算する。
func (s *Service) Update(ctx context.Context, actorID, entryID string, input UpdateInput) (*model.TimeEntry, error) {
	existing, err := s.authorized(ctx, actorID, entryID)
	if err != nil {
		return nil, err
	}

	if !input.EndTime.After(input.StartTime) {
		return nil, model.NewInvalidIntervalError()
	}
	target, ok := model.TargetFromIDs(input.ProjectID, input.CategoryID)
	if !ok {
		return nil, model.NewMissingTargetError()
	}
	if err := s.materializer.ensureTargetExists(ctx, target); err != nil {
		return nil, err
	}

	old := *existing

	updated := *existing
	updated.StartTime = input.StartTime
	updated.EndTime = input.EndTime
	updated.ProjectID = target.ProjectID()
	updated.CategoryID = target.CategoryID()
	updated.DurationSeconds = model.DurationSecondsBetween(input.StartTime, input.EndTime)
	updated.Notes = s.sanitizedNotes(input.Notes)
	updated.UpdatedAt = time.Now().UTC()

	if err := s.entryRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update time entry: %w", err)
	}

	if s.audit != nil {
		s.audit.EntryUpdated(actorID, &old, &updated)
	}
	return &updated, nil
}

// Delete は時間記録を物理削除する。所有者または管理者のみ実行できる。
// 論理削除や取り消しは提供しない。
func (s *Service) Delete(ctx context.Context, actorID, entryID string) error {
	existing, err := s.authorized(ctx, actorID, entryID)
	if err != nil {
		return err
	}

	if err := s.entryRepo.Delete(ctx, entryID); err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}

	if s.audit != nil {
		s.audit.EntryDeleted(actorID, existing)
	}
	return nil
}

// authorized は記録の存在と操作権限（所有者または管理者）を検証し、記録を返す。
func (s *Service) authorized(ctx context.Context, actorID, entryID string) (*model.TimeEntry, error) {
	existing, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find time entry: %w", err)
	}
	if existing == nil {
		return nil, model.NewEntryNotFoundError(entryID)
	}

	if existing.UserID == actorID {
		return existing, nil
	}

	actor, err := s.profiles.FindByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor profile: %w", err)
	}
	if actor == nil {
		return nil, model.NewUserNotFoundError()
	}
	if actor.Role != model.RoleAdmin {
		return nil, model.NewForbiddenError()
	}
	return existing, nil
}

// sanitizedNotes はメモをサニタイズし、空ならnilを返す。
func (s *Service) sanitizedNotes(notes string) *string {
	if s.sanitizer != nil {
		notes = s.sanitizer.SanitizeNotes(notes)
	}
	if notes == "" {
		return nil
	}
	return &notes
}
