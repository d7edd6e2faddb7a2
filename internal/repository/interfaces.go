// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/timeman/internal/model"
)

// ProfileRepository はプロフィールデータとアクティブタイマーマーカーの永続化インターフェース。
// マーカーの3カラム（active_timer_start / active_timer_project_id / active_timer_category_id）は
// プロフィール行への単一UPDATEで原子的に更新され、部分更新が観測されることはない。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// ReadMarker はプロフィールのアクティブタイマーマーカーを取得する。
	// セッション再開時の読み戻しに使用する。プロフィールが存在しない場合はnilを返す。
	ReadMarker(ctx context.Context, userID string) (*model.ActiveTimerMarker, error)

	// RecordTimerStart はマーカーを原子的に設定し、記録された開始時刻を返す。
	// 開始時刻はデータベースのnow()を使用する（クライアント時計を信用しない）。
	// 既存マーカーは上書きされる（last-writer-wins）。
	// プロフィールが存在しない場合はエラーを返す。
	RecordTimerStart(ctx context.Context, userID string, target model.TimerTarget) (time.Time, error)

	// ClearTimerMarker はマーカーの3カラムを原子的にNULLへ戻す。
	// 既にクリア済みの場合も成功する（冪等）。
	ClearTimerMarker(ctx context.Context, userID string) error

	// ListActiveMarkersOlderThan は指定時刻より古いアクティブマーカーを持つプロフィールを返す。
	// 整合性スイープジョブが使用する。
	ListActiveMarkersOlderThan(ctx context.Context, threshold time.Time) ([]*model.Profile, error)
}

// EntryListFilter は時間記録一覧の絞り込み条件を表す。
// nilのフィールドは条件に含めない。
type EntryListFilter struct {
	From       *time.Time
	To         *time.Time
	ProjectID  *string
	CategoryID *string
	Limit      int
}

// TimeEntryRepository は時間記録の永続化インターフェース。
type TimeEntryRepository interface {
	// Create は時間記録を作成する。
	Create(ctx context.Context, entry *model.TimeEntry) error

	// FindByID は指定IDの時間記録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.TimeEntry, error)

	// Update は時間記録を上書き更新する。duration_secondsは呼び出し側で再計算済みであること。
	Update(ctx context.Context, entry *model.TimeEntry) error

	// Delete は指定IDの時間記録を物理削除する。対象が存在しない場合はエラーを返す。
	Delete(ctx context.Context, id string) error

	// ListByUser はユーザーの時間記録一覧をstart_time降順で返す。
	ListByUser(ctx context.Context, userID string, filter EntryListFilter) ([]*model.TimeEntry, error)

	// ExistsOverlapping は指定区間と重なる確定済み記録が存在するかを返す。
	// マーカー整合性スイープが「既に確定済みの区間を指す残留マーカー」を検出するために使用する。
	ExistsOverlapping(ctx context.Context, userID string, start, end time.Time) (bool, error)
}

// ProjectRepository はプロジェクトカタログの読み取りインターフェース。
// 管理CRUDは対象外であり、計上先の検証と一覧のみ提供する。
type ProjectRepository interface {
	// FindActiveByID は有効（is_active、未削除）なプロジェクトを取得する。見つからない場合はnilを返す。
	FindActiveByID(ctx context.Context, id string) (*model.Project, error)

	// ListActive は有効なプロジェクトの一覧を名前順で返す。
	ListActive(ctx context.Context) ([]*model.Project, error)
}

// CategoryRepository はカテゴリカタログの読み取りインターフェース。
type CategoryRepository interface {
	// FindActiveByID は有効（is_active、未削除）なカテゴリを取得する。見つからない場合はnilを返す。
	FindActiveByID(ctx context.Context, id string) (*model.Category, error)

	// ListActive は有効なカテゴリの一覧を名前順で返す。
	ListActive(ctx context.Context) ([]*model.Category, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// AuditLogRepository は監査ログの永続化インターフェース。
type AuditLogRepository interface {
	// Create は監査ログを1件追記する。
	Create(ctx context.Context, log *model.AuditLog) error

	// DeleteOlderThan は保持期間を超過したログを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
