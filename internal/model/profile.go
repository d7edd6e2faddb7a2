// Package model はドメインモデルを定義する。
package model

import "time"

// UserRole はユーザーの権限を表す。
type UserRole string

const (
	// RoleUser は一般ユーザー。自分の時間記録のみ操作できる。
	RoleUser UserRole = "user"
	// RoleAdmin は管理者。全ユーザーの時間記録を操作できる。
	RoleAdmin UserRole = "admin"
)

// Profile はサービス利用ユーザーのプロフィールを表す。
// アクティブタイマーのマーカー（active_timer_*）はプロフィール行に埋め込まれ、
// リロードや再ログインをまたいで「タイマーが動作中か」の永続的な真実となる。
type Profile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      UserRole
	IsActive  bool

	// アクティブタイマーマーカー。3フィールドは原子的に設定・クリアされる。
	ActiveTimerStart      *time.Time
	ActiveTimerProjectID  *string
	ActiveTimerCategoryID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
// セッションの発行は認証コラボレータの責務であり、本サービスは検証のみ行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
