package model

import "time"

// AuditAction は監査ログに記録される操作の種別を表す。
type AuditAction string

const (
	// AuditTimeEntryCreated は時間記録の作成。
	AuditTimeEntryCreated AuditAction = "time_entry.created"
	// AuditTimeEntryUpdated は時間記録の更新。
	AuditTimeEntryUpdated AuditAction = "time_entry.updated"
	// AuditTimeEntryDeleted は時間記録の削除。
	AuditTimeEntryDeleted AuditAction = "time_entry.deleted"
)

// EntityType は監査対象エンティティの種別を表す。
type EntityType string

const (
	// EntityTimeEntry は時間記録エンティティ。
	EntityTimeEntry EntityType = "time_entry"
)

// AuditLog は監査ログの1レコードを表す。
// 記録はfire-and-forgetであり、失敗しても本体のトランザクションには影響しない。
type AuditLog struct {
	ID         string
	UserID     string
	Action     AuditAction
	EntityType EntityType
	EntityID   string
	OldValues  map[string]any
	NewValues  map[string]any
	CreatedAt  time.Time
}
