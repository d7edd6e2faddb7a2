package model

import "time"

// TargetKind はタイマー・時間記録の計上先の種別を表す。
type TargetKind string

const (
	// TargetKindProject はプロジェクトへの計上。
	TargetKindProject TargetKind = "project"
	// TargetKindCategory はカテゴリへの計上。
	TargetKindCategory TargetKind = "category"
)

// TimerTarget はタイマーの計上先（プロジェクトまたはカテゴリのいずれか一方）を表す。
type TimerTarget struct {
	Kind TargetKind
	ID   string
}

// ProjectID は計上先がプロジェクトの場合にそのIDを返す。それ以外はnil。
func (t TimerTarget) ProjectID() *string {
	if t.Kind == TargetKindProject && t.ID != "" {
		id := t.ID
		return &id
	}
	return nil
}

// CategoryID は計上先がカテゴリの場合にそのIDを返す。それ以外はnil。
func (t TimerTarget) CategoryID() *string {
	if t.Kind == TargetKindCategory && t.ID != "" {
		id := t.ID
		return &id
	}
	return nil
}

// Valid は計上先が正しく指定されているかを返す。
// 種別がproject/categoryのいずれかで、IDが空でないこと。
func (t TimerTarget) Valid() bool {
	if t.ID == "" {
		return false
	}
	return t.Kind == TargetKindProject || t.Kind == TargetKindCategory
}

// TargetFromIDs はnullableなプロジェクトID・カテゴリIDの組からTimerTargetを構築する。
// ちょうど一方が指定されていない場合はok=falseを返す。
func TargetFromIDs(projectID, categoryID *string) (TimerTarget, bool) {
	hasProject := projectID != nil && *projectID != ""
	hasCategory := categoryID != nil && *categoryID != ""

	switch {
	case hasProject && !hasCategory:
		return TimerTarget{Kind: TargetKindProject, ID: *projectID}, true
	case hasCategory && !hasProject:
		return TimerTarget{Kind: TargetKindCategory, ID: *categoryID}, true
	default:
		return TimerTarget{}, false
	}
}

// Project は時間を計上できるプロジェクトを表す。
type Project struct {
	ID          string
	Name        string
	Description string
	ClientName  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Category は時間を計上できるカテゴリを表す。
type Category struct {
	ID          string
	Name        string
	Description string
	Color       string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
