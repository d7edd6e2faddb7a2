package model

import "time"

// TimeEntry は確定済みの時間記録を表す。
// 走行中タイマーの確定（マテリアライズ）または手動のクイック入力で作成される。
// DurationSecondsは常にEndTime−StartTimeの秒数の切り捨て値であり、
// サーバー側で再計算される。クライアント入力を直接信用しない。
type TimeEntry struct {
	ID              string
	UserID          string
	ProjectID       *string
	CategoryID      *string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Target は記録の計上先を返す。ちょうど一方が設定されていない場合はok=false。
func (e *TimeEntry) Target() (TimerTarget, bool) {
	return TargetFromIDs(e.ProjectID, e.CategoryID)
}

// DurationSecondsBetween は区間の秒数（切り捨て）を計算する。
// 時間記録のduration_secondsを導出する唯一の計算箇所。
func DurationSecondsBetween(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}

// ActiveTimerMarker はプロフィール行に埋め込まれたアクティブタイマーの永続マーカー。
// タイマー開始時に原子的に設定され、確定・破棄時に原子的にクリアされる。
// 不変条件: ActiveTimerStartが非nilのとき、ProjectID/CategoryIDのちょうど一方が非nil。
type ActiveTimerMarker struct {
	ActiveTimerStart      *time.Time
	ActiveTimerProjectID  *string
	ActiveTimerCategoryID *string
}

// IsActive はマーカーが走行中タイマーを指しているかを返す。
func (m *ActiveTimerMarker) IsActive() bool {
	return m != nil && m.ActiveTimerStart != nil
}

// Target はマーカーの計上先を返す。マーカーが無効・不整合の場合はok=false。
func (m *ActiveTimerMarker) Target() (TimerTarget, bool) {
	if !m.IsActive() {
		return TimerTarget{}, false
	}
	return TargetFromIDs(m.ActiveTimerProjectID, m.ActiveTimerCategoryID)
}
