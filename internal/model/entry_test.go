package model

import (
	"testing"
	"time"
)

func TestDurationSecondsBetween(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int64
	}{
		{"ちょうど1時間", base, base.Add(time.Hour), 3600},
		{"秒未満は切り捨て", base, base.Add(90*time.Second + 900*time.Millisecond), 90},
		{"1秒未満はゼロ", base, base.Add(999 * time.Millisecond), 0},
		{"ゼロ幅区間", base, base, 0},
		{"負の区間は負の値", base, base.Add(-30 * time.Second), -30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationSecondsBetween(tt.start, tt.end); got != tt.want {
				t.Errorf("DurationSecondsBetween = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestActiveTimerMarker_IsActive(t *testing.T) {
	now := time.Now()
	projectID := "proj-1"

	var nilMarker *ActiveTimerMarker
	if nilMarker.IsActive() {
		t.Error("nil marker should not be active")
	}

	empty := &ActiveTimerMarker{}
	if empty.IsActive() {
		t.Error("empty marker should not be active")
	}

	active := &ActiveTimerMarker{ActiveTimerStart: &now, ActiveTimerProjectID: &projectID}
	if !active.IsActive() {
		t.Error("marker with start time should be active")
	}
}

func TestActiveTimerMarker_Target(t *testing.T) {
	now := time.Now()
	projectID := "proj-1"
	categoryID := "cat-1"

	tests := []struct {
		name     string
		marker   *ActiveTimerMarker
		wantOK   bool
		wantKind TargetKind
		wantID   string
	}{
		{
			name:     "プロジェクト計上のマーカー",
			marker:   &ActiveTimerMarker{ActiveTimerStart: &now, ActiveTimerProjectID: &projectID},
			wantOK:   true,
			wantKind: TargetKindProject,
			wantID:   "proj-1",
		},
		{
			name:     "カテゴリ計上のマーカー",
			marker:   &ActiveTimerMarker{ActiveTimerStart: &now, ActiveTimerCategoryID: &categoryID},
			wantOK:   true,
			wantKind: TargetKindCategory,
			wantID:   "cat-1",
		},
		{
			name:   "計上先のない不整合マーカー",
			marker: &ActiveTimerMarker{ActiveTimerStart: &now},
			wantOK: false,
		},
		{
			name:   "両方設定された不整合マーカー",
			marker: &ActiveTimerMarker{ActiveTimerStart: &now, ActiveTimerProjectID: &projectID, ActiveTimerCategoryID: &categoryID},
			wantOK: false,
		},
		{
			name:   "非アクティブのマーカー",
			marker: &ActiveTimerMarker{ActiveTimerProjectID: &projectID},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := tt.marker.Target()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if target.Kind != tt.wantKind || target.ID != tt.wantID {
				t.Errorf("target = %+v, want %s/%s", target, tt.wantKind, tt.wantID)
			}
		})
	}
}
