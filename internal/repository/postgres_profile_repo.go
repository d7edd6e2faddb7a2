package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/timeman/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
// アクティブタイマーマーカーの永続化アダプタを兼ねる。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	var timerStart sql.NullTime
	var timerProject, timerCategory sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, role, is_active,
		        active_timer_start, active_timer_project_id, active_timer_category_id,
		        created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(
		&profile.ID, &profile.Email, &profile.FirstName, &profile.LastName,
		&profile.Role, &profile.IsActive,
		&timerStart, &timerProject, &timerCategory,
		&profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	applyMarkerColumns(profile, timerStart, timerProject, timerCategory)
	return profile, nil
}

// ReadMarker はプロフィールのアクティブタイマーマーカーを取得する。
// プロフィールが存在しない場合はnilを返す。
func (r *PostgresProfileRepo) ReadMarker(ctx context.Context, userID string) (*model.ActiveTimerMarker, error) {
	var timerStart sql.NullTime
	var timerProject, timerCategory sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT active_timer_start, active_timer_project_id, active_timer_category_id
		 FROM profiles WHERE id = $1`,
		userID,
	).Scan(&timerStart, &timerProject, &timerCategory)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active timer marker: %w", err)
	}

	marker := &model.ActiveTimerMarker{}
	if timerStart.Valid {
		t := timerStart.Time
		marker.ActiveTimerStart = &t
	}
	if timerProject.Valid {
		s := timerProject.String
		marker.ActiveTimerProjectID = &s
	}
	if timerCategory.Valid {
		s := timerCategory.String
		marker.ActiveTimerCategoryID = &s
	}
	return marker, nil
}

// RecordTimerStart はマーカーを単一UPDATEで原子的に設定し、記録された開始時刻を返す。
// 開始時刻はデータベースのnow()を使用する。既存マーカーは上書きされる（last-writer-wins）。
func (r *PostgresProfileRepo) RecordTimerStart(ctx context.Context, userID string, target model.TimerTarget) (time.Time, error) {
	var startedAt time.Time

	err := r.db.QueryRowContext(ctx,
		`UPDATE profiles
		 SET active_timer_start = now(),
		     active_timer_project_id = $2,
		     active_timer_category_id = $3,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING active_timer_start`,
		userID, target.ProjectID(), target.CategoryID(),
	).Scan(&startedAt)

	if err == sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("profile not found: %s", userID)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to record timer start: %w", err)
	}

	return startedAt, nil
}

// ClearTimerMarker はマーカーの3カラムを単一UPDATEで原子的にNULLへ戻す。
// 既にクリア済みの場合もエラーにならない（冪等）。
func (r *PostgresProfileRepo) ClearTimerMarker(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET active_timer_start = NULL,
		     active_timer_project_id = NULL,
		     active_timer_category_id = NULL,
		     updated_at = now()
		 WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear active timer marker: %w", err)
	}
	return nil
}

// ListActiveMarkersOlderThan は指定時刻より古いアクティブマーカーを持つプロフィールを返す。
func (r *PostgresProfileRepo) ListActiveMarkersOlderThan(ctx context.Context, threshold time.Time) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, role, is_active,
		        active_timer_start, active_timer_project_id, active_timer_category_id,
		        created_at, updated_at
		 FROM profiles
		 WHERE active_timer_start IS NOT NULL AND active_timer_start < $1
		 ORDER BY active_timer_start`,
		threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale timer markers: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile := &model.Profile{}
		var timerStart sql.NullTime
		var timerProject, timerCategory sql.NullString

		if err := rows.Scan(
			&profile.ID, &profile.Email, &profile.FirstName, &profile.LastName,
			&profile.Role, &profile.IsActive,
			&timerStart, &timerProject, &timerCategory,
			&profile.CreatedAt, &profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}

		applyMarkerColumns(profile, timerStart, timerProject, timerCategory)
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// applyMarkerColumns はnullableなマーカーカラムをプロフィールへ反映する。
func applyMarkerColumns(profile *model.Profile, start sql.NullTime, projectID, categoryID sql.NullString) {
	if start.Valid {
		t := start.Time
		profile.ActiveTimerStart = &t
	}
	if projectID.Valid {
		s := projectID.String
		profile.ActiveTimerProjectID = &s
	}
	if categoryID.Valid {
		s := categoryID.String
		profile.ActiveTimerCategoryID = &s
	}
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
