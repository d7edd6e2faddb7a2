package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"time"

	"github.com/hitoshi/timeman/internal/model"
)

// defaultEntryListLimit は一覧取得の既定の最大件数。
const defaultEntryListLimit = 100

// PostgresTimeEntryRepo はPostgreSQLを使用した時間記録リポジトリ。
type PostgresTimeEntryRepo struct {
	db *sql.DB
}

// NewPostgresTimeEntryRepo はPostgresTimeEntryRepoを生成する。
func NewPostgresTimeEntryRepo(db *sql.DB) *PostgresTimeEntryRepo {
	return &PostgresTimeEntryRepo{db: db}
}

// Create は時間記録を作成する。
func (r *PostgresTimeEntryRepo) Create(ctx context.Context, entry *model.TimeEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO time_entries
		   (id, user_id, project_id, category_id, start_time, end_time, duration_seconds, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.UserID, entry.ProjectID, entry.CategoryID,
		entry.StartTime, entry.EndTime, entry.DurationSeconds, entry.Notes,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert time entry: %w", err)
	}
	return nil
}

// FindByID は指定IDの時間記録を取得する。見つからない場合はnilを返す。
func (r *PostgresTimeEntryRepo) FindByID(ctx context.Context, id string) (*model.TimeEntry, error) {
	entry := &model.TimeEntry{}
	var projectID, categoryID, notes sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, project_id, category_id, start_time, end_time, duration_seconds, notes, created_at, updated_at
		 FROM time_entries WHERE id = $1`,
		id,
	).Scan(
		&entry.ID, &entry.UserID, &projectID, &categoryID,
		&entry.StartTime, &entry.EndTime, &entry.DurationSeconds, &notes,
		&entry.CreatedAt, &entry.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find time entry by ID: %w", err)
	}

	applyEntryNullColumns(entry, projectID, categoryID, notes)
	return entry, nil
}

// Update は時間記録を上書き更新する。対象が存在しない場合はエラーを返す。
func (r *PostgresTimeEntryRepo) Update(ctx context.Context, entry *model.TimeEntry) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE time_entries
		 SET project_id = $2, category_id = $3,
		     start_time = $4, end_time = $5, duration_seconds = $6,
		     notes = $7, updated_at = now()
		 WHERE id = $1`,
		entry.ID, entry.ProjectID, entry.CategoryID,
		entry.StartTime, entry.EndTime, entry.DurationSeconds, entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("time entry not found: %s", entry.ID)
	}
	return nil
}

// Delete は指定IDの時間記録を物理削除する。対象が存在しない場合はエラーを返す。
func (r *PostgresTimeEntryRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM time_entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("time entry not found: %s", id)
	}
	return nil
}

// ListByUser はユーザーの時間記録一覧をstart_time降順で返す。
// フィルタのnilフィールドは条件に含めない。
func (r *PostgresTimeEntryRepo) ListByUser(ctx context.Context, userID string, filter EntryListFilter) ([]*model.TimeEntry, error) {
	var sb strings.Builder
	sb.WriteString(
		`SELECT id, user_id, project_id, category_id, start_time, end_time, duration_seconds, notes, created_at, updated_at
		 FROM time_entries WHERE user_id = $1`)

	args := []any{userID}
	if filter.From != nil {
		args = append(args, *filter.From)
		sb.WriteString(" AND start_time >= $" + strconv.Itoa(len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		sb.WriteString(" AND start_time < $" + strconv.Itoa(len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		sb.WriteString(" AND project_id = $" + strconv.Itoa(len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		sb.WriteString(" AND category_id = $" + strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEntryListLimit
	}
	args = append(args, limit)
	sb.WriteString(" ORDER BY start_time DESC LIMIT $" + strconv.Itoa(len(args)))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.TimeEntry
	for rows.Next() {
		entry := &model.TimeEntry{}
		var projectID, categoryID, notes sql.NullString

		if err := rows.Scan(
			&entry.ID, &entry.UserID, &projectID, &categoryID,
			&entry.StartTime, &entry.EndTime, &entry.DurationSeconds, &notes,
			&entry.CreatedAt, &entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}

		applyEntryNullColumns(entry, projectID, categoryID, notes)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time entries: %w", err)
	}

	return entries, nil
}

// ExistsOverlapping は指定区間と重なる確定済み記録が存在するかを返す。
func (r *PostgresTimeEntryRepo) ExistsOverlapping(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM time_entries
		   WHERE user_id = $1 AND start_time < $3 AND end_time > $2
		 )`,
		userID, start, end,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping entries: %w", err)
	}
	return exists, nil
}

// applyEntryNullColumns はnullableカラムを時間記録へ反映する。
func applyEntryNullColumns(entry *model.TimeEntry, projectID, categoryID, notes sql.NullString) {
	if projectID.Valid {
		s := projectID.String
		entry.ProjectID = &s
	}
	if categoryID.Valid {
		s := categoryID.String
		entry.CategoryID = &s
	}
	if notes.Valid {
		s := notes.String
		entry.Notes = &s
	}
}

// compile-time interface check
var _ TimeEntryRepository = (*PostgresTimeEntryRepo)(nil)
