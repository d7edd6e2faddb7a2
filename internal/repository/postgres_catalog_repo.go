package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/timeman/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトカタログリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// FindActiveByID は有効（is_active、未削除）なプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindActiveByID(ctx context.Context, id string) (*model.Project, error) {
	project := &model.Project{}
	var description, clientName sql.NullString
	var deletedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, client_name, is_active, created_at, updated_at, deleted_at
		 FROM projects
		 WHERE id = $1 AND is_active = true AND deleted_at IS NULL`,
		id,
	).Scan(
		&project.ID, &project.Name, &description, &clientName,
		&project.IsActive, &project.CreatedAt, &project.UpdatedAt, &deletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}

	project.Description = description.String
	project.ClientName = clientName.String
	if deletedAt.Valid {
		t := deletedAt.Time
		project.DeletedAt = &t
	}
	return project, nil
}

// ListActive は有効なプロジェクトの一覧を名前順で返す。
func (r *PostgresProjectRepo) ListActive(ctx context.Context) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, client_name, is_active, created_at, updated_at, deleted_at
		 FROM projects
		 WHERE is_active = true AND deleted_at IS NULL
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project := &model.Project{}
		var description, clientName sql.NullString
		var deletedAt sql.NullTime

		if err := rows.Scan(
			&project.ID, &project.Name, &description, &clientName,
			&project.IsActive, &project.CreatedAt, &project.UpdatedAt, &deletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		project.Description = description.String
		project.ClientName = clientName.String
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリカタログリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindActiveByID は有効（is_active、未削除）なカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindActiveByID(ctx context.Context, id string) (*model.Category, error) {
	category := &model.Category{}
	var description, color sql.NullString
	var deletedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, color, is_active, created_at, updated_at, deleted_at
		 FROM categories
		 WHERE id = $1 AND is_active = true AND deleted_at IS NULL`,
		id,
	).Scan(
		&category.ID, &category.Name, &description, &color,
		&category.IsActive, &category.CreatedAt, &category.UpdatedAt, &deletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	category.Description = description.String
	category.Color = color.String
	if deletedAt.Valid {
		t := deletedAt.Time
		category.DeletedAt = &t
	}
	return category, nil
}

// ListActive は有効なカテゴリの一覧を名前順で返す。
func (r *PostgresCategoryRepo) ListActive(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, color, is_active, created_at, updated_at, deleted_at
		 FROM categories
		 WHERE is_active = true AND deleted_at IS NULL
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category := &model.Category{}
		var description, color sql.NullString
		var deletedAt sql.NullTime

		if err := rows.Scan(
			&category.ID, &category.Name, &description, &color,
			&category.IsActive, &category.CreatedAt, &category.UpdatedAt, &deletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}

		category.Description = description.String
		category.Color = color.String
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// compile-time interface checks
var (
	_ ProjectRepository  = (*PostgresProjectRepo)(nil)
	_ CategoryRepository = (*PostgresCategoryRepo)(nil)
)
