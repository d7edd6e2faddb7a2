package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/timeman/internal/middleware"
	"github.com/hitoshi/timeman/internal/model"
)

// ProjectListerInterface は有効なプロジェクト一覧の取得インターフェース。
// repository.ProjectRepositoryの部分集合として定義する。
type ProjectListerInterface interface {
	ListActive(ctx context.Context) ([]*model.Project, error)
}

// CategoryListerInterface は有効なカテゴリ一覧の取得インターフェース。
// repository.CategoryRepositoryの部分集合として定義する。
type CategoryListerInterface interface {
	ListActive(ctx context.Context) ([]*model.Category, error)
}

// CatalogHandler は計上先カタログ（プロジェクト・カテゴリ）のHTTPハンドラー。
// 一覧の提供のみで、管理CRUDは持たない。
type CatalogHandler struct {
	projects   ProjectListerInterface
	categories CategoryListerInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(projects ProjectListerInterface, categories CategoryListerInterface) *CatalogHandler {
	return &CatalogHandler{
		projects:   projects,
		categories: categories,
	}
}

// --- レスポンス型 ---

// projectResponse はプロジェクトのレスポンス。
type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
}

// categoryResponse はカテゴリのレスポンス。
type categoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// ListProjects は有効なプロジェクト一覧を取得する。
// GET /api/projects
func (h *CatalogHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	projects, err := h.projects.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = projectResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			ClientName:  p.ClientName,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]projectResponse{"projects": results})
}

// ListCategories は有効なカテゴリ一覧を取得する。
// GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	categories, err := h.categories.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		results[i] = categoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Color:       c.Color,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]categoryResponse{"categories": results})
}
