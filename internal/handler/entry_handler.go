package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/timeman/internal/entry"
	"github.com/hitoshi/timeman/internal/middleware"
	"github.com/hitoshi/timeman/internal/model"
	"github.com/hitoshi/timeman/internal/repository"
)

// maxEntryListLimit は時間記録一覧の1回の取得件数の上限。
const maxEntryListLimit = 200

// EntryServiceInterface は時間記録ハンドラーが必要とするサービスインターフェース。
// entry.Serviceが実装する。
type EntryServiceInterface interface {
	// CreateQuick はタイマーを経由しないクイック入力で時間記録を作成する。
	CreateQuick(ctx context.Context, userID string, startTime, endTime time.Time, projectID, categoryID *string, notes string) (*model.TimeEntry, error)
	// List はユーザーの時間記録一覧をstart_time降順で返す。
	List(ctx context.Context, userID string, filter repository.EntryListFilter) ([]*model.TimeEntry, error)
	// Update は時間記録を更新する。所有者または管理者のみ。
	Update(ctx context.Context, actorID, entryID string, input entry.UpdateInput) (*model.TimeEntry, error)
	// Delete は時間記録を削除する。所有者または管理者のみ。
	Delete(ctx context.Context, actorID, entryID string) error
}

// EntryHandler は時間記録管理のHTTPハンドラー。
type EntryHandler struct {
	service EntryServiceInterface
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(service EntryServiceInterface) *EntryHandler {
	return &EntryHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// entryWriteRequest は時間記録の作成・更新リクエストのボディ。
// duration_secondsは受け取らない: 常にサーバー側で区間から再計算される。
type entryWriteRequest struct {
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	ProjectID  *string   `json:"project_id,omitempty"`
	CategoryID *string   `json:"category_id,omitempty"`
	Notes      string    `json:"notes"`
}

// entryResponse は時間記録のレスポンス。
type entryResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ProjectID       *string   `json:"project_id,omitempty"`
	CategoryID      *string   `json:"category_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// entryListResponse は時間記録一覧のレスポンス。
type entryListResponse struct {
	Entries []entryResponse `json:"entries"`
}

// toEntryResponse はドメインのTimeEntryをレスポンス型に変換する。
func toEntryResponse(e *model.TimeEntry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		ProjectID:       e.ProjectID,
		CategoryID:      e.CategoryID,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationSeconds: e.DurationSeconds,
		Notes:           e.Notes,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// CreateEntry はクイック入力で時間記録を作成する。
// POST /api/entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	var req entryWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.CreateQuick(r.Context(), userID, req.StartTime, req.EndTime, req.ProjectID, req.CategoryID, req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEntryResponse(created))
}

// ListEntries は自分の時間記録一覧を取得する。
// GET /api/entries?from=RFC3339&to=RFC3339&project_id=xxx&category_id=xxx&limit=n
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	filter, apiErr := parseEntryListFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	entries, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]entryResponse, len(entries))
	for i, e := range entries {
		results[i] = toEntryResponse(e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entryListResponse{Entries: results})
}

// UpdateEntry は時間記録を更新する。所有者または管理者のみ実行できる。
// PUT /api/entries/:id
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	entryID := chi.URLParam(r, "id")

	var req entryWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	updated, err := h.service.Update(r.Context(), userID, entryID, entry.UpdateInput{
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		ProjectID:  req.ProjectID,
		CategoryID: req.CategoryID,
		Notes:      req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEntryResponse(updated))
}

// DeleteEntry は時間記録を削除する。所有者または管理者のみ実行できる。
// DELETE /api/entries/:id
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	entryID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, entryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseEntryListFilter はクエリパラメータから一覧の絞り込み条件を組み立てる。
func parseEntryListFilter(r *http.Request) (repository.EntryListFilter, *model.APIError) {
	var filter repository.EntryListFilter

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return filter, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "fromの形式が正しくありません。",
				Category: "validation",
				Action:   "RFC3339形式（例: 2026-01-02T15:04:05Z）で指定してください。",
			}
		}
		filter.From = &from
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return filter, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "toの形式が正しくありません。",
				Category: "validation",
				Action:   "RFC3339形式（例: 2026-01-02T15:04:05Z）で指定してください。",
			}
		}
		filter.To = &to
	}
	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if categoryID := r.URL.Query().Get("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return filter, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitの形式が正しくありません。",
				Category: "validation",
				Action:   "1以上の整数で指定してください。",
			}
		}
		if limit > maxEntryListLimit {
			limit = maxEntryListLimit
		}
		filter.Limit = limit
	}

	return filter, nil
}

// --- 共通エラーレスポンス ---

// apiErrorResponse はAPIエラーレスポンスのJSON構造。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一フォーマットでAPIエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスへ変換する。
// APIErrorはコードに応じたステータスへ、それ以外は500へマップする。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorのコードをHTTPステータスコードにマップする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidInterval, model.ErrCodeMissingTarget, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeTimerAlreadyRunning, model.ErrCodeTimerNotRunning, model.ErrCodeTimerNotStopped:
		return http.StatusConflict
	case model.ErrCodeTargetNotFound:
		return http.StatusUnprocessableEntity
	case model.ErrCodeEntryNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
