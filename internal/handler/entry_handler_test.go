package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/timeman/internal/entry"
	"github.com/hitoshi/timeman/internal/model"
	"github.com/hitoshi/timeman/internal/repository"
)

// --- モック定義 ---

// mockEntryService はEntryServiceInterfaceのモック実装。
type mockEntryService struct {
	createQuickFn func(ctx context.Context, userID string, startTime, endTime time.Time, projectID, categoryID *string, notes string) (*model.TimeEntry, error)
	listFn        func(ctx context.Context, userID string, filter repository.EntryListFilter) ([]*model.TimeEntry, error)
	updateFn      func(ctx context.Context, actorID, entryID string, input entry.UpdateInput) (*model.TimeEntry, error)
	deleteFn      func(ctx context.Context, actorID, entryID string) error
}

func (m *mockEntryService) CreateQuick(ctx context.Context, userID string, startTime, endTime time.Time, projectID, categoryID *string, notes string) (*model.TimeEntry, error) {
	if m.createQuickFn != nil {
		return m.createQuickFn(ctx, userID, startTime, endTime, projectID, categoryID, notes)
	}
	return nil, nil
}

func (m *mockEntryService) List(ctx context.Context, userID string, filter repository.EntryListFilter) ([]*model.TimeEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, nil
}

func (m *mockEntryService) Update(ctx context.Context, actorID, entryID string, input entry.UpdateInput) (*model.TimeEntry, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actorID, entryID, input)
	}
	return nil, nil
}

func (m *mockEntryService) Delete(ctx context.Context, actorID, entryID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actorID, entryID)
	}
	return nil
}

func sampleEntry(id, userID string) *model.TimeEntry {
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	projectID := "proj-1"
	return &model.TimeEntry{
		ID:              id,
		UserID:          userID,
		ProjectID:       &projectID,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		DurationSeconds: 3600,
		CreatedAt:       start,
		UpdatedAt:       start,
	}
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- POST /api/entries テスト ---

func TestEntryHandler_CreateEntry_Success(t *testing.T) {
	var gotUserID, gotNotes string
	svc := &mockEntryService{
		createQuickFn: func(ctx context.Context, userID string, startTime, endTime time.Time, projectID, categoryID *string, notes string) (*model.TimeEntry, error) {
			gotUserID = userID
			gotNotes = notes
			return sampleEntry("entry-1", userID), nil
		},
	}
	h := NewEntryHandler(svc)

	body := []byte(`{"start_time":"2026-04-01T09:00:00Z","end_time":"2026-04-01T10:00:00Z","project_id":"proj-1","notes":"メモ"}`)
	rec := httptest.NewRecorder()
	h.CreateEntry(rec, authedRequest(http.MethodPost, "/api/entries", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var resp entryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "entry-1" || resp.DurationSeconds != 3600 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if gotUserID != "user-123" {
		t.Errorf("userID = %q, want user-123", gotUserID)
	}
	if gotNotes != "メモ" {
		t.Errorf("notes = %q, want メモ", gotNotes)
	}
}

func TestEntryHandler_CreateEntry_Unauthenticated(t *testing.T) {
	h := NewEntryHandler(&mockEntryService{})

	rec := httptest.NewRecorder()
	h.CreateEntry(rec, httptest.NewRequest(http.MethodPost, "/api/entries", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestEntryHandler_CreateEntry_InvalidJSON(t *testing.T) {
	h := NewEntryHandler(&mockEntryService{})

	rec := httptest.NewRecorder()
	h.CreateEntry(rec, authedRequest(http.MethodPost, "/api/entries", []byte(`{invalid`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// サービス層のAPIErrorがHTTPステータスへ正しくマップされることを検証
func TestEntryHandler_CreateEntry_ServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"区間が不正", model.NewInvalidIntervalError(), http.StatusBadRequest, model.ErrCodeInvalidInterval},
		{"計上先未指定", model.NewMissingTargetError(), http.StatusBadRequest, model.ErrCodeMissingTarget},
		{"計上先が存在しない", model.NewTargetNotFoundError(model.TargetKindProject, "missing"), http.StatusUnprocessableEntity, model.ErrCodeTargetNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockEntryService{
				createQuickFn: func(ctx context.Context, userID string, startTime, endTime time.Time, projectID, categoryID *string, notes string) (*model.TimeEntry, error) {
					return nil, tt.err
				},
			}
			h := NewEntryHandler(svc)

			body := []byte(`{"start_time":"2026-04-01T09:00:00Z","end_time":"2026-04-01T10:00:00Z","project_id":"proj-1"}`)
			rec := httptest.NewRecorder()
			h.CreateEntry(rec, authedRequest(http.MethodPost, "/api/entries", body))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp apiErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

// --- GET /api/entries テスト ---

func TestEntryHandler_ListEntries_Success(t *testing.T) {
	var gotFilter repository.EntryListFilter
	svc := &mockEntryService{
		listFn: func(ctx context.Context, userID string, filter repository.EntryListFilter) ([]*model.TimeEntry, error) {
			gotFilter = filter
			return []*model.TimeEntry{sampleEntry("entry-1", userID), sampleEntry("entry-2", userID)}, nil
		},
	}
	h := NewEntryHandler(svc)

	rec := httptest.NewRecorder()
	h.ListEntries(rec, authedRequest(http.MethodGet, "/api/entries?from=2026-04-01T00:00:00Z&project_id=proj-1&limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp entryListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(resp.Entries))
	}
	if gotFilter.From == nil || gotFilter.ProjectID == nil || *gotFilter.ProjectID != "proj-1" || gotFilter.Limit != 10 {
		t.Errorf("filter not parsed: %+v", gotFilter)
	}
}

func TestEntryHandler_ListEntries_InvalidFrom(t *testing.T) {
	h := NewEntryHandler(&mockEntryService{})

	rec := httptest.NewRecorder()
	h.ListEntries(rec, authedRequest(http.MethodGet, "/api/entries?from=yesterday", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// limitは上限でクランプされることを検証
func TestEntryHandler_ListEntries_LimitClamped(t *testing.T) {
	var gotLimit int
	svc := &mockEntryService{
		listFn: func(ctx context.Context, userID string, filter repository.EntryListFilter) ([]*model.TimeEntry, error) {
			gotLimit = filter.Limit
			return nil, nil
		},
	}
	h := NewEntryHandler(svc)

	rec := httptest.NewRecorder()
	h.ListEntries(rec, authedRequest(http.MethodGet, "/api/entries?limit=10000", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotLimit != maxEntryListLimit {
		t.Errorf("limit = %d, want %d", gotLimit, maxEntryListLimit)
	}
}

func TestEntryHandler_ListEntries_InvalidLimit(t *testing.T) {
	h := NewEntryHandler(&mockEntryService{})

	for _, limit := range []string{"0", "-1", "abc"} {
		rec := httptest.NewRecorder()
		h.ListEntries(rec, authedRequest(http.MethodGet, "/api/entries?limit="+limit, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

// --- PUT /api/entries/:id テスト ---

func TestEntryHandler_UpdateEntry_Success(t *testing.T) {
	var gotEntryID string
	var gotInput entry.UpdateInput
	svc := &mockEntryService{
		updateFn: func(ctx context.Context, actorID, entryID string, input entry.UpdateInput) (*model.TimeEntry, error) {
			gotEntryID = entryID
			gotInput = input
			return sampleEntry(entryID, actorID), nil
		},
	}
	h := NewEntryHandler(svc)

	body := []byte(`{"start_time":"2026-04-01T09:00:00Z","end_time":"2026-04-01T10:30:00Z","category_id":"cat-1","notes":"修正"}`)
	req := withURLParam(authedRequest(http.MethodPut, "/api/entries/entry-1", body), "id", "entry-1")
	rec := httptest.NewRecorder()
	h.UpdateEntry(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotEntryID != "entry-1" {
		t.Errorf("entryID = %q, want entry-1", gotEntryID)
	}
	if gotInput.CategoryID == nil || *gotInput.CategoryID != "cat-1" {
		t.Error("category_id should be forwarded")
	}
	if gotInput.Notes != "修正" {
		t.Errorf("notes = %q, want 修正", gotInput.Notes)
	}
}

func TestEntryHandler_UpdateEntry_Forbidden(t *testing.T) {
	svc := &mockEntryService{
		updateFn: func(ctx context.Context, actorID, entryID string, input entry.UpdateInput) (*model.TimeEntry, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewEntryHandler(svc)

	body := []byte(`{"start_time":"2026-04-01T09:00:00Z","end_time":"2026-04-01T10:00:00Z","project_id":"proj-1"}`)
	req := withURLParam(authedRequest(http.MethodPut, "/api/entries/entry-1", body), "id", "entry-1")
	rec := httptest.NewRecorder()
	h.UpdateEntry(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

// --- DELETE /api/entries/:id テスト ---

func TestEntryHandler_DeleteEntry_Success(t *testing.T) {
	var gotActorID, gotEntryID string
	svc := &mockEntryService{
		deleteFn: func(ctx context.Context, actorID, entryID string) error {
			gotActorID = actorID
			gotEntryID = entryID
			return nil
		},
	}
	h := NewEntryHandler(svc)

	req := withURLParam(authedRequest(http.MethodDelete, "/api/entries/entry-1", nil), "id", "entry-1")
	rec := httptest.NewRecorder()
	h.DeleteEntry(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if gotActorID != "user-123" || gotEntryID != "entry-1" {
		t.Errorf("actorID = %q entryID = %q", gotActorID, gotEntryID)
	}
}

func TestEntryHandler_DeleteEntry_NotFound(t *testing.T) {
	svc := &mockEntryService{
		deleteFn: func(ctx context.Context, actorID, entryID string) error {
			return model.NewEntryNotFoundError(entryID)
		},
	}
	h := NewEntryHandler(svc)

	req := withURLParam(authedRequest(http.MethodDelete, "/api/entries/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.DeleteEntry(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
