// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/timeman/internal/middleware"
	"github.com/hitoshi/timeman/internal/model"
	"github.com/hitoshi/timeman/internal/timer"
)

// MachineRegistryInterface はセッションごとのタイマー状態機械を払い出すインターフェース。
// timer.Registryが実装する。初回取得時に永続マーカーからの再開を試みる。
type MachineRegistryInterface interface {
	Acquire(ctx context.Context, sessionID, userID string) (*timer.Machine, error)
}

// TimerMetrics はタイマーハンドラーが記録するメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。
type TimerMetrics interface {
	RecordTimerStart()
	RecordTimerCommit()
	RecordTimerDiscard()
}

// TimerHandler はタイマーライフサイクルのHTTPハンドラー。
type TimerHandler struct {
	registry MachineRegistryInterface
	metrics  TimerMetrics
}

// NewTimerHandler はTimerHandlerを生成する。metricsはnilでもよい。
func NewTimerHandler(registry MachineRegistryInterface, metrics TimerMetrics) *TimerHandler {
	return &TimerHandler{
		registry: registry,
		metrics:  metrics,
	}
}

// --- リクエスト・レスポンス型 ---

// timerStartRequest はタイマー開始リクエストのボディ。
// project_idとcategory_idはちょうど一方を指定する。
type timerStartRequest struct {
	ProjectID  *string `json:"project_id,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
}

// timerCommitRequest はタイマー確定リクエストのボディ。
type timerCommitRequest struct {
	Notes string `json:"notes"`
}

// timerSnapshotResponse はタイマーの現在状態のレスポンス。
type timerSnapshotResponse struct {
	State          string     `json:"state"`
	Running        bool       `json:"running"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	ProjectID      *string    `json:"project_id,omitempty"`
	CategoryID     *string    `json:"category_id,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
}

// toTimerSnapshotResponse はtimer.Snapshotをレスポンス型に変換する。
func toTimerSnapshotResponse(snap timer.Snapshot) timerSnapshotResponse {
	resp := timerSnapshotResponse{
		State:          string(snap.State),
		Running:        snap.Running,
		StartedAt:      snap.StartedAt,
		StoppedAt:      snap.StoppedAt,
		ElapsedSeconds: snap.ElapsedSeconds,
	}
	if snap.Target != nil {
		resp.ProjectID = snap.Target.ProjectID()
		resp.CategoryID = snap.Target.CategoryID()
	}
	return resp
}

// acquireMachine はリクエストコンテキストの認証情報からタイマー状態機械を取得する。
// 失敗した場合はエラーレスポンスを書き込み、nilを返す。
func (h *TimerHandler) acquireMachine(w http.ResponseWriter, r *http.Request) *timer.Machine {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return nil
	}
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return nil
	}

	machine, err := h.registry.Acquire(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, err)
		return nil
	}
	return machine
}

// GetTimer はタイマーの現在状態を取得する。
// セッション初回のアクセスでは永続マーカーからの再開が行われるため、
// 別タブやリロード後でも走行中タイマーが正しい経過時間で返る。
// GET /api/timer
func (h *TimerHandler) GetTimer(w http.ResponseWriter, r *http.Request) {
	machine := h.acquireMachine(w, r)
	if machine == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTimerSnapshotResponse(machine.Snapshot()))
}

// StartTimer はタイマーを開始する。
// マーカーの永続書き込みが確認されるまで走行中にはならない。
// POST /api/timer/start
func (h *TimerHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	machine := h.acquireMachine(w, r)
	if machine == nil {
		return
	}

	var req timerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	target, ok := model.TargetFromIDs(req.ProjectID, req.CategoryID)
	if !ok {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingTargetError())
		return
	}

	if err := machine.Start(r.Context(), target); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTimerStart()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTimerSnapshotResponse(machine.Snapshot()))
}

// StopTimer はタイマーを停止し、確定待ち状態にする。
// ローカル遷移のみで完了し、永続化は確定時に行われる。
// POST /api/timer/stop
func (h *TimerHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	machine := h.acquireMachine(w, r)
	if machine == nil {
		return
	}

	if err := machine.Stop(); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTimerSnapshotResponse(machine.Snapshot()))
}

// CommitTimer は停止済みタイマーを時間記録として確定する。
// 永続化が失敗した場合は409や500を返すが、タイマーは確定待ちのまま残り、
// 捕捉済みの区間を失わずに再試行できる。
// POST /api/timer/commit
func (h *TimerHandler) CommitTimer(w http.ResponseWriter, r *http.Request) {
	machine := h.acquireMachine(w, r)
	if machine == nil {
		return
	}

	var req timerCommitRequest
	if r.Body != nil {
		// notesは任意のため、空ボディは許容する
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "リクエストボディの解析に失敗しました。",
				Category: "validation",
				Action:   "正しいJSON形式でリクエストしてください。",
			})
			return
		}
	}

	created, err := machine.Commit(r.Context(), req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTimerCommit()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEntryResponse(created))
}

// DiscardTimer はタイマーを確定せずに破棄する。
// 走行中・確定待ちのどちらからでも破棄できる。
// POST /api/timer/discard
func (h *TimerHandler) DiscardTimer(w http.ResponseWriter, r *http.Request) {
	machine := h.acquireMachine(w, r)
	if machine == nil {
		return
	}

	if err := machine.Discard(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTimerDiscard()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTimerSnapshotResponse(machine.Snapshot()))
}
