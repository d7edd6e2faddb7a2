// Package timer はタイマーのライフサイクルを管理する状態機械を提供する。
//
// 状態はIdle（タイマーなし）、Running（走行中）、StoppedPendingReview（停止済み・確定待ち）の
// 3つ。走行中の経過時間は常にアンカー時刻（startedAt）からの再計算で導出され、
// ティックごとのカウンタ加算は行わない。タブのサスペンドやティック欠落があっても
// 経過時間が過少表示されることはない。
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/timeman/internal/model"
)

// State はタイマー状態機械の状態を表す。
type State string

const (
	// StateIdle はタイマーが存在しない状態。
	StateIdle State = "idle"
	// StateRunning はタイマーが走行中の状態。
	StateRunning State = "running"
	// StateStoppedPendingReview はタイマーが停止され、確定・破棄待ちの状態。
	StateStoppedPendingReview State = "stopped_pending_review"
)

// MarkerStore はアクティブタイマーマーカーの永続化アダプタの契約。
// repository.ProfileRepositoryの部分集合として定義する。
type MarkerStore interface {
	// RecordTimerStart はマーカーを原子的に設定し、記録された開始時刻を返す。
	RecordTimerStart(ctx context.Context, userID string, target model.TimerTarget) (time.Time, error)
	// ClearTimerMarker はマーカーを原子的にクリアする。冪等。
	ClearTimerMarker(ctx context.Context, userID string) error
	// ReadMarker はマーカーを読み戻す。セッション再開時に使用する。
	ReadMarker(ctx context.Context, userID string) (*model.ActiveTimerMarker, error)
}

// EntryMaterializer は停止済みタイマーを時間記録として確定するインターフェース。
// 実装は記録の永続化が成功した後にのみマーカーをクリアしなければならない。
type EntryMaterializer interface {
	MaterializeTimer(ctx context.Context, userID string, startedAt, stoppedAt time.Time, target model.TimerTarget, notes string) (*model.TimeEntry, error)
}

// Snapshot はタイマーの読み取り専用ビュー。描画にのみ使用する。
type Snapshot struct {
	State          State
	Running        bool
	StartedAt      *time.Time
	StoppedAt      *time.Time
	Target         *model.TimerTarget
	ElapsedSeconds int64
}

// Machine は1クライアントセッションが所有するタイマー状態機械。
// 永続書き込みはawaitされ、完了（成功または失敗）するまで状態は遷移しない。
type Machine struct {
	mu      sync.Mutex
	userID  string
	clock   Clock
	markers MarkerStore
	entries EntryMaterializer

	state     State
	startedAt time.Time
	stoppedAt time.Time
	target    model.TimerTarget

	// lastElapsed は停止後・確定前に表示する直近の経過秒数。
	lastElapsed int64
}

// NewMachine はIdle状態のMachineを生成する。clockがnilの場合はシステムクロックを使用する。
func NewMachine(userID string, markers MarkerStore, entries EntryMaterializer, clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Machine{
		userID:  userID,
		clock:   clock,
		markers: markers,
		entries: entries,
		state:   StateIdle,
	}
}

// Start はタイマーを開始する（Idle → Running）。
// マーカーの永続書き込みが確認されるまで遷移しない。書き込みが失敗した場合は
// Idleのままエラーを返し、走行中であるかのような表示は行わない。
func (m *Machine) Start(ctx context.Context, target model.TimerTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return model.NewTimerAlreadyRunningError()
	}
	if !target.Valid() {
		return model.NewMissingTargetError()
	}

	startedAt, err := m.markers.RecordTimerStart(ctx, m.userID, target)
	if err != nil {
		return fmt.Errorf("failed to record timer start: %w", err)
	}

	m.state = StateRunning
	m.startedAt = startedAt
	m.target = target
	m.lastElapsed = 0

	slog.Info("timer started",
		slog.String("user_id", m.userID),
		slog.String("target_kind", string(target.Kind)),
		slog.String("target_id", target.ID),
	)
	return nil
}

// Stop はタイマーを停止する（Running → StoppedPendingReview）。
// ネットワークI/Oを伴わない純粋にローカルな遷移であり、UIが確定前の
// レビューフォームを提示できるようにするために存在する。
func (m *Machine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRunning {
		return model.NewTimerNotRunningError()
	}

	m.stoppedAt = m.clock.Now()

	// startedAtはDBクロック、stoppedAtはアプリクロック由来のため、クロックスキューの
	// 範囲内で停止すると区間が逆転し得る。捕捉済み区間が確定不能（INVALID_INTERVAL）に
	// 陥らないよう、停止時刻を開始時刻+1秒へクランプする。
	if !m.stoppedAt.After(m.startedAt) {
		m.stoppedAt = m.startedAt.Add(time.Second)
	}

	m.lastElapsed = model.DurationSecondsBetween(m.startedAt, m.stoppedAt)
	m.state = StateStoppedPendingReview
	return nil
}

// Commit は停止済みタイマーを時間記録として確定する（StoppedPendingReview → Idle）。
// 記録の永続化が失敗した場合は状態を維持し、捕捉済みの区間を失わずに再試行できる。
// マーカーのクリアはMaterializer側で記録の永続化後にのみ行われる。
func (m *Machine) Commit(ctx context.Context, notes string) (*model.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStoppedPendingReview {
		return nil, model.NewTimerNotStoppedError()
	}

	entry, err := m.entries.MaterializeTimer(ctx, m.userID, m.startedAt, m.stoppedAt, m.target, notes)
	if err != nil {
		return nil, err
	}

	m.reset()

	slog.Info("timer committed",
		slog.String("user_id", m.userID),
		slog.String("entry_id", entry.ID),
		slog.Int64("duration_seconds", entry.DurationSeconds),
	)
	return entry, nil
}

// Discard はタイマーを確定せずに破棄する（Running / StoppedPendingReview → Idle）。
// ローカル遷移は常に成功する。マーカーのクリアは試行されるが、その失敗は
// Idleへの復帰を妨げない（次回再開時に残留マーカーとして検出・処理される）。
func (m *Machine) Discard(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIdle {
		return model.NewTimerNotRunningError()
	}

	m.reset()

	if err := m.markers.ClearTimerMarker(ctx, m.userID); err != nil {
		slog.Warn("failed to clear timer marker on discard",
			slog.String("user_id", m.userID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Resume は永続マーカーからタイマーを再開する（Idle → Running）。
// マーカーは既に永続化済みのため再書き込みは行わない。経過時間は
// マーカーの開始時刻からの実時間差で再計算される。ゼロへのリセットは行わない。
func (m *Machine) Resume(marker *model.ActiveTimerMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return model.NewTimerAlreadyRunningError()
	}
	if !marker.IsActive() {
		return fmt.Errorf("cannot resume from an empty marker")
	}
	target, ok := marker.Target()
	if !ok {
		return fmt.Errorf("cannot resume from an inconsistent marker")
	}

	m.state = StateRunning
	m.startedAt = *marker.ActiveTimerStart
	m.target = target
	m.lastElapsed = 0

	slog.Info("timer resumed from marker",
		slog.String("user_id", m.userID),
		slog.Time("started_at", m.startedAt),
		slog.Int64("elapsed_seconds", model.DurationSecondsBetween(m.startedAt, m.clock.Now())),
	)
	return nil
}

// Snapshot は描画用の読み取り専用ビューを返す。
// 走行中の経過秒数は呼び出しのたびにアンカー時刻から再計算される。
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:   m.state,
		Running: m.state == StateRunning,
	}

	switch m.state {
	case StateRunning:
		startedAt := m.startedAt
		target := m.target
		snap.StartedAt = &startedAt
		snap.Target = &target
		elapsed := model.DurationSecondsBetween(m.startedAt, m.clock.Now())
		if elapsed < 0 {
			elapsed = 0
		}
		snap.ElapsedSeconds = elapsed
	case StateStoppedPendingReview:
		startedAt := m.startedAt
		stoppedAt := m.stoppedAt
		target := m.target
		snap.StartedAt = &startedAt
		snap.StoppedAt = &stoppedAt
		snap.Target = &target
		snap.ElapsedSeconds = m.lastElapsed
	default:
		snap.ElapsedSeconds = m.lastElapsed
	}

	return snap
}

// reset は状態機械をIdleへ戻す。呼び出し側がロックを保持していること。
func (m *Machine) reset() {
	m.state = StateIdle
	m.startedAt = time.Time{}
	m.stoppedAt = time.Time{}
	m.target = model.TimerTarget{}
	m.lastElapsed = 0
}
