package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// registryCleanupInterval は未使用セッションエントリの掃除間隔。
const registryCleanupInterval = 10 * time.Minute

// sessionMachine はセッションごとの状態機械と最終アクセス時刻を保持する。
type sessionMachine struct {
	machine    *Machine
	lastAccess time.Time
}

// ResumeMetrics はマーカーからの再開のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type ResumeMetrics interface {
	RecordTimerResume()
}

// Registry はクライアントセッションごとのタイマー状態機械を管理する。
// スナップショットは各セッションが独立に計算するが、永続マーカーは
// ユーザーごとに1つであり、セッション初回アクセス時に読み戻して再開する。
type Registry struct {
	markers MarkerStore
	entries EntryMaterializer
	clock   Clock
	metrics ResumeMetrics

	mu       sync.Mutex
	machines map[string]*sessionMachine

	stopCh chan struct{}
}

// NewRegistry はRegistryを生成し、バックグラウンドで未使用エントリの掃除を開始する。
// metricsはnilでもよい。
func NewRegistry(markers MarkerStore, entries EntryMaterializer, clock Clock, metrics ResumeMetrics) *Registry {
	if clock == nil {
		clock = SystemClock{}
	}
	r := &Registry{
		markers:  markers,
		entries:  entries,
		clock:    clock,
		metrics:  metrics,
		machines: make(map[string]*sessionMachine),
		stopCh:   make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// Stop は掃除のバックグラウンドゴルーチンを停止する。
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Acquire はセッションの状態機械を取得する。
// セッション初回アクセス時は永続マーカーを読み戻し、走行中タイマーがあれば
// 再開（restart ではなく resume）した状態機械を返す。経過時間は
// マーカーの開始時刻からの実時間差で計算され、ゼロから再スタートすることはない。
func (r *Registry) Acquire(ctx context.Context, sessionID, userID string) (*Machine, error) {
	r.mu.Lock()
	if sm, ok := r.machines[sessionID]; ok {
		sm.lastAccess = time.Now()
		r.mu.Unlock()
		return sm.machine, nil
	}
	r.mu.Unlock()

	// マーカーの読み戻しはロックの外で行う（ブロッキングI/O）。
	machine := NewMachine(userID, r.markers, r.entries, r.clock)

	marker, err := r.markers.ReadMarker(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read timer marker: %w", err)
	}
	if marker.IsActive() {
		if err := machine.Resume(marker); err != nil {
			// 不整合マーカー（計上先が欠落等）は再開せず、残留としてログに残す。
			// 自動削除はしない: 本当に走行中のタイマーを破棄するリスクがあるため。
			slog.Warn("skipping resume from inconsistent timer marker",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else if r.metrics != nil {
			r.metrics.RecordTimerResume()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// ダブルチェック: 同一セッションの並行リクエストが先に登録した場合はそちらを使う。
	if sm, ok := r.machines[sessionID]; ok {
		sm.lastAccess = time.Now()
		return sm.machine, nil
	}

	r.machines[sessionID] = &sessionMachine{
		machine:    machine,
		lastAccess: time.Now(),
	}
	return machine, nil
}

// Remove はセッションの状態機械を破棄する。ログアウト時に使用する。
// 永続マーカーには触れない: 走行中タイマーは再ログイン後に再開される。
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, sessionID)
}

// Count は現在管理されている状態機械のエントリ数を返す。
// テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// cleanupLoop はバックグラウンドで未使用エントリを定期的に掃除する。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(registryCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻が掃除間隔の2倍を超えたエントリを削除する。
// インメモリの状態機械を失っても永続マーカーから再開できるため安全に破棄できる。
func (r *Registry) cleanup() {
	ttl := registryCleanupInterval * 2
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID, sm := range r.machines {
		if now.Sub(sm.lastAccess) > ttl {
			delete(r.machines, sessionID)
		}
	}
}
