package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, timer, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInterval     = "INVALID_INTERVAL"
	ErrCodeMissingTarget       = "MISSING_TARGET"
	ErrCodeTimerAlreadyRunning = "TIMER_ALREADY_RUNNING"
	ErrCodeTimerNotRunning     = "TIMER_NOT_RUNNING"
	ErrCodeTimerNotStopped     = "TIMER_NOT_STOPPED"
	ErrCodeTargetNotFound      = "TARGET_NOT_FOUND"
	ErrCodeEntryNotFound       = "ENTRY_NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
)

// NewInvalidIntervalError は終了時刻が開始時刻以前である場合のエラーを生成する。
func NewInvalidIntervalError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInterval,
		Message:  "終了時刻は開始時刻より後である必要があります。",
		Category: "validation",
		Action:   "開始時刻と終了時刻を確認してください。",
	}
}

// NewMissingTargetError は計上先が正しく指定されていない場合のエラーを生成する。
// プロジェクトとカテゴリのどちらも未指定、または両方指定された場合に返す。
func NewMissingTargetError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingTarget,
		Message:  "プロジェクトまたはカテゴリのどちらか一方を選択してください。",
		Category: "validation",
		Action:   "計上先としてプロジェクトかカテゴリのいずれか一方を選択してください。",
	}
}

// NewTimerAlreadyRunningError はタイマーが既に走行中の場合のエラーを生成する。
func NewTimerAlreadyRunningError() *APIError {
	return &APIError{
		Code:     ErrCodeTimerAlreadyRunning,
		Message:  "タイマーは既に動作中です。",
		Category: "timer",
		Action:   "現在のタイマーを停止してから、新しいタイマーを開始してください。",
	}
}

// NewTimerNotRunningError はタイマーが走行中でない場合のエラーを生成する。
func NewTimerNotRunningError() *APIError {
	return &APIError{
		Code:     ErrCodeTimerNotRunning,
		Message:  "動作中のタイマーがありません。",
		Category: "timer",
		Action:   "タイマーを開始してから操作してください。",
	}
}

// NewTimerNotStoppedError は停止済みタイマーが存在しない状態で確定・破棄を試みた場合のエラーを生成する。
func NewTimerNotStoppedError() *APIError {
	return &APIError{
		Code:     ErrCodeTimerNotStopped,
		Message:  "確定待ちのタイマーがありません。",
		Category: "timer",
		Action:   "タイマーを停止してから確定または破棄してください。",
	}
}

// NewTargetNotFoundError は指定された計上先が存在しない・無効な場合のエラーを生成する。
func NewTargetNotFoundError(kind TargetKind, id string) *APIError {
	return &APIError{
		Code:     ErrCodeTargetNotFound,
		Message:  fmt.Sprintf("指定された計上先が見つかりません: %s %s", kind, id),
		Category: "validation",
		Action:   "有効なプロジェクトまたはカテゴリを選択し直してください。",
	}
}

// NewEntryNotFoundError は時間記録が見つからない場合のエラーを生成する。
func NewEntryNotFoundError(entryID string) *APIError {
	return &APIError{
		Code:     ErrCodeEntryNotFound,
		Message:  fmt.Sprintf("指定された時間記録が見つかりません: %s", entryID),
		Category: "timer",
		Action:   "記録IDを確認してください。",
	}
}

// NewForbiddenError は他ユーザーの記録への操作が許可されていない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この記録を操作する権限がありません。",
		Category: "auth",
		Action:   "自分の記録のみ操作できます。管理者に問い合わせてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
