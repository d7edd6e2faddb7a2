// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NotesSanitizerService は時間記録のメモ欄をサニタイズし、
// 保存データに混入したHTMLが管理画面等で表示される際のXSSを防ぐ。
// メモはプレーンテキストとして扱うため、bluemondayのStrictPolicyで
// 全てのタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NotesSanitizerService はメモ欄のサニタイズ機能のインターフェースを定義する。
// 時間記録の作成・更新時に使用される。
type NotesSanitizerService interface {
	// SanitizeNotes はメモからHTMLタグを全て除去し、前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeNotes(notes string) string
}

// notesSanitizer はNotesSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type notesSanitizer struct {
	policy *bluemonday.Policy
}

// NewNotesSanitizer はNotesSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。メモに書式は不要であり、
// プレーンテキストのみを保存する。
func NewNotesSanitizer() *notesSanitizer {
	return &notesSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeNotes はメモからHTMLタグを全て除去して返す。
func (s *notesSanitizer) SanitizeNotes(notes string) string {
	return strings.TrimSpace(s.policy.Sanitize(notes))
}
