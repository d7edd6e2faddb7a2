package security

import (
	"strings"
	"testing"
)

// TestSanitizeNotes_RemovesAllTags はメモからHTMLタグが全て除去されることを検証する。
func TestSanitizeNotes_RemovesAllTags(t *testing.T) {
	sanitizer := NewNotesSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "設計レビューの準備",
			want:  "設計レビューの準備",
		},
		{
			name:  "pタグも除去される",
			input: "<p>ミーティングメモ</p>",
			want:  "ミーティングメモ",
		},
		{
			name:  "scriptタグとその中身が除去される",
			input: `メモ<script>alert("xss")</script>`,
			want:  "メモ",
		},
		{
			name:  "imgのonerrorが除去される",
			input: `<img src=x onerror=alert(1)>続き`,
			want:  "続き",
		},
		{
			name:  "aタグはテキストのみ残る",
			input: `<a href="https://example.com">リンク</a>を確認`,
			want:  "リンクを確認",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeNotes(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeNotes(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeNotes_TrimsWhitespace は前後の空白が取り除かれることを検証する。
func TestSanitizeNotes_TrimsWhitespace(t *testing.T) {
	sanitizer := NewNotesSanitizer()

	got := sanitizer.SanitizeNotes("  メモ本文  \n")
	if got != "メモ本文" {
		t.Errorf("SanitizeNotes = %q, want %q", got, "メモ本文")
	}
}

// TestSanitizeNotes_Idempotent は同一入力に対して常に同一出力となることを検証する。
func TestSanitizeNotes_Idempotent(t *testing.T) {
	sanitizer := NewNotesSanitizer()

	input := `<b>太字</b>のメモ<script>bad()</script>`
	first := sanitizer.SanitizeNotes(input)
	second := sanitizer.SanitizeNotes(first)

	if first != second {
		t.Errorf("sanitize is not idempotent: %q -> %q", first, second)
	}
	if strings.Contains(first, "<") {
		t.Errorf("sanitized output still contains tags: %q", first)
	}
}

// TestSanitizeNotes_InterfaceCompliance は実装がインターフェースを満たすことを検証する。
func TestSanitizeNotes_InterfaceCompliance(t *testing.T) {
	var _ NotesSanitizerService = NewNotesSanitizer()
}
