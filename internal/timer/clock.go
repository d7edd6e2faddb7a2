package timer

import "time"

// Clock は現在時刻の取得を抽象化するインターフェース。
// 経過時間はこのクロックからの再計算で導出されるため、
// テストでは固定クロックを注入して決定的に検証できる。
type Clock interface {
	// Now は現在時刻を返す。
	Now() time.Time
}

// SystemClock はtimeパッケージを使用するClockの実装。
type SystemClock struct{}

// Now は現在時刻を返す。
func (SystemClock) Now() time.Time {
	return time.Now()
}
