package timer

import (
	"context"
	"time"
)

// DefaultTickInterval は表示再計算の既定の周期。
const DefaultTickInterval = time.Second

// Ticker は走行中タイマーの表示を一定周期で再計算する。
// 各ティックはスナップショットの取得と描画コールバックの呼び出しのみを行う
// 純粋な読み取りであり、ブロッキングI/Oを伴わない。単一ゴルーチンで動作するため
// ティック同士が重なることはない。
type Ticker struct {
	machine  *Machine
	interval time.Duration
}

// NewTicker はTickerを生成する。intervalが0以下の場合はDefaultTickIntervalを使用する。
func NewTicker(machine *Machine, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Ticker{machine: machine, interval: interval}
}

// Run はコンテキストがキャンセルされるまで周期的にrenderを呼び出す。
// 起動直後に1回実行し、以降はinterval周期で実行する。
// renderに渡されるスナップショットの経過秒数は毎回アンカー時刻から
// 再計算された値であり、累積カウンタではない。
func (t *Ticker) Run(ctx context.Context, render func(Snapshot)) {
	render(t.machine.Snapshot())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			render(t.machine.Snapshot())
		}
	}
}
