package auth

import (
	"sync"
	"time"
)

// trackedActivityKinds は無操作タイマーをリセットする操作イベントの種類。
// これ以外のイベント（visibilitychange等）ではタイマーを延長しない。
var trackedActivityKinds = map[string]struct{}{
	"mousedown":  {},
	"mousemove":  {},
	"keypress":   {},
	"scroll":     {},
	"touchstart": {},
	"click":      {},
}

// QualifyingActivity はイベント種別が無操作タイマーのリセット対象かを返す。
func QualifyingActivity(kind string) bool {
	_, ok := trackedActivityKinds[kind]
	return ok
}

// InactivityMonitor は1セッション分の無操作タイムアウトを監視する。
// Armで監視を開始し、Resetで期限を延長、Disarmで停止する。
// 満了コールバックは一度だけ呼ばれ、Disarm後は決して呼ばれない。
// 全メソッドは並行呼び出しに対して安全。
type InactivityMonitor struct {
	timeout time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	onExpire   func()
	armed      bool
	generation uint64
}

// NewInactivityMonitor はInactivityMonitorを生成する。
func NewInactivityMonitor(timeout time.Duration) *InactivityMonitor {
	return &InactivityMonitor{timeout: timeout}
}

// Arm は満了コールバックを登録し監視を開始する。
// 既に監視中の場合は前のコールバックを破棄して置き換える。
func (m *InactivityMonitor) Arm(onExpire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.onExpire = onExpire
	m.armed = true
	m.scheduleLocked()
}

// Reset は無操作期限を現在時刻から数え直す。
// 監視中でない場合は何もしない。
func (m *InactivityMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.armed {
		return
	}
	m.stopLocked()
	m.armed = true
	m.scheduleLocked()
}

// Disarm は監視を停止する。満了直前との競合があっても
// Disarm後にコールバックが呼ばれないことを保証する。冪等。
func (m *InactivityMonitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.onExpire = nil
}

// Armed は監視中かを返す。
func (m *InactivityMonitor) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// stopLocked はタイマーを止め、飛行中の満了を世代番号で無効化する。
// mu保持中に呼ぶこと。
func (m *InactivityMonitor) stopLocked() {
	m.generation++
	m.armed = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// scheduleLocked は現在の世代で満了タイマーを設定する。
// mu保持中に呼ぶこと。
func (m *InactivityMonitor) scheduleLocked() {
	gen := m.generation
	m.timer = time.AfterFunc(m.timeout, func() {
		m.expire(gen)
	})
}

// expire はタイマー満了時の処理。世代が一致する場合のみコールバックを呼ぶ。
// 古い世代の満了（Reset/Disarmとの競合）は捨てる。
func (m *InactivityMonitor) expire(gen uint64) {
	m.mu.Lock()
	if !m.armed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.armed = false
	m.timer = nil
	fn := m.onExpire
	m.onExpire = nil
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}
