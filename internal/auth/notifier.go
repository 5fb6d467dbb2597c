package auth

import (
	"sync"
	"time"
)

// Event はセッション状態の変化種別を表す。
type Event string

const (
	EventSignedIn  Event = "signed_in"
	EventSignedUp  Event = "signed_up"
	EventSignedOut Event = "signed_out"
	// EventRestored は既存セッションが再開されたことを示す（画面再読み込み等）。
	EventRestored Event = "restored"
	// EventExpired は無操作タイムアウトによるセッション失効を示す。
	EventExpired Event = "expired"
)

// StateChange は1件の状態変化を表す。
// EventSignedUpの場合SessionIDは空。
type StateChange struct {
	Event      Event
	IdentityID string
	SessionID  string
	OccurredAt time.Time
}

// StateNotifier はセッション状態変化の購読機構。
// 購読者は登録順に同期的に呼び出される。
type StateNotifier struct {
	mu     sync.Mutex
	nextID int
	order  []int
	subs   map[int]func(StateChange)
}

// NewStateNotifier はStateNotifierを生成する。
func NewStateNotifier() *StateNotifier {
	return &StateNotifier{subs: make(map[int]func(StateChange))}
}

// Subscribe は購読者を登録し、解除用の関数を返す。
// 解除後はその購読者が呼ばれないことを保証する。解除は何度呼んでも安全。
func (n *StateNotifier) Subscribe(fn func(StateChange)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.order = append(n.order, id)

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Publish は状態変化を全購読者へ通知する。
// 購読者の呼び出しはロック外で行い、コールバック内での解除を許す。
func (n *StateNotifier) Publish(change StateChange) {
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now()
	}

	n.mu.Lock()
	fns := make([]func(StateChange), 0, len(n.subs))
	for _, id := range n.order {
		if fn, ok := n.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}
