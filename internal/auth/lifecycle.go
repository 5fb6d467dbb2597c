package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
)

// SignOuter はセッション破棄のインターフェース。満了時の自動サインアウトに使う。
type SignOuter interface {
	SignOut(ctx context.Context, sessionID string) error
}

// sessionState はアクティブな1セッション分の監視状態。
type sessionState struct {
	identityID string
	monitor    *InactivityMonitor
	profile    *model.Profile
	// generation はプロファイル解決の競合判定用。
	// 古い解決結果が新しいセッション状態を上書きしないようにする。
	generation uint64
}

// Lifecycle はセッション状態変化を購読し、セッションごとの無操作監視と
// プロファイル解決を構成する。1セッションにつき監視は常に1つ。
// サインアウト・失効時は必ず監視を停止してから状態を破棄する。
type Lifecycle struct {
	notifier *StateNotifier
	resolver *ProfileResolver
	sessions repository.SessionRepository
	gateway  SignOuter
	metrics  MetricsSink
	timeout  time.Duration

	mu          sync.Mutex
	states      map[string]*sessionState
	unsubscribe func()
}

// NewLifecycle はLifecycleを生成する。metricsがnilの場合は計測しない。
func NewLifecycle(
	notifier *StateNotifier,
	resolver *ProfileResolver,
	sessions repository.SessionRepository,
	gateway SignOuter,
	metrics MetricsSink,
	timeout time.Duration,
) *Lifecycle {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Lifecycle{
		notifier: notifier,
		resolver: resolver,
		sessions: sessions,
		gateway:  gateway,
		metrics:  metrics,
		timeout:  timeout,
		states:   make(map[string]*sessionState),
	}
}

// Start は状態変化の購読を開始する。
func (l *Lifecycle) Start() {
	l.unsubscribe = l.notifier.Subscribe(l.handleChange)
}

// Stop は購読を解除し、全セッションの監視を停止する。
func (l *Lifecycle) Stop() {
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, st := range l.states {
		st.monitor.Disarm()
		delete(l.states, id)
	}
}

// handleChange は状態変化1件を処理する。
func (l *Lifecycle) handleChange(change StateChange) {
	switch change.Event {
	case EventSignedIn, EventRestored:
		l.beginSession(change.SessionID, change.IdentityID)
	case EventSignedOut, EventExpired:
		l.endSession(change.SessionID)
	}
}

// beginSession はセッションの監視を開始し、プロファイル解決を起動する。
// 同一セッションIDで再度呼ばれた場合は既存の監視を置き換え、
// 飛行中の古い解決結果は世代番号で破棄される（後勝ち）。
func (l *Lifecycle) beginSession(sessionID, identityID string) {
	if sessionID == "" {
		return
	}

	l.mu.Lock()
	st, ok := l.states[sessionID]
	if !ok {
		st = &sessionState{monitor: NewInactivityMonitor(l.timeout)}
		l.states[sessionID] = st
	}
	st.identityID = identityID
	st.profile = nil
	st.generation++
	gen := st.generation
	monitor := st.monitor
	l.mu.Unlock()

	monitor.Arm(func() {
		l.expire(sessionID)
	})

	go l.resolveProfile(sessionID, identityID, gen)
}

// endSession は監視を停止してからセッション状態を破棄する。
// 未知のセッションIDは無視する（冪等）。
func (l *Lifecycle) endSession(sessionID string) {
	l.mu.Lock()
	st, ok := l.states[sessionID]
	if ok {
		delete(l.states, sessionID)
	}
	l.mu.Unlock()

	if ok {
		st.monitor.Disarm()
	}
}

// resolveProfile はプロファイル解決を行い、結果をセッション状態へ格納する。
// 解決中にセッションが終了・再開された場合は結果を捨てる。
func (l *Lifecycle) resolveProfile(sessionID, identityID string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profile, err := l.resolver.WaitForProvisioning(ctx, identityID)
	if err != nil {
		slog.Error("profile resolution failed",
			slog.String("session_id", sessionID),
			slog.String("identity_id", identityID),
			slog.String("error", err.Error()),
		)
		return
	}
	if profile == nil {
		slog.Warn("profile not provisioned yet",
			slog.String("identity_id", identityID),
		)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[sessionID]
	if !ok || st.generation != gen {
		return
	}
	st.profile = profile
}

// Touch は操作イベントを受けて無操作期限を延長する。
// 対象イベントが1つも含まれない場合は何もしない。
// 延長した場合trueを返す。
func (l *Lifecycle) Touch(ctx context.Context, sessionID string, kinds []string) bool {
	qualifying := false
	for _, kind := range kinds {
		if QualifyingActivity(kind) {
			qualifying = true
			break
		}
	}
	if !qualifying {
		return false
	}

	l.mu.Lock()
	st, ok := l.states[sessionID]
	l.mu.Unlock()
	if !ok {
		return false
	}

	st.monitor.Reset()
	if err := l.sessions.ExtendIdle(ctx, sessionID, time.Now().Add(l.timeout)); err != nil {
		slog.Warn("failed to extend session idle deadline",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return true
}

// Profile は解決済みプロファイルを返す。未解決・未知のセッションはnil。
func (l *Lifecycle) Profile(sessionID string) *model.Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.states[sessionID]; ok {
		return st.profile
	}
	return nil
}

// ActiveSessions は監視中のセッション数を返す。
func (l *Lifecycle) ActiveSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

// expire は無操作タイムアウト満了時の処理。
// セッションを破棄し、失効を通知する。SignOutがEventSignedOutを発行するため、
// EventExpiredはその前に発行して監視状態を確実に片付ける。
func (l *Lifecycle) expire(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("session expired due to inactivity", slog.String("session_id", sessionID))
	l.metrics.SessionExpired()

	l.mu.Lock()
	var identityID string
	if st, ok := l.states[sessionID]; ok {
		identityID = st.identityID
	}
	l.mu.Unlock()

	l.notifier.Publish(StateChange{
		Event:      EventExpired,
		IdentityID: identityID,
		SessionID:  sessionID,
	})

	if err := l.gateway.SignOut(ctx, sessionID); err != nil {
		slog.Error("failed to sign out expired session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}
