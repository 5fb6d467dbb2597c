package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// LoginURL はOAuth認証URLを生成する。
	LoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// MetricsSink は認証イベントの計測インターフェース。
type MetricsSink interface {
	SignInSucceeded(method string)
	SignInFailed(kind string)
	SignedUp()
	SignUpRejected(kind string)
	SessionExpired()
}

// noopMetrics は計測を行わないMetricsSink実装。
type noopMetrics struct{}

func (noopMetrics) SignInSucceeded(string) {}
func (noopMetrics) SignInFailed(string)    {}
func (noopMetrics) SignedUp()              {}
func (noopMetrics) SignUpRejected(string)  {}
func (noopMetrics) SessionExpired()        {}

// Registration はサインアップ時の登録情報。
// プロファイル自動作成トリガーがこの内容からprofiles行を生成する。
type Registration struct {
	Username string
	FullName string
	Role     model.Role
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge     int           // セッション絶対有効期間（秒）
	InactivityTimeout time.Duration // 無操作タイムアウト
}

// Service は資格情報の検証とセッション発行を担う。
// 成功・失敗にかかわらず状態変化はStateNotifierへ通知する。
type Service struct {
	oauth         OAuthProvider
	identities    repository.IdentityRepository
	oauthAccounts repository.OAuthAccountRepository
	profiles      repository.ProfileRepository
	sessions      repository.SessionRepository
	notifier      *StateNotifier
	metrics       MetricsSink
	config        ServiceConfig
}

// NewService はServiceを生成する。metricsがnilの場合は計測しない。
func NewService(
	oauth OAuthProvider,
	identities repository.IdentityRepository,
	oauthAccounts repository.OAuthAccountRepository,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
	notifier *StateNotifier,
	metrics MetricsSink,
	config ServiceConfig,
) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		oauth:         oauth,
		identities:    identities,
		oauthAccounts: oauthAccounts,
		profiles:      profiles,
		sessions:      sessions,
		notifier:      notifier,
		metrics:       metrics,
		config:        config,
	}
}

// SignInWithPassword はメールアドレスとパスワードでサインインする。
// 未登録・パスワード不一致はどちらもKindInvalidCredentialsとして返し、
// どちらが原因かを外部へ漏らさない。
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	if email == "" || password == "" {
		s.metrics.SignInFailed(string(KindInvalidCredentials))
		return nil, NewError(KindInvalidCredentials, errors.New("email and password are required"))
	}

	identity, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.SignInFailed(string(KindUnknown))
		return nil, Classify(err)
	}
	if identity == nil || identity.PasswordHash == nil || !VerifyPassword(*identity.PasswordHash, password) {
		s.metrics.SignInFailed(string(KindInvalidCredentials))
		return nil, NewError(KindInvalidCredentials, errors.New("invalid login credentials"))
	}
	if !identity.EmailConfirmed {
		s.metrics.SignInFailed(string(KindEmailUnconfirmed))
		return nil, NewError(KindEmailUnconfirmed, errors.New("email not confirmed"))
	}

	session, err := s.createSession(ctx, identity.ID)
	if err != nil {
		s.metrics.SignInFailed(string(KindUnknown))
		return nil, Classify(err)
	}

	s.stampLastLogin(ctx, identity.ID)
	s.metrics.SignInSucceeded("password")
	slog.Info("user signed in",
		slog.String("identity_id", identity.ID),
		slog.String("method", "password"),
	)

	s.notifier.Publish(StateChange{
		Event:      EventSignedIn,
		IdentityID: identity.ID,
		SessionID:  session.ID,
	})
	return session, nil
}

// SignUp は新規アカウントを登録する。
// ユーザー名の重複はIdentity作成前に検出して即座に失敗させる。
// 事前チェックを通過しても一意制約との競合はあり得るため、
// 作成時の制約違反も同じ分類で返す。
func (s *Service) SignUp(ctx context.Context, email, password string, reg Registration) (*model.Identity, error) {
	if err := s.validateRegistration(email, password, reg); err != nil {
		authErr := Classify(err)
		s.metrics.SignUpRejected(string(authErr.Kind))
		return nil, authErr
	}

	// ユーザー名重複の事前チェック。衝突時はIdentityを作らずに返す。
	existing, err := s.profiles.FindByUsername(ctx, reg.Username)
	if err != nil {
		s.metrics.SignUpRejected(string(KindUnknown))
		return nil, Classify(err)
	}
	if existing != nil {
		s.metrics.SignUpRejected(string(KindDuplicateUsername))
		return nil, &Error{
			Kind:   KindDuplicateUsername,
			Detail: reg.Username,
			cause:  fmt.Errorf("username %q is taken", reg.Username),
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		s.metrics.SignUpRejected(string(KindUnknown))
		return nil, Classify(err)
	}

	now := time.Now()
	identity := &model.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hash,
		// 確認メール配送は行わない運用のため、登録時点で確認済みとする。
		EmailConfirmed: true,
		Metadata: map[string]string{
			"username":  reg.Username,
			"full_name": reg.FullName,
			"role":      string(reg.Role),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		authErr := Classify(err)
		s.metrics.SignUpRejected(string(authErr.Kind))
		return nil, authErr
	}

	s.metrics.SignedUp()
	slog.Info("user signed up",
		slog.String("identity_id", identity.ID),
		slog.String("username", reg.Username),
		slog.String("role", string(reg.Role)),
	)

	s.notifier.Publish(StateChange{
		Event:      EventSignedUp,
		IdentityID: identity.ID,
	})
	return identity, nil
}

// OAuthLoginURL はOAuth認証URLを生成する。
func (s *Service) OAuthLoginURL(state string) string {
	return s.oauth.LoginURL(state)
}

// HandleOAuthCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はIdentityと紐付けを同一トランザクションで作成する。
func (s *Service) HandleOAuthCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.SignInFailed(string(Classify(err).Kind))
		return nil, Classify(err)
	}

	account, err := s.oauthAccounts.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		s.metrics.SignInFailed(string(KindUnknown))
		return nil, Classify(err)
	}

	var identityID string
	if account != nil {
		identityID = account.IdentityID
	} else {
		identityID, err = s.provisionOAuthIdentity(ctx, userInfo)
		if err != nil {
			authErr := Classify(err)
			s.metrics.SignInFailed(string(authErr.Kind))
			return nil, authErr
		}
	}

	session, err := s.createSession(ctx, identityID)
	if err != nil {
		s.metrics.SignInFailed(string(KindUnknown))
		return nil, Classify(err)
	}

	s.stampLastLogin(ctx, identityID)
	s.metrics.SignInSucceeded(userInfo.Provider)
	slog.Info("user signed in",
		slog.String("identity_id", identityID),
		slog.String("method", userInfo.Provider),
	)

	s.notifier.Publish(StateChange{
		Event:      EventSignedIn,
		IdentityID: identityID,
		SessionID:  session.ID,
	})
	return session, nil
}

// SignOut はセッションを破棄する。
// セッションが既に存在しない場合も成功として扱う（冪等）。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return Classify(err)
	}

	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return Classify(err)
	}

	change := StateChange{Event: EventSignedOut, SessionID: sessionID}
	if session != nil {
		change.IdentityID = session.IdentityID
	}
	slog.Info("user signed out", slog.String("session_id", sessionID))
	s.notifier.Publish(change)
	return nil
}

// Restore は既存セッションを検証し、再開を通知する。
// 期限切れ・存在しない場合は(nil, nil)を返す。
func (s *Service) Restore(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, Classify(err)
	}
	if session == nil {
		return nil, nil
	}

	s.notifier.Publish(StateChange{
		Event:      EventRestored,
		IdentityID: session.IdentityID,
		SessionID:  session.ID,
	})
	return session, nil
}

// validateRegistration はサインアップ入力を検証する。
func (s *Service) validateRegistration(email, password string, reg Registration) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if strings.TrimSpace(reg.Username) == "" {
		return &Error{Kind: KindValidation, Detail: "ユーザー名は必須です", cause: errors.New("username is required")}
	}
	if !reg.Role.Valid() {
		return &Error{Kind: KindValidation, Detail: "役割の指定が不正です", cause: fmt.Errorf("invalid role: %s", reg.Role)}
	}
	return nil
}

// provisionOAuthIdentity は初回OAuthログイン時のIdentityと紐付けを作成する。
// ユーザー名はメールアドレスのローカル部を初期値とし、プロファイル作成は
// トリガーに委ねる。
func (s *Service) provisionOAuthIdentity(ctx context.Context, userInfo *OAuthUserInfo) (string, error) {
	now := time.Now()
	username := userInfo.Email
	if at := strings.Index(username, "@"); at > 0 {
		username = username[:at]
	}

	identity := &model.Identity{
		ID:             uuid.New().String(),
		Email:          userInfo.Email,
		EmailConfirmed: true,
		Metadata: map[string]string{
			"username":  username,
			"full_name": userInfo.Name,
			"role":      string(model.RoleStudent),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	account := &model.OAuthAccount{
		ID:             uuid.New().String(),
		IdentityID:     identity.ID,
		Provider:       userInfo.Provider,
		ProviderUserID: userInfo.ProviderUserID,
		CreatedAt:      now,
	}

	if err := s.oauthAccounts.CreateWithIdentity(ctx, identity, account); err != nil {
		return "", err
	}

	slog.Info("new oauth identity created",
		slog.String("identity_id", identity.ID),
		slog.String("provider", userInfo.Provider),
	)
	return identity.ID, nil
}

// stampLastLogin はlast_loginをベストエフォートで更新する。
// 失敗してもサインインは成功として扱い、警告ログのみ残す。
// プロファイル行がまだ存在しない場合も同様。
func (s *Service) stampLastLogin(ctx context.Context, identityID string) {
	if err := s.profiles.StampLastLogin(ctx, identityID, time.Now()); err != nil {
		slog.Warn("failed to stamp last login, continuing",
			slog.String("identity_id", identityID),
			slog.String("error", err.Error()),
		)
	}
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, identityID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:           sessionID,
		IdentityID:   identityID,
		IdleDeadline: now.Add(s.config.InactivityTimeout),
		ExpiresAt:    now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:    now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
