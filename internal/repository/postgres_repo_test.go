package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
)

// 各リポジトリがインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
	var _ OAuthAccountRepository = (*PostgresOAuthAccountRepo)(nil)
	var _ ProfileRepository = (*PostgresProfileRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ NewsRepository = (*PostgresNewsRepo)(nil)
	var _ ViolationRepository = (*PostgresViolationRepo)(nil)
	var _ ConsultationRepository = (*PostgresConsultationRepo)(nil)
}

// 各コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresIdentityRepo(nil) == nil {
		t.Error("expected non-nil identity repo")
	}
	if NewPostgresOAuthAccountRepo(nil) == nil {
		t.Error("expected non-nil oauth account repo")
	}
	if NewPostgresProfileRepo(nil) == nil {
		t.Error("expected non-nil profile repo")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("expected non-nil session repo")
	}
	if NewPostgresNewsRepo(nil) == nil {
		t.Error("expected non-nil news repo")
	}
	if NewPostgresViolationRepo(nil) == nil {
		t.Error("expected non-nil violation repo")
	}
	if NewPostgresConsultationRepo(nil) == nil {
		t.Error("expected non-nil consultation repo")
	}
}

// セッションの期限判定ロジックを検証（DB接続なし）
func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		idleDeadline time.Time
		expiresAt    time.Time
		want         bool
	}{
		{"both in future", now.Add(10 * time.Minute), now.Add(24 * time.Hour), false},
		{"idle deadline passed", now.Add(-1 * time.Minute), now.Add(24 * time.Hour), true},
		{"absolute expiry passed", now.Add(10 * time.Minute), now.Add(-1 * time.Second), true},
		{"both passed", now.Add(-1 * time.Minute), now.Add(-1 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &model.Session{IdleDeadline: tt.idleDeadline, ExpiresAt: tt.expiresAt}
			if got := s.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
