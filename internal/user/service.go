// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
)

// Service はユーザー管理のサービス層。
// 管理者画面からの一覧・役割変更・無効化と退会処理を提供する。
type Service struct {
	identities repository.IdentityRepository
	profiles   repository.ProfileRepository
	sessions   repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	identities repository.IdentityRepository,
	profiles repository.ProfileRepository,
	sessions repository.SessionRepository,
) *Service {
	return &Service{
		identities: identities,
		profiles:   profiles,
		sessions:   sessions,
	}
}

// List は全プロファイルをrole、username順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Profile, error) {
	return s.profiles.List(ctx)
}

// SetActive はプロファイルの有効・無効を切り替える。
// 無効化した場合はそのユーザーの全セッションを即時破棄する。
func (s *Service) SetActive(ctx context.Context, profileID string, active bool) error {
	profile, err := s.findProfile(ctx, profileID)
	if err != nil {
		return err
	}

	if err := s.profiles.SetActive(ctx, profileID, active); err != nil {
		return fmt.Errorf("有効状態の更新に失敗しました: %w", err)
	}

	if !active {
		if err := s.sessions.DeleteByIdentityID(ctx, profile.IdentityID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	slog.Info("profile active state changed",
		slog.String("profile_id", profileID),
		slog.Bool("active", active),
	)
	return nil
}

// SetRole はプロファイルの役割を変更する。
func (s *Service) SetRole(ctx context.Context, profileID string, role model.Role) error {
	if !role.Valid() {
		return model.NewValidationError("役割の指定が不正です")
	}
	if _, err := s.findProfile(ctx, profileID); err != nil {
		return err
	}

	if err := s.profiles.SetRole(ctx, profileID, role); err != nil {
		return fmt.Errorf("役割の更新に失敗しました: %w", err)
	}

	slog.Info("profile role changed",
		slog.String("profile_id", profileID),
		slog.String("role", string(role)),
	)
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// セッションを先に破棄してからIdentityを削除する。
// プロファイル・OAuth紐付けはCASCADE削除される。
func (s *Service) Withdraw(ctx context.Context, identityID string) error {
	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if identity == nil {
		return model.NewProfileNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("identity_id", identityID),
	)

	// 1. セッションを削除
	if err := s.sessions.DeleteByIdentityID(ctx, identityID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. Identityを削除（profiles, oauth_accountsはCASCADE削除）
	if err := s.identities.DeleteByID(ctx, identityID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("identity_id", identityID),
	)
	return nil
}

func (s *Service) findProfile(ctx context.Context, profileID string) (*model.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("プロファイルの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}
