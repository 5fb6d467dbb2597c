package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
)

// ProfileResolver はIdentityに対応するプロファイルを取得する。
// プロファイル行はDBトリガーが非同期に作成するため、サインアップ直後は
// まだ存在しない可能性がある。「未作成」と「取得失敗」は厳密に区別する。
type ProfileResolver struct {
	profiles repository.ProfileRepository
	interval time.Duration
	attempts int
}

// NewProfileResolver はProfileResolverを生成する。
// intervalは再試行間隔、attemptsは最大試行回数。
func NewProfileResolver(profiles repository.ProfileRepository, interval time.Duration, attempts int) *ProfileResolver {
	if attempts < 1 {
		attempts = 1
	}
	return &ProfileResolver{
		profiles: profiles,
		interval: interval,
		attempts: attempts,
	}
}

// Resolve はプロファイルを1回だけ取得する。
// 未作成の場合は(nil, nil)、取得失敗の場合は(nil, err)を返す。
// 呼び出し側はこの2つを同一視してはならない。
func (r *ProfileResolver) Resolve(ctx context.Context, identityID string) (*model.Profile, error) {
	profile, err := r.profiles.FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile: %w", err)
	}
	return profile, nil
}

// WaitForProvisioning はトリガーによるプロファイル作成を待つ。
// 未作成・取得失敗のどちらも一定間隔で再試行し、上限に達したら最後の結果を返す。
// 全試行で未作成のままなら(nil, nil)。
func (r *ProfileResolver) WaitForProvisioning(ctx context.Context, identityID string) (*model.Profile, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		profile, err := r.profiles.FindByIdentityID(ctx, identityID)
		if err == nil && profile != nil {
			return profile, nil
		}

		lastErr = err
		if err != nil {
			slog.Warn("profile lookup failed, retrying",
				slog.String("identity_id", identityID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.interval):
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to resolve profile after %d attempts: %w", r.attempts, lastErr)
	}
	return nil, nil
}
