// Package news はお知らせ管理のドメインロジックを提供する。
package news

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bkconnect/internal/model"
	"github.com/hitoshi/bkconnect/internal/repository"
	"github.com/hitoshi/bkconnect/internal/security"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Service はお知らせのサービス層。
// 本文HTMLは保存前に必ずサニタイズする。
type Service struct {
	newsRepo  repository.NewsRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(newsRepo repository.NewsRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		newsRepo:  newsRepo,
		sanitizer: sanitizer,
	}
}

// ListPublished は公開済みのお知らせを新しい順で返す。
func (s *Service) ListPublished(ctx context.Context, limit int) ([]*model.News, error) {
	return s.newsRepo.ListPublished(ctx, clampLimit(limit))
}

// ListAll は下書きを含む全お知らせを新しい順で返す。管理画面用。
func (s *Service) ListAll(ctx context.Context, limit int) ([]*model.News, error) {
	return s.newsRepo.ListAll(ctx, clampLimit(limit))
}

// Get は指定IDのお知らせを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.News, error) {
	news, err := s.newsRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("お知らせの取得に失敗しました: %w", err)
	}
	if news == nil {
		return nil, model.NewNewsNotFoundError(id)
	}
	return news, nil
}

// Create はお知らせを作成する。本文はサニタイズして保存する。
func (s *Service) Create(ctx context.Context, authorID, title, bodyHTML string, published bool) (*model.News, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}

	now := time.Now()
	news := &model.News{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		BodyHTML:  s.sanitizer.Sanitize(bodyHTML),
		AuthorID:  authorID,
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.newsRepo.Create(ctx, news); err != nil {
		return nil, fmt.Errorf("お知らせの作成に失敗しました: %w", err)
	}

	slog.Info("news created",
		slog.String("news_id", news.ID),
		slog.String("author_id", authorID),
		slog.Bool("published", published),
	)
	return news, nil
}

// Update はタイトル・本文・公開状態を更新する。本文は再サニタイズする。
func (s *Service) Update(ctx context.Context, id, title, bodyHTML string, published bool) (*model.News, error) {
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}

	news, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	news.Title = strings.TrimSpace(title)
	news.BodyHTML = s.sanitizer.Sanitize(bodyHTML)
	news.Published = published
	news.UpdatedAt = time.Now()

	if err := s.newsRepo.Update(ctx, news); err != nil {
		return nil, fmt.Errorf("お知らせの更新に失敗しました: %w", err)
	}
	return news, nil
}

// Delete は指定IDのお知らせを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.newsRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("お知らせの削除に失敗しました: %w", err)
	}
	slog.Info("news deleted", slog.String("news_id", id))
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
