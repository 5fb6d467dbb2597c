package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bkconnect/internal/middleware"
	"github.com/hitoshi/bkconnect/internal/model"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	ListPublished(ctx context.Context, limit int) ([]*model.News, error)
	ListAll(ctx context.Context, limit int) ([]*model.News, error)
	Get(ctx context.Context, id string) (*model.News, error)
	Create(ctx context.Context, authorID, title, bodyHTML string, published bool) (*model.News, error)
	Update(ctx context.Context, id, title, bodyHTML string, published bool) (*model.News, error)
	Delete(ctx context.Context, id string) error
}

// NewsHandler はお知らせ管理のHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// newsRequest はニュース作成・更新リクエストのボディ。
type newsRequest struct {
	Title     string `json:"title"`
	BodyHTML  string `json:"body_html"`
	Published bool   `json:"published"`
}

// newsResponse はニュース情報のAPIレスポンス。
type newsResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	BodyHTML  string    `json:"body_html"`
	AuthorID  string    `json:"author_id"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNewsResponse(news *model.News) newsResponse {
	return newsResponse{
		ID:        news.ID,
		Title:     news.Title,
		BodyHTML:  news.BodyHTML,
		AuthorID:  news.AuthorID,
		Published: news.Published,
		CreatedAt: news.CreatedAt,
		UpdatedAt: news.UpdatedAt,
	}
}

func toNewsListResponse(list []*model.News) []newsResponse {
	results := make([]newsResponse, len(list))
	for i, news := range list {
		results[i] = toNewsResponse(news)
	}
	return results
}

// parseLimit は?limit=クエリを解析する。未指定・不正値は0（サービス側デフォルト）。
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

// ListPublished は公開済みニュース一覧を返す。
// GET /api/news
func (h *NewsHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPublished(r.Context(), parseLimit(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNewsListResponse(list))
}

// ListAll は下書きを含む全ニュース一覧を返す。
// GET /api/admin/news
func (h *NewsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAll(r.Context(), parseLimit(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNewsListResponse(list))
}

// Get はニュース詳細を返す。
// GET /api/news/{id}
func (h *NewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	news, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNewsResponse(news))
}

// Create はニュースを作成する。本文HTMLは保存前にサニタイズされる。
// POST /api/admin/news
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	profile, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	var req newsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	news, err := h.service.Create(r.Context(), profile.ID, req.Title, req.BodyHTML, req.Published)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNewsResponse(news))
}

// Update はニュースを更新する。
// PUT /api/admin/news/{id}
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	news, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.Title, req.BodyHTML, req.Published)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toNewsResponse(news))
}

// Delete はニュースを削除する。
// DELETE /api/admin/news/{id}
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
