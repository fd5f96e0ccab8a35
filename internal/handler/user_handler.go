package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/coachlink/internal/middleware"
	"github.com/hitoshi/coachlink/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// ListClients はコーチ向けにクライアント一覧を返す。
	ListClients(ctx context.Context, viewer *model.Session) ([]model.ClientSummary, error)
	// Withdraw はユーザーの退会処理を実行する。
	// user、identities、profile、daily_logs、sessionsを削除する。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	cookie  CookieConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, cookie CookieConfig) *UserHandler {
	return &UserHandler{
		service: service,
		cookie:  cookie,
	}
}

// clientSummaryResponse はクライアント一覧の1行。
type clientSummaryResponse struct {
	UserID              string    `json:"user_id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	DisplayName         string    `json:"display_name"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
}

// ListClients はクライアント一覧を返す。
// GET /api/clients
func (h *UserHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	clients, err := h.service.ListClients(r.Context(), session)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]clientSummaryResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, clientSummaryResponse{
			UserID:              c.UserID,
			Email:               c.Email,
			Name:                c.Name,
			DisplayName:         c.DisplayName,
			OnboardingCompleted: c.OnboardingCompleted,
			CreatedAt:           c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": resp})
}

// Withdraw はユーザーの退会処理を実行し、セッションCookieを削除する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	clearCookie(w, middleware.SessionCookieName, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}
