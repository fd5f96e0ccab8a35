// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/coachlink/internal/middleware"
	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/routing"
)

const (
	oauthStateCookie = "oauth_state"
	oauthNextCookie  = "oauth_next"
	oauthCookieTTL   = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
// コード交換はSessionRouter経由で行うため含まない。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// SessionRouter は認証結果から遷移先を決めるルーター。
type SessionRouter interface {
	ResolveRoot(ctx context.Context, sessionID string) (*routing.Evaluation, error)
	ResolveCallback(ctx context.Context, code, fallback string) (*routing.Evaluation, error)
}

var _ SessionRouter = (*routing.Router)(nil)

// CookieConfig はCookie属性の設定。
type CookieConfig struct {
	Domain string
	Secure bool
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// BaseURL はフロントエンドのURL。遷移先パスはこの下に解決する。
	BaseURL       string
	Cookie        CookieConfig
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	router  SessionRouter
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, router SessionRouter, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		router:  router,
		config:  config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login?next=/path
// nextはコード交換に失敗した場合の遷移先で、同一オリジンのパスのみ受け付ける。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	h.setShortLivedCookie(w, oauthStateCookie, state)

	if next := r.URL.Query().Get("next"); next != "" {
		if routing.IsLocalPath(next) {
			h.setShortLivedCookie(w, oauthNextCookie, next)
		} else {
			slog.Warn("ignoring non-local next parameter", slog.String("next", next))
		}
	}

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッションルーターの判定結果へリダイレクトする。
// GET /auth/google/callback?code=xxx&state=yyy
// stateの不一致や認可コードの欠落はコード交換の失敗と同じく、フォールバック先へ遷移する。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		code = ""
	}
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		slog.Warn("oauth provider returned error", slog.String("error", errParam))
		code = ""
	}

	var fallback string
	if c, err := r.Cookie(oauthNextCookie); err == nil {
		fallback = c.Value
	}

	ev, err := h.router.ResolveCallback(r.Context(), code, fallback)
	if err != nil {
		if errors.Is(err, routing.ErrNavigationDiscarded) {
			slog.Info("callback navigation discarded", slog.String("error", err.Error()))
			return
		}
		slog.Error("callback routing failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	h.expireCookie(w, oauthStateCookie, "")
	h.expireCookie(w, oauthNextCookie, "")

	if session := ev.Session(); session != nil {
		middleware.AnnotateSession(r.Context(), session)
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    session.ID,
			Path:     "/",
			Domain:   h.config.Cookie.Domain,
			MaxAge:   h.config.SessionMaxAge,
			HttpOnly: true,
			Secure:   h.config.Cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, h.frontendURL(ev.Destination()), http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄してログイン画面へ遷移させる。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.expireCookie(w, middleware.SessionCookieName, h.config.Cookie.Domain)

	http.Redirect(w, r, h.frontendURL(routing.DestinationLogin), http.StatusSeeOther)
}

// meResponse は現在のログインユーザーのレスポンス。
type meResponse struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Warn("failed to get current user", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	})
}

// frontendURL は遷移先パスをフロントエンドのURLに変換する。
func (h *AuthHandler) frontendURL(dest routing.Destination) string {
	return strings.TrimRight(h.config.BaseURL, "/") + dest.String()
}

func (h *AuthHandler) setShortLivedCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   oauthCookieTTL,
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) expireCookie(w http.ResponseWriter, name, domain string) {
	clearCookie(w, name, CookieConfig{Domain: domain, Secure: h.config.Cookie.Secure})
}

// clearCookie はCookieを削除する。
func clearCookie(w http.ResponseWriter, name string, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
