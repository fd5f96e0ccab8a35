package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/coachlink/internal/middleware"
	"github.com/hitoshi/coachlink/internal/routing"
)

// EntryHandler はルート画面の初回表示を処理する。
// セッションCookieの有無にかかわらず呼び出せる。
type EntryHandler struct {
	router  SessionRouter
	baseURL string
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(router SessionRouter, baseURL string) *EntryHandler {
	return &EntryHandler{
		router:  router,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// routeResponse はGET /api/routeのレスポンス。
type routeResponse struct {
	Destination   string `json:"destination"`
	Authenticated bool   `json:"authenticated"`
}

// Root は判定結果の画面へ307でリダイレクトする。
// GET /
func (h *EntryHandler) Root(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.resolve(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, h.baseURL+ev.Destination().String(), http.StatusTemporaryRedirect)
}

// Route は判定結果をJSONで返す。SPAが自前で画面遷移する場合に使う。
// GET /api/route
func (h *EntryHandler) Route(w http.ResponseWriter, r *http.Request) {
	ev, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{
		Destination:   ev.Destination().String(),
		Authenticated: ev.Session() != nil,
	})
}

// resolve はCookieのセッションIDで判定する。
// 判定が破棄された場合は何も書き込まずにfalseを返す。
func (h *EntryHandler) resolve(w http.ResponseWriter, r *http.Request) (*routing.Evaluation, bool) {
	var sessionID string
	if c, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessionID = c.Value
	}

	ev, err := h.router.ResolveRoot(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, routing.ErrNavigationDiscarded) {
			slog.Info("root navigation discarded", slog.String("error", err.Error()))
			return nil, false
		}
		slog.Error("root routing failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return nil, false
	}

	middleware.AnnotateSession(r.Context(), ev.Session())
	return ev, true
}
