package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/coachlink/internal/dailylog"
	"github.com/hitoshi/coachlink/internal/model"
)

// DailyLogServiceInterface は日次ログハンドラーが必要とするサービスインターフェース。
type DailyLogServiceInterface interface {
	// Record は当日分のログを記録する。同じ日付のログは上書きする。
	Record(ctx context.Context, session *model.Session, in dailylog.RecordInput) (*model.DailyLog, error)
	// List はclientIDのログを期間指定で返す。clientIDが空の場合は閲覧者自身。
	List(ctx context.Context, viewer *model.Session, clientID, from, to string) ([]*model.DailyLog, error)
}

// DailyLogHandler は日次ログのHTTPハンドラー。
type DailyLogHandler struct {
	service DailyLogServiceInterface
}

// NewDailyLogHandler はDailyLogHandlerを生成する。
func NewDailyLogHandler(service DailyLogServiceInterface) *DailyLogHandler {
	return &DailyLogHandler{service: service}
}

// dailyLogResponse は日次ログのAPIレスポンス。
type dailyLogResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	LogDate    string    `json:"log_date"`
	WeightKG   *float64  `json:"weight_kg"`
	SleepHours *float64  `json:"sleep_hours"`
	Energy     *int      `json:"energy"`
	Appetite   *int      `json:"appetite"`
	Notes      string    `json:"notes"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// dailyLogListResponse は日次ログ一覧のAPIレスポンス。
type dailyLogListResponse struct {
	Logs []dailyLogResponse `json:"logs"`
}

// RecordLog は日次ログを記録する。
// POST /api/logs
func (h *DailyLogHandler) RecordLog(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var in dailylog.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		slog.Debug("invalid daily log body", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	log, err := h.service.Record(r.Context(), session, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDailyLogResponse(log))
}

// ListOwnLogs は自分の日次ログを返す。
// GET /api/logs?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DailyLogHandler) ListOwnLogs(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// ListClientLogs はコーチがクライアントの日次ログを閲覧する。
// GET /api/clients/{clientID}/logs?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DailyLogHandler) ListClientLogs(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if clientID == "" {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}
	h.list(w, r, clientID)
}

func (h *DailyLogHandler) list(w http.ResponseWriter, r *http.Request, clientID string) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	q := r.URL.Query()
	logs, err := h.service.List(r.Context(), session, clientID, q.Get("from"), q.Get("to"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := dailyLogListResponse{Logs: make([]dailyLogResponse, 0, len(logs))}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, toDailyLogResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toDailyLogResponse(l *model.DailyLog) dailyLogResponse {
	return dailyLogResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		LogDate:    l.LogDate.Format(time.DateOnly),
		WeightKG:   l.WeightKG,
		SleepHours: l.SleepHours,
		Energy:     l.Energy,
		Appetite:   l.Appetite,
		Notes:      l.Notes,
		UpdatedAt:  l.UpdatedAt,
	}
}
