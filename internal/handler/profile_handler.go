package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/profile"
	"github.com/hitoshi/coachlink/internal/routing"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	CompleteOnboarding(ctx context.Context, session *model.Session, in profile.OnboardingInput) (*model.Profile, error)
}

// ProfileHandler はプロフィールとオンボーディングのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	UserID              string     `json:"user_id"`
	OnboardingCompleted bool       `json:"onboarding_completed"`
	DisplayName         string     `json:"display_name"`
	Goal                string     `json:"goal"`
	HeightCM            *float64   `json:"height_cm"`
	WeightKG            *float64   `json:"weight_kg"`
	BirthYear           *int       `json:"birth_year"`
	CompletedAt         *time.Time `json:"completed_at"`
}

// onboardingResponse はオンボーディング完了後のレスポンス。
// 次に表示する画面をセッションルーターと同じ判定で返す。
type onboardingResponse struct {
	Profile     profileResponse `json:"profile"`
	Destination string          `json:"destination"`
}

// GetProfile は自分のプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	p, err := h.service.Get(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// CompleteOnboarding はオンボーディングフォームの回答を保存する。
// POST /api/onboarding
func (h *ProfileHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var in profile.OnboardingInput
	if err := decodeJSON(w, r, &in); err != nil {
		slog.Debug("invalid onboarding body", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	p, err := h.service.CompleteOnboarding(r.Context(), session, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dest := routing.Decide(routing.Input{
		SessionPresent:     true,
		Role:               session.Role,
		OnboardingComplete: p.OnboardingCompleted,
	})

	writeJSON(w, http.StatusOK, onboardingResponse{
		Profile:     toProfileResponse(p),
		Destination: dest.String(),
	})
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		UserID:              p.UserID,
		OnboardingCompleted: p.OnboardingCompleted,
		DisplayName:         p.DisplayName,
		Goal:                p.Goal,
		HeightCM:            p.HeightCM,
		WeightKG:            p.WeightKG,
		BirthYear:           p.BirthYear,
		CompletedAt:         p.CompletedAt,
	}
}
