// Package profile はクライアントのオンボーディングとプロフィールを管理する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/repository"
	"github.com/hitoshi/coachlink/internal/security"
	"github.com/hitoshi/coachlink/internal/validation"
)

// OnboardingInput はオンボーディングの回答。
type OnboardingInput struct {
	DisplayName string   `json:"display_name" validate:"required,max=100"`
	Goal        string   `json:"goal" validate:"max=500"`
	HeightCM    *float64 `json:"height_cm" validate:"omitnil,gte=50,lte=300"`
	WeightKG    *float64 `json:"weight_kg" validate:"omitnil,gte=20,lte=500"`
	BirthYear   *int     `json:"birth_year" validate:"omitnil,gte=1900"`
}

// Service はプロフィールに関するビジネスロジックを提供する。
type Service struct {
	repo      repository.ProfileRepository
	validator *validation.Validator
	plain     security.Sanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ProfileRepository, v *validation.Validator, plain security.Sanitizer) *Service {
	if v == nil {
		v = validation.New()
	}
	if plain == nil {
		plain = security.NewPlainTextSanitizer()
	}
	return &Service{
		repo:      repo,
		validator: v,
		plain:     plain,
		now:       time.Now,
	}
}

// OnboardingFlag はユーザーのオンボーディング完了フラグを返す。
// プロフィールが存在しない場合はfound=falseを返す。
func (s *Service) OnboardingFlag(ctx context.Context, userID string) (completed bool, found bool, err error) {
	p, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return false, false, fmt.Errorf("failed to load onboarding flag: %w", err)
	}
	if p == nil {
		return false, false, nil
	}
	return p.OnboardingCompleted, true, nil
}

// Get は指定ユーザーのプロフィールを返す。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return p, nil
}

// CompleteOnboarding はクライアントのオンボーディング回答を保存し、完了済みにする。
// 完了済みのクライアントが再度送信した場合は回答を上書きする。
func (s *Service) CompleteOnboarding(ctx context.Context, session *model.Session, in OnboardingInput) (*model.Profile, error) {
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}
	if session.Role != model.RoleClient {
		return nil, model.NewForbiddenRoleError(session.Role)
	}

	// 長さの上限はユーザーが入力した文字列に対して判定する
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Goal = strings.TrimSpace(in.Goal)
	if err := s.validator.Struct(ctx, &in); err != nil {
		return nil, err
	}
	in.DisplayName = strings.TrimSpace(s.plain.Sanitize(in.DisplayName))
	in.Goal = strings.TrimSpace(s.plain.Sanitize(in.Goal))
	if in.DisplayName == "" {
		return nil, model.NewValidationError("display_name: required")
	}
	now := s.now()
	if in.BirthYear != nil && *in.BirthYear > now.Year() {
		return nil, model.NewValidationError(fmt.Sprintf("birth_year: lte=%d", now.Year()))
	}

	p := &model.Profile{
		UserID:              session.UserID,
		OnboardingCompleted: true,
		DisplayName:         in.DisplayName,
		Goal:                in.Goal,
		HeightCM:            in.HeightCM,
		WeightKG:            in.WeightKG,
		BirthYear:           in.BirthYear,
		CompletedAt:         &now,
		UpdatedAt:           now,
	}
	if err := s.repo.CompleteOnboarding(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save onboarding: %w", err)
	}

	slog.Info("onboarding completed", slog.String("user_id", session.UserID))

	saved, err := s.repo.FindByUserID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile: %w", err)
	}
	if saved == nil {
		return p, nil
	}
	return saved, nil
}
