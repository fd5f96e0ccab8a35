// Package dailylog はクライアントの日次ログの記録と閲覧を提供する。
package dailylog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/repository"
	"github.com/hitoshi/coachlink/internal/security"
	"github.com/hitoshi/coachlink/internal/validation"
)

const (
	dateLayout = "2006-01-02"

	// DefaultRangeDays は期間未指定時に返す日数（当日を含む）。
	DefaultRangeDays = 30
	// MaxRangeDays は1回の取得で指定できる最大日数。
	MaxRangeDays = 366

	// 最も早く日付が変わるタイムゾーン（UTC+14）で当日以前なら受け付ける
	latestZoneOffset = 14 * time.Hour
)

// RecordInput は日次ログの入力。
type RecordInput struct {
	LogDate    string   `json:"log_date" validate:"required,datetime=2006-01-02"`
	WeightKG   *float64 `json:"weight_kg" validate:"omitnil,gte=20,lte=500"`
	SleepHours *float64 `json:"sleep_hours" validate:"omitnil,gte=0,lte=24"`
	Energy     *int     `json:"energy" validate:"omitnil,gte=1,lte=5"`
	Appetite   *int     `json:"appetite" validate:"omitnil,gte=1,lte=5"`
	Notes      string   `json:"notes" validate:"max=5000"`
}

// OnboardingChecker はオンボーディング完了フラグを提供する。
type OnboardingChecker interface {
	OnboardingFlag(ctx context.Context, userID string) (completed bool, found bool, err error)
}

// UserFinder はユーザーを取得する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Recorder は記録件数をメトリクスとして記録する。
type Recorder interface {
	RecordDailyLog()
}

// Service は日次ログに関するビジネスロジックを提供する。
type Service struct {
	repo       repository.DailyLogRepository
	onboarding OnboardingChecker
	users      UserFinder
	validator  *validation.Validator
	sanitizer  security.Sanitizer
	recorder   Recorder
	now        func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	repo repository.DailyLogRepository,
	onboarding OnboardingChecker,
	users UserFinder,
	v *validation.Validator,
	sanitizer security.Sanitizer,
	recorder Recorder,
) *Service {
	if v == nil {
		v = validation.New()
	}
	if sanitizer == nil {
		sanitizer = security.NewNotesSanitizer()
	}
	return &Service{
		repo:       repo,
		onboarding: onboarding,
		users:      users,
		validator:  v,
		sanitizer:  sanitizer,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Record はクライアントの日次ログを保存する。同じ日付のログがある場合は上書きする。
// オンボーディングを完了していないクライアントは記録できない。
func (s *Service) Record(ctx context.Context, session *model.Session, in RecordInput) (*model.DailyLog, error) {
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}
	if session.Role != model.RoleClient {
		return nil, model.NewForbiddenRoleError(session.Role)
	}

	if err := s.validator.Struct(ctx, &in); err != nil {
		return nil, err
	}
	logDate, err := time.Parse(dateLayout, in.LogDate)
	if err != nil {
		return nil, model.NewValidationError("log_date: datetime=" + dateLayout)
	}
	if logDate.After(s.latestAllowedDate()) {
		return nil, model.NewValidationError("log_date: 未来の日付は記録できません")
	}

	completed, _, err := s.onboarding.OnboardingFlag(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check onboarding: %w", err)
	}
	if !completed {
		return nil, model.NewOnboardingPendingError()
	}

	now := s.now()
	saved, err := s.repo.Upsert(ctx, &model.DailyLog{
		ID:         uuid.New().String(),
		UserID:     session.UserID,
		LogDate:    logDate,
		WeightKG:   in.WeightKG,
		SleepHours: in.SleepHours,
		Energy:     in.Energy,
		Appetite:   in.Appetite,
		Notes:      s.sanitizer.Sanitize(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record daily log: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordDailyLog()
	}
	slog.Info("daily log recorded",
		slog.String("user_id", session.UserID),
		slog.String("log_date", in.LogDate),
	)
	return saved, nil
}

// List は期間内のクライアントの日次ログを日付の新しい順に返す。
// clientIDが空の場合は閲覧者自身のログを返す。クライアントは自分のログのみ、
// コーチは任意のクライアントのログを閲覧できる。from、toはYYYY-MM-DDで、
// 省略時は直近DefaultRangeDays日を対象とする。
func (s *Service) List(ctx context.Context, viewer *model.Session, clientID, from, to string) ([]*model.DailyLog, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	if clientID == "" {
		clientID = viewer.UserID
	}

	switch viewer.Role {
	case model.RoleClient:
		if clientID != viewer.UserID {
			return nil, model.NewForbiddenRoleError(viewer.Role)
		}
	case model.RoleCoach:
		target, err := s.users.FindByID(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("failed to find client: %w", err)
		}
		if target == nil || target.Role != model.RoleClient {
			return nil, model.NewUserNotFoundError()
		}
	default:
		return nil, model.NewForbiddenRoleError(viewer.Role)
	}

	fromDate, toDate, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}

	logs, err := s.repo.ListByUser(ctx, clientID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily logs: %w", err)
	}
	return logs, nil
}

// parseRange は期間指定を解釈する。toの既定値は当日、fromの既定値はtoから
// DefaultRangeDays-1日前。
func (s *Service) parseRange(from, to string) (time.Time, time.Time, error) {
	toDate := truncateDate(s.now().UTC())
	if to != "" {
		d, err := time.Parse(dateLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewInvalidDateRangeError("to の形式が不正です")
		}
		toDate = d
	}

	fromDate := toDate.AddDate(0, 0, -(DefaultRangeDays - 1))
	if from != "" {
		d, err := time.Parse(dateLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, model.NewInvalidDateRangeError("from の形式が不正です")
		}
		fromDate = d
	}

	if fromDate.After(toDate) {
		return time.Time{}, time.Time{}, model.NewInvalidDateRangeError("from が to より後です")
	}
	if days := int(toDate.Sub(fromDate).Hours()/24) + 1; days > MaxRangeDays {
		return time.Time{}, time.Time{}, model.NewInvalidDateRangeError(fmt.Sprintf("%d日を超えています", MaxRangeDays))
	}
	return fromDate, toDate, nil
}

func (s *Service) latestAllowedDate() time.Time {
	return truncateDate(s.now().UTC().Add(latestZoneOffset))
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
