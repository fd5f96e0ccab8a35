package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/repository"
)

// --- モック定義 ---

type mockProfileRepo struct {
	findByUserIDFn       func(ctx context.Context, userID string) (*model.Profile, error)
	completeOnboardingFn func(ctx context.Context, p *model.Profile) error
	saved                *model.Profile
}

func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return m.saved, nil
}

func (m *mockProfileRepo) CompleteOnboarding(ctx context.Context, p *model.Profile) error {
	if m.completeOnboardingFn != nil {
		return m.completeOnboardingFn(ctx, p)
	}
	m.saved = p
	return nil
}

var _ repository.ProfileRepository = (*mockProfileRepo)(nil)

func clientSession() *model.Session {
	return &model.Session{ID: "s", UserID: "client-1", Role: model.RoleClient}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func newTestService(repo repository.ProfileRepository) *Service {
	svc := NewService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func assertAPIError(t *testing.T, err error, code string) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError(%s), got %v", code, err)
	}
	if apiErr.Code != code {
		t.Fatalf("Code = %q, want %q", apiErr.Code, code)
	}
	return apiErr
}

// --- OnboardingFlag ---

func TestOnboardingFlag(t *testing.T) {
	tests := []struct {
		name          string
		profile       *model.Profile
		err           error
		wantCompleted bool
		wantFound     bool
		wantErr       bool
	}{
		{"未作成", nil, nil, false, false, false},
		{"未完了", &model.Profile{OnboardingCompleted: false}, nil, false, true, false},
		{"完了済み", &model.Profile{OnboardingCompleted: true}, nil, true, true, false},
		{"DBエラー", nil, errors.New("db down"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProfileRepo{
				findByUserIDFn: func(ctx context.Context, userID string) (*model.Profile, error) {
					return tt.profile, tt.err
				},
			}
			completed, found, err := newTestService(repo).OnboardingFlag(context.Background(), "u")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if completed != tt.wantCompleted || found != tt.wantFound {
				t.Errorf("got (%v, %v), want (%v, %v)", completed, found, tt.wantCompleted, tt.wantFound)
			}
		})
	}
}

// --- Get ---

func TestGet_NotFound_ReturnsProfileNotFound(t *testing.T) {
	_, err := newTestService(&mockProfileRepo{}).Get(context.Background(), "u")
	assertAPIError(t, err, model.ErrCodeProfileNotFound)
}

func TestGet_ReturnsProfile(t *testing.T) {
	repo := &mockProfileRepo{saved: &model.Profile{UserID: "u", DisplayName: "Taro"}}
	p, err := newTestService(repo).Get(context.Background(), "u")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.DisplayName != "Taro" {
		t.Errorf("DisplayName = %q, want Taro", p.DisplayName)
	}
}

// --- CompleteOnboarding ---

func TestCompleteOnboarding_Client_SavesAndMarksCompleted(t *testing.T) {
	repo := &mockProfileRepo{}
	svc := newTestService(repo)

	p, err := svc.CompleteOnboarding(context.Background(), clientSession(), OnboardingInput{
		DisplayName: "  Taro  ",
		Goal:        "10kg減量",
		HeightCM:    floatPtr(172.5),
		WeightKG:    floatPtr(80),
		BirthYear:   intPtr(1990),
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding() error = %v", err)
	}
	if !p.OnboardingCompleted {
		t.Error("OnboardingCompleted should be true")
	}
	if p.UserID != "client-1" {
		t.Errorf("UserID = %q, want client-1", p.UserID)
	}
	if p.DisplayName != "Taro" {
		t.Errorf("DisplayName = %q, want trimmed Taro", p.DisplayName)
	}
	if p.CompletedAt == nil || !p.CompletedAt.Equal(svc.now()) {
		t.Errorf("CompletedAt = %v, want %v", p.CompletedAt, svc.now())
	}
}

func TestCompleteOnboarding_PlainTextKeepsSpecialCharacters(t *testing.T) {
	longName := strings.Repeat("a", 48) + " & " + strings.Repeat("b", 49)
	if n := len([]rune(longName)); n != 100 {
		t.Fatalf("test setup: name has %d runes, want 100", n)
	}

	tests := []struct {
		name     string
		in       OnboardingInput
		wantName string
		wantGoal string
	}{
		{
			"アンパサンドと不等号",
			OnboardingInput{DisplayName: "Tom & Jerry", Goal: "lose 5kg <3 months"},
			"Tom & Jerry", "lose 5kg <3 months",
		},
		{
			"不等号を含む表示名とアンパサンドを含む目標",
			OnboardingInput{DisplayName: "a < b", Goal: "run & swim"},
			"a < b", "run & swim",
		},
		{
			"タグは除去する",
			OnboardingInput{DisplayName: "<b>Taro</b> & co", Goal: "<i>fit</i> & well"},
			"Taro & co", "fit & well",
		},
		{
			"100文字ちょうどで&を含む",
			OnboardingInput{DisplayName: longName},
			longName, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProfileRepo{}
			p, err := newTestService(repo).CompleteOnboarding(context.Background(), clientSession(), tt.in)
			if err != nil {
				t.Fatalf("CompleteOnboarding() error = %v", err)
			}
			if repo.saved.DisplayName != tt.wantName {
				t.Errorf("stored DisplayName = %q, want %q", repo.saved.DisplayName, tt.wantName)
			}
			if repo.saved.Goal != tt.wantGoal {
				t.Errorf("stored Goal = %q, want %q", repo.saved.Goal, tt.wantGoal)
			}
			if p.DisplayName != tt.wantName {
				t.Errorf("returned DisplayName = %q, want %q", p.DisplayName, tt.wantName)
			}
		})
	}
}

func TestCompleteOnboarding_SecondSubmissionOverwrites(t *testing.T) {
	repo := &mockProfileRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.CompleteOnboarding(ctx, clientSession(), OnboardingInput{DisplayName: "A", Goal: "first"}); err != nil {
		t.Fatalf("first CompleteOnboarding() error = %v", err)
	}
	p, err := svc.CompleteOnboarding(ctx, clientSession(), OnboardingInput{DisplayName: "B", Goal: "second"})
	if err != nil {
		t.Fatalf("second CompleteOnboarding() error = %v", err)
	}
	if p.DisplayName != "B" || p.Goal != "second" {
		t.Errorf("profile = %+v, want overwritten answers", p)
	}
}

func TestCompleteOnboarding_Coach_ReturnsForbiddenRole(t *testing.T) {
	repo := &mockProfileRepo{
		completeOnboardingFn: func(ctx context.Context, p *model.Profile) error {
			t.Error("コーチの場合は保存しないこと")
			return nil
		},
	}
	coach := &model.Session{UserID: "coach-1", Role: model.RoleCoach}

	_, err := newTestService(repo).CompleteOnboarding(context.Background(), coach, OnboardingInput{DisplayName: "C"})
	assertAPIError(t, err, model.ErrCodeForbiddenRole)
}

func TestCompleteOnboarding_NoSession_ReturnsUnauthorized(t *testing.T) {
	_, err := newTestService(&mockProfileRepo{}).CompleteOnboarding(context.Background(), nil, OnboardingInput{DisplayName: "x"})
	assertAPIError(t, err, model.ErrCodeUnauthorized)
}

func TestCompleteOnboarding_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		in        OnboardingInput
		wantField string
	}{
		{"表示名なし", OnboardingInput{DisplayName: "  "}, "display_name"},
		{"表示名がタグのみ", OnboardingInput{DisplayName: "<script>x</script>"}, "display_name"},
		{"表示名が長すぎる", OnboardingInput{DisplayName: strings.Repeat("a", 101)}, "display_name"},
		{"目標が長すぎる", OnboardingInput{DisplayName: "a", Goal: strings.Repeat("g", 501)}, "goal"},
		{"身長が小さすぎる", OnboardingInput{DisplayName: "a", HeightCM: floatPtr(49)}, "height_cm"},
		{"体重が大きすぎる", OnboardingInput{DisplayName: "a", WeightKG: floatPtr(501)}, "weight_kg"},
		{"生年が古すぎる", OnboardingInput{DisplayName: "a", BirthYear: intPtr(1899)}, "birth_year"},
		{"生年が未来", OnboardingInput{DisplayName: "a", BirthYear: intPtr(2027)}, "birth_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockProfileRepo{
				completeOnboardingFn: func(ctx context.Context, p *model.Profile) error {
					t.Error("検証失敗時は保存しないこと")
					return nil
				},
			}
			_, err := newTestService(repo).CompleteOnboarding(context.Background(), clientSession(), tt.in)
			apiErr := assertAPIError(t, err, model.ErrCodeValidation)
			if !strings.Contains(apiErr.Message, tt.wantField) {
				t.Errorf("Message %q should mention %q", apiErr.Message, tt.wantField)
			}
		})
	}
}

func TestCompleteOnboarding_RepoError_ReturnsError(t *testing.T) {
	repo := &mockProfileRepo{
		completeOnboardingFn: func(ctx context.Context, p *model.Profile) error {
			return errors.New("db error")
		},
	}

	_, err := newTestService(repo).CompleteOnboarding(context.Background(), clientSession(), OnboardingInput{DisplayName: "a"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("DB error should not be an APIError, got %v", apiErr)
	}
}
