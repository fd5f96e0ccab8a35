package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hitoshi/coachlink/internal/dailylog"
	"github.com/hitoshi/coachlink/internal/middleware"
	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/profile"
	"github.com/hitoshi/coachlink/internal/routing"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

// fakeIdentity はrouting.IdentityProviderのテスト実装。
type fakeIdentity struct {
	currentSessionFn func(ctx context.Context, id string) (*model.Session, error)
	exchangeCodeFn   func(ctx context.Context, code string) (*model.Session, error)
	exchangeCalls    int
}

func (f *fakeIdentity) CurrentSession(ctx context.Context, id string) (*model.Session, error) {
	if f.currentSessionFn != nil {
		return f.currentSessionFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeIdentity) ExchangeCode(ctx context.Context, code string) (*model.Session, error) {
	f.exchangeCalls++
	if f.exchangeCodeFn != nil {
		return f.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// fakeProfiles はrouting.ProfileStoreのテスト実装。
type fakeProfiles struct {
	flags map[string]bool
}

func (f *fakeProfiles) OnboardingFlag(ctx context.Context, userID string) (bool, bool, error) {
	completed, found := f.flags[userID]
	return completed, found, nil
}

var (
	_ routing.IdentityProvider = (*fakeIdentity)(nil)
	_ routing.ProfileStore     = (*fakeProfiles)(nil)
)

// newTestSessionRouter は実際のセッションルーターをテスト用の依存で組み立てる。
func newTestSessionRouter(identity *fakeIdentity, profiles *fakeProfiles) *routing.Router {
	if profiles == nil {
		profiles = &fakeProfiles{}
	}
	return routing.NewRouter(identity, profiles, nil, nil, nil, routing.Config{})
}

type mockProfileService struct {
	getFn                func(ctx context.Context, userID string) (*model.Profile, error)
	completeOnboardingFn func(ctx context.Context, session *model.Session, in profile.OnboardingInput) (*model.Profile, error)
}

func (m *mockProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, model.NewProfileNotFoundError()
}

func (m *mockProfileService) CompleteOnboarding(ctx context.Context, session *model.Session, in profile.OnboardingInput) (*model.Profile, error) {
	if m.completeOnboardingFn != nil {
		return m.completeOnboardingFn(ctx, session, in)
	}
	return nil, nil
}

type mockDailyLogService struct {
	recordFn func(ctx context.Context, session *model.Session, in dailylog.RecordInput) (*model.DailyLog, error)
	listFn   func(ctx context.Context, viewer *model.Session, clientID, from, to string) ([]*model.DailyLog, error)
}

func (m *mockDailyLogService) Record(ctx context.Context, session *model.Session, in dailylog.RecordInput) (*model.DailyLog, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, session, in)
	}
	return nil, nil
}

func (m *mockDailyLogService) List(ctx context.Context, viewer *model.Session, clientID, from, to string) ([]*model.DailyLog, error) {
	if m.listFn != nil {
		return m.listFn(ctx, viewer, clientID, from, to)
	}
	return nil, nil
}

type mockUserService struct {
	listClientsFn func(ctx context.Context, viewer *model.Session) ([]model.ClientSummary, error)
	withdrawFn    func(ctx context.Context, userID string) error
}

func (m *mockUserService) ListClients(ctx context.Context, viewer *model.Session) ([]model.ClientSummary, error) {
	if m.listClientsFn != nil {
		return m.listClientsFn(ctx, viewer)
	}
	return nil, nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

var (
	_ AuthServiceInterface     = (*mockAuthService)(nil)
	_ ProfileServiceInterface  = (*mockProfileService)(nil)
	_ DailyLogServiceInterface = (*mockDailyLogService)(nil)
	_ UserServiceInterface     = (*mockUserService)(nil)
)

// --- ヘルパー ---

func withSession(r *http.Request, s *model.Session) *http.Request {
	return r.WithContext(middleware.ContextWithSession(r.Context(), s))
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

var (
	coachSession  = &model.Session{ID: "coach-session", UserID: "coach-1", Email: "coach@example.com", Role: model.RoleCoach}
	clientSession = &model.Session{ID: "client-session", UserID: "client-1", Email: "client@example.com", Role: model.RoleClient}
)
