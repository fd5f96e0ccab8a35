package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/repository"
	"github.com/hitoshi/coachlink/internal/role"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

func (m *mockUserRepo) ListClients(_ context.Context) ([]model.ClientSummary, error) {
	return nil, nil
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
	touchFn          func(ctx context.Context, id string, at time.Time) error
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

func (m *mockIdentityRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.touchFn != nil {
		return m.touchFn(ctx, id, at)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
	findCalls        int
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	m.findCalls++
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)

var testRoles = role.NewResolver([]string{"coach@example.com"})

func providerReturning(email, sub string) *mockOAuthProvider {
	return &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: sub,
				Email:          email,
				Name:           "Test User",
				Provider:       "google",
			}, nil
		},
	}
}

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	expected := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if got := svc.GetLoginURL("test-state"); got != expected {
		t.Errorf("GetLoginURL() = %q, want %q", got, expected)
	}
}

func TestExchangeCode_NewClient_CreatesUserWithClientRole(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdIdentity *model.Identity
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(providerReturning("client@example.com", "google-user-123"), userRepo, &mockIdentityRepo{}, sessionRepo, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.ExchangeCode(ctx, "auth-code-123")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Role != model.RoleClient {
		t.Errorf("user role = %q, want %q", createdUser.Role, model.RoleClient)
	}
	if createdUser.Email != "client@example.com" {
		t.Errorf("user email = %q", createdUser.Email)
	}
	if createdIdentity == nil || createdIdentity.UserID != createdUser.ID {
		t.Fatal("identity should reference the created user")
	}
	if createdIdentity.LastLoginAt == nil {
		t.Error("identity.LastLoginAt should be set on first login")
	}
	if createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if session.ID == "" || len(session.ID) != 64 {
		t.Errorf("session ID = %q, want 64 hex chars", session.ID)
	}
	if session.UserID != createdUser.ID {
		t.Errorf("session userID = %q, want %q", session.UserID, createdUser.ID)
	}
	if session.Email != "client@example.com" || session.Role != model.RoleClient {
		t.Errorf("session should carry email and role, got %+v", session)
	}
	if session.ExpiresAt.Before(time.Now().Add(23 * time.Hour)) {
		t.Error("session should expire after SessionMaxAge")
	}
}

func TestExchangeCode_NewCoach_CreatesUserWithCoachRole(t *testing.T) {
	var createdUser *model.User
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			return nil
		},
	}

	svc := NewService(providerReturning("Coach@Example.com", "google-coach"), userRepo, &mockIdentityRepo{}, &mockSessionRepo{}, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if createdUser.Role != model.RoleCoach {
		t.Errorf("user role = %q, want coach", createdUser.Role)
	}
	if session.Role != model.RoleCoach {
		t.Errorf("session role = %q, want coach", session.Role)
	}
}

func TestExchangeCode_ExistingUser_KeepsStoredRole(t *testing.T) {
	existingUserID := "existing-user-id-456"
	var touchedIdentity string

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:    existingUserID,
				Email: "coach@example.com",
				Role:  model.RoleClient,
			}, nil
		},
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			t.Error("既存ユーザーにCreateWithIdentityは呼ばれないこと")
			return nil
		},
	}
	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{
				ID:             "identity-id-1",
				UserID:         existingUserID,
				Provider:       "google",
				ProviderUserID: "google-user-789",
			}, nil
		},
		touchFn: func(ctx context.Context, id string, at time.Time) error {
			touchedIdentity = id
			return nil
		},
	}

	svc := NewService(providerReturning("coach@example.com", "google-user-789"), userRepo, identityRepo, &mockSessionRepo{}, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	session, err := svc.ExchangeCode(context.Background(), "auth-code-existing")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if session.UserID != existingUserID {
		t.Errorf("session userID = %q, want %q", session.UserID, existingUserID)
	}
	// 役割は作成時に確定済みで、メールアドレスから再計算しない
	if session.Role != model.RoleClient {
		t.Errorf("session role = %q, want stored role client", session.Role)
	}
	if touchedIdentity != "identity-id-1" {
		t.Errorf("touched identity = %q, want identity-id-1", touchedIdentity)
	}
}

func TestExchangeCode_TouchLastLoginError_StillLogsIn(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleClient}, nil
		},
	}
	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "identity-1", UserID: "user-1"}, nil
		},
		touchFn: func(ctx context.Context, id string, at time.Time) error {
			return errors.New("db error")
		},
	}

	svc := NewService(providerReturning("a@example.com", "sub"), userRepo, identityRepo, &mockSessionRepo{}, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.ExchangeCode(context.Background(), "code"); err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
}

func TestExchangeCode_IdentityWithoutUser_ReturnsError(t *testing.T) {
	identityRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "identity-1", UserID: "ghost"}, nil
		},
	}

	svc := NewService(providerReturning("a@example.com", "sub"), &mockUserRepo{}, identityRepo, &mockSessionRepo{}, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.ExchangeCode(context.Background(), "code"); err == nil {
		t.Fatal("expected error when identity references a missing user")
	}
}

func TestExchangeCode_OAuthError_ReturnsError(t *testing.T) {
	provider := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("oauth exchange failed")
		},
	}

	svc := NewService(provider, nil, nil, nil, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error from ExchangeCode")
	}
}

func TestExchangeCode_UserCreationError_ReturnsError(t *testing.T) {
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			return errors.New("db error")
		},
	}

	svc := NewService(providerReturning("error@example.com", "sub"), userRepo, &mockIdentityRepo{}, nil, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.ExchangeCode(context.Background(), "auth-code-err"); err == nil {
		t.Fatal("expected error from ExchangeCode")
	}
}

func TestExchangeCode_SessionSaveError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			return errors.New("db error")
		},
	}

	svc := NewService(providerReturning("a@example.com", "sub"), &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo, testRoles, nil, ServiceConfig{SessionMaxAge: 86400})

	if _, err := svc.ExchangeCode(context.Background(), "code"); err == nil {
		t.Fatal("expected error when the session cannot be saved")
	}
}

func TestCurrentSession_EmptyID_ReturnsNilWithoutLookup(t *testing.T) {
	sessionRepo := &mockSessionRepo{}
	svc := NewService(nil, nil, nil, sessionRepo, testRoles, nil, ServiceConfig{})

	session, err := svc.CurrentSession(context.Background(), "")
	if err != nil || session != nil {
		t.Fatalf("CurrentSession(\"\") = %v, %v; want nil, nil", session, err)
	}
	if sessionRepo.findCalls != 0 {
		t.Errorf("FindByID called %d times, want 0", sessionRepo.findCalls)
	}
}

func TestCurrentSession_UsesCache(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        id,
				UserID:    "user-1",
				Role:      model.RoleClient,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	cache := NewSessionCache(8, time.Minute, nil)
	svc := NewService(nil, nil, nil, sessionRepo, testRoles, cache, ServiceConfig{})

	for i := 0; i < 3; i++ {
		s, err := svc.CurrentSession(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("CurrentSession() error = %v", err)
		}
		if s == nil || s.UserID != "user-1" {
			t.Fatalf("unexpected session: %+v", s)
		}
	}
	if sessionRepo.findCalls != 1 {
		t.Errorf("FindByID called %d times, want 1", sessionRepo.findCalls)
	}
}

func TestCurrentSession_NotFound_IsNotCached(t *testing.T) {
	sessionRepo := &mockSessionRepo{}
	cache := NewSessionCache(8, time.Minute, nil)
	svc := NewService(nil, nil, nil, sessionRepo, testRoles, cache, ServiceConfig{})

	s, err := svc.CurrentSession(context.Background(), "missing")
	if err != nil || s != nil {
		t.Fatalf("CurrentSession() = %v, %v; want nil, nil", s, err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache.Len() = %d, want 0", cache.Len())
	}
}

func TestCurrentSession_RepoError_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(nil, nil, nil, sessionRepo, testRoles, nil, ServiceConfig{})

	if _, err := svc.CurrentSession(context.Background(), "sess"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLogout_DeletesSessionAndEvictsCache(t *testing.T) {
	var deletedSessionID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}
	cache := NewSessionCache(8, time.Minute, nil)
	cache.Add(&model.Session{ID: "session-to-delete", UserID: "u", ExpiresAt: time.Now().Add(time.Hour)})

	svc := NewService(nil, nil, nil, sessionRepo, testRoles, cache, ServiceConfig{})

	if err := svc.Logout(context.Background(), "session-to-delete"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
	if cache.Len() != 0 {
		t.Error("ログアウトしたセッションはキャッシュから除かれること")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, testRoles, nil, ServiceConfig{})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestInvalidateUser_RemovesCachedSessions(t *testing.T) {
	cache := NewSessionCache(8, time.Minute, nil)
	cache.Add(&model.Session{ID: "s1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)})
	svc := NewService(nil, nil, nil, nil, testRoles, cache, ServiceConfig{})

	svc.InvalidateUser("user-1")

	if cache.Len() != 0 {
		t.Errorf("cache.Len() = %d, want 0", cache.Len())
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	userID := "user-id-123"
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-valid",
				UserID:    userID,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: userID, Email: "user@example.com", Role: model.RoleClient}, nil
		},
	}

	svc := NewService(nil, userRepo, nil, sessionRepo, testRoles, nil, ServiceConfig{})

	user, err := svc.GetCurrentUser(context.Background(), "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.ID != userID {
		t.Errorf("user ID = %q, want %q", user.ID, userID)
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, nil, &mockSessionRepo{}, testRoles, nil, ServiceConfig{})

	if _, err := svc.GetCurrentUser(context.Background(), "expired-session"); err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestGetCurrentUser_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, testRoles, nil, ServiceConfig{})

	if _, err := svc.GetCurrentUser(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}
