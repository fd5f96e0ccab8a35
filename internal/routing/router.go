package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/role"
)

// ErrNavigationDiscarded は判定完了前にリクエストがキャンセルされ、
// 遷移を破棄したことを示す。呼び出し側はリダイレクトを書き込んではならない。
var ErrNavigationDiscarded = errors.New("navigation discarded before resolution")

// IdentityProvider はセッションの参照と認可コード交換を提供する外部IdP。
type IdentityProvider interface {
	// CurrentSession はセッションIDに対応する有効なセッションを返す。
	// 存在しないまたは期限切れの場合はnilを返す。
	CurrentSession(ctx context.Context, sessionID string) (*model.Session, error)
	// ExchangeCode は認可コードを交換してセッションを発行する。
	ExchangeCode(ctx context.Context, code string) (*model.Session, error)
}

// ProfileStore はオンボーディング完了フラグを提供する。
type ProfileStore interface {
	// OnboardingFlag はユーザーのオンボーディング完了フラグを返す。
	// プロフィールが存在しない場合はfound=falseを返す。
	OnboardingFlag(ctx context.Context, userID string) (completed bool, found bool, err error)
}

// DecisionRecorder は判定結果をメトリクスとして記録する。
type DecisionRecorder interface {
	RecordRouteDecision(trigger, destination string)
	RecordExchangeFailure()
	RecordProfileLookupFailure()
}

type noopRecorder struct{}

func (noopRecorder) RecordRouteDecision(string, string) {}
func (noopRecorder) RecordExchangeFailure()             {}
func (noopRecorder) RecordProfileLookupFailure()        {}

// Trigger は判定を起動したイベントの種別。
type Trigger string

const (
	// TriggerRoot はルート画面の初回表示。
	TriggerRoot Trigger = "root"
	// TriggerCallback はOAuthコード交換の完了。
	TriggerCallback Trigger = "callback"
)

// State は1回の判定の進行状態。
type State int

const (
	// StateChecking はセッション（およびプロフィール）の参照待ち。
	StateChecking State = iota
	// StateResolved は遷移先が確定した終端状態。
	StateResolved
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Evaluation は1回のページ読み込み（またはコールバック）に対する判定。
// checking → resolved の遷移は1度だけ発生し、resolved以降は変化しない。
type Evaluation struct {
	trigger     Trigger
	state       State
	session     *model.Session
	destination Destination
}

func newEvaluation(trigger Trigger) *Evaluation {
	return &Evaluation{trigger: trigger, state: StateChecking}
}

// Trigger は判定を起動したイベントを返す。
func (e *Evaluation) Trigger() Trigger { return e.trigger }

// State は現在の状態を返す。
func (e *Evaluation) State() State { return e.state }

// Session は判定に使用したセッションを返す。セッションがない場合はnil。
func (e *Evaluation) Session() *model.Session { return e.session }

// Destination は確定した遷移先を返す。checking中は空文字を返す。
func (e *Evaluation) Destination() Destination { return e.destination }

// resolve は遷移先を確定する。既に確定済みの場合は何もせずfalseを返す。
func (e *Evaluation) resolve(session *model.Session, dest Destination) bool {
	if e.state == StateResolved {
		return false
	}
	e.session = session
	e.destination = dest
	e.state = StateResolved
	return true
}

// Config はRouterの設定。
type Config struct {
	// DefaultFallback はコード交換失敗時の既定の遷移先。
	// 空または同一オリジン外の値の場合はDefaultFallbackを使用する。
	DefaultFallback string
}

// Router はセッションルーター。
// 判定テーブル自体は純粋関数Decideで、Routerは入力の収集のみを担う。
type Router struct {
	identity IdentityProvider
	profiles ProfileStore
	roles    *role.Resolver
	recorder DecisionRecorder
	logger   *slog.Logger
	fallback Destination
}

// NewRouter はRouterを生成する。
// recorderとloggerはnilの場合、それぞれ何もしない実装とslog.Default()を使う。
func NewRouter(
	identity IdentityProvider,
	profiles ProfileStore,
	roles *role.Resolver,
	recorder DecisionRecorder,
	logger *slog.Logger,
	config Config,
) *Router {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if roles == nil {
		roles = role.NewResolver(nil)
	}
	return &Router{
		identity: identity,
		profiles: profiles,
		roles:    roles,
		recorder: recorder,
		logger:   logger,
		fallback: normalizeFallback(config.DefaultFallback, DefaultFallback),
	}
}

// ResolveRoot はルート画面の初回表示時の遷移先を決定する。
// sessionIDはCookieから取得した値で、空の場合はセッションなしとして扱う。
// セッション参照の失敗もセッションなしとして扱い、ログイン画面へ誘導する。
func (r *Router) ResolveRoot(ctx context.Context, sessionID string) (*Evaluation, error) {
	ev := newEvaluation(TriggerRoot)

	var session *model.Session
	if sessionID != "" {
		s, err := r.identity.CurrentSession(ctx, sessionID)
		if cerr := ctx.Err(); cerr != nil {
			return nil, discarded(cerr)
		}
		if err != nil {
			r.logger.Warn("session lookup failed, routing as signed out",
				slog.String("error", err.Error()),
			)
		} else {
			session = s
		}
	}

	dest := r.destinationFor(ctx, session)
	if cerr := ctx.Err(); cerr != nil {
		return nil, discarded(cerr)
	}

	r.finish(ev, session, dest)
	return ev, nil
}

// ResolveCallback はOAuthコード交換完了時の遷移先を決定する。
// 交換に失敗した、またはセッションが得られなかった場合はfallbackに遷移する。
// fallbackが未指定または同一オリジン外の場合は設定済みの既定値を使う。
func (r *Router) ResolveCallback(ctx context.Context, code, fallback string) (*Evaluation, error) {
	ev := newEvaluation(TriggerCallback)
	fb := normalizeFallback(fallback, r.fallback)

	var (
		session *model.Session
		err     error
	)
	if code == "" {
		err = errors.New("missing authorization code")
	} else {
		session, err = r.identity.ExchangeCode(ctx, code)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, discarded(cerr)
	}

	if err != nil || session == nil {
		attrs := []any{slog.String("fallback", fb.String())}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		r.logger.Warn("oauth code exchange did not yield a session", attrs...)
		r.recorder.RecordExchangeFailure()
		r.finish(ev, nil, fb)
		return ev, nil
	}

	dest := r.destinationFor(ctx, session)
	if cerr := ctx.Err(); cerr != nil {
		return nil, discarded(cerr)
	}

	r.finish(ev, session, dest)
	return ev, nil
}

// destinationFor はセッションから判定テーブルの入力を組み立てて評価する。
// プロフィールはクライアントの場合のみ参照し、取得失敗や未作成はオンボーディング未完了とみなす。
func (r *Router) destinationFor(ctx context.Context, session *model.Session) Destination {
	if session == nil {
		return Decide(Input{})
	}

	in := Input{SessionPresent: true, Role: r.roleOf(session)}
	if in.Role == model.RoleCoach {
		return Decide(in)
	}

	completed, found, err := r.profiles.OnboardingFlag(ctx, session.UserID)
	switch {
	case err != nil:
		r.logger.Warn("profile lookup failed, routing to onboarding",
			slog.String("user_id", session.UserID),
			slog.String("error", err.Error()),
		)
		r.recorder.RecordProfileLookupFailure()
	case found:
		in.OnboardingComplete = completed
	}

	return Decide(in)
}

// roleOf はセッションに保存された役割を返す。
// 役割が保存されていない古いセッションの場合のみメールアドレスから算出する。
func (r *Router) roleOf(session *model.Session) model.Role {
	if session.Role.Valid() {
		return session.Role
	}
	return r.roles.Resolve(session.Email)
}

func (r *Router) finish(ev *Evaluation, session *model.Session, dest Destination) {
	if !ev.resolve(session, dest) {
		return
	}

	attrs := []any{
		slog.String("trigger", string(ev.trigger)),
		slog.String("destination", dest.String()),
	}
	if session != nil {
		attrs = append(attrs, slog.String("user_id", session.UserID))
	}
	r.logger.Info("route resolved", attrs...)
	r.recorder.RecordRouteDecision(string(ev.trigger), dest.String())
}

func discarded(cause error) error {
	return fmt.Errorf("%w: %w", ErrNavigationDiscarded, cause)
}
