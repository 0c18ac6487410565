// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"time"

	"saaskit/config"
	deliverycontext "saaskit/internal/delivery/context"
	"saaskit/internal/domain/entity"
	domainerrors "saaskit/internal/domain/errors"
	"saaskit/internal/domain/repository"
	"saaskit/internal/domain/service"
	"saaskit/internal/infra/metrics"
	"saaskit/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Rejection reasons recorded on failed session validations.
const (
	rejectCookieInvalid = "cookie_invalid"
	rejectNotInStore    = "not_in_store"
	rejectStale         = "stale"
)

// sessionPolicy is the lifecycle policy snapshot taken from config at
// construction time.
type sessionPolicy struct {
	expiresIn        time.Duration
	updateAge        time.Duration
	freshAge         time.Duration
	maxSessions      int
	trackActivity    bool
	requireFreshness bool
	disableRefresh   bool
}

// sessionService implements the SessionUsecase interface. The relational
// store is the source of truth for every decision; the cookie is only
// consulted to locate the row and is cleared whenever the store disagrees.
type sessionService struct {
	txManager        repository.TransactionManager
	sessionRepo      repository.SessionRepository
	subscriptionRepo repository.SubscriptionRepository
	codec            service.CookieCodec
	tokens           service.TokenGenerator
	clock            service.Clock
	metrics          metrics.SessionMetricsCollector
	policy           sessionPolicy
	logger           *slog.Logger
}

// SessionServiceParams holds dependencies for sessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	SessionRepo      repository.SessionRepository
	SubscriptionRepo repository.SubscriptionRepository
	CookieCodec      service.CookieCodec
	TokenGenerator   service.TokenGenerator
	Clock            service.Clock
	Metrics          metrics.SessionMetricsCollector
	Config           *config.Config
	Logger           *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	policy := sessionPolicy{
		expiresIn:     7 * 24 * time.Hour,
		updateAge:     24 * time.Hour,
		freshAge:      24 * time.Hour,
		maxSessions:   10,
		trackActivity: true,
	}
	if params.Config != nil && params.Config.Session != nil {
		sc := params.Config.Session
		policy = sessionPolicy{
			expiresIn:        sc.ExpiresIn,
			updateAge:        sc.UpdateAge,
			freshAge:         sc.FreshAge,
			maxSessions:      sc.MaxSessions,
			trackActivity:    sc.ActivityTracking(),
			requireFreshness: sc.RequireFreshness,
			disableRefresh:   sc.DisableRefresh,
		}
	}

	return &sessionService{
		txManager:        params.TxManager,
		sessionRepo:      params.SessionRepo,
		subscriptionRepo: params.SubscriptionRepo,
		codec:            params.CookieCodec,
		tokens:           params.TokenGenerator,
		clock:            params.Clock,
		metrics:          params.Metrics,
		policy:           policy,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// cookieMaxAge converts the session lifetime to whole cookie seconds.
func (srv *sessionService) cookieMaxAge() int {
	return int(srv.policy.expiresIn / time.Second)
}

// CreateSession starts a new session for an authenticated user and mirrors it
// into the response cookie. Capacity eviction and the insert run in one
// transaction so concurrent logins cannot overshoot the cap unbounded.
func (srv *sessionService) CreateSession(ctx context.Context, user *entity.User, rc service.RequestContext) (*entity.SessionHandle, error) {
	srv.log(ctx).Debug("Creating session", slog.Any("user_id", user.ID))

	token, err := srv.tokens.Generate()
	if err != nil {
		srv.log(ctx).Error("Failed to generate session token", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrSessionCreationFailed, "failed to generate session token")
	}

	now := srv.clock.Now()
	newSession := &entity.Session{
		ID:        uuid.New(),
		Token:     token,
		UserID:    user.ID,
		UserAgent: rc.UserAgent(),
		IPAddress: rc.IPAddress(),
		ExpiresAt: now.Add(srv.policy.expiresIn),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var evicted int
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		var evictErr error
		evicted, evictErr = srv.evictSurplusSessions(ctx, sessionRepo, user.ID, now)
		if evictErr != nil {
			return evictErr
		}

		if err := sessionRepo.CreateSession(ctx, newSession); err != nil {
			return errors.Wrap(err, "failed to create session row")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute session creation transaction", slog.Any("error", err), slog.Any("user_id", user.ID))

		return nil, errors.Wrap(err, "failed to execute session creation transaction")
	}

	if evicted > 0 {
		srv.metrics.RecordSessionEvicted(evicted)
		srv.log(ctx).Info("Evicted oldest sessions at capacity", slog.Any("user_id", user.ID), slog.Int("evicted", evicted))
	}
	srv.metrics.RecordSessionCreated()

	cookieValue, err := srv.codec.Encode(&entity.CookieSession{
		User:       user.Snapshot(),
		SessionID:  newSession.ID,
		LoggedInAt: now,
	})
	if err != nil {
		// The row exists but the client never receives it; the sweeper
		// removes it at expiry.
		srv.log(ctx).Error("Failed to encode session cookie", slog.Any("error", err), slog.Any("session_id", newSession.ID))

		return nil, errors.Wrap(domainerrors.ErrSessionCreationFailed, "failed to encode session cookie")
	}
	rc.SetSessionCookie(cookieValue, srv.cookieMaxAge())

	srv.log(ctx).Debug("Session created", slog.Any("user_id", user.ID), slog.Any("session_id", newSession.ID))

	return &entity.SessionHandle{
		ID:        newSession.ID,
		Token:     newSession.Token,
		ExpiresAt: newSession.ExpiresAt,
		User:      user.Snapshot(),
	}, nil
}

// evictSurplusSessions deletes the user's oldest live sessions so one more
// fits under the cap. Returns how many were deleted.
func (srv *sessionService) evictSurplusSessions(ctx context.Context, sessionRepo repository.SessionRepository, userID uuid.UUID, now time.Time) (int, error) {
	if srv.policy.maxSessions <= 0 {
		return 0, nil
	}

	active, err := sessionRepo.CountLiveSessionsByUserID(ctx, userID, now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count live sessions")
	}
	if active < srv.policy.maxSessions {
		return 0, nil
	}

	surplus := active - srv.policy.maxSessions + 1
	oldest, err := sessionRepo.FindOldestLiveSessions(ctx, userID, now, surplus)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find oldest sessions for eviction")
	}

	deleted := 0
	for _, victim := range oldest {
		if err := sessionRepo.DeleteSession(ctx, victim.ID); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				// Another request already removed it.
				continue
			}

			return deleted, errors.Wrap(err, "failed to evict session")
		}
		deleted++
	}

	return deleted, nil
}

// GetSession validates the request's cookie against the store and returns the
// enriched session, or (nil, nil) when the request has no usable session.
// Under global freshness enforcement a live-but-stale session returns
// ErrSessionNotFresh so the client can tell it apart from being logged out.
func (srv *sessionService) GetSession(ctx context.Context, rc service.RequestContext) (*entity.EnrichedSession, error) {
	raw := rc.SessionCookie()
	if raw == "" {
		return nil, nil
	}

	cookie, err := srv.codec.Decode(raw)
	if err != nil {
		srv.log(ctx).Warn("Rejecting undecodable session cookie", slog.Any("error", err))
		srv.metrics.RecordSessionRejected(rejectCookieInvalid)
		rc.ClearSessionCookie()

		return nil, nil
	}

	now := srv.clock.Now()

	sess, err := srv.sessionRepo.FindLiveSession(ctx, cookie.SessionID, cookie.User.ID, now)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// The cookie outlived the row: revoked, evicted, or expired.
			srv.metrics.RecordSessionRejected(rejectNotInStore)
			rc.ClearSessionCookie()

			return nil, nil
		}

		srv.log(ctx).Error("Failed to load session from store", slog.Any("error", err), slog.Any("session_id", cookie.SessionID))

		return nil, errors.Wrap(err, "failed to load session from store")
	}

	if srv.policy.requireFreshness && srv.policy.freshAge > 0 && now.Sub(sess.UpdatedAt) > srv.policy.freshAge {
		// The session is live but too old; the client must distinguish this
		// from being logged out.
		srv.metrics.RecordSessionRejected(rejectStale)
		rc.ClearSessionCookie()

		return nil, errors.Wrap(domainerrors.ErrSessionNotFresh, "session older than freshness window")
	}

	if srv.refreshDue(sess, now) {
		srv.refreshSession(ctx, rc, sess, raw, now)
	}

	// Activity is recorded on every successful validation, whether or not
	// the sliding window moved.
	if srv.policy.trackActivity {
		srv.touchSession(ctx, rc, sess, now)
	}

	subscription, err := srv.subscriptionRepo.FindActiveByUserID(ctx, cookie.User.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrSubscriptionNotFound) {
			srv.log(ctx).Error("Failed to load subscription for session", slog.Any("error", err), slog.Any("user_id", cookie.User.ID))

			return nil, errors.Wrap(err, "failed to load subscription for session")
		}
		subscription = nil
	}

	return &entity.EnrichedSession{
		Cookie:       *cookie,
		Session:      sess,
		LastActivity: sess.UpdatedAt,
		Subscription: subscription,
	}, nil
}

// refreshDue reports whether the sliding window should extend the session.
// A session is extended at most once per updateAge of use: right after a
// refresh the remaining lifetime exceeds expiresIn-updateAge, so the rule
// stays false until updateAge has elapsed again.
func (srv *sessionService) refreshDue(sess *entity.Session, now time.Time) bool {
	if srv.policy.disableRefresh || srv.policy.updateAge <= 0 {
		return false
	}

	return sess.ExpiresAt.Sub(now) <= srv.policy.expiresIn-srv.policy.updateAge
}

// refreshSession extends the row and re-issues the cookie with the new
// max-age. A store failure downgrades to a warning: the session is still
// valid for this request, only the extension is lost.
func (srv *sessionService) refreshSession(ctx context.Context, rc service.RequestContext, sess *entity.Session, rawCookie string, now time.Time) {
	newExpiry := now.Add(srv.policy.expiresIn)

	if err := srv.sessionRepo.ExtendSession(ctx, sess.ID, newExpiry, now); err != nil {
		srv.log(ctx).Warn("Failed to extend session", slog.Any("error", err), slog.Any("session_id", sess.ID))

		return
	}

	sess.ExpiresAt = newExpiry
	sess.UpdatedAt = now
	srv.metrics.RecordSessionRefreshed()

	// The payload is unchanged; only the cookie lifetime moves forward.
	rc.SetSessionCookie(rawCookie, srv.cookieMaxAge())
}

// touchSession records last-seen metadata. Failures only cost the activity
// update, never the request.
func (srv *sessionService) touchSession(ctx context.Context, rc service.RequestContext, sess *entity.Session, now time.Time) {
	if err := srv.sessionRepo.TouchSession(ctx, sess.ID, rc.UserAgent(), rc.IPAddress(), now); err != nil {
		srv.log(ctx).Warn("Failed to record session activity", slog.Any("error", err), slog.Any("session_id", sess.ID))

		return
	}

	sess.UserAgent = rc.UserAgent()
	sess.IPAddress = rc.IPAddress()
	sess.UpdatedAt = now
}

// CheckSessionFreshness verifies the request's session was updated within the
// freshness window. A zero window disables the check.
func (srv *sessionService) CheckSessionFreshness(ctx context.Context, rc service.RequestContext) error {
	raw := rc.SessionCookie()
	if raw == "" {
		return errors.Wrap(domainerrors.ErrSessionInvalid, "no session cookie")
	}

	cookie, err := srv.codec.Decode(raw)
	if err != nil {
		rc.ClearSessionCookie()

		return errors.Wrap(domainerrors.ErrSessionInvalid, "session cookie undecodable")
	}

	sess, err := srv.sessionRepo.FindSessionByID(ctx, cookie.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return errors.Wrap(domainerrors.ErrSessionInvalid, "session not in store")
		}

		return errors.Wrap(err, "failed to load session for freshness check")
	}

	now := srv.clock.Now()
	if sess.UserID != cookie.User.ID || !sess.Live(now) {
		return errors.Wrap(domainerrors.ErrSessionInvalid, "session not live for this user")
	}

	if srv.policy.freshAge <= 0 {
		return nil
	}

	if now.Sub(sess.UpdatedAt) > srv.policy.freshAge {
		srv.log(ctx).Info("Session failed freshness check", slog.Any("session_id", sess.ID), slog.Time("updated_at", sess.UpdatedAt))

		return errors.Wrap(domainerrors.ErrSessionNotFresh, "session older than freshness window")
	}

	return nil
}

// RevokeCurrentSession ends the request's own session. The cookie is cleared
// unconditionally so the client never keeps a pointer to a dead row.
func (srv *sessionService) RevokeCurrentSession(ctx context.Context, rc service.RequestContext) error {
	raw := rc.SessionCookie()
	if raw == "" {
		return nil
	}

	cookie, err := srv.codec.Decode(raw)
	if err != nil {
		rc.ClearSessionCookie()

		return nil
	}

	deleteErr := srv.sessionRepo.DeleteSession(ctx, cookie.SessionID)
	rc.ClearSessionCookie()

	if deleteErr != nil {
		if errors.Is(deleteErr, repository.ErrSessionNotFound) {
			return nil
		}

		srv.log(ctx).Error("Failed to delete current session", slog.Any("error", deleteErr), slog.Any("session_id", cookie.SessionID))

		return errors.Wrap(deleteErr, "failed to delete current session")
	}

	srv.metrics.RecordSessionRevoked(1)
	srv.log(ctx).Info("Revoked current session", slog.Any("session_id", cookie.SessionID))

	return nil
}

// RevokeSessionByToken ends the session holding token if it belongs to
// userID. An unknown token or an ownership mismatch reports false without an
// error so callers cannot probe other users' tokens.
func (srv *sessionService) RevokeSessionByToken(ctx context.Context, token string, userID uuid.UUID) (bool, error) {
	sess, err := srv.sessionRepo.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "failed to find session by token")
	}

	if sess.UserID != userID {
		srv.log(ctx).Warn("Refusing cross-user session revocation", slog.Any("user_id", userID), slog.Any("session_id", sess.ID))

		return false, nil
	}

	if err := srv.sessionRepo.DeleteSession(ctx, sess.ID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, nil
		}

		return false, errors.Wrap(err, "failed to delete session by token")
	}

	srv.metrics.RecordSessionRevoked(1)
	srv.log(ctx).Info("Revoked session by token", slog.Any("user_id", userID), slog.Any("session_id", sess.ID))

	return true, nil
}

// RevokeAllSessions ends every session for a user.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := srv.sessionRepo.DeleteSessionsByUserID(ctx, userID)
	if err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("error", err), slog.Any("user_id", userID))

		return 0, errors.Wrap(err, "failed to revoke all sessions")
	}

	if count > 0 {
		srv.metrics.RecordSessionRevoked(int(count))
	}
	srv.log(ctx).Info("Revoked all sessions", slog.Any("user_id", userID), slog.Int64("count", count))

	return count, nil
}

// RevokeOtherSessions ends every session of the current user except the one
// on this request.
func (srv *sessionService) RevokeOtherSessions(ctx context.Context, rc service.RequestContext) (int64, error) {
	raw := rc.SessionCookie()
	if raw == "" {
		return 0, errors.Wrap(domainerrors.ErrSessionInvalid, "no session cookie")
	}

	cookie, err := srv.codec.Decode(raw)
	if err != nil {
		rc.ClearSessionCookie()

		return 0, errors.Wrap(domainerrors.ErrSessionInvalid, "session cookie undecodable")
	}

	count, err := srv.sessionRepo.DeleteOtherSessions(ctx, cookie.User.ID, cookie.SessionID)
	if err != nil {
		srv.log(ctx).Error("Failed to revoke other sessions", slog.Any("error", err), slog.Any("user_id", cookie.User.ID))

		return 0, errors.Wrap(err, "failed to revoke other sessions")
	}

	if count > 0 {
		srv.metrics.RecordSessionRevoked(int(count))
	}
	srv.log(ctx).Info("Revoked other sessions", slog.Any("user_id", cookie.User.ID), slog.Int64("count", count))

	return count, nil
}

// ListUserSessions returns the user's live sessions without bearer tokens,
// newest activity first.
func (srv *sessionService) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionSummary, error) {
	now := srv.clock.Now()

	sessions, err := srv.sessionRepo.FindLiveSessionsByUserID(ctx, userID, now)
	if err != nil {
		srv.log(ctx).Error("Failed to list sessions", slog.Any("error", err), slog.Any("user_id", userID))

		return nil, errors.Wrap(err, "failed to list sessions")
	}

	summaries := make([]*entity.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.Summary())
	}

	return summaries, nil
}

// CleanupExpiredSessions removes expired rows. Concurrent sweeps are safe;
// each row is only counted by whichever sweep deletes it.
func (srv *sessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	now := srv.clock.Now()

	count, err := srv.sessionRepo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		srv.log(ctx).Error("Failed to cleanup expired sessions", slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to cleanup expired sessions")
	}

	if count > 0 {
		srv.metrics.RecordExpiredSwept(int(count))
	}
	srv.log(ctx).Debug("Cleaned up expired sessions", slog.Int64("deleted", count))

	return count, nil
}
