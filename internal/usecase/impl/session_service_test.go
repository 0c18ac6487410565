package impl

import (
	"context"
	"testing"
	"time"

	"saaskit/config"
	"saaskit/internal/domain/entity"
	domainerrors "saaskit/internal/domain/errors"
	"saaskit/internal/domain/repository"
	"saaskit/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionServiceFixture struct {
	service usecase.SessionUsecase
	repo    *memorySessionRepo
	subs    *memorySubscriptionRepo
	clock   *fakeClock
	metrics *countingMetrics
	user    *entity.User
}

func newSessionServiceFixture(t *testing.T, sc *config.SessionConfig) *sessionServiceFixture {
	t.Helper()

	repo := newMemorySessionRepo()
	subs := newMemorySubscriptionRepo()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	counting := newCountingMetrics()

	service := NewSessionService(SessionServiceParams{
		TxManager:        &passthroughTxManager{factory: &testRepoFactory{sessionRepo: repo}},
		SessionRepo:      repo,
		SubscriptionRepo: subs,
		CookieCodec:      jsonCookieCodec{},
		TokenGenerator:   &seqTokenGenerator{},
		Clock:            clock,
		Metrics:          counting,
		Config:           newTestSessionConfig(sc),
		Logger:           newDiscardLogger(),
	})

	return &sessionServiceFixture{
		service: service,
		repo:    repo,
		subs:    subs,
		clock:   clock,
		metrics: counting,
		user: &entity.User{
			ID:       uuid.New(),
			Email:    "test@example.com",
			Username: "session-user",
			Role:     entity.RoleUser,
		},
	}
}

func (f *sessionServiceFixture) login(t *testing.T) (*entity.SessionHandle, *fakeRequestContext) {
	t.Helper()

	rc := &fakeRequestContext{userAgent: "test-agent", ipAddress: "203.0.113.7"}
	handle, err := f.service.CreateSession(context.Background(), f.user, rc)
	require.NoError(t, err)
	require.NotNil(t, handle)

	return handle, rc
}

func TestSessionService_CreateSession_SetsCookieAndPersists(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)

	assert.Equal(t, "token-1", handle.Token)
	assert.Equal(t, fixture.user.Snapshot(), handle.User)
	assert.Equal(t, 1, fixture.repo.Len())
	assert.Equal(t, 1, rc.setCount)
	assert.Equal(t, int(7*24*time.Hour/time.Second), rc.lastAge)

	// The cookie mirrors the row it points at.
	cookie, err := jsonCookieCodec{}.Decode(rc.cookie)
	require.NoError(t, err)
	assert.Equal(t, handle.ID, cookie.SessionID)
	assert.Equal(t, fixture.user.ID, cookie.User.ID)

	stored, err := fixture.repo.FindSessionByID(context.Background(), handle.ID)
	require.NoError(t, err)
	assert.Equal(t, fixture.clock.Now().Add(7*24*time.Hour), stored.ExpiresAt)
	assert.Equal(t, "test-agent", stored.UserAgent)
	assert.Equal(t, "203.0.113.7", stored.IPAddress)
}

func TestSessionService_CreateSession_EvictsOldestAtCapacity(t *testing.T) {
	sc := defaultTestSessionConfig()
	sc.MaxSessions = 3
	fixture := newSessionServiceFixture(t, sc)

	first, _ := fixture.login(t)
	fixture.clock.Advance(time.Minute)
	second, _ := fixture.login(t)
	fixture.clock.Advance(time.Minute)
	third, _ := fixture.login(t)
	fixture.clock.Advance(time.Minute)
	fourth, _ := fixture.login(t)

	// The oldest session made room; the newer three survive.
	assert.Equal(t, 3, fixture.repo.Len())
	_, err := fixture.repo.FindSessionByID(context.Background(), first.ID)
	assert.True(t, errors.Is(err, repository.ErrSessionNotFound))

	for _, handle := range []*entity.SessionHandle{second, third, fourth} {
		_, err := fixture.repo.FindSessionByID(context.Background(), handle.ID)
		assert.NoError(t, err)
	}

	assert.Equal(t, 1, fixture.metrics.evicted)
	assert.Equal(t, 4, fixture.metrics.created)
}

func TestSessionService_CreateSession_UnlimitedWhenCapDisabled(t *testing.T) {
	sc := defaultTestSessionConfig()
	sc.MaxSessions = -1
	fixture := newSessionServiceFixture(t, sc)

	for i := 0; i < 15; i++ {
		fixture.login(t)
	}

	assert.Equal(t, 15, fixture.repo.Len())
	assert.Equal(t, 0, fixture.metrics.evicted)
}

func TestSessionService_GetSession_NoCookieReturnsNil(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	rc := &fakeRequestContext{}
	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	assert.Nil(t, enriched)
	assert.False(t, rc.cleared)
}

func TestSessionService_GetSession_ClearsUndecodableCookie(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	rc := &fakeRequestContext{cookie: "not-a-cookie"}
	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	assert.Nil(t, enriched)
	assert.True(t, rc.cleared)
	assert.Equal(t, 1, fixture.metrics.Rejected("cookie_invalid"))
}

func TestSessionService_GetSession_ClearsCookieWhenRevoked(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)
	require.NoError(t, fixture.repo.DeleteSession(context.Background(), handle.ID))

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	assert.Nil(t, enriched)
	assert.True(t, rc.cleared)
	assert.Equal(t, 1, fixture.metrics.Rejected("not_in_store"))
}

func TestSessionService_GetSession_RejectsExpiredRow(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	_, rc := fixture.login(t)
	fixture.clock.Advance(7*24*time.Hour + time.Second)

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	assert.Nil(t, enriched)
	assert.True(t, rc.cleared)
}

func TestSessionService_GetSession_TracksActivity(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)
	fixture.clock.Advance(time.Hour)
	rc.userAgent = "second-device"
	rc.ipAddress = "198.51.100.9"

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	require.NotNil(t, enriched)
	assert.Equal(t, handle.ID, enriched.Session.ID)
	assert.Equal(t, fixture.clock.Now(), enriched.LastActivity)

	stored, err := fixture.repo.FindSessionByID(context.Background(), handle.ID)
	require.NoError(t, err)
	assert.Equal(t, "second-device", stored.UserAgent)
	assert.Equal(t, "198.51.100.9", stored.IPAddress)
	assert.Equal(t, fixture.clock.Now(), stored.UpdatedAt)

	// One hour in, the sliding window has no reason to extend anything.
	assert.Equal(t, 0, fixture.metrics.refreshed)
}

func TestSessionService_GetSession_RefreshesAfterUpdateAge(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)
	originalCookie := rc.cookie
	fixture.clock.Advance(24 * time.Hour)

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	require.NotNil(t, enriched)

	// The expiry window restarts from the validation instant.
	wantExpiry := fixture.clock.Now().Add(7 * 24 * time.Hour)
	assert.Equal(t, wantExpiry, enriched.Session.ExpiresAt)

	stored, err := fixture.repo.FindSessionByID(context.Background(), handle.ID)
	require.NoError(t, err)
	assert.Equal(t, wantExpiry, stored.ExpiresAt)

	// The cookie payload is unchanged; only its lifetime was re-issued.
	assert.Equal(t, originalCookie, rc.lastValue)
	assert.Equal(t, int(7*24*time.Hour/time.Second), rc.lastAge)
	assert.Equal(t, 1, fixture.metrics.refreshed)
}

func TestSessionService_GetSession_TracksActivityOnRefresh(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)
	fixture.clock.Advance(24 * time.Hour)
	rc.userAgent = "new-device"
	rc.ipAddress = "198.51.100.9"

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	require.NotNil(t, enriched)
	require.Equal(t, 1, fixture.metrics.refreshed)

	// A validation that extends the window still records the request's
	// metadata; refresh and activity tracking are independent.
	stored, err := fixture.repo.FindSessionByID(context.Background(), handle.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-device", stored.UserAgent)
	assert.Equal(t, "198.51.100.9", stored.IPAddress)
	assert.Equal(t, fixture.clock.Now(), stored.UpdatedAt)
}

func TestSessionService_GetSession_RefreshThrottledWithinUpdateAge(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	_, rc := fixture.login(t)
	fixture.clock.Advance(24 * time.Hour)

	_, err := fixture.service.GetSession(context.Background(), rc)
	require.NoError(t, err)
	require.Equal(t, 1, fixture.metrics.refreshed)

	// Immediately after a refresh the remaining lifetime is full again, so
	// another validation must not extend a second time.
	fixture.clock.Advance(time.Minute)
	_, err = fixture.service.GetSession(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 1, fixture.metrics.refreshed)
}

func TestSessionService_GetSession_NoRefreshJustBeforeBoundary(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	_, rc := fixture.login(t)
	fixture.clock.Advance(24*time.Hour - time.Second)

	_, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	assert.Equal(t, 0, fixture.metrics.refreshed)
}

func TestSessionService_GetSession_RefreshDisabled(t *testing.T) {
	sc := defaultTestSessionConfig()
	sc.DisableRefresh = true
	fixture := newSessionServiceFixture(t, sc)

	handle, rc := fixture.login(t)
	originalExpiry := handle.ExpiresAt
	fixture.clock.Advance(48 * time.Hour)

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	require.NotNil(t, enriched)
	assert.Equal(t, originalExpiry, enriched.Session.ExpiresAt)
	assert.Equal(t, 0, fixture.metrics.refreshed)
}

func TestSessionService_GetSession_ComposesSubscription(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	fixture.subs.subscriptions[fixture.user.ID] = &entity.Subscription{
		ID:               uuid.New(),
		UserID:           fixture.user.ID,
		Plan:             "pro",
		Status:           entity.SubscriptionActive,
		Entitlements:     []string{"api-access"},
		CurrentPeriodEnd: fixture.clock.Now().Add(30 * 24 * time.Hour),
	}

	_, rc := fixture.login(t)
	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	require.NotNil(t, enriched)
	require.NotNil(t, enriched.Subscription)
	assert.Equal(t, "pro", enriched.Subscription.Plan)
}

func TestSessionService_GetSession_NoSubscriptionIsNotAnError(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	_, rc := fixture.login(t)
	enriched, err := fixture.service.GetSession(context.Background(), rc)

	require.NoError(t, err)
	require.NotNil(t, enriched)
	assert.Nil(t, enriched.Subscription)
}

func TestSessionService_GetSession_RequireFreshnessRejectsStale(t *testing.T) {
	sc := defaultTestSessionConfig()
	sc.RequireFreshness = true
	fixture := newSessionServiceFixture(t, sc)

	_, rc := fixture.login(t)
	fixture.clock.Advance(24*time.Hour + time.Second)

	enriched, err := fixture.service.GetSession(context.Background(), rc)

	// Stale is a distinct condition, not absence: an anonymous request gets
	// (nil, nil), a stale one gets ErrSessionNotFresh.
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionNotFresh))
	assert.Nil(t, enriched)
	assert.True(t, rc.cleared)
	assert.Equal(t, 1, fixture.metrics.Rejected("stale"))

	anonymous := &fakeRequestContext{}
	enriched, err = fixture.service.GetSession(context.Background(), anonymous)
	require.NoError(t, err)
	assert.Nil(t, enriched)
}

func TestSessionService_CheckSessionFreshness(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	_, rc := fixture.login(t)

	// Exactly at the window boundary is still fresh.
	fixture.clock.Advance(24 * time.Hour)
	assert.NoError(t, fixture.service.CheckSessionFreshness(context.Background(), rc))

	fixture.clock.Advance(time.Second)
	err := fixture.service.CheckSessionFreshness(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionNotFresh))
}

func TestSessionService_CheckSessionFreshness_NoCookie(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	err := fixture.service.CheckSessionFreshness(context.Background(), &fakeRequestContext{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionInvalid))
}

func TestSessionService_CheckSessionFreshness_ExpiredSession(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	_, rc := fixture.login(t)
	fixture.clock.Advance(8 * 24 * time.Hour)

	err := fixture.service.CheckSessionFreshness(context.Background(), rc)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionInvalid))
}

func TestSessionService_CheckSessionFreshness_DisabledWindow(t *testing.T) {
	sc := defaultTestSessionConfig()
	sc.FreshAge = 0
	fixture := newSessionServiceFixture(t, sc)

	_, rc := fixture.login(t)
	fixture.clock.Advance(6 * 24 * time.Hour)

	assert.NoError(t, fixture.service.CheckSessionFreshness(context.Background(), rc))
}

func TestSessionService_RevokeCurrentSession(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)

	require.NoError(t, fixture.service.RevokeCurrentSession(context.Background(), rc))
	assert.True(t, rc.cleared)
	_, err := fixture.repo.FindSessionByID(context.Background(), handle.ID)
	assert.True(t, errors.Is(err, repository.ErrSessionNotFound))

	// A revoked session cannot be validated again.
	enriched, err := fixture.service.GetSession(context.Background(), rc)
	require.NoError(t, err)
	assert.Nil(t, enriched)
}

func TestSessionService_RevokeCurrentSession_AlreadyGone(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, rc := fixture.login(t)
	require.NoError(t, fixture.repo.DeleteSession(context.Background(), handle.ID))

	assert.NoError(t, fixture.service.RevokeCurrentSession(context.Background(), rc))
	assert.True(t, rc.cleared)
}

func TestSessionService_RevokeSessionByToken(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, _ := fixture.login(t)

	revoked, err := fixture.service.RevokeSessionByToken(context.Background(), handle.Token, fixture.user.ID)

	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 0, fixture.repo.Len())
}

func TestSessionService_RevokeSessionByToken_UnknownToken(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	revoked, err := fixture.service.RevokeSessionByToken(context.Background(), "no-such-token", fixture.user.ID)

	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSessionService_RevokeSessionByToken_OwnershipMismatch(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	handle, _ := fixture.login(t)
	otherUser := uuid.New()

	// The mismatch answers exactly like an unknown token, and the session
	// survives.
	revoked, err := fixture.service.RevokeSessionByToken(context.Background(), handle.Token, otherUser)

	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, 1, fixture.repo.Len())
}

func TestSessionService_RevokeAllSessions(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	fixture.login(t)
	fixture.login(t)
	fixture.login(t)

	count, err := fixture.service.RevokeAllSessions(context.Background(), fixture.user.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, 0, fixture.repo.Len())
	assert.Equal(t, 3, fixture.metrics.revoked)
}

func TestSessionService_RevokeOtherSessions_KeepsCurrent(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	fixture.login(t)
	fixture.login(t)
	current, rc := fixture.login(t)

	count, err := fixture.service.RevokeOtherSessions(context.Background(), rc)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 1, fixture.repo.Len())
	_, err = fixture.repo.FindSessionByID(context.Background(), current.ID)
	assert.NoError(t, err)
}

func TestSessionService_ListUserSessions_NewestActivityFirst(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	first, _ := fixture.login(t)
	fixture.clock.Advance(time.Minute)
	second, _ := fixture.login(t)
	fixture.clock.Advance(time.Minute)
	third, _ := fixture.login(t)

	summaries, err := fixture.service.ListUserSessions(context.Background(), fixture.user.ID)

	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, third.ID, summaries[0].ID)
	assert.Equal(t, second.ID, summaries[1].ID)
	assert.Equal(t, first.ID, summaries[2].ID)
}

func TestSessionService_CleanupExpiredSessions(t *testing.T) {
	fixture := newSessionServiceFixture(t, defaultTestSessionConfig())

	fixture.login(t)
	fixture.clock.Advance(7*24*time.Hour + time.Second)

	count, err := fixture.service.CleanupExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 0, fixture.repo.Len())

	// A second sweep finds nothing; the operation is idempotent.
	count, err = fixture.service.CleanupExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 1, fixture.metrics.swept)
}
