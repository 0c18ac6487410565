package impl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"saaskit/config"
	"saaskit/internal/domain/entity"
	"saaskit/internal/domain/repository"
	"saaskit/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool {
	return &b
}

func newTestSessionConfig(sc *config.SessionConfig) *config.Config {
	cfg := &config.Config{Session: sc}
	cfg.Auth = &config.AuthConfig{BcryptCost: 4}

	return cfg
}

// defaultTestSessionConfig mirrors the documented policy defaults with a
// seven-day lifetime, one-day refresh window and one-day freshness window.
func defaultTestSessionConfig() *config.SessionConfig {
	return &config.SessionConfig{
		ExpiresIn:       7 * 24 * time.Hour,
		UpdateAge:       24 * time.Hour,
		FreshAge:        24 * time.Hour,
		MaxSessions:     10,
		CleanupInterval: time.Hour,
		TrackActivity:   boolPtr(true),
		CookieName:      "saaskit_session",
		CookieSecret:    "test-secret",
	}
}

// fakeClock is a settable service.Clock so boundary instants are exact.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// fakeRequestContext records cookie writes so tests can assert on what the
// client would have received.
type fakeRequestContext struct {
	mu        sync.Mutex
	userAgent string
	ipAddress string
	cookie    string
	setCount  int
	lastValue string
	lastAge   int
	cleared   bool
}

func (rc *fakeRequestContext) UserAgent() string {
	return rc.userAgent
}

func (rc *fakeRequestContext) IPAddress() string {
	return rc.ipAddress
}

func (rc *fakeRequestContext) SessionCookie() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return rc.cookie
}

func (rc *fakeRequestContext) SetSessionCookie(value string, maxAge int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cookie = value
	rc.setCount++
	rc.lastValue = value
	rc.lastAge = maxAge
	rc.cleared = false
}

func (rc *fakeRequestContext) ClearSessionCookie() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cookie = ""
	rc.cleared = true
}

// jsonCookieCodec is an unsigned stand-in for the JWT codec. Tampering is
// simulated by handing Decode a payload it cannot unmarshal.
type jsonCookieCodec struct{}

func (jsonCookieCodec) Encode(cookie *entity.CookieSession) (string, error) {
	raw, err := json.Marshal(cookie)
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

func (jsonCookieCodec) Decode(value string) (*entity.CookieSession, error) {
	cookie := &entity.CookieSession{}
	if err := json.Unmarshal([]byte(value), cookie); err != nil {
		return nil, errors.Wrap(service.ErrCookieInvalid, "undecodable test cookie")
	}

	return cookie, nil
}

type seqTokenGenerator struct {
	seq atomic.Int64
}

func (g *seqTokenGenerator) Generate() (string, error) {
	return fmt.Sprintf("token-%d", g.seq.Add(1)), nil
}

// countingMetrics is an in-memory metrics.SessionMetricsCollector.
type countingMetrics struct {
	mu        sync.Mutex
	created   int
	evicted   int
	refreshed int
	revoked   int
	swept     int
	rejected  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rejected: make(map[string]int)}
}

func (m *countingMetrics) RecordSessionCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *countingMetrics) RecordSessionEvicted(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evicted += count
}

func (m *countingMetrics) RecordSessionRefreshed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed++
}

func (m *countingMetrics) RecordSessionRevoked(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked += count
}

func (m *countingMetrics) RecordSessionRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *countingMetrics) RecordExpiredSwept(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swept += count
}

func (m *countingMetrics) Rejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rejected[reason]
}

// memorySessionRepo is an in-memory SessionRepository that mirrors the SQL
// semantics of the persistence layer, including the monotonic expiry guard on
// ExtendSession.
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[uuid.UUID]*entity.Session)}
}

func (r *memorySessionRepo) CreateSession(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *session
	r.sessions[session.ID] = &copied

	return nil
}

func (r *memorySessionRepo) FindSessionByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *sess

	return &copied, nil
}

func (r *memorySessionRepo) FindLiveSession(_ context.Context, id, userID uuid.UUID, now time.Time) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || sess.UserID != userID || !sess.ExpiresAt.After(now) {
		return nil, repository.ErrSessionNotFound
	}
	copied := *sess

	return &copied, nil
}

func (r *memorySessionRepo) FindSessionByToken(_ context.Context, token string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sess := range r.sessions {
		if sess.Token == token {
			copied := *sess

			return &copied, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r *memorySessionRepo) FindLiveSessionsByUserID(_ context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.liveLocked(userID, now)
	sort.Slice(live, func(i, j int) bool {
		return live[i].UpdatedAt.After(live[j].UpdatedAt)
	})

	return live, nil
}

func (r *memorySessionRepo) FindOldestLiveSessions(_ context.Context, userID uuid.UUID, now time.Time, limit int) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.liveLocked(userID, now)
	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.Before(live[j].CreatedAt)
	})
	if len(live) > limit {
		live = live[:limit]
	}

	return live, nil
}

func (r *memorySessionRepo) liveLocked(userID uuid.UUID, now time.Time) []*entity.Session {
	live := make([]*entity.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		if sess.UserID == userID && sess.ExpiresAt.After(now) {
			copied := *sess
			live = append(live, &copied)
		}
	}

	return live
}

func (r *memorySessionRepo) ExtendSession(_ context.Context, id uuid.UUID, expiresAt, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok || !sess.ExpiresAt.Before(expiresAt) {
		return repository.ErrSessionNotFound
	}

	sess.ExpiresAt = expiresAt
	sess.UpdatedAt = now

	return nil
}

func (r *memorySessionRepo) TouchSession(_ context.Context, id uuid.UUID, userAgent, ipAddress string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}

	sess.UserAgent = userAgent
	sess.IPAddress = ipAddress
	sess.UpdatedAt = now

	return nil
}

func (r *memorySessionRepo) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(r.sessions, id)

	return nil
}

func (r *memorySessionRepo) DeleteSessionsByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, sess := range r.sessions {
		if sess.UserID == userID {
			delete(r.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}

func (r *memorySessionRepo) DeleteOtherSessions(_ context.Context, userID, exceptID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, sess := range r.sessions {
		if sess.UserID == userID && id != exceptID {
			delete(r.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}

func (r *memorySessionRepo) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, sess := range r.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(r.sessions, id)
			deleted++
		}
	}

	return deleted, nil
}

func (r *memorySessionRepo) CountLiveSessionsByUserID(_ context.Context, userID uuid.UUID, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.liveLocked(userID, now)), nil
}

func (r *memorySessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// memorySubscriptionRepo serves one fixed subscription per user.
type memorySubscriptionRepo struct {
	mu            sync.Mutex
	subscriptions map[uuid.UUID]*entity.Subscription
	err           error
}

func newMemorySubscriptionRepo() *memorySubscriptionRepo {
	return &memorySubscriptionRepo{subscriptions: make(map[uuid.UUID]*entity.Subscription)}
}

func (r *memorySubscriptionRepo) FindActiveByUserID(_ context.Context, userID uuid.UUID) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	sub, ok := r.subscriptions[userID]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	copied := *sub

	return &copied, nil
}

// passthroughTxManager executes the function against a fixed factory without
// transactional semantics; the in-memory repos are already atomic per call.
type passthroughTxManager struct {
	factory repository.RepositoryFactory
}

func (tm *passthroughTxManager) Execute(_ context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	return fn(tm.factory)
}

type testRepoFactory struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
}

func (f *testRepoFactory) UserRepo() repository.UserRepository {
	return f.userRepo
}

func (f *testRepoFactory) AccountRepo() repository.AccountRepository {
	return f.accountRepo
}

func (f *testRepoFactory) SessionRepo() repository.SessionRepository {
	return f.sessionRepo
}
