package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSessionConfig_NilGetsAllDefaults(t *testing.T) {
	sc := normalizeSessionConfig(nil)

	require.NotNil(t, sc)
	assert.Equal(t, 7*24*time.Hour, sc.ExpiresIn)
	assert.Equal(t, 24*time.Hour, sc.UpdateAge)
	assert.Equal(t, 10, sc.MaxSessions)
	assert.Equal(t, time.Hour, sc.CleanupInterval)
	assert.True(t, sc.ActivityTracking())
	assert.Equal(t, "saaskit_session", sc.CookieName)

	// Freshness is opt-in; without RequireFreshness the window stays unset.
	assert.Equal(t, time.Duration(0), sc.FreshAge)
}

func TestNormalizeSessionConfig_KeepsExplicitValues(t *testing.T) {
	sc := normalizeSessionConfig(&SessionConfig{
		ExpiresIn:       time.Hour,
		UpdateAge:       10 * time.Minute,
		FreshAge:        5 * time.Minute,
		MaxSessions:     2,
		CleanupInterval: time.Minute,
		CookieName:      "custom_session",
	})

	assert.Equal(t, time.Hour, sc.ExpiresIn)
	assert.Equal(t, 10*time.Minute, sc.UpdateAge)
	assert.Equal(t, 5*time.Minute, sc.FreshAge)
	assert.Equal(t, 2, sc.MaxSessions)
	assert.Equal(t, time.Minute, sc.CleanupInterval)
	assert.Equal(t, "custom_session", sc.CookieName)
}

func TestNormalizeSessionConfig_OmittedTrackActivityStaysOn(t *testing.T) {
	// A session block that sets other fields but omits trackActivity must not
	// silently turn tracking off.
	sc := normalizeSessionConfig(&SessionConfig{ExpiresIn: time.Hour})

	require.NotNil(t, sc.TrackActivity)
	assert.True(t, sc.ActivityTracking())
}

func TestNormalizeSessionConfig_ExplicitTrackActivityOffIsKept(t *testing.T) {
	off := false
	sc := normalizeSessionConfig(&SessionConfig{TrackActivity: &off})

	assert.False(t, sc.ActivityTracking())
}

func TestNormalizeSessionConfig_DisableRefreshLeavesUpdateAgeZero(t *testing.T) {
	sc := normalizeSessionConfig(&SessionConfig{DisableRefresh: true})

	assert.Equal(t, time.Duration(0), sc.UpdateAge)
	assert.True(t, sc.DisableRefresh)
}

func TestNormalizeSessionConfig_RequireFreshnessDefaultsWindow(t *testing.T) {
	sc := normalizeSessionConfig(&SessionConfig{RequireFreshness: true})

	assert.Equal(t, 24*time.Hour, sc.FreshAge)
}

func TestNormalizeSessionConfig_NegativeDurationsDisable(t *testing.T) {
	sc := normalizeSessionConfig(&SessionConfig{
		UpdateAge: -time.Hour,
		FreshAge:  -time.Hour,
	})

	assert.Equal(t, time.Duration(0), sc.UpdateAge)
	assert.Equal(t, time.Duration(0), sc.FreshAge)
}

func TestNormalizeSessionConfig_MaxSessionsOffStaysOff(t *testing.T) {
	sc := normalizeSessionConfig(&SessionConfig{MaxSessions: -1})

	// An explicit negative means "no cap"; only the zero value defaults.
	assert.Equal(t, -1, sc.MaxSessions)
}
