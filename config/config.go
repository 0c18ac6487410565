package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

// Session policy defaults. A seven-day session refreshed after a day of use,
// a one-day freshness window, and at most ten concurrent sessions per user.
const (
	defaultSessionExpiresIn       = 7 * 24 * time.Hour
	defaultSessionUpdateAge       = 24 * time.Hour
	defaultSessionFreshAge        = 24 * time.Hour
	defaultSessionMaxSessions     = 10
	defaultSessionCleanupInterval = time.Hour
	defaultSessionCookieName      = "saaskit_session"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Session controls the server-side session lifecycle and its cookie mirror.
	Session *SessionConfig `json:"session" yaml:"session"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Metrics configuration for the Prometheus scrape endpoint.
	Metrics *MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SessionConfig defines the session lifecycle policy.
type SessionConfig struct {
	// ExpiresIn is the lifetime granted to a session at creation and on refresh.
	ExpiresIn time.Duration `json:"expiresIn" yaml:"expiresIn"`

	// UpdateAge throttles sliding-window refresh: a session is re-extended at
	// most once per UpdateAge of use. Zero disables refresh.
	UpdateAge time.Duration `json:"updateAge" yaml:"updateAge"`

	// FreshAge bounds how old a session may be for sensitive operations.
	// Zero disables freshness checks.
	FreshAge time.Duration `json:"freshAge" yaml:"freshAge"`

	// MaxSessions caps concurrent sessions per user; oldest are evicted at
	// creation when the cap is reached. Zero or negative disables the cap.
	MaxSessions int `json:"maxSessions" yaml:"maxSessions"`

	// CleanupInterval is how often the background sweeper removes expired rows.
	CleanupInterval time.Duration `json:"cleanupInterval" yaml:"cleanupInterval"`

	// TrackActivity records last-seen metadata on each validated request.
	// Nil means unset and defaults to on; use ActivityTracking to read it.
	TrackActivity *bool `json:"trackActivity" yaml:"trackActivity"`

	// RequireFreshness makes GetSession itself reject stale sessions instead
	// of leaving freshness to per-operation checks.
	RequireFreshness bool `json:"requireFreshness" yaml:"requireFreshness"`

	// DisableRefresh turns off sliding-window extension entirely.
	DisableRefresh bool `json:"disableRefresh" yaml:"disableRefresh"`

	CookieName   string `json:"cookieName" yaml:"cookieName"`
	CookieSecret string `json:"cookieSecret" yaml:"cookieSecret"`
	CookieDomain string `json:"cookieDomain" yaml:"cookieDomain"`
	CookieSecure bool   `json:"cookieSecure" yaml:"cookieSecure"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`
}

// MetricsConfig defines the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: SESSION_COOKIESECRET -> session.cookieSecret (not session.cookiesecret)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	cfg.Session = normalizeSessionConfig(cfg.Session)

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// ActivityTracking reports whether last-seen metadata should be recorded.
// Only an explicit `trackActivity: false` turns it off.
func (sc *SessionConfig) ActivityTracking() bool {
	return sc == nil || sc.TrackActivity == nil || *sc.TrackActivity
}

// normalizeSessionConfig fills in the documented defaults for any session
// policy field left unset.
func normalizeSessionConfig(sc *SessionConfig) *SessionConfig {
	if sc == nil {
		sc = &SessionConfig{}
	}
	if sc.TrackActivity == nil {
		trackActivity := true
		sc.TrackActivity = &trackActivity
	}
	if sc.ExpiresIn <= 0 {
		sc.ExpiresIn = defaultSessionExpiresIn
	}
	if sc.UpdateAge < 0 {
		sc.UpdateAge = 0
	} else if sc.UpdateAge == 0 && !sc.DisableRefresh {
		sc.UpdateAge = defaultSessionUpdateAge
	}
	if sc.FreshAge < 0 {
		sc.FreshAge = 0
	} else if sc.FreshAge == 0 && sc.RequireFreshness {
		sc.FreshAge = defaultSessionFreshAge
	}
	if sc.MaxSessions == 0 {
		sc.MaxSessions = defaultSessionMaxSessions
	}
	if sc.CleanupInterval <= 0 {
		sc.CleanupInterval = defaultSessionCleanupInterval
	}
	if strings.TrimSpace(sc.CookieName) == "" {
		sc.CookieName = defaultSessionCookieName
	}

	return sc
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
