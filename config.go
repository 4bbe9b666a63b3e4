package jobwatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default endpoints of the hosted API.
const (
	DefaultAPIURL   = "https://api.automationcloud.net"
	DefaultVaultURL = "https://vault.automationcloud.net"
)

// Transport names accepted by Config.Transport.
const (
	TransportPoll   = "poll"
	TransportEvents = "events"
	TransportPush   = "push"
	TransportPushWS = "push-ws"
)

// First observation policies accepted by Config.FirstObservation.
const (
	FirstObservationBaseline = "baseline"
	FirstObservationNotify   = "notify"
)

// Config holds configuration for API clients and job trackers. It is
// passed explicitly to constructors; there is no package-level default
// client.
type Config struct {
	// APIURL is the base URL of the job API.
	APIURL string `mapstructure:"api-url"`

	// VaultURL is the base URL of the card vault.
	VaultURL string `mapstructure:"vault-url"`

	// Token is sent as the Basic auth user name on every request.
	Token string `mapstructure:"token"`

	// PollInterval is the base delay between two observations of a job.
	PollInterval time.Duration `mapstructure:"poll-interval"`

	// MaxBackoff caps the extra delay added after transient failures.
	// Zero means uncapped.
	MaxBackoff time.Duration `mapstructure:"max-backoff"`

	// FetchTimeout bounds a single API call. Zero disables it. A timed out
	// fetch is treated as a transient failure.
	FetchTimeout time.Duration `mapstructure:"fetch-timeout"`

	// Transport selects how job state is observed: "poll", "events",
	// "push" (server-sent events) or "push-ws" (WebSocket).
	Transport string `mapstructure:"transport"`

	// StreamFormat is the frame encoding of the push-ws transport: "json" or
	// "msgpack".
	StreamFormat string `mapstructure:"stream-format"`

	// FirstObservation decides whether the first observed state of a job
	// is announced ("notify") or only recorded ("baseline").
	FirstObservation string `mapstructure:"first-observation"`

	// RateLimit is the maximum number of API calls per second. Zero
	// disables client-side rate limiting.
	RateLimit float64 `mapstructure:"rate-limit"`

	// RateBurst is the burst size of the rate limiter.
	RateBurst int `mapstructure:"rate-burst"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:           DefaultAPIURL,
		VaultURL:         DefaultVaultURL,
		PollInterval:     1 * time.Second,
		MaxBackoff:       1 * time.Minute,
		Transport:        TransportPoll,
		StreamFormat:     "json",
		FirstObservation: FirstObservationBaseline,
		RateBurst:        1,
	}
}

// Validate checks the configuration for values no component can work with.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("jobwatch: config: api-url must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("jobwatch: config: poll-interval must be positive, got %s", c.PollInterval)
	}
	switch c.Transport {
	case TransportPoll, TransportEvents, TransportPush, TransportPushWS:
	default:
		return fmt.Errorf("jobwatch: config: unknown transport %q", c.Transport)
	}
	switch c.FirstObservation {
	case FirstObservationBaseline, FirstObservationNotify:
	default:
		return fmt.Errorf("jobwatch: config: unknown first-observation policy %q", c.FirstObservation)
	}
	return nil
}

// LoadConfig reads configuration from an optional file (JSON, YAML or TOML,
// chosen by extension) and from JOBWATCH_* environment variables. The
// environment takes precedence over the file, the file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("api-url", def.APIURL)
	v.SetDefault("vault-url", def.VaultURL)
	v.SetDefault("token", def.Token)
	v.SetDefault("poll-interval", def.PollInterval)
	v.SetDefault("max-backoff", def.MaxBackoff)
	v.SetDefault("fetch-timeout", def.FetchTimeout)
	v.SetDefault("transport", def.Transport)
	v.SetDefault("stream-format", def.StreamFormat)
	v.SetDefault("first-observation", def.FirstObservation)
	v.SetDefault("rate-limit", def.RateLimit)
	v.SetDefault("rate-burst", def.RateBurst)

	v.SetEnvPrefix("JOBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("jobwatch: read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("jobwatch: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
