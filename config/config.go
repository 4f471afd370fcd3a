package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultQRSecret is the development signing key. It is refused in production.
const DefaultQRSecret = "dev_secret_change_me"

// Config holds runtime configuration. It is built once in main and handed to
// constructors; nothing below main reads the environment.
type Config struct {
	Port    string `env:"PORT,default=8080"`
	AppEnv  string `env:"APP_ENV,default=development"`
	GinMode string `env:"GIN_MODE"`

	DBDriver string `env:"DB_DRIVER,default=mysql"`
	DBDSN    string `env:"DB_DSN"`

	FrontURL          string `env:"FRONT_URL,default=http://localhost:5173"`
	QRTargetPath      string `env:"QR_TARGET_PATH,default=/order"`
	QRSecret          string `env:"QR_SECRET,default=dev_secret_change_me"`
	QRTTLSeconds      int    `env:"QR_TTL_SECONDS,default=86400"`
	QRImageSize       int    `env:"QR_IMAGE_SIZE,default=1200"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES,default=480"`

	CORSOrigin            string   `env:"CORS_ORIGIN"`
	StaffToken            string   `env:"STAFF_TOKEN"`
	ValidateRatePerMinute int      `env:"VALIDATE_RATE_PER_MINUTE,default=30"`
	TrustedProxies        []string `env:"TRUSTED_PROXIES,default=127.0.0.1"`
}

// Load reads an optional .env file and then decodes the process environment.
func Load(ctx context.Context) (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith decodes configuration from the given lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.FrontURL = strings.TrimRight(cfg.FrontURL, "/")
	if !strings.HasPrefix(cfg.QRTargetPath, "/") {
		cfg.QRTargetPath = "/" + cfg.QRTargetPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the combinations that are unsafe in production.
func (c *Config) Validate() error {
	if c.QRTTLSeconds <= 0 {
		return errors.New("QR_TTL_SECONDS must be positive")
	}
	if c.SessionTTLMinutes <= 0 {
		return errors.New("SESSION_TTL_MINUTES must be positive")
	}
	if c.QRImageSize < 64 {
		return errors.New("QR_IMAGE_SIZE must be at least 64")
	}
	if c.ValidateRatePerMinute <= 0 {
		return errors.New("VALIDATE_RATE_PER_MINUTE must be positive")
	}
	switch c.DBDriver {
	case "mysql":
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required for the mysql driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.QRSecret == "" {
		return errors.New("QR_SECRET must not be empty")
	}
	if c.IsProduction() && c.QRSecret == DefaultQRSecret {
		return errors.New("QR_SECRET must be changed in production")
	}
	u, err := url.Parse(c.FrontURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("FRONT_URL %q is not an absolute URL", c.FrontURL)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) LinkTTL() time.Duration {
	return time.Duration(c.QRTTLSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// AllowedOrigins returns the normalized CORS allow-list. Empty means any origin.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigin, ",") {
		if o = NormalizeOrigin(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// NormalizeOrigin trims whitespace and trailing slashes and lowercases.
func NormalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}
