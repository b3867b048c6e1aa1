package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is what the rest of the service sees. The accessors are grouped by
// concern; the single env-backed struct behind them is an implementation
// detail.
type Config interface {
	AppConfig
	AuthConfig
	DatabaseConfig
	MailConfig
	CurrencyConfig
	CorsConfig
}

type AppConfig interface {
	GetAppName() string
	GetEnv() string
	GetPort() string
	IsProduction() bool
}

type AuthConfig interface {
	GetOwnerEmail() string
	GetTokenIssuer() string
	GetPrivateKeyPath() string
	GetPublicKeyPath() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetRateLimitPerMinute() int
}

type DatabaseConfig interface {
	GetDatabaseURL() string
}

type MailConfig interface {
	GetMailEndpoint() string
	GetMailRegion() string
	GetMailAccessKey() string
	GetMailSecretKey() string
	GetMailFrom() string
}

type CurrencyConfig interface {
	GetRatesEndpoint() string
	GetRatesAPIKey() string
	GetBaseCurrency() string
	GetRatesRefreshInterval() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type envVars struct {
	AppName string `env:"APP_NAME" envDefault:"giftwish"`
	Env     string `env:"APP_ENV" envDefault:"development" validate:"oneof=development staging production"`
	Port    string `env:"PORT" envDefault:"8080"`

	OwnerEmail         string        `env:"OWNER_EMAIL,required" validate:"email"`
	TokenIssuer        string        `env:"TOKEN_ISSUER" envDefault:"giftwish"`
	PrivateKeyPath     string        `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath      string        `env:"JWT_PUBLIC_KEY_PATH"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60" validate:"gte=1"`

	DatabaseURL string `env:"DATABASE_URL"`

	MailEndpoint  string `env:"MAIL_ENDPOINT" validate:"omitempty,url"`
	MailRegion    string `env:"MAIL_REGION" envDefault:"eu-west-1"`
	MailAccessKey string `env:"MAIL_ACCESS_KEY"`
	MailSecretKey string `env:"MAIL_SECRET_KEY"`
	MailFrom      string `env:"MAIL_FROM" validate:"omitempty,email"`

	RatesEndpoint        string        `env:"RATES_ENDPOINT" validate:"omitempty,url"`
	RatesAPIKey          string        `env:"RATES_API_KEY"`
	BaseCurrency         string        `env:"BASE_CURRENCY" envDefault:"USD" validate:"len=3,uppercase"`
	RatesRefreshInterval time.Duration `env:"RATES_REFRESH_INTERVAL" envDefault:"1h"`

	AllowedOriginsRaw []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:""`
}

type mainConfig struct {
	vars    envVars
	origins AllowedOrigins
}

var _ Config = (*mainConfig)(nil)

// Load reads .env if present, then the environment, and validates the result.
func Load() (Config, error) {
	// A missing .env file is fine; the environment may carry everything.
	_ = godotenv.Load()

	var vars envVars
	if err := env.Parse(&vars); err != nil {
		return nil, errors.Wrap(err, "[Load] env.Parse")
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(vars); err != nil {
		return nil, errors.Wrap(err, "[Load] validation")
	}

	origins := make(AllowedOrigins, len(vars.AllowedOriginsRaw))
	for _, origin := range vars.AllowedOriginsRaw {
		if origin != "" {
			origins[origin] = struct{}{}
		}
	}

	return &mainConfig{vars: vars, origins: origins}, nil
}

func (c *mainConfig) GetAppName() string { return c.vars.AppName }
func (c *mainConfig) GetEnv() string     { return c.vars.Env }
func (c *mainConfig) GetPort() string    { return c.vars.Port }
func (c *mainConfig) IsProduction() bool { return c.vars.Env == "production" }

func (c *mainConfig) GetOwnerEmail() string             { return c.vars.OwnerEmail }
func (c *mainConfig) GetTokenIssuer() string            { return c.vars.TokenIssuer }
func (c *mainConfig) GetPrivateKeyPath() string         { return c.vars.PrivateKeyPath }
func (c *mainConfig) GetPublicKeyPath() string          { return c.vars.PublicKeyPath }
func (c *mainConfig) GetAccessTokenTTL() time.Duration  { return c.vars.AccessTokenTTL }
func (c *mainConfig) GetRefreshTokenTTL() time.Duration { return c.vars.RefreshTokenTTL }
func (c *mainConfig) GetRateLimitPerMinute() int        { return c.vars.RateLimitPerMinute }

func (c *mainConfig) GetDatabaseURL() string { return c.vars.DatabaseURL }

func (c *mainConfig) GetMailEndpoint() string  { return c.vars.MailEndpoint }
func (c *mainConfig) GetMailRegion() string    { return c.vars.MailRegion }
func (c *mainConfig) GetMailAccessKey() string { return c.vars.MailAccessKey }
func (c *mainConfig) GetMailSecretKey() string { return c.vars.MailSecretKey }
func (c *mainConfig) GetMailFrom() string      { return c.vars.MailFrom }

func (c *mainConfig) GetRatesEndpoint() string { return c.vars.RatesEndpoint }
func (c *mainConfig) GetRatesAPIKey() string   { return c.vars.RatesAPIKey }
func (c *mainConfig) GetBaseCurrency() string  { return c.vars.BaseCurrency }
func (c *mainConfig) GetRatesRefreshInterval() time.Duration {
	return c.vars.RatesRefreshInterval
}

func (c *mainConfig) GetAllowedOrigins() AllowedOrigins { return c.origins }
func (c *mainConfig) GetAllowedMethods() string         { return "GET, POST, PUT, PATCH, DELETE" }
func (c *mainConfig) GetAllowedHeaders() string         { return "Content-Type, Authorization, Accept-Language" }
