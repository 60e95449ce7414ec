package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env    string
	Server ServerConfig
	Mongo  MongoConfig
	Auth   AuthConfig
	Stripe StripeConfig
	Mail   MailConfig
}

type ServerConfig struct {
	Addr        string
	FrontendURL string
	// PublicURL is the base for links handed to users, such as reset mail
	// and checkout redirects.
	PublicURL string
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret    string
	JWTExpire    time.Duration
	CookieExpire time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type MailConfig struct {
	From string
}

// env names are the ones the storefront has always been deployed with.
var bindings = map[string]string{
	"env":                   "NODE_ENV",
	"port":                  "PORT",
	"frontend_url":          "FRONTEND_URL",
	"public_url":            "PUBLIC_URL",
	"mongo_uri":             "MONGO_URI",
	"mongo_db":              "MONGO_DB",
	"jwt_secret":            "JWT_SECRET",
	"jwt_expire":            "JWT_EXPIRE",
	"cookie_expire":         "COOKIE_EXPIRE",
	"stripe_secret_key":     "STRIPE_SECRET_KEY",
	"stripe_webhook_secret": "STRIPE_WEBHOOK_SECRET",
	"stripe_currency":       "STRIPE_CURRENCY",
	"smtp_mail":             "SMTP_MAIL",
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	// a missing .env is normal outside development
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	// APP_ENV is accepted as a fallback for NODE_ENV.
	if err := v.BindEnv("env", "NODE_ENV", "APP_ENV"); err != nil {
		return nil, fmt.Errorf("failed to bind APP_ENV: %w", err)
	}

	v.SetDefault("env", "development")
	v.SetDefault("port", "5000")
	v.SetDefault("frontend_url", "*")
	v.SetDefault("mongo_db", "storefront")
	v.SetDefault("jwt_expire", "5d")
	v.SetDefault("cookie_expire", 5)
	v.SetDefault("stripe_currency", "usd")

	jwtExpire, err := parseDuration(v.GetString("jwt_expire"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRE: %w", err)
	}

	addr := ":" + strings.TrimPrefix(v.GetString("port"), ":")
	frontendURL := strings.TrimSuffix(v.GetString("frontend_url"), "/")
	publicURL := strings.TrimSuffix(v.GetString("public_url"), "/")
	if publicURL == "" {
		publicURL = frontendURL
		if publicURL == "*" {
			publicURL = "http://localhost" + addr
		}
	}

	cfg := &Config{
		Env: v.GetString("env"),
		Server: ServerConfig{
			Addr:        addr,
			FrontendURL: frontendURL,
			PublicURL:   publicURL,
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo_uri"),
			Database: v.GetString("mongo_db"),
		},
		Auth: AuthConfig{
			JWTSecret:    v.GetString("jwt_secret"),
			JWTExpire:    jwtExpire,
			CookieExpire: time.Duration(v.GetInt("cookie_expire")) * 24 * time.Hour,
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe_secret_key"),
			WebhookSecret: v.GetString("stripe_webhook_secret"),
			Currency:      v.GetString("stripe_currency"),
		},
		Mail: MailConfig{
			From: v.GetString("smtp_mail"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGO_URI is not defined in environment variables"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not defined in environment variables"))
	}
	if c.Env == "production" && (c.Server.FrontendURL == "" || c.Server.FrontendURL == "*") {
		errs = append(errs, errors.New("FRONTEND_URL must name the storefront origin in production"))
	}
	if c.Env == "production" && c.Server.PublicURL == "http://localhost"+c.Server.Addr {
		errs = append(errs, errors.New("PUBLIC_URL must be set in production"))
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go durations plus the "5d" day suffix.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("bad day count %q", s)
		}
		if days <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return d, nil
}
