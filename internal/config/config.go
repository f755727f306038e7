package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains the auth-flow client configuration parameters.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Openmerce Auth Watch"`

	// BaseURL is the root of the headless auth API.
	BaseURL string `env:"AUTH_BASE_URL" envDefault:"http://localhost:8000/_allauth/app/v1"`

	Routes  Routes        `envPrefix:"ROUTE_"`
	Locale  Locale        `envPrefix:"LOCALE_"`
	Timeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// RefreshInterval is how often the demo binary re-fetches the session.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"5m"`
}

// Routes contains the navigation targets the reactor needs.
type Routes struct {
	Login          string `env:"LOGIN" envDefault:"/account/login"`
	AccountHome    string `env:"ACCOUNT_HOME" envDefault:"/account"`
	LogoutRedirect string `env:"LOGOUT_REDIRECT" envDefault:"/"`
}

// Locale contains locale-prefixing parameters for outgoing navigation.
type Locale struct {
	// Prefix is prepended to every navigated path when set (e.g. "/en-gb").
	Prefix string `env:"PREFIX"`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
