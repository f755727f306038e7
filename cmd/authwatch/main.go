// Command authwatch wires the full auth-flow core against a live headless
// auth API and prints the navigation commands the storefront would issue.
// Useful for poking at a backend: it fetches the session on start, then
// refreshes it periodically until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/openmerce/authflow/authstate"
	"github.com/openmerce/authflow/internal/config"
	"github.com/openmerce/authflow/navigator"
	"github.com/openmerce/authflow/session"
	"github.com/openmerce/authflow/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running authwatch: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New: %w", err)
	}
	displayAppname(cfg.AppName)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	tokens := session.NewStore()
	store := authstate.NewStore()
	router := newLogRouter(logger)

	reactor := navigator.NewReactor(router, tokens, navigator.Config{
		LoginPath:          cfg.Routes.Login,
		AccountHomePath:    cfg.Routes.AccountHome,
		LogoutRedirectPath: cfg.Routes.LogoutRedirect,
	},
		navigator.WithLogger(logger),
		navigator.WithLocalizer(localePrefixer(cfg.Locale.Prefix)),
	)
	reactor.Attach(store)

	client := transport.NewClient(cfg.BaseURL, store, tokens,
		transport.WithLogger(logger),
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refreshLoop(ctx, client, cfg.RefreshInterval, logger)

	waitForStopSignal()
	logger.Info().Msg("authwatch stopped")
	return nil
}

func refreshLoop(ctx context.Context, client *transport.Client, interval time.Duration, logger zerolog.Logger) {
	fetch := func() {
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := client.Session(callCtx); err != nil {
			logger.Err(err).Msg("session fetch failed")
		}
	}

	fetch()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetch()
		}
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func localePrefixer(prefix string) navigator.Localizer {
	return func(path string) string {
		if prefix == "" {
			return path
		}
		return prefix + path
	}
}

// logRouter satisfies navigator.Router by logging where the storefront
// would navigate and remembering it as the current route.
type logRouter struct {
	mu      sync.Mutex
	current navigator.Route
	log     zerolog.Logger
}

func newLogRouter(log zerolog.Logger) *logRouter {
	return &logRouter{current: navigator.Route{Path: "/"}, log: log}
}

func (r *logRouter) CurrentRoute() navigator.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *logRouter) Navigate(path string, query url.Values) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = navigator.Route{Path: path, Query: query}
	r.log.Info().Str("path", path).Str("query", query.Encode()).Msg("navigate")
	return nil
}
