package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/giftwish/giftwish/auth"
	fakesessionrepo "github.com/giftwish/giftwish/auth/repofakes"
	"github.com/giftwish/giftwish/currency"
	"github.com/giftwish/giftwish/email"
	"github.com/giftwish/giftwish/gifts"
	fakegiftrepo "github.com/giftwish/giftwish/gifts/repofakes"
	"github.com/giftwish/giftwish/internal/config"
	"github.com/giftwish/giftwish/internal/obs"
	"github.com/giftwish/giftwish/permissions"
	"github.com/giftwish/giftwish/server"
	"github.com/giftwish/giftwish/store/pg"
	"github.com/giftwish/giftwish/tags"
	faketagrepo "github.com/giftwish/giftwish/tags/repofakes"
	"github.com/giftwish/giftwish/token"
)

const cleanupInterval = time.Hour

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	displayAppname(cfg.GetAppName())

	logger := obs.NewLogger(cfg.GetAppName(), cfg.GetEnv())
	obs.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:              ":" + cfg.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	cancel()
	return shutdown(httpServer)
}

// buildServer wires the full dependency graph. Without DATABASE_URL the
// service runs on in-memory repos, which is enough for local development.
func buildServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	keyPair, err := loadKeyPair(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load key pair: %w", err)
	}
	signer, err := token.NewKeyPairSigner(keyPair)
	if err != nil {
		return nil, nil, fmt.Errorf("token.NewKeyPairSigner: %w", err)
	}
	tokenManager, err := token.NewManager(signer, cfg.GetTokenIssuer(),
		token.WithTokenExpiry(cfg.GetAccessTokenTTL(), cfg.GetRefreshTokenTTL()))
	if err != nil {
		return nil, nil, fmt.Errorf("token.NewManager: %w", err)
	}

	var (
		sessionRepo     auth.SessionRepo
		giftRepo        gifts.Repo
		reservationRepo gifts.ReservationRepo
		tagRepo         tags.Repo
		serverOptions   []server.ServerOption
		cleanup         = func() {}
	)

	if dsn := cfg.GetDatabaseURL(); dsn != "" {
		store, err := pg.Open(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("pg.Open: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("store.EnsureSchema: %w", err)
		}
		sessionRepo = pg.NewSessionRepo(store)
		giftRepo = pg.NewGiftRepo(store)
		reservationRepo = pg.NewReservationRepo(store)
		tagRepo = pg.NewTagRepo(store)
		serverOptions = append(serverOptions, server.WithDBPing(store.Ping))
		cleanup = func() { _ = store.Close() }
		logger.Info().Msg("using postgres storage")
	} else {
		sessionRepo = fakesessionrepo.NewFakeSessionRepo()
		giftRepo = fakegiftrepo.NewFakeGiftRepo()
		reservationRepo = fakegiftrepo.NewFakeReservationRepo()
		tagRepo = faketagrepo.NewFakeTagRepo()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory storage")
	}

	mailer := buildMailer(cfg, logger)

	authService, err := auth.NewService(
		auth.Repos{Sessions: sessionRepo},
		auth.NewCodeStore(),
		tokenManager,
		permissions.NewResolver(cfg.GetOwnerEmail()),
		mailer,
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("auth.NewService: %w", err)
	}

	currencies, err := buildCurrencies(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	giftService, err := gifts.NewService(
		gifts.Repos{Gifts: giftRepo, Reservations: reservationRepo},
		currencies,
		gifts.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("gifts.NewService: %w", err)
	}

	tagService, err := tags.NewService(tagRepo)
	if err != nil {
		return nil, nil, fmt.Errorf("tags.NewService: %w", err)
	}

	go runCleanupLoop(ctx, logger, authService, giftService)

	srv, err := server.New(cfg, server.Services{
		Auth:  authService,
		Gifts: giftService,
		Tags:  tagService,
	}, logger, serverOptions...)
	if err != nil {
		return nil, nil, fmt.Errorf("server.New: %w", err)
	}
	return srv, cleanup, nil
}

// loadKeyPair reads the configured PEM files, or generates an ephemeral pair
// for development when none are configured.
func loadKeyPair(cfg config.Config, logger zerolog.Logger) (*token.KeyPair, error) {
	if cfg.GetPrivateKeyPath() != "" && cfg.GetPublicKeyPath() != "" {
		return token.LoadKeyPairFromFiles("primary", cfg.GetPrivateKeyPath(), cfg.GetPublicKeyPath())
	}
	if cfg.IsProduction() {
		return nil, errors.New("production requires JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH")
	}
	logger.Warn().Msg("no signing keys configured, generating an ephemeral pair; tokens will not survive restarts")
	return token.GenerateRSAKeyPair("ephemeral", 2048)
}

func buildMailer(cfg config.Config, logger zerolog.Logger) email.Sender {
	if cfg.GetMailEndpoint() != "" {
		mailer, err := email.NewPostboxSender(
			cfg.GetMailEndpoint(), cfg.GetMailRegion(),
			cfg.GetMailAccessKey(), cfg.GetMailSecretKey(), cfg.GetMailFrom(),
		)
		if err == nil {
			return mailer
		}
		logger.Warn().Err(err).Msg("mail sender misconfigured, falling back to log sender")
	}
	return email.NewLogSender(logger)
}

func buildCurrencies(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*currency.Service, error) {
	var provider currency.RateProvider
	if cfg.GetRatesEndpoint() != "" {
		httpProvider, err := currency.NewHTTPProvider(cfg.GetRatesEndpoint(), cfg.GetBaseCurrency(), cfg.GetRatesAPIKey(), nil)
		if err != nil {
			return nil, fmt.Errorf("currency.NewHTTPProvider: %w", err)
		}
		provider = httpProvider
	} else {
		provider = staticRateProvider{base: cfg.GetBaseCurrency()}
		logger.Warn().Msg("RATES_ENDPOINT not set, currency conversion limited to the base currency")
	}

	currencies, err := currency.NewService(provider, logger)
	if err != nil {
		return nil, fmt.Errorf("currency.NewService: %w", err)
	}
	if err := currencies.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial rate fetch failed, conversions unavailable until the next refresh")
	}
	go currencies.KeepFresh(ctx, cfg.GetRatesRefreshInterval())
	return currencies, nil
}

// staticRateProvider quotes only the base currency, keeping the conversion
// path alive when no rate API is configured.
type staticRateProvider struct {
	base string
}

func (p staticRateProvider) Fetch(context.Context) (currency.Rates, error) {
	return currency.Rates{
		Base:      p.base,
		Values:    map[string]float64{p.base: 1},
		FetchedAt: time.Now(),
	}, nil
}

func runCleanupLoop(ctx context.Context, logger zerolog.Logger, authService *auth.Service, giftService *gifts.Service) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed, err := authService.CleanupExpiredSessions(ctx); err != nil {
				logger.Warn().Err(err).Msg("session cleanup failed")
			} else if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("expired sessions cleaned up")
			}
			if removed, err := giftService.CleanupExpiredReservations(ctx); err != nil {
				logger.Warn().Err(err).Msg("reservation cleanup failed")
			} else if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("expired reservations cleaned up")
			}
		}
	}
}

func listenAndServe(server *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
