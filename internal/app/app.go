package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/samg3003/wfs-fintech-hackathon/internal/alerting"
	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
	"github.com/samg3003/wfs-fintech-hackathon/internal/config"
	"github.com/samg3003/wfs-fintech-hackathon/internal/dashboard"
	"github.com/samg3003/wfs-fintech-hackathon/internal/scheduler"
	"github.com/samg3003/wfs-fintech-hackathon/internal/service"
	"github.com/samg3003/wfs-fintech-hackathon/internal/session"
	"github.com/samg3003/wfs-fintech-hackathon/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSessionStore() (*session.Store, error) {
	path := a.Config.Session.Path
	if path == "" {
		var err error
		path, err = session.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return session.NewStore(path), nil
}

func (a *App) newAPIClient(sessions *session.Store) *api.Client {
	return api.NewClient(api.Options{
		BaseURL:   a.Config.Backend.BaseURL,
		Timeout:   a.Config.Backend.RequestTimeout,
		UserAgent: a.Config.Backend.UserAgent,
	}, sessions, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	if err := storage.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Watch executes the long-running refresh and alerting loop.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	client := a.newAPIClient(sessions)
	refresher := dashboard.NewRefresher(client, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Watch.Interval,
		AlignToStart: a.Config.Watch.AlignToBucket,
		StartupDelay: a.Config.Watch.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()

	var refreshStore storage.RefreshStore
	var alertStore storage.AlertStore
	if store != nil {
		refreshStore = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, refresher, refreshStore, alertStore, notifier, a.Logger)

	a.Logger.Info().Msg("starting watch service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch service terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch service stopped")
	return nil
}

// ExportOptions hold parameters for exporting refresh history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	Alerts bool
}

// OnboardOptions configure client onboarding.
type OnboardOptions struct {
	Name         string
	RiskLabel    string
	TargetVolPct float64
}
