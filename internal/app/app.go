// Package app wires all jielong subsystems into a running application.
//
// The App struct owns the full lifecycle: New loads the vocabulary and
// connects every subsystem, Run serves until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStatsStore,
// WithScheduler, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/jielong/internal/chain"
	"github.com/MrWong99/jielong/internal/config"
	"github.com/MrWong99/jielong/internal/console"
	"github.com/MrWong99/jielong/internal/discord"
	"github.com/MrWong99/jielong/internal/discord/commands"
	"github.com/MrWong99/jielong/internal/health"
	"github.com/MrWong99/jielong/internal/lexicon"
	"github.com/MrWong99/jielong/internal/normalize"
	"github.com/MrWong99/jielong/internal/observe"
	"github.com/MrWong99/jielong/internal/resilience"
	"github.com/MrWong99/jielong/pkg/stats"
	"github.com/MrWong99/jielong/pkg/stats/postgres"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg        *config.Config
	configPath string
	level      *slog.LevelVar
	metrics    *observe.Metrics
	provider   *observe.Provider
	scheduler  chain.Scheduler

	// Subsystems, initialised in New and torn down in Shutdown.
	index    *lexicon.Index
	norm     *normalize.Normalizer
	engine   *chain.Engine
	store    stats.Store
	breaker  *resilience.Breaker
	recorder *Recorder
	bot      *discord.Bot
	watcher  *config.Watcher
	server   *http.Server
	health   *health.Handler

	consoleIn  io.Reader
	consoleOut io.Writer
	console    *console.Console

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithStatsStore injects a statistics store instead of creating one from
// config.
func WithStatsStore(s stats.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithProvider exposes the provider's Prometheus registry on /metrics.
func WithProvider(p *observe.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithConfigPath enables hot reload of the file at path.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithLogLevel lets hot reload change the log level.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithScheduler replaces the engine's expiry scheduler.
func WithScheduler(s chain.Scheduler) Option {
	return func(a *App) { a.scheduler = s }
}

// WithConsole plays on a terminal instead of Discord.
func WithConsole(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.consoleIn, a.consoleOut = in, out }
}

// New creates an App by wiring all subsystems together.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// 1. Vocabulary.
	var err error
	a.index, a.norm, err = BuildIndex(ctx, cfg.Data, a.metrics)
	if err != nil {
		return nil, err
	}

	// 2. Statistics.
	if err := a.initStats(ctx); err != nil {
		return nil, fmt.Errorf("app: init stats: %w", err)
	}

	// 3. Chat adapter. The bot connects before the engine exists because
	// the engine announces timeouts through it.
	var notifier chain.Notifier
	mention := func(id string) string { return id }
	switch {
	case a.consoleOut != nil:
		// The console is created with the engine below; sessions, and with
		// them announcements, cannot exist before that.
		notifier = chain.NotifierFunc(func(ctx context.Context, channel, text string) {
			a.console.Notify(ctx, channel, text)
		})
	case cfg.Discord.Token != "":
		a.bot, err = discord.New(ctx, discord.Config{
			Token:           cfg.Discord.Token,
			GuildID:         cfg.Discord.GuildID,
			AdminRoleID:     cfg.Discord.AdminRoleID,
			ModeratorRoleID: cfg.Discord.ModeratorRoleID,
			ListenMessages:  cfg.Discord.ListenMessages,
		})
		if err != nil {
			return nil, fmt.Errorf("app: init discord: %w", err)
		}
		notifier = discord.NewNotifier(a.bot.Session())
		mention = discord.Mention
		slog.Info("discord bot connected", "guild_id", cfg.Discord.GuildID)
	default:
		slog.Warn("no chat adapter configured; set discord.token or run with -console")
	}

	// 4. Engine.
	suggester := lexicon.NewSuggester()
	engineOpts := []chain.Option{
		chain.WithSettings(GameSettings(cfg.Game)),
		chain.WithObserver(a.recorder),
		chain.WithMetrics(a.metrics),
		chain.WithMentioner(mention),
		chain.WithSuggester(func(word string) (string, bool) {
			s, _, ok := suggester.Suggest(a.index, word)
			return s, ok
		}),
	}
	if notifier != nil {
		engineOpts = append(engineOpts, chain.WithNotifier(notifier))
	}
	if a.scheduler != nil {
		engineOpts = append(engineOpts, chain.WithScheduler(a.scheduler))
	}
	a.engine = chain.New(a.index, engineOpts...)

	if a.consoleOut != nil {
		a.console = console.New(a.engine, a.norm, a.consoleOut)
	}
	if a.bot != nil {
		jc := commands.NewJielongCommands(a.engine, a.index, a.norm, a.store, a.bot.Permissions())
		jc.Register(a.bot.Router())
		if cfg.Discord.ListenMessages {
			a.bot.OnMessage(jc.HandleMessage)
		}
	}

	// 5. HTTP endpoints.
	a.initHTTP()

	// 6. Config hot reload.
	if a.configPath != "" {
		a.watcher, err = config.NewWatcher(a.configPath, a.reload)
		if err != nil {
			return nil, fmt.Errorf("app: init watcher: %w", err)
		}
	}

	return a, nil
}

// initStats sets up the statistics store and the background recorder.
func (a *App) initStats(ctx context.Context) error {
	sc := a.cfg.Stats
	if a.store == nil {
		if sc.PostgresDSN == "" {
			a.store = stats.NewMemStore()
		} else {
			pg, err := postgres.NewStore(ctx, sc.PostgresDSN)
			if err != nil {
				return err
			}
			a.store = pg
			a.closers = append(a.closers, func() error { pg.Close(); return nil })
		}
	}

	a.breaker = resilience.New(resilience.Config{
		Name:        "stats",
		MaxFailures: sc.MaxFailures,
		Cooldown:    sc.Cooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from, "to", to)
		},
	})
	a.recorder = NewRecorder(a.store, sc.QueueSize, a.breaker, a.metrics)
	return nil
}

// pinger is implemented by stores with a connectivity check.
type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) initHTTP() {
	opts := []health.Option{
		health.WithChecker("vocabulary", func(context.Context) error {
			if a.index.Len() == 0 {
				return errors.New("vocabulary is empty")
			}
			return nil
		}),
		health.WithChecker("stats", func(ctx context.Context) error {
			if a.breaker.State() == resilience.StateOpen {
				return resilience.ErrOpen
			}
			if p, ok := a.store.(pinger); ok {
				return p.Ping(ctx)
			}
			return nil
		}),
		health.WithGauge("vocabulary", a.index.Len),
		health.WithGauge("active_sessions", a.engine.Registry().Active),
		health.WithGauge("stats_pending", a.recorder.Pending),
	}
	a.health = health.New(opts...)

	if a.cfg.Server.ListenAddr == "" {
		return
	}
	mux := http.NewServeMux()
	a.health.Register(mux)
	if a.provider != nil {
		mux.Handle("/metrics", a.provider.MetricsHandler())
	}
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// reload applies the hot-reloadable parts of a changed config.
func (a *App) reload(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.GameChanged {
		a.engine.SetSettings(GameSettings(new.Game))
		slog.Info("game settings reloaded")
	}
	for _, section := range d.RestartRequired {
		slog.Warn("config change requires a restart", "section", section)
	}
}

// Engine returns the chain engine.
func (a *App) Engine() *chain.Engine {
	return a.engine
}

// Index returns the vocabulary index.
func (a *App) Index() *lexicon.Index {
	return a.index
}

// Health returns the probe handler.
func (a *App) Health() *health.Handler {
	return a.health
}

// Run serves until ctx is cancelled. In console mode it also returns when
// the console input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.recorder.Run(ctx) })

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(ctx) })
	}
	if a.server != nil {
		g.Go(func() error {
			slog.Info("http server listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return a.server.Shutdown(shutdownCtx)
		})
	}
	if a.bot != nil {
		g.Go(func() error { return a.bot.Run(ctx) })
	}
	if a.console != nil {
		g.Go(func() error {
			defer cancel()
			return a.console.Run(ctx, a.consoleIn)
		})
	}

	return g.Wait()
}

// Shutdown ends every live session, flushes pending statistics and closes
// the subsystems. If ctx expires first, remaining closers are skipped and
// the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "active_sessions", a.engine.Registry().Active())

		a.engine.Close(ctx)

		if a.bot != nil {
			if err := a.bot.Close(); err != nil {
				slog.Warn("discord bot close error", "err", err)
			}
		}
		if err := a.recorder.Close(ctx); err != nil {
			slog.Warn("stats flush incomplete", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
