package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"colornamer/internal/clue"
	"colornamer/internal/httpapi"
	"colornamer/internal/hub"
	"colornamer/internal/store"
)

type config struct {
	bind           string
	port           int
	storeBackend   string
	redisURL       string
	postgresDSN    string
	playerTimeout  time.Duration
	sessionTimeout time.Duration
	sweepInterval  time.Duration
}

func (c *config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storeBackend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend: %q (expected memory, redis or postgres)", c.storeBackend)
	}
	return nil
}

func main() {
	_ = godotenv.Load()
	cfg := &config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("COLORNAMER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "colornamer-server",
		Short:         "Backend for the color-clue party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: COLORNAMER_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: COLORNAMER_PORT)")
	fs.StringVar(&cfg.storeBackend, "store", "memory", "session store backend: memory, redis or postgres (env: COLORNAMER_STORE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "redis://localhost:6379", "redis connection url (env: COLORNAMER_REDIS_URL)")
	fs.StringVar(&cfg.postgresDSN, "postgres-dsn", "", "postgres dsn (env: COLORNAMER_POSTGRES_DSN)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 2*time.Minute, "silence before a connected player is marked disconnected (env: COLORNAMER_PLAYER_TIMEOUT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 30*time.Minute, "inactivity before an abandoned session is removed (env: COLORNAMER_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", 30*time.Second, "how often idle sweeps run (env: COLORNAMER_SWEEP_INTERVAL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	return cmd
}

// clueValidator adapts the clue package to the lobby's collaborator contract.
type clueValidator struct{}

func (clueValidator) Validate(text string) error { return clue.Validate(text) }

func run(ctx context.Context, cfg *config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, hub.Options{
		Store:          st,
		Validator:      clueValidator{},
		Logger:         logger,
		PlayerTimeout:  cfg.playerTimeout,
		SessionTimeout: cfg.sessionTimeout,
	})

	sweeper := cron.New()
	_, err = sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.sweepInterval), func() {
		h.Inbox() <- hub.SweepAll{Now: time.Now().UnixMilli()}
	})
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           httpapi.SetupRoutes(h, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.storeBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildStore(ctx context.Context, cfg *config) (store.Store, error) {
	switch cfg.storeBackend {
	case "redis":
		opts, err := redis.ParseURL(cfg.redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return store.NewRedis(rdb), nil

	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.postgresDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store.NewPostgres(db)

	default:
		return store.NewMemory(), nil
	}
}
