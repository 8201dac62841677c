package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/melodex/server/internal/controller"
	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/hub/redisfabric"
	"github.com/melodex/server/internal/repository/player"
	"github.com/melodex/server/internal/repository/player/inmemory"
	playerRedis "github.com/melodex/server/internal/repository/player/redis"
	"github.com/melodex/server/internal/repository/track/sqldb"
	"github.com/melodex/server/internal/service"
	"github.com/melodex/server/pkg/ctxlogger"
	"github.com/melodex/server/pkg/mediadata"
	"github.com/melodex/server/pkg/redisclient"
)

const fabricBuffer = 1024

type AppConfig struct {
	Secret            string        `json:"-"`
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	LogLevel          string        `json:"log_level"`
	BaseUrl           string        `json:"base_url"`
	WsUrl             string        `json:"ws_url"`
	DBDriver          string        `json:"db_driver"`
	DatabaseUrl       string        `json:"-"`
	Migrate           bool          `json:"migrate"`
	RedisHost         string        `json:"redis_host"`
	RedisPort         int           `json:"redis_port"`
	RedisPassword     string        `json:"-"`
	PlayerTTL         time.Duration `json:"player_ttl"`
	YoutubeApiKey     string        `json:"-"`
	MetadataTimeout   time.Duration `json:"metadata_timeout"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	PlaylistLimit     int           `json:"playlist_limit"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required),
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, validation.Required),
		validation.Field(&cfg.BaseUrl, validation.Required, is.URL),
		validation.Field(&cfg.WsUrl, is.URL),
		validation.Field(&cfg.DBDriver, validation.Required, validation.In(string(sqldb.Postgres), string(sqldb.SQLite))),
		validation.Field(&cfg.DatabaseUrl, validation.Required),
		validation.Field(&cfg.RedisPort, validation.When(cfg.RedisHost != "", validation.Min(1), validation.Max(65535))),
		validation.Field(&cfg.PlayerTTL, validation.Min(time.Minute)),
		validation.Field(&cfg.MetadataTimeout, validation.Min(time.Second)),
		validation.Field(&cfg.HeartbeatInterval, validation.Min(100*time.Millisecond)),
		validation.Field(&cfg.PlaylistLimit, validation.Min(1)),
	)
}

// wsUrl falls back to the websocket endpoint under base-url.
func (cfg *AppConfig) wsUrl() string {
	if cfg.WsUrl != "" {
		return cfg.WsUrl
	}

	base := strings.TrimSuffix(cfg.BaseUrl, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	return base + "/api/v1/ws"
}

type metadataClient interface {
	Get(ctx context.Context, rawUrl string) (*mediadata.Metadata, error)
}

type playerStore interface {
	GetPlayer(ctx context.Context, roomId string) (player.Player, error)
	UpdatePlayerState(context.Context, *player.UpdatePlayerStateParams) error
	UpdatePlayerMuted(context.Context, *player.UpdatePlayerMutedParams) error
	SetCurrentTrack(context.Context, *player.SetCurrentTrackParams) error
}

// App is the wired server: storage, hub and HTTP handler.
type App struct {
	handler http.Handler
	hub     *hub.Hub
	logger  *slog.Logger
	closers []func() error
}

func New(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (*App, error) {
	metadata := mediadata.New(&mediadata.Config{
		YoutubeApiKey: cfg.YoutubeApiKey,
		Timeout:       cfg.MetadataTimeout,
	})

	return newApp(ctx, cfg, logger, metadata)
}

func newApp(ctx context.Context, cfg *AppConfig, logger *slog.Logger, metadata metadataClient) (*App, error) {
	a := &App{logger: logger}

	dialect, err := sqldb.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	db, err := sqldb.Open(ctx, dialect, cfg.DatabaseUrl)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	if cfg.Migrate {
		if err := sqldb.Migrate(db, dialect); err != nil {
			a.Close()
			return nil, err
		}
		logger.InfoContext(ctx, "database migrated", "driver", dialect)
	}

	var (
		fabric     hub.Fabric
		playerRepo playerStore
	)
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.closers = append(a.closers, rc.Close)

		fabric = redisfabric.New(rc, logger)
		playerRepo = playerRedis.NewRepo(rc, cfg.PlayerTTL, logger)
	} else {
		logger.WarnContext(ctx, "redis is not configured, running a single-node hub")
		fabric = hub.NewMemoryFabric(fabricBuffer)
		playerRepo = inmemory.NewRepo(logger)
	}

	a.hub = hub.New(fabric, logger)

	roomService := service.New(sqldb.NewRepo(db, dialect, logger), playerRepo, metadata, &service.Config{
		Secret:            cfg.Secret,
		BaseUrl:           strings.TrimSuffix(cfg.BaseUrl, "/"),
		WsUrl:             cfg.wsUrl(),
		PlaylistLimit:     cfg.PlaylistLimit,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	a.handler = controller.NewController(roomService, a.hub, logger).GetMux()

	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// RunHub runs the room hub until ctx is done.
func (a *App) RunHub(ctx context.Context) error {
	return a.hub.Run(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	return errors.Join(errs...)
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: a.Handler()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	hubCtx, hubStop := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := a.RunHub(hubCtx); err != nil {
			logger.ErrorContext(hubCtx, "hub stopped", "error", err)
		}
	}()
	defer func() {
		hubStop()
		<-hubDone
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		select {
		case <-sig:
		case <-hubDone:
		case <-serverCtx.Done():
			return
		}

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
