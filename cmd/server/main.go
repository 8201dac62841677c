package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/melodex/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

func (v configVar[T]) bind() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

var (
	secret = configVar[string]{
		envKey:  "SERVER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to sign and verify identity tokens",
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Server port",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	baseUrl = configVar[string]{
		envKey:       "SERVER_BASE_URL",
		flagKey:      "base-url",
		defaultValue: "http://localhost:8080",
		usage:        "Public base url used in invite links",
	}
	wsUrl = configVar[string]{
		envKey:  "SERVER_WS_URL",
		flagKey: "ws-url",
		usage:   "Public websocket url advertised to clients (derived from base-url when empty)",
	}
	dbDriver = configVar[string]{
		envKey:       "DB_DRIVER",
		flagKey:      "db-driver",
		defaultValue: "sqlite",
		usage:        "Database driver: postgres or sqlite",
	}
	databaseUrl = configVar[string]{
		envKey:       "DATABASE_URL",
		flagKey:      "database-url",
		defaultValue: "file:melodex.db",
		usage:        "Database connection string",
	}
	migrate = configVar[bool]{
		envKey:       "DB_MIGRATE",
		flagKey:      "migrate",
		defaultValue: true,
		usage:        "Apply database migrations on start",
	}
	redisHost = configVar[string]{
		envKey:  "REDIS_HOST",
		flagKey: "redis-host",
		usage:   "Redis host (single-node in-memory hub when empty)",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
	playerTTL = configVar[time.Duration]{
		envKey:       "PLAYER_TTL",
		flagKey:      "player-ttl",
		defaultValue: 24 * time.Hour,
		usage:        "How long an idle room's playback state is kept in redis",
	}
	youtubeApiKey = configVar[string]{
		envKey:  "YOUTUBE_API_KEY",
		flagKey: "youtube-api-key",
		usage:   "YouTube Data API key, enables track durations",
	}
	metadataTimeout = configVar[time.Duration]{
		envKey:       "METADATA_TIMEOUT",
		flagKey:      "metadata-timeout",
		defaultValue: 5 * time.Second,
		usage:        "Timeout of a track metadata lookup",
	}
	heartbeatInterval = configVar[time.Duration]{
		envKey:       "HEARTBEAT_INTERVAL",
		flagKey:      "heartbeat-interval",
		defaultValue: time.Second,
		usage:        "Playback heartbeat interval advertised to room creators",
	}
	playlistLimit = configVar[int]{
		envKey:       "SERVER_PLAYLIST_LIMIT",
		flagKey:      "playlist-limit",
		defaultValue: 100,
		usage:        "Maximum number of unplayed tracks in a room",
	}
)

func loadAppConfig() *app.AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	pflag.String(secret.flagKey, secret.defaultValue, secret.usage)
	pflag.String(host.flagKey, host.defaultValue, host.usage)
	pflag.Int(port.flagKey, port.defaultValue, port.usage)
	pflag.String(logLevel.flagKey, logLevel.defaultValue, logLevel.usage)
	pflag.String(baseUrl.flagKey, baseUrl.defaultValue, baseUrl.usage)
	pflag.String(wsUrl.flagKey, wsUrl.defaultValue, wsUrl.usage)
	pflag.String(dbDriver.flagKey, dbDriver.defaultValue, dbDriver.usage)
	pflag.String(databaseUrl.flagKey, databaseUrl.defaultValue, databaseUrl.usage)
	pflag.Bool(migrate.flagKey, migrate.defaultValue, migrate.usage)
	pflag.String(redisHost.flagKey, redisHost.defaultValue, redisHost.usage)
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, redisPort.usage)
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, redisPassword.usage)
	pflag.Duration(playerTTL.flagKey, playerTTL.defaultValue, playerTTL.usage)
	pflag.String(youtubeApiKey.flagKey, youtubeApiKey.defaultValue, youtubeApiKey.usage)
	pflag.Duration(metadataTimeout.flagKey, metadataTimeout.defaultValue, metadataTimeout.usage)
	pflag.Duration(heartbeatInterval.flagKey, heartbeatInterval.defaultValue, heartbeatInterval.usage)
	pflag.Int(playlistLimit.flagKey, playlistLimit.defaultValue, playlistLimit.usage)
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	secret.bind()
	host.bind()
	port.bind()
	logLevel.bind()
	baseUrl.bind()
	wsUrl.bind()
	dbDriver.bind()
	databaseUrl.bind()
	migrate.bind()
	redisHost.bind()
	redisPort.bind()
	redisPassword.bind()
	playerTTL.bind()
	youtubeApiKey.bind()
	metadataTimeout.bind()
	heartbeatInterval.bind()
	playlistLimit.bind()

	return &app.AppConfig{
		Secret:            viper.GetString(secret.flagKey),
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		BaseUrl:           viper.GetString(baseUrl.flagKey),
		WsUrl:             viper.GetString(wsUrl.flagKey),
		DBDriver:          viper.GetString(dbDriver.flagKey),
		DatabaseUrl:       viper.GetString(databaseUrl.flagKey),
		Migrate:           viper.GetBool(migrate.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
		PlayerTTL:         viper.GetDuration(playerTTL.flagKey),
		YoutubeApiKey:     viper.GetString(youtubeApiKey.flagKey),
		MetadataTimeout:   viper.GetDuration(metadataTimeout.flagKey),
		HeartbeatInterval: viper.GetDuration(heartbeatInterval.flagKey),
		PlaylistLimit:     viper.GetInt(playlistLimit.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
