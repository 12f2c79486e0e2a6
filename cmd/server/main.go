package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/val-x/Val-X-Site-sub002/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
	usage        string
}

var (
	secret = configVar[string]{
		envKey:  "PLAYER_SECRET",
		flagKey: "secret",
		usage:   "Secret used to sign session tokens",
	}
	port = configVar[int]{
		envKey:       "PLAYER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
		usage:        "Server port",
	}
	host = configVar[string]{
		envKey:       "PLAYER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
		usage:        "Server host",
	}
	logLevel = configVar[string]{
		envKey:       "PLAYER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
		usage:        "Logging level",
	}
	store = configVar[string]{
		envKey:       "PLAYER_STORE",
		flagKey:      "store",
		defaultValue: app.StoreMemory,
		usage:        "Library store: memory, redis or sqlite",
	}
	sqlitePath = configVar[string]{
		envKey:       "PLAYER_SQLITE_PATH",
		flagKey:      "sqlite-path",
		defaultValue: "/var/lib/player/library.db",
		usage:        "Path of the sqlite library database",
	}
	leaseTTL = configVar[time.Duration]{
		envKey:       "PLAYER_LEASE_TTL",
		flagKey:      "lease-ttl",
		defaultValue: 10 * time.Minute,
		usage:        "How long a library scope stays held without activity",
	}
	maxSessions = configVar[int]{
		envKey:       "PLAYER_MAX_SESSIONS",
		flagKey:      "max-sessions",
		defaultValue: 1000,
		usage:        "Maximum number of concurrent sessions",
	}
	idleTimeout = configVar[time.Duration]{
		envKey:       "PLAYER_SESSION_IDLE_TIMEOUT",
		flagKey:      "session-idle-timeout",
		defaultValue: 10 * time.Minute,
		usage:        "Idle time after which a session without connections is removed",
	}
	reapInterval = configVar[time.Duration]{
		envKey:       "PLAYER_REAP_INTERVAL",
		flagKey:      "reap-interval",
		defaultValue: 30 * time.Second,
		usage:        "How often idle sessions are looked for",
	}
	tickInterval = configVar[time.Duration]{
		envKey:       "PLAYER_TICK_INTERVAL",
		flagKey:      "tick-interval",
		defaultValue: 250 * time.Millisecond,
		usage:        "Session tick driving analytics, chapters and chrome visibility",
	}
	chromeHideDelay = configVar[time.Duration]{
		envKey:       "PLAYER_CHROME_HIDE_DELAY",
		flagKey:      "chrome-hide-delay",
		defaultValue: 3 * time.Second,
		usage:        "Inactivity before controls hide during playback",
	}
	defaultQuality = configVar[string]{
		envKey:  "PLAYER_DEFAULT_QUALITY",
		flagKey: "default-quality",
		usage:   "Quality tier selected before the first network sample",
	}
	ffmpegPath = configVar[string]{
		envKey:       "PLAYER_FFMPEG_PATH",
		flagKey:      "ffmpeg-path",
		defaultValue: "ffmpeg",
		usage:        "ffmpeg binary used for scrub previews, empty disables them",
	}
	previewWidth = configVar[int]{
		envKey:       "PLAYER_PREVIEW_WIDTH",
		flagKey:      "preview-width",
		defaultValue: 160,
		usage:        "Width of scrub preview thumbnails",
	}
	createRateLimit = configVar[int]{
		envKey:       "PLAYER_CREATE_RATE_LIMIT",
		flagKey:      "create-rate-limit",
		defaultValue: 30,
		usage:        "Sessions one address may create per minute",
	}
	messageRate = configVar[float64]{
		envKey:       "PLAYER_MESSAGE_RATE",
		flagKey:      "message-rate",
		defaultValue: 60,
		usage:        "Inbound websocket messages per second per connection",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
		usage:        "Redis port",
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
		usage:        "Redis host",
	}
	redisPassword = configVar[string]{
		envKey:  "REDIS_PASSWORD",
		flagKey: "redis-password",
		usage:   "Redis password",
	}
)

func (v configVar[T]) bind() {
	switch d := any(v.defaultValue).(type) {
	case string:
		pflag.String(v.flagKey, d, v.usage)
	case int:
		pflag.Int(v.flagKey, d, v.usage)
	case float64:
		pflag.Float64(v.flagKey, d, v.usage)
	case time.Duration:
		pflag.Duration(v.flagKey, d, v.usage)
	}
}

func (v configVar[T]) env() {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadAppConfig() *app.AppConfig {
	vars := []interface {
		bind()
		env()
	}{
		secret, port, host, logLevel, store, sqlitePath, leaseTTL, maxSessions, idleTimeout,
		reapInterval, tickInterval, chromeHideDelay, defaultQuality, ffmpegPath, previewWidth,
		createRateLimit, messageRate, redisPort, redisHost, redisPassword,
	}

	for _, v := range vars {
		v.bind()
	}
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)
	for _, v := range vars {
		v.env()
	}

	config := &app.AppConfig{
		Secret:          viper.GetString(secret.flagKey),
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		Store:           viper.GetString(store.flagKey),
		SQLitePath:      viper.GetString(sqlitePath.flagKey),
		LeaseTTL:        viper.GetDuration(leaseTTL.flagKey),
		RedisPort:       viper.GetInt(redisPort.flagKey),
		RedisHost:       viper.GetString(redisHost.flagKey),
		RedisPassword:   viper.GetString(redisPassword.flagKey),
		MaxSessions:     viper.GetInt(maxSessions.flagKey),
		IdleTimeout:     viper.GetDuration(idleTimeout.flagKey),
		ReapInterval:    viper.GetDuration(reapInterval.flagKey),
		TickInterval:    viper.GetDuration(tickInterval.flagKey),
		ChromeHideDelay: viper.GetDuration(chromeHideDelay.flagKey),
		DefaultQuality:  viper.GetString(defaultQuality.flagKey),
		FFmpegPath:      viper.GetString(ffmpegPath.flagKey),
		PreviewWidth:    viper.GetInt(previewWidth.flagKey),
		CreateRateLimit: viper.GetInt(createRateLimit.flagKey),
		MessageRate:     viper.GetFloat64(messageRate.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
