package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	AdminID  int64  `envconfig:"ADMIN_ID"` // receives the start-up notice; 0 disables it
	DBPath   string `envconfig:"DB_PATH" default:"./data/namaz.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"` // healthz

	TimingsURL       string `envconfig:"TIMINGS_URL" default:"https://api.aladhan.com/v1"`
	TimingsMethod    int    `envconfig:"TIMINGS_METHOD" default:"3"` // Muslim World League
	TimingsRPM       int    `envconfig:"TIMINGS_RPM" default:"600"`
	TimingsCacheSize int    `envconfig:"TIMINGS_CACHE_SIZE" default:"4096"`

	GeocodeURL   string `envconfig:"GEOCODE_URL" default:"https://api.tomtom.com"`
	TomTomAPIKey string `envconfig:"TOMTOM_API_KEY"`

	NotifyInterval   time.Duration `envconfig:"NOTIFY_INTERVAL" default:"20s"`
	RolloverInterval time.Duration `envconfig:"ROLLOVER_INTERVAL" default:"1m"`
	CallTimeout      time.Duration `envconfig:"CALL_TIMEOUT" default:"10s"`

	DefaultCity      string  `envconfig:"DEFAULT_CITY" default:"Moscow, Central Federal District, Russia"`
	DefaultLat       float64 `envconfig:"DEFAULT_LAT" default:"55.7504461"`
	DefaultLon       float64 `envconfig:"DEFAULT_LON" default:"37.6174943"`
	DefaultUTCOffset int     `envconfig:"DEFAULT_UTC_OFFSET" default:"3"`
}

// Load reads an optional .env file and then environment variables into Config.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
