package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/shopspring/decimal"
)

const defaultConfigPath = "config/local.yaml"

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	Jaeger   string         `yaml:"jaeger" env:"JAEGER"`
	Log      LogConfig      `yaml:"log"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Redis    RedisConfig    `yaml:"redis"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Amadeus  AmadeusConfig  `yaml:"amadeus"`
	Search   SearchConfig   `yaml:"search"`
	Notify   NotifyConfig   `yaml:"notify"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port int    `yaml:"port" env:"GRPC_PORT" env-default:"44046"`
}

// RedisConfig enables the cross-run token cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ScheduleConfig.Interval of zero means a single run.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" env:"SCHEDULE_INTERVAL" env-default:"0s"`
}

type AmadeusConfig struct {
	BaseURL      string        `yaml:"base_url" env:"AMADEUS_BASE_URL" env-default:"https://test.api.amadeus.com"`
	ClientID     string        `yaml:"client_id" env:"AMADEUS_KEY"`
	ClientSecret string        `yaml:"client_secret" env:"AMADEUS_SECRET"`
	AuthTimeout  time.Duration `yaml:"auth_timeout" env:"AMADEUS_AUTH_TIMEOUT" env-default:"30s"`
	Timeout      time.Duration `yaml:"timeout" env:"AMADEUS_TIMEOUT" env-default:"40s"`
	MaxAttempts  int           `yaml:"max_attempts" env:"AMADEUS_MAX_ATTEMPTS" env-default:"4"`
	Limit        int           `yaml:"limit" env:"AMADEUS_LIMIT" env-default:"5"`
}

type SearchConfig struct {
	Origins           []string `yaml:"origins" env:"ORIGINS" env-separator:"," env-default:"AUS,IAH,DFW"`
	Destinations      []string `yaml:"destinations" env:"DEST" env-separator:"," env-default:"HND,NRT"`
	DestinationLabel  string   `yaml:"destination_label" env:"DEST_LABEL"`
	Passengers        int      `yaml:"passengers" env:"ADULTS" env-default:"1"`
	Currency          string   `yaml:"currency" env:"CURRENCY" env-default:"USD"`
	MaxPricePerPax    string   `yaml:"max_price_per_pax" env:"MAX_PRICE_PER_PAX" env-default:"5000"`
	TripLength        int      `yaml:"trip_length" env:"TRIP_LENGTH" env-default:"14"`
	DepartStart       string   `yaml:"depart_start" env:"DEPART_START"`
	DepartEnd         string   `yaml:"depart_end" env:"DEPART_END"`
	DepartWeekdays    []int    `yaml:"depart_weekdays" env:"DEPART_WEEKDAYS" env-separator:"," env-default:"4,5"`
	MaxRequestsPerRun int      `yaml:"max_requests_per_run" env:"MAX_REQUESTS_PER_RUN" env-default:"80"`
	NonStop           bool     `yaml:"non_stop" env:"NON_STOP" env-default:"false"`
}

type NotifyConfig struct {
	DiscordWebhook string        `yaml:"discord_webhook" env:"DISCORD_WEBHOOK"`
	TelegramToken  string        `yaml:"telegram_token" env:"TELEGRAM_TOKEN"`
	TelegramChat   string        `yaml:"telegram_chat" env:"TELEGRAM_CHAT"`
	TelegramURL    string        `yaml:"telegram_url" env:"TELEGRAM_URL" env-default:"https://api.telegram.org"`
	Timeout        time.Duration `yaml:"timeout" env:"NOTIFY_TIMEOUT" env-default:"30s"`
	Email          EmailConfig   `yaml:"email"`
}

// EmailConfig enables the SMTP sink when Host and To are set.
type EmailConfig struct {
	Host     string   `yaml:"host" env:"SMTP_HOST"`
	Port     int      `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string   `yaml:"username" env:"SMTP_USERNAME"`
	Password string   `yaml:"password" env:"SMTP_PASSWORD"`
	From     string   `yaml:"from" env:"SMTP_FROM"`
	To       []string `yaml:"to" env:"SMTP_TO" env-separator:","`
}

func (c GRPCConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Window resolves the departure window. Unset bounds default to
// Jan 20 .. May 10 of the year after now.
func (c SearchConfig) Window(now time.Time) (models.Window, error) {
	year := now.UTC().Year() + 1

	start, err := parseDay(c.DepartStart, time.Date(year, time.January, 20, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return models.Window{}, fmt.Errorf("%w: depart_start: %v", derr.ErrInvalidConfig, err)
	}
	end, err := parseDay(c.DepartEnd, time.Date(year, time.May, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return models.Window{}, fmt.Errorf("%w: depart_end: %v", derr.ErrInvalidConfig, err)
	}

	return models.Window{Start: start, End: end}, nil
}

// PriceCeilingPerPax parses the per-passenger cap. The value is kept as
// text in the config because cleanenv walks into struct fields such as
// decimal.Decimal instead of decoding them.
func (c SearchConfig) PriceCeilingPerPax() (decimal.Decimal, error) {
	ceiling, err := decimal.NewFromString(strings.TrimSpace(c.MaxPricePerPax))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: max_price_per_pax: %v", derr.ErrInvalidConfig, err)
	}
	if !ceiling.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: max_price_per_pax must be positive", derr.ErrInvalidConfig)
	}
	return ceiling, nil
}

// Label is the destination text used in alerts.
func (c SearchConfig) Label() string {
	if strings.TrimSpace(c.DestinationLabel) != "" {
		return strings.TrimSpace(c.DestinationLabel)
	}
	return strings.Join(normalizeCodes(c.Destinations), "/")
}

// Space builds the search space walked by one run.
func (c SearchConfig) Space(now time.Time) (models.SearchSpace, error) {
	window, err := c.Window(now)
	if err != nil {
		return models.SearchSpace{}, err
	}

	return models.SearchSpace{
		Origins:      normalizeCodes(c.Origins),
		Destinations: normalizeCodes(c.Destinations),
		Window:       window,
		Weekdays:     append([]int(nil), c.DepartWeekdays...),
		TripLength:   c.TripLength,
		Passengers:   c.Passengers,
	}, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Amadeus.ClientID) == "" || strings.TrimSpace(c.Amadeus.ClientSecret) == "" {
		return fmt.Errorf("%w: amadeus client id and secret are required", derr.ErrInvalidConfig)
	}

	s := c.Search
	if len(normalizeCodes(s.Origins)) == 0 {
		return fmt.Errorf("%w: at least one origin is required", derr.ErrInvalidConfig)
	}
	if len(normalizeCodes(s.Destinations)) == 0 {
		return fmt.Errorf("%w: at least one destination is required", derr.ErrInvalidConfig)
	}
	if s.Passengers <= 0 {
		return fmt.Errorf("%w: passengers must be positive", derr.ErrInvalidConfig)
	}
	if s.TripLength < 0 {
		return fmt.Errorf("%w: trip_length must not be negative", derr.ErrInvalidConfig)
	}
	if s.MaxRequestsPerRun < 0 {
		return fmt.Errorf("%w: max_requests_per_run must not be negative", derr.ErrInvalidConfig)
	}
	if _, err := s.PriceCeilingPerPax(); err != nil {
		return err
	}
	for _, wd := range s.DepartWeekdays {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("%w: depart weekday %d out of range 0..6", derr.ErrInvalidConfig, wd)
		}
	}

	window, err := s.Window(time.Now())
	if err != nil {
		return err
	}
	if window.End.Before(window.Start) {
		return fmt.Errorf("%w: depart_end is before depart_start", derr.ErrInvalidConfig)
	}

	return nil
}

func MustLoad() *Config {
	path, explicit := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}
	if !explicit {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return MustLoadFromEnv()
		}
	}
	return MustLoadByPath(path)
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exists: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read the config: " + err.Error())
	}

	return &cfg
}

func MustLoadFromEnv() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read the config from env: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath reports whether the path was given explicitly.
func fetchConfigPath() (string, bool) {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		return defaultConfigPath, false
	}

	return res, true
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			out = append(out, code)
		}
	}
	return out
}
