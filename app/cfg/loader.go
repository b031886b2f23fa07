package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key protecting operator endpoints (optional)"`

	// Data sources
	RegistryFile string `long:"registry" env:"REGISTRY_FILE" description:"YAML file overriding the built-in competitor registry"`
	HistoryDB    string `long:"history-db" env:"HISTORY_DB" description:"SQLite file for keyword snapshot history (empty disables)"`
	NewsEndpoint string `long:"news-endpoint" env:"NEWS_ENDPOINT" default:"https://news.google.com/rss/search" description:"News search RSS endpoint"`
	JobsEndpoint string `long:"jobs-endpoint" env:"JOBS_ENDPOINT" default:"https://www.linkedin.com/jobs/search" description:"Job search page endpoint"`

	// Fetching
	UserAgent        string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" description:"User agent string for outbound requests"`
	HTTPTimeout      int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"10" description:"Outbound request timeout in seconds"`
	CloudflareBypass bool   `long:"cloudflare-bypass" env:"CLOUDFLARE_BYPASS" description:"Send browser-like headers and TLS settings on outbound requests"`
	NewsTTL          int    `long:"news-ttl" env:"NEWS_TTL" default:"3600" description:"News cache TTL in seconds"`
	JobsTTL          int    `long:"jobs-ttl" env:"JOBS_TTL" default:"3600" description:"Job postings cache TTL in seconds"`
	KeywordsTTL      int    `long:"keywords-ttl" env:"KEYWORDS_TTL" default:"3600" description:"Keyword scan cache TTL in seconds"`
	FollowersTTL     int    `long:"followers-ttl" env:"FOLLOWERS_TTL" default:"86400" description:"Follower count cache TTL in seconds"`

	// Background refresh
	RefreshSchedule string `long:"refresh-schedule" env:"REFRESH_SCHEDULE" default:"@every 1h" description:"Cron schedule for background cache refresh (empty disables)"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background refresh workers"`

	// One-shot terminal report
	Report      bool     `long:"report" description:"Print a terminal report and exit instead of serving"`
	Competitors []string `long:"competitor" description:"Competitor to include in the report (repeatable, defaults to all)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Paris" description:"Timezone for timestamps"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Cfg{
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		RegistryFile:     raw.RegistryFile,
		HistoryDB:        raw.HistoryDB,
		NewsEndpoint:     raw.NewsEndpoint,
		JobsEndpoint:     raw.JobsEndpoint,
		UserAgent:        cmp.Or(raw.UserAgent, DefaultUserAgent),
		HTTPTimeout:      seconds(raw.HTTPTimeout),
		CloudflareBypass: raw.CloudflareBypass,
		NewsTTL:          seconds(raw.NewsTTL),
		JobsTTL:          seconds(raw.JobsTTL),
		KeywordsTTL:      seconds(raw.KeywordsTTL),
		FollowersTTL:     seconds(raw.FollowersTTL),
		RefreshSchedule:  raw.RefreshSchedule,
		WorkerCount:      raw.WorkerCount,
		Report:           raw.Report,
		Competitors:      raw.Competitors,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	positiveFields := map[string]int{
		"http timeout":  raw.HTTPTimeout,
		"news ttl":      raw.NewsTTL,
		"jobs ttl":      raw.JobsTTL,
		"keywords ttl":  raw.KeywordsTTL,
		"followers ttl": raw.FollowersTTL,
		"worker count":  raw.WorkerCount,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
