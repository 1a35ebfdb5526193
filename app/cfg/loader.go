package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath              string `long:"db-path" env:"DB_PATH" default:"./data/rent-comb.db" description:"SQLite database file"`
	NeighborhoodMapPath string `long:"neighborhood-map" env:"NEIGHBORHOOD_MAP" default:"./data/neighborhood_map.json" description:"Curated neighborhood map (JSON)"`
	DiscoveredZonesPath string `long:"discovered-zones" env:"DISCOVERED_ZONES" default:"./data/discovered_neighborhoods.json" description:"Unresolved zones awaiting curation (JSON)"`

	// Crawling
	PortalsDir         string   `long:"portals-dir" env:"PORTALS_DIR" default:"./portals" description:"Directory containing portal configuration files"`
	WorkerCount        int      `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers for crawl tasks"`
	SchedulerInterval  int      `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	ReapInterval       int      `long:"reap-interval" env:"REAP_INTERVAL" default:"86400" description:"Staleness sweep interval in seconds"`
	RetentionDays      int      `long:"retention-days" env:"RETENTION_DAYS" default:"3" description:"Days a listing may go unobserved before it is archived"`
	MaxPrice           float64  `long:"max-price" env:"MAX_PRICE" default:"5000000" description:"Price ceiling for included listings"`
	TargetCities       []string `long:"target-city" env:"TARGET_CITIES" env-delim:"," description:"Cities served by the catalog (repeatable)"`
	UnchangedThreshold int      `long:"unchanged-threshold" env:"UNCHANGED_THRESHOLD" default:"10" description:"Consecutive unchanged listings that end a partition crawl"`
	MaxPages           int      `long:"max-pages" env:"MAX_PAGES" default:"50" description:"Hard page ceiling per partition"`
	ChromePath         string   `long:"chrome-path" env:"CHROME_PATH" description:"Chrome/Chromium binary for browser-rendered portals (default: autodetect)"`

	// HTTP
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	BaseURL      string `long:"base-url" env:"BASE_URL" description:"Public base URL used for self links in the listings feed"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for portal requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"America/Bogota" description:"Timezone for timestamps"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var DefaultTargetCities = []string{"medellin", "medellín", "envigado", "itagui", "itagüí", "sabaneta", "la estrella", "estrella"}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:              raw.DBPath,
		NeighborhoodMapPath: raw.NeighborhoodMapPath,
		DiscoveredZonesPath: raw.DiscoveredZonesPath,
		PortalsDir:          raw.PortalsDir,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		ReapInterval:        raw.ReapInterval,
		RetentionDays:       raw.RetentionDays,
		MaxPrice:            raw.MaxPrice,
		TargetCities:        cleanCities(raw.TargetCities),
		UnchangedThreshold:  raw.UnchangedThreshold,
		MaxPages:            raw.MaxPages,
		ChromePath:          raw.ChromePath,
		Port:                raw.Port,
		APIAccessKey:        raw.APIAccessKey,
		BaseURL:             strings.TrimRight(raw.BaseURL, "/"),
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
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

func cleanCities(cities []string) []string {
	out := make([]string, 0, len(cities))
	for _, c := range cities {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultTargetCities...)
	}
	return out
}

func validate(cfg *Cfg) error {
	positive := map[string]int{
		"worker count":        cfg.WorkerCount,
		"scheduler interval":  cfg.SchedulerInterval,
		"reap interval":       cfg.ReapInterval,
		"retention days":      cfg.RetentionDays,
		"unchanged threshold": cfg.UnchangedThreshold,
		"max pages":           cfg.MaxPages,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.MaxPrice < 0 {
		return fmt.Errorf("max price must be non-negative")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
