package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yegors/driverops/internal/advisor"
	"github.com/yegors/driverops/internal/dashboard"
	"github.com/yegors/driverops/internal/earnings"
	"github.com/yegors/driverops/internal/flights"
	"github.com/yegors/driverops/internal/weather"
	"github.com/yegors/driverops/pkg/logger"
)

// EnvZoneAPIBaseURL overrides zones.api_base_url when set
const EnvZoneAPIBaseURL = "DRIVEROPS_ZONE_API_BASE_URL"

// Storage backends for the local zone store
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Advisor providers
const (
	ProviderNone   = ""
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Weather   WeatherConfig   `toml:"weather"`   // Open-Meteo poller settings
	Flights   FlightsConfig   `toml:"flights"`   // OpenSky poller settings
	Zones     ZonesConfig     `toml:"zones"`     // Zone-management API settings
	Storage   StorageConfig   `toml:"storage"`   // Local zone store settings
	Regions   []RegionConfig  `toml:"regions"`   // Demand regions and their surge offsets
	Earnings  earnings.Config `toml:"earnings"`  // Shift figures shown on the dashboard
	Advisor   AdvisorConfig   `toml:"advisor"`   // Optional model-backed tips
	Dashboard DashboardConfig `toml:"dashboard"` // Refresh schedule and display timezone
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir   string `toml:"static_files_dir"`      // Directory to serve the dashboard from; empty disables static serving
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" or "console"
	File       string `toml:"file"`         // Optional rotating log file
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate after this many megabytes
	MaxBackups int    `toml:"max_backups"`  // Rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // Days to keep rotated files
}

// WeatherConfig contains weather polling configuration
type WeatherConfig struct {
	APIBaseURL             string  `toml:"api_base_url"`             // Open-Meteo base URL
	Latitude               float64 `toml:"latitude"`                 // Forecast coordinate
	Longitude              float64 `toml:"longitude"`                // Forecast coordinate
	RefreshIntervalMinutes int     `toml:"refresh_interval_minutes"` // Poll interval
	RequestTimeoutSeconds  int     `toml:"request_timeout_seconds"`  // HTTP request timeout
	MaxRetries             int     `toml:"max_retries"`              // Extra attempts on failure
}

// FlightsConfig contains flight-state polling configuration
type FlightsConfig struct {
	APIBaseURL            string  `toml:"api_base_url"`            // OpenSky REST base URL
	CredentialsPath       string  `toml:"credentials_path"`        // Optional OpenSky credentials JSON
	TokenURL              string  `toml:"token_url"`               // OAuth2 token endpoint
	BBoxLaMin             float64 `toml:"bbox_lamin"`              // Bounding box minimum latitude
	BBoxLoMin             float64 `toml:"bbox_lomin"`              // Bounding box minimum longitude
	BBoxLaMax             float64 `toml:"bbox_lamax"`              // Bounding box maximum latitude
	BBoxLoMax             float64 `toml:"bbox_lomax"`              // Bounding box maximum longitude
	FetchIntervalSeconds  int     `toml:"fetch_interval_seconds"`  // Poll interval
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"` // HTTP request timeout
	MaxFlights            int     `toml:"max_flights"`             // 0 keeps every flight
	EstimatorSeed         uint64  `toml:"estimator_seed"`          // 0 seeds from the clock
	MinRequestIntervalSecs int    `toml:"min_request_interval_seconds"` // Spacing between OpenSky calls; 0 disables
}

// ZonesConfig contains zone-management settings
type ZonesConfig struct {
	// APIBaseURL points at an external zone service. Empty means same origin:
	// zones are served from the local store configured under [storage].
	APIBaseURL            string `toml:"api_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	CacheSize             int    `toml:"cache_size"`        // 0 disables the by-id cache
	CacheTTLSeconds       int    `toml:"cache_ttl_seconds"` // 0 disables the by-id cache
	Seed                  bool   `toml:"seed"`              // Seed an empty local store with sample zones
}

// StorageConfig contains local zone store configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // "memory" or "sqlite"
	SQLitePath string `toml:"sqlite_path"` // Database file when type is "sqlite"
}

// RegionConfig is one demand region
type RegionConfig struct {
	Name   string `toml:"name"`
	Offset int    `toml:"offset"` // Percentage points subtracted from the base surge
}

// AdvisorConfig contains tip generation settings
type AdvisorConfig struct {
	Provider       string  `toml:"provider"` // "", "gemini" or "openai"
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"` // Optional endpoint override
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	CacheMinutes   int     `toml:"cache_minutes"`
}

// DashboardConfig contains dashboard settings
type DashboardConfig struct {
	AutoRefreshMinutes int    `toml:"auto_refresh_minutes"`
	Timezone           string `toml:"timezone"`
}

// Default returns a configuration that runs without a config file
func Default() *Config {
	wx := weather.DefaultConfig()
	fl := flights.DefaultConfig()

	regions := make([]RegionConfig, 0, len(wx.Regions))
	for _, r := range wx.Regions {
		regions = append(regions, RegionConfig{Name: r.Name, Offset: r.Offset})
	}

	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "0.0.0.0",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 30,
			IdleTimeoutSecs:  60,
			StaticFilesDir:   "www",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Weather: WeatherConfig{
			APIBaseURL:             wx.APIBaseURL,
			Latitude:               wx.Latitude,
			Longitude:              wx.Longitude,
			RefreshIntervalMinutes: wx.RefreshIntervalMinutes,
			RequestTimeoutSeconds:  wx.RequestTimeoutSeconds,
			MaxRetries:             wx.MaxRetries,
		},
		Flights: FlightsConfig{
			APIBaseURL:            fl.APIBaseURL,
			TokenURL:              fl.TokenURL,
			BBoxLaMin:             fl.BBox.LaMin,
			BBoxLoMin:             fl.BBox.LoMin,
			BBoxLaMax:             fl.BBox.LaMax,
			BBoxLoMax:             fl.BBox.LoMax,
			FetchIntervalSeconds:  fl.FetchIntervalSeconds,
			RequestTimeoutSeconds: fl.RequestTimeoutSeconds,
			MinRequestIntervalSecs: fl.MinRequestIntervalSeconds,
		},
		Zones: ZonesConfig{
			RequestTimeoutSeconds: 10,
			CacheSize:             64,
			CacheTTLSeconds:       30,
			Seed:                  true,
		},
		Storage: StorageConfig{
			Type:       StorageMemory,
			SQLitePath: "data/zones.db",
		},
		Regions:  regions,
		Earnings: earnings.DefaultConfig(),
		Advisor: AdvisorConfig{
			Model:          "gemini-2.0-flash",
			Temperature:    0.4,
			MaxTokens:      80,
			TimeoutSeconds: 10,
			CacheMinutes:   10,
		},
		Dashboard: DashboardConfig{
			AutoRefreshMinutes: 5,
			Timezone:           "Asia/Singapore",
		},
	}
}

// Load loads the configuration from the specified file on top of the defaults
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	config := Default()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// LoadWithFallback tries the preferred path, then configs/config.toml, then config.toml
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{}

	if preferredPath != "" {
		searchPaths = append(searchPaths, preferredPath)
	}
	searchPaths = append(searchPaths, "configs/config.toml", "config.toml")

	seen := make(map[string]bool)
	var uniquePaths []string
	for _, path := range searchPaths {
		if !seen[path] {
			seen[path] = true
			uniquePaths = append(uniquePaths, path)
		}
	}

	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v", uniquePaths)
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvZoneAPIBaseURL); ok {
		c.Zones.APIBaseURL = strings.TrimSpace(v)
	}
}

// Validate validates the configuration and fills in derived defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.StaticFilesDir != "" {
		if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
			return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
		}
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if err := weather.ValidateConfig(c.WeatherService()); err != nil {
		return fmt.Errorf("invalid [weather] section: %w", err)
	}
	if err := flights.ValidateConfig(c.FlightService()); err != nil {
		return fmt.Errorf("invalid [flights] section: %w", err)
	}

	if c.Zones.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("zones request_timeout_seconds must be greater than 0: %d", c.Zones.RequestTimeoutSeconds)
	}
	if c.Zones.CacheSize < 0 || c.Zones.CacheTTLSeconds < 0 {
		return fmt.Errorf("zones cache settings must be 0 or greater")
	}

	switch c.Storage.Type {
	case "":
		c.Storage.Type = StorageMemory
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage sqlite_path is required when type is %q", StorageSQLite)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	for i, r := range c.Regions {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("region %d has no name", i)
		}
		if r.Offset < 0 {
			return fmt.Errorf("region %s offset must be 0 or greater: %d", r.Name, r.Offset)
		}
	}

	switch c.Advisor.Provider {
	case ProviderNone:
	case ProviderGemini, ProviderOpenAI:
		if c.Advisor.APIKey == "" {
			return fmt.Errorf("advisor api_key is required for provider %q", c.Advisor.Provider)
		}
		if c.Advisor.Model == "" {
			return fmt.Errorf("advisor model is required for provider %q", c.Advisor.Provider)
		}
	default:
		return fmt.Errorf("unsupported advisor provider: %s", c.Advisor.Provider)
	}

	if c.Dashboard.AutoRefreshMinutes <= 0 {
		return fmt.Errorf("dashboard auto_refresh_minutes must be greater than 0: %d", c.Dashboard.AutoRefreshMinutes)
	}
	return nil
}

// UsesLocalZones reports whether zones are served from the local store
func (c *Config) UsesLocalZones() bool {
	return c.Zones.APIBaseURL == ""
}

// Logger converts the logging section
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}

// WeatherService converts the weather and regions sections
func (c *Config) WeatherService() weather.Config {
	regions := make([]weather.Region, 0, len(c.Regions))
	for _, r := range c.Regions {
		regions = append(regions, weather.Region{Name: r.Name, Offset: r.Offset})
	}
	if len(regions) == 0 {
		regions = weather.DefaultRegions()
	}

	return weather.Config{
		APIBaseURL:             c.Weather.APIBaseURL,
		Latitude:               c.Weather.Latitude,
		Longitude:              c.Weather.Longitude,
		RefreshIntervalMinutes: c.Weather.RefreshIntervalMinutes,
		RequestTimeoutSeconds:  c.Weather.RequestTimeoutSeconds,
		MaxRetries:             c.Weather.MaxRetries,
		Regions:                regions,
	}
}

// FlightService converts the flights section
func (c *Config) FlightService() flights.Config {
	return flights.Config{
		APIBaseURL: c.Flights.APIBaseURL,
		BBox: flights.BoundingBox{
			LaMin: c.Flights.BBoxLaMin,
			LoMin: c.Flights.BBoxLoMin,
			LaMax: c.Flights.BBoxLaMax,
			LoMax: c.Flights.BBoxLoMax,
		},
		CredentialsPath:       c.Flights.CredentialsPath,
		TokenURL:              c.Flights.TokenURL,
		FetchIntervalSeconds:  c.Flights.FetchIntervalSeconds,
		RequestTimeoutSeconds: c.Flights.RequestTimeoutSeconds,
		MaxFlights:            c.Flights.MaxFlights,
		EstimatorSeed:         c.Flights.EstimatorSeed,

		MinRequestIntervalSeconds: c.Flights.MinRequestIntervalSecs,
	}
}

// AdvisorService converts the advisor section
func (c *Config) AdvisorService() advisor.Config {
	return advisor.Config{
		Model:          c.Advisor.Model,
		Temperature:    c.Advisor.Temperature,
		MaxTokens:      c.Advisor.MaxTokens,
		TimeoutSeconds: c.Advisor.TimeoutSeconds,
		CacheMinutes:   c.Advisor.CacheMinutes,
	}
}

// DashboardService converts the dashboard and earnings sections
func (c *Config) DashboardService() dashboard.Config {
	return dashboard.Config{
		AutoRefreshMinutes: c.Dashboard.AutoRefreshMinutes,
		Timezone:           c.Dashboard.Timezone,
		Earnings:           c.Earnings,
	}
}

// ZoneTimeout is the zone API request timeout
func (c *Config) ZoneTimeout() time.Duration {
	return time.Duration(c.Zones.RequestTimeoutSeconds) * time.Second
}

// ZoneCacheTTL is how long a zone fetched by id stays cached
func (c *Config) ZoneCacheTTL() time.Duration {
	return time.Duration(c.Zones.CacheTTLSeconds) * time.Second
}
