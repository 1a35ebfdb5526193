package crawl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type PortalCache struct {
	portalsDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewPortalCache(portalsDir string) *PortalCache {
	return &PortalCache{
		portalsDir: portalsDir,
		cache:      make(map[string]*Config),
	}
}

func (pc *PortalCache) Run() error {
	if _, err := os.Stat(pc.portalsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.portalsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		portalName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := pc.LoadConfig(portalName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Portal configuration loaded",
			"portal", portalName,
			"enabled", config.Settings.Enabled,
			"renderer", config.Settings.Renderer,
			"partitions", len(config.Partitions()))
	}

	return nil
}

func (pc *PortalCache) LoadConfig(portalName string) (*Config, error) {
	configFile := pc.getConfigFilePath(portalName)
	config, err := pc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = portalName

	if err := pc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[config.Name] = config

	return config, nil
}

func (pc *PortalCache) GetConfig(portalName string) (*Config, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	config, ok := pc.cache[portalName]
	if !ok {
		return nil, fmt.Errorf("portal config with name '%s' not found", portalName)
	}
	return config, nil
}

func (pc *PortalCache) GetEnabledConfigs() map[string]*Config {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	enabled := make(map[string]*Config)
	for k, v := range pc.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (pc *PortalCache) GetConfigCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

func (pc *PortalCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.RefreshInterval == 0 {
		config.Settings.RefreshInterval = 3600
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 60
	}
	if config.Settings.Renderer == "" {
		config.Settings.Renderer = RendererHTTP
	}
	if config.Settings.Format == "" {
		config.Settings.Format = FormatHTML
	}
	if config.Settings.FirstPage == 0 {
		config.Settings.FirstPage = 1
	}

	return &config, nil
}

func (pc *PortalCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.Name == "" {
		return fmt.Errorf("portal name is required")
	}
	if config.URL == "" {
		return fmt.Errorf("portal URL is required")
	}

	nonNegativeFields := map[string]int{
		"refresh interval":    config.Settings.RefreshInterval,
		"timeout":             config.Settings.Timeout,
		"max pages":           config.Settings.MaxPages,
		"unchanged threshold": config.Settings.UnchangedThreshold,
		"wait seconds":        config.Settings.WaitSeconds,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	switch config.Settings.Renderer {
	case RendererHTTP, RendererBrowser:
	default:
		return fmt.Errorf("invalid renderer: %s", config.Settings.Renderer)
	}

	switch config.Settings.Format {
	case FormatHTML:
		if config.Selectors.Card == "" || config.Selectors.Link == "" {
			return fmt.Errorf("html portals require card and link selectors")
		}
	case FormatFeed:
	default:
		return fmt.Errorf("invalid format: %s", config.Settings.Format)
	}

	if len(config.PropertyTypes) > 0 && !strings.Contains(config.URL, "{type}") {
		return fmt.Errorf("property_types require a {type} placeholder in the URL")
	}

	return nil
}

func (pc *PortalCache) getConfigFilePath(portalName string) string {
	return filepath.Join(pc.portalsDir, portalName+".yml")
}
