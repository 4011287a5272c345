package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// ConfigStore manages multiple account configurations
type ConfigStore struct {
	configs map[string]*types.Config // map[id]*Config
}

var (
	globalStore *ConfigStore
	logger      *slog.Logger
)

// InitLogger sets up the logger for the config package
func InitLogger(l *slog.Logger) {
	logger = l
}

// LoadConfigs loads all *.config.yaml files from the specified directory.
// Environment variables in the files are expanded before parsing.
func LoadConfigs(configDir string) error {
	if logger == nil {
		logger = slog.Default()
	}

	store := &ConfigStore{
		configs: make(map[string]*types.Config),
	}

	// Templates are optional; a directory without them is fine
	if err := LoadTemplates(filepath.Join(configDir, "templates")); err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	entries, err := os.ReadDir(configDir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".config.yaml") {
			continue
		}

		configPath := filepath.Join(configDir, entry.Name())
		cfg, err := loadSingleConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", entry.Name(), err)
		}

		if cfg.Meta.ID == "" {
			return fmt.Errorf("config %s missing required meta.id field", entry.Name())
		}
		if _, exists := store.configs[cfg.Meta.ID]; exists {
			return fmt.Errorf("duplicate config ID %s in %s", cfg.Meta.ID, entry.Name())
		}

		if cfg.Meta.Template != "" {
			if err := ApplyTemplate(cfg, cfg.Meta.Template); err != nil {
				return fmt.Errorf("failed to apply template to config %s: %w", entry.Name(), err)
			}
		}

		applyProviderDefaults(cfg)

		store.configs[cfg.Meta.ID] = cfg

		logger.Debug("loaded configuration",
			"id", cfg.Meta.ID,
			"provider", cfg.Email.Provider,
			"imap_enabled", cfg.Email.Protocols.IMAP.Enabled,
			"pop3_enabled", cfg.Email.Protocols.POP3.Enabled,
		)
	}

	globalStore = store
	return nil
}

func loadSingleConfig(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	config := &types.Config{}
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyProviderDefaults fills in server and port for well-known
// providers when the config leaves them empty.
func applyProviderDefaults(cfg *types.Config) {
	imapCfg := &cfg.Email.Protocols.IMAP

	var server string
	switch strings.ToLower(cfg.Email.Provider) {
	case "gmail":
		server = "imap.gmail.com"
	case "outlook", "office365":
		server = "outlook.office365.com"
	default:
		return
	}

	if imapCfg.Server == "" {
		imapCfg.Server = server
	}
	if imapCfg.DefaultPort == 0 {
		imapCfg.DefaultPort = 993
		imapCfg.Security.TLS.Enabled = true
	}
}

// GetConfig retrieves a configuration by ID
func GetConfig(id string) (*types.Config, error) {
	if globalStore == nil {
		return nil, fmt.Errorf("config store not initialized")
	}

	cfg, exists := globalStore.configs[id]
	if !exists {
		return nil, fmt.Errorf("config with ID %s not found", id)
	}
	return cfg, nil
}

// ListConfigs returns all available configurations
func ListConfigs() []*types.Config {
	if globalStore == nil {
		return nil
	}

	configs := make([]*types.Config, 0, len(globalStore.configs))
	for _, cfg := range globalStore.configs {
		configs = append(configs, cfg)
	}
	return configs
}

// GetEnabledConfigs returns only enabled configurations
func GetEnabledConfigs() []*types.Config {
	if globalStore == nil {
		return nil
	}

	configs := make([]*types.Config, 0)
	for _, cfg := range globalStore.configs {
		if cfg.Meta.Enabled {
			configs = append(configs, cfg)
		}
	}
	return configs
}
