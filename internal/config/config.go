// Package config loads the bot's configuration from a JSON config file
// with OFFICEBOT_* environment overrides. Secrets (the bot token and the
// signing secret) are environment-only and required: the process refuses
// to start without them.
package config

import "fmt"

type Config struct {
	Server   ServerConfig
	Platform PlatformConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type PlatformConfig struct {
	BaseURL       string
	BotToken      string
	SigningSecret string
}

type StorageConfig struct {
	// Backend selects the persistence backend: "file" or "sqlite".
	Backend      string
	DataDir      string
	ManagersFile string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 3000,
		},
		Platform: PlatformConfig{
			BaseURL: "https://slack.com/api",
		},
		Storage: StorageConfig{
			Backend:      "file",
			DataDir:      dataDir,
			ManagersFile: dataDir + "/managers.json",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/officebot/config.json and applies OFFICEBOT_*
// environment overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Platform.BotToken == "" {
		return Config{}, fmt.Errorf("missing required config: platform bot token. Set it via environment variable OFFICEBOT_BOT_TOKEN")
	}
	if cfg.Platform.SigningSecret == "" {
		return Config{}, fmt.Errorf("missing required config: platform signing secret. Set it via environment variable OFFICEBOT_SIGNING_SECRET")
	}

	switch cfg.Storage.Backend {
	case "file", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid storage.backend %q: must be \"file\" or \"sqlite\"", cfg.Storage.Backend)
	}

	return cfg, nil
}
