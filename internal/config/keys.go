package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "OFFICEBOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "platform.base_url", typ: kString, env: "OFFICEBOT_PLATFORM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Platform.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.BaseURL },
	},
	{
		key: "platform.bot_token", typ: kString, env: "OFFICEBOT_BOT_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Platform.BotToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.BotToken },
	},
	{
		key: "platform.signing_secret", typ: kString, env: "OFFICEBOT_SIGNING_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Platform.SigningSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Platform.SigningSecret },
	},
	{
		key: "storage.backend", typ: kString, env: "OFFICEBOT_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "OFFICEBOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.managers_file", typ: kString, env: "OFFICEBOT_MANAGERS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Storage.ManagersFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.ManagersFile },
	},
	{
		key: "log.level", typ: kString, env: "OFFICEBOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
