package app

import (
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

type Config struct {
	Port                 string
	DefaultConfigName    string
	DefaultConfigVersion string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:                 envutil.Str("PORT", "8080"),
		DefaultConfigName:    envutil.Str("DEFAULT_CONFIG_NAME", "default"),
		DefaultConfigVersion: envutil.Str("DEFAULT_CONFIG_VERSION", "1"),
	}
	log.Info("Loaded config",
		"port", cfg.Port,
		"default_config_name", cfg.DefaultConfigName,
		"default_config_version", cfg.DefaultConfigVersion)
	return cfg
}
