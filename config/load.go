package config

import (
	"errors"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads the YAML config at path (if it exists) and applies environment
// overrides. An empty path means environment-only configuration.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, err
			}
			return &cfg, cfg.validate()
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.validate()
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Target.URL) == "" {
		return errors.New("config: target url is required")
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return errors.New("config: db_driver must be sqlite or postgres")
	}
	if c.DBDriver == "postgres" && strings.TrimSpace(c.DBURL) == "" {
		return errors.New("config: db_url is required for postgres")
	}
	return nil
}
