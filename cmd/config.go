package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "geohash.yaml"

type Config struct {
	Geohash struct {
		Precision int     `yaml:"precision"`
		Accuracy  float64 `yaml:"accuracy"`
	} `yaml:"geohash"`
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`
	Log LogConfig `yaml:"log"`
	PostGIS struct {
		Host             string `yaml:"host"`
		Port             int    `yaml:"port"`
		User             string `yaml:"user"`
		Password         string `yaml:"password"`
		Database         string `yaml:"database"`
		MaxConnections   int    `yaml:"max_connections"`
		QueryConcurrency int    `yaml:"query_concurrency"`
	} `yaml:"postgis"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Geohash.Precision = 6
	cfg.Geohash.Accuracy = 1.0
	cfg.Output.Format = "text"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.PostGIS.Host = "localhost"
	cfg.PostGIS.Port = 5432
	cfg.PostGIS.User = "geo"
	cfg.PostGIS.Password = "geo"
	cfg.PostGIS.Database = "geodb"
	cfg.PostGIS.MaxConnections = 25
	cfg.PostGIS.QueryConcurrency = 8
	return cfg
}

// loadConfig reads path over the defaults. A missing file is only an error
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Output.Format {
	case "text", "json", "geojson":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Geohash.Precision < 0 {
		return fmt.Errorf("precision must not be negative")
	}
	return nil
}
