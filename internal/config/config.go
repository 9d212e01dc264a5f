// Package config loads the daemon's YAML configuration file: the
// socket path, the store path, and the scheduler adapter's
// external-queue configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lngonzalezg/yerba/internal/taskqueue"
)

// Config is the daemon's top-level configuration.
type Config struct {
	Socket            string           `yaml:"socket"`
	Database          string           `yaml:"database"`
	LocalQueueWorkers int              `yaml:"local_queue_workers"`
	Queue             taskqueue.Config `yaml:"queue"`
	LogLevel          string           `yaml:"log_level"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Socket:            "/var/run/yerbad.sock",
		Database:          "/var/lib/yerba/yerba.db",
		LocalQueueWorkers: 4,
		LogLevel:          "INFO",
		Queue: taskqueue.Config{
			Project: "yerba",
			Port:    -1,
		},
	}
}

// Load reads and parses the YAML file at path, overlaying it onto
// Default() so an omitted section keeps its default, then applies
// YERBA_SOCKET/YERBA_DATABASE environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if socket := os.Getenv("YERBA_SOCKET"); socket != "" {
		cfg.Socket = socket
	}
	if database := os.Getenv("YERBA_DATABASE"); database != "" {
		cfg.Database = database
	}
	return cfg, nil
}
