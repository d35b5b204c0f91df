package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/taskdeck/internal/api"
	"github.com/metalagman/taskdeck/internal/config"
	"github.com/metalagman/taskdeck/internal/db"
	"github.com/spf13/viper"
)

// loadConfig reads the config file, falling back to defaults when the
// file is absent. Flags win over file values.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := config.ValidateSettings(viper.AllSettings()); err != nil {
			return config.Config{}, fmt.Errorf("config %s: %w", viper.ConfigFileUsed(), err)
		}
		if err := viper.Unmarshal(&cfg); err != nil {
			return config.Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if project != "" {
		cfg.Project = project
	}
	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = config.Default().DebounceMS
	}
	return cfg, nil
}

func newClient(cfg config.Config) *api.Client {
	return api.New(cfg.ServerURL)
}

func openDB(path string) (*sql.DB, func(), error) {
	if path == "" {
		path = filepath.Join(".taskdeck", "taskdeck.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, func() {}, err
	}
	conn, err := db.Open(path)
	if err != nil {
		return nil, func() {}, err
	}
	return conn, func() { _ = conn.Close() }, nil
}
