// Package config loads server_config.json and game_config.json. spec.md §6
// names the exact, nested, snake_case shapes these files take; ServerConfig
// and GameConfig mirror that shape verbatim rather than a flattened
// convenience struct, so a real operator-provided config file round-trips
// correctly. spec.md scopes the config loader itself as an external
// collaborator "referenced only by the interface the simulation core
// consumes" — Loader is that interface, and FileLoader is its default
// JSON-file implementation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerConfig mirrors config/server_config.json's documented shape:
// {"auth_server":{"host":"...","port":...}}.
type ServerConfig struct {
	AuthServer struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"auth_server"`
}

// AuthServiceURL composes the auth HTTP base URL from auth_server.host/port.
// Returns "" if no host is configured, the signal main.go uses to run with
// auth disabled (spec.md §4.7: "if the auth service is unconfigured...").
func (c ServerConfig) AuthServiceURL() string {
	if c.AuthServer.Host == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", c.AuthServer.Host, c.AuthServer.Port)
}

// GameConfig mirrors config/game_config.json's documented shape:
// {"gameplay":{"aoi_range","chat_range","move_speed","tick_rate"},
//  "map":{"width","height"},"performance":{"command_batch_size"}}.
type GameConfig struct {
	Gameplay struct {
		AOIRange  float32 `json:"aoi_range"`
		ChatRange float32 `json:"chat_range"`
		MoveSpeed float32 `json:"move_speed"`
		TickRate  int     `json:"tick_rate"`
	} `json:"gameplay"`
	Map struct {
		Width  float32 `json:"width"`
		Height float32 `json:"height"`
	} `json:"map"`
	Performance struct {
		CommandBatchSize int `json:"command_batch_size"`
	} `json:"performance"`
}

// Loader is the interface internal/config's callers depend on; swapping in
// a non-file-backed implementation (e.g. a remote config service) needs
// nothing more than satisfying this.
type Loader interface {
	LoadServerConfig(path string) (ServerConfig, error)
	LoadGameConfig(path string) (GameConfig, error)
}

// FileLoader reads config/server_config.json and config/game_config.json
// with os.ReadFile + encoding/json, the minimal default implementation.
type FileLoader struct{}

func NewFileLoader() FileLoader { return FileLoader{} }

func (FileLoader) LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadJSONFile(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func (FileLoader) LoadGameConfig(path string) (GameConfig, error) {
	var cfg GameConfig
	if err := loadJSONFile(path, &cfg); err != nil {
		return GameConfig{}, err
	}
	return cfg, nil
}

func loadJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}
