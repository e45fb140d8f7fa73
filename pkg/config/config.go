// Package config holds the node's JSON configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModuleConfig declares one policy module the node registers at startup.
type ModuleConfig struct {
	// Kind selects the implementation: "bonded_response", "bonded_dispute",
	// "authority_resolution".
	Kind    string `json:"kind"`
	Address string `json:"address"`
	// Authority is the settling account for authority_resolution modules.
	Authority string `json:"authority,omitempty"`
}

// StorageConfig selects and locates the archive backend.
type StorageConfig struct {
	// Type is one of "memory", "badger", "level". Empty disables the archive.
	Type string `json:"type"`
	Path string `json:"path"`
}

// RemoteStorageConfig exposes the archive over libp2p when Enabled.
type RemoteStorageConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// NodeConfig is the full configuration of an oracle node.
type NodeConfig struct {
	// OracleAddress is the node's oracle identity, folded into every id.
	OracleAddress string `json:"oracle_address"`
	// ListenAddress is the TCP command service endpoint. Empty disables it.
	ListenAddress string              `json:"listen_address"`
	LogLevel      string              `json:"log_level"`
	// LogDir additionally mirrors logs into a file when set.
	LogDir string `json:"log_dir,omitempty"`
	// LogRetentionDays prunes file logs older than this; zero keeps them.
	LogRetentionDays int `json:"log_retention_days,omitempty"`
	Storage       StorageConfig       `json:"storage"`
	RemoteStorage RemoteStorageConfig `json:"remote_storage"`
	Modules       []ModuleConfig      `json:"modules"`
	// RateLimits overrides per-command requests per second. Nil keeps the
	// defaults.
	RateLimits map[string]int `json:"rate_limits,omitempty"`
}

// LoadConfigFromFile reads and parses a node configuration.
func LoadConfigFromFile(filename string) (*NodeConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	config := NodeConfig{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("could not unmarshal json: %w", err)
	}
	return &config, nil
}
