// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckeychain.
//
// go-seckeychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.
package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
	"github.com/jeremyhahn/go-seckeychain/pkg/validation"
)

// Store backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMacOS  = "macos"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SECKEYCHAIN_"

// Config represents the complete keychain configuration
type Config struct {
	Keychain KeychainConfig `yaml:"keychain"`
	Store    StoreConfig    `yaml:"store"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// KeychainConfig selects the partition operations run in
type KeychainConfig struct {
	AccessGroup string `yaml:"access_group"`
}

// StoreConfig controls the software secure element and where it persists items
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory, file, macos
	Path    string `yaml:"path"`    // file backend root directory
	Service string `yaml:"service"` // macos keychain service attribute

	SecureElement bool     `yaml:"secure_element"`
	Entitlements  []string `yaml:"entitlements,omitempty"`

	// Sealing key for hardware backed private keys. Without one, sealed
	// keys do not survive the process.
	SealingKeyFile string `yaml:"sealing_key_file"`

	AuthFailuresPerMinute int `yaml:"auth_failures_per_minute"`
}

// CryptoConfig selects the asymmetric encryption suite
type CryptoConfig struct {
	Algorithm string `yaml:"algorithm"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls operation metrics
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Keychain: KeychainConfig{
			AccessGroup: "group.seckeychain",
		},
		Store: StoreConfig{
			Backend:       BackendMemory,
			SecureElement: true,
		},
		Crypto: CryptoConfig{
			Algorithm: securestore.AlgorithmECIESCofactorX963SHA256AESGCM.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if group := os.Getenv(EnvPrefix + "ACCESS_GROUP"); group != "" {
		cfg.Keychain.AccessGroup = group
	}

	// Store
	if backend := os.Getenv(EnvPrefix + "STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if dataDir := os.Getenv(EnvPrefix + "DATA_DIR"); dataDir != "" {
		cfg.Store.Path = dataDir
	}
	if keyFile := os.Getenv(EnvPrefix + "SEALING_KEY_FILE"); keyFile != "" {
		cfg.Store.SealingKeyFile = keyFile
	}
	if se := os.Getenv(EnvPrefix + "SECURE_ELEMENT"); se != "" {
		enabled, err := strconv.ParseBool(se)
		if err != nil {
			log.Printf("Warning: invalid %sSECURE_ELEMENT value %q, using %t: %v",
				EnvPrefix, se, cfg.Store.SecureElement, err)
		} else {
			cfg.Store.SecureElement = enabled
		}
	}
	if limit := os.Getenv(EnvPrefix + "AUTH_FAILURES_PER_MINUTE"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			log.Printf("Warning: invalid %sAUTH_FAILURES_PER_MINUTE value %q, using %d: %v",
				EnvPrefix, limit, cfg.Store.AuthFailuresPerMinute, err)
		} else if n < 0 {
			log.Printf("Warning: invalid %sAUTH_FAILURES_PER_MINUTE value %q (negative), using %d",
				EnvPrefix, limit, cfg.Store.AuthFailuresPerMinute)
		} else {
			cfg.Store.AuthFailuresPerMinute = n
		}
	}

	if alg := os.Getenv(EnvPrefix + "ALGORITHM"); alg != "" {
		cfg.Crypto.Algorithm = alg
	}

	// Logging
	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv(EnvPrefix + "LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if metrics := os.Getenv(EnvPrefix + "METRICS"); metrics != "" {
		enabled, err := strconv.ParseBool(metrics)
		if err != nil {
			log.Printf("Warning: invalid %sMETRICS value %q, using %t: %v",
				EnvPrefix, metrics, cfg.Metrics.Enabled, err)
		} else {
			cfg.Metrics.Enabled = enabled
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validation.ValidateAccessGroup(c.Keychain.AccessGroup); err != nil {
		return fmt.Errorf("keychain access_group: %w", err)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendMacOS:
	case BackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory, file, or macos)", c.Store.Backend)
	}
	if c.Store.AuthFailuresPerMinute < 0 {
		return fmt.Errorf("invalid auth_failures_per_minute: %d", c.Store.AuthFailuresPerMinute)
	}
	if len(c.Store.Entitlements) > 0 && !slices.Contains(c.Store.Entitlements, c.Keychain.AccessGroup) {
		return fmt.Errorf("store entitlements do not include access group %s", c.Keychain.AccessGroup)
	}
	for _, group := range c.Store.Entitlements {
		if err := validation.ValidateAccessGroup(group); err != nil {
			return fmt.Errorf("store entitlement: %w", err)
		}
	}

	if _, err := c.Crypto.ParseAlgorithm(); err != nil {
		return err
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// ParseAlgorithm maps the configured suite name to a securestore.Algorithm.
// An empty name selects the cofactor X9.63 suite.
func (c *CryptoConfig) ParseAlgorithm() (securestore.Algorithm, error) {
	switch strings.ToLower(c.Algorithm) {
	case "", securestore.AlgorithmECIESCofactorX963SHA256AESGCM.String():
		return securestore.AlgorithmECIESCofactorX963SHA256AESGCM, nil
	case securestore.AlgorithmECIESHKDFSHA256AESGCM.String():
		return securestore.AlgorithmECIESHKDFSHA256AESGCM, nil
	default:
		return 0, fmt.Errorf("invalid crypto algorithm: %s", c.Algorithm)
	}
}
