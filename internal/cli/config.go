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
package cli

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-seckeychain/internal/config"
	"github.com/jeremyhahn/go-seckeychain/pkg/keychain"
	"github.com/jeremyhahn/go-seckeychain/pkg/logging"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore/software"
	"github.com/jeremyhahn/go-seckeychain/pkg/storage"
	"github.com/jeremyhahn/go-seckeychain/pkg/storage/file"
	"github.com/jeremyhahn/go-seckeychain/pkg/storage/macos"
)

// sealingKeyName is the sealing key file kept next to file backend items
// when no sealing_key_file is configured.
const sealingKeyName = "sealing.key"

// fs is the filesystem for the file backend, sealing keys and PEM imports.
var fs afero.Fs = afero.NewOsFs()

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	// Metrics dumps operation metrics to stderr after each command
	Metrics bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
	}
}

// newViper binds SECKEYCHAIN_* environment variables. Flag bindings are
// added by init.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(config.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadSettings resolves the keychain configuration: the YAML file when one
// is given, the defaults otherwise, then flags and environment bound
// through v.
func loadSettings(v *viper.Viper, configFile string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	if v.IsSet("access-group") {
		cfg.Keychain.AccessGroup = v.GetString("access-group")
	}
	if v.IsSet("backend") {
		cfg.Store.Backend = v.GetString("backend")
	}
	if v.IsSet("data-dir") {
		cfg.Store.Path = v.GetString("data-dir")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Session is an opened keychain and the software store beneath it.
type Session struct {
	Keychain *keychain.Keychain
	Store    *software.Store
	Logger   *logging.Logger
}

// Close releases the store backend.
func (s *Session) Close() error {
	return s.Store.Close()
}

// openSession builds the storage backend, software store and keychain
// described by cfg.
func openSession(cfg *config.Config, logOut io.Writer) (*Session, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, logOut)

	backend, err := openBackend(&cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Store.Backend, err)
	}
	sealingKey, err := loadSealingKey(sealingKeyPath(&cfg.Store))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	store, err := software.New(&software.Config{
		Backend:               backend,
		Entitlements:          cfg.Store.Entitlements,
		DisableSecureElement:  !cfg.Store.SecureElement,
		SealingKey:            sealingKey,
		AuthFailuresPerMinute: cfg.Store.AuthFailuresPerMinute,
		Logger:                logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	alg, err := cfg.Crypto.ParseAlgorithm()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	kc, err := keychain.New(&keychain.Config{
		AccessGroup: cfg.Keychain.AccessGroup,
		Store:       store,
		Algorithm:   alg,
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Session{Keychain: kc, Store: store, Logger: logger}, nil
}

func openBackend(sc *config.StoreConfig) (storage.Backend, error) {
	switch sc.Backend {
	case config.BackendFile:
		return file.NewWithFs(fs, sc.Path)
	case config.BackendMacOS:
		return macos.New(&macos.Config{Service: sc.Service})
	default:
		return storage.NewMemory(), nil
	}
}

func sealingKeyPath(sc *config.StoreConfig) string {
	if sc.SealingKeyFile != "" {
		return sc.SealingKeyFile
	}
	if sc.Backend == config.BackendFile {
		return filepath.Join(sc.Path, sealingKeyName)
	}
	return ""
}

// loadSealingKey reads the sealing key at path, creating it on first use.
// An empty path yields no key, so the store uses an ephemeral one.
func loadSealingKey(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	key, err := afero.ReadFile(fs, path)
	if err == nil {
		if len(key) != software.SealingKeySize {
			return nil, fmt.Errorf("sealing key %s: want %d bytes, got %d", path, software.SealingKeySize, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read sealing key: %w", err)
	}

	key = make([]byte, software.SealingKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create sealing key directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write sealing key: %w", err)
	}
	return key, nil
}
