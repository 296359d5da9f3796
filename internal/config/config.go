// Package config holds the persisted settings of the password-store handler.
//
// The file is YAML. A missing file is not an error: Load returns Default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hdonnay/Pass/internal/store"
)

// Backend names the password manager the handler drives.
type Backend string

const (
	Pass   Backend = "pass"
	Gopass Backend = "gopass"
)

// Match selects how queries are matched against entry names.
type Match string

const (
	Substring Match = "substring"
	Fuzzy     Match = "fuzzy"
)

const (
	DefaultOTPGlob        = "*-otp.gpg"
	DefaultGenerateLength = 20
)

// Config is the handler's configuration.
type Config struct {
	Backend        Backend `yaml:"backend"`
	StoreDir       string  `yaml:"store_dir"`
	UseOTP         bool    `yaml:"use_otp"`
	OTPGlob        string  `yaml:"otp_glob"`
	GenerateLength int     `yaml:"generate_length"`
	Match          Match   `yaml:"match"`
}

// Default returns the configuration used when nothing is on disk.
//
// The store directory follows pass(1): $PASSWORD_STORE_DIR, then
// ~/.password-store.
func Default() Config {
	return Config{
		Backend:        Pass,
		StoreDir:       defaultStoreDir(),
		OTPGlob:        DefaultOTPGlob,
		GenerateLength: DefaultGenerateLength,
		Match:          Substring,
	}
}

func defaultStoreDir() string {
	if d := os.Getenv("PASSWORD_STORE_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".password-store"
	}
	return filepath.Join(home, ".password-store")
}

// DefaultPath is where the configuration lives unless told otherwise.
func DefaultPath() (string, error) {
	d, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "acme-pass", "config.yaml"), nil
}

// Load reads the configuration at path, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Fill replaces zero values that an older or hand-written file may leave.
func (c *Config) fill() {
	d := Default()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.StoreDir == "" {
		c.StoreDir = d.StoreDir
	}
	if c.OTPGlob == "" {
		c.OTPGlob = d.OTPGlob
	}
	if c.GenerateLength <= 0 {
		c.GenerateLength = d.GenerateLength
	}
	if c.Match == "" {
		c.Match = d.Match
	}
}

// Validate reports the first field holding a value the handler can't use.
func (c Config) Validate() error {
	switch c.Backend {
	case Pass, Gopass:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Match {
	case Substring, Fuzzy:
	default:
		return fmt.Errorf("unknown match mode %q", c.Match)
	}
	if _, err := store.Match(c.OTPGlob, ""); err != nil {
		return fmt.Errorf("otp_glob %q: %w", c.OTPGlob, err)
	}
	if c.GenerateLength <= 0 {
		return fmt.Errorf("generate_length must be positive, have %d", c.GenerateLength)
	}
	return nil
}

// Save writes c to path. The file is replaced by a rename so a reader never
// sees a partial write.
func Save(path string, c Config) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	b, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	f, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
