package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix, ortam değişkeni geçersiz kılmalarının önekidir.
const EnvPrefix = "CLONECTL_"

// Target, fleet modunda işlenecek tek bir denetleyicidir.
type Target struct {
	Name     string `yaml:"name" validate:"required"`
	Address  string `yaml:"address" validate:"required"`
	Username string `yaml:"username"`
	Password string `yaml:"password"` // Boşsa genel şifre kullanılır
	Insecure *bool  `yaml:"insecure"`
	// Snapshot overrides the document path; sprig templates see the target.
	Snapshot string `yaml:"snapshot"`
}

type Config struct {
	Address  string        `yaml:"address"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`

	Snapshot            string `yaml:"snapshot" validate:"required"`
	EncryptionKey       string `yaml:"encryption_key"`
	PlaceholderPassword string `yaml:"placeholder_password" validate:"required"`

	ResetInterval    time.Duration `yaml:"reset_interval" validate:"gt=0"`
	ReconnectTimeout time.Duration `yaml:"reconnect_timeout" validate:"gtefield=ResetInterval"`
	PostTimeout      time.Duration `yaml:"post_timeout" validate:"gtefield=ResetInterval"`

	Concurrency int      `yaml:"concurrency" validate:"gte=1,lte=64"`
	Targets     []Target `yaml:"targets" validate:"dive"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Timeout:             60 * time.Second,
		Snapshot:            "clone.json",
		PlaceholderPassword: "changeme",
		ResetInterval:       10 * time.Second,
		ReconnectTimeout:    10 * time.Minute,
		PostTimeout:         20 * time.Minute,
		Concurrency:         4,
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config dosyası okunamadı: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("yaml parse hatası: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment if it exists.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides connection settings from CLONECTL_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	strs := map[string]*string{
		"ADDRESS":              &c.Address,
		"USERNAME":             &c.Username,
		"PASSWORD":             &c.Password,
		"ENCRYPTION_KEY":       &c.EncryptionKey,
		"SNAPSHOT":             &c.Snapshot,
		"PLACEHOLDER_PASSWORD": &c.PlaceholderPassword,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "INSECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sINSECURE: %w", EnvPrefix, err)
		}
		c.Insecure = b
	}
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("geçersiz yapılandırma: %w", err)
	}
	return nil
}

// Target returns the inventory entry called name.
func (c *Config) Target(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Resolve fills empty target fields from the top-level settings.
func (c *Config) Resolve(t Target) Target {
	if t.Username == "" {
		t.Username = c.Username
	}
	if t.Password == "" {
		t.Password = c.Password
	}
	if t.Insecure == nil {
		insecure := c.Insecure
		t.Insecure = &insecure
	}
	if t.Snapshot == "" {
		t.Snapshot = c.Snapshot
	}
	return t
}
