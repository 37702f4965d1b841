package autoreg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig and LoadConfigFile.
const (
	EnvDefaultLifetime    = "AUTOREG_DEFAULT_LIFETIME"
	EnvDefaultTags        = "AUTOREG_DEFAULT_TAGS"
	EnvWorkers            = "AUTOREG_WORKERS"
	EnvVerifyConstructors = "AUTOREG_VERIFY_CONSTRUCTORS"
)

// Config is the externally configurable part of a pass.
type Config struct {
	// DefaultLifetime applies to types without a lifetime fact.
	DefaultLifetime Lifetime `yaml:"defaultLifetime"`
	// DefaultTags are the scope tags used when DefaultLifetime is per-matching-scope.
	DefaultTags []string `yaml:"defaultTags"`
	// Workers bounds concurrent planning; zero keeps the engine default.
	Workers int `yaml:"workers"`
	// VerifyConstructors consults constructor policies during the pass.
	VerifyConstructors bool `yaml:"verifyConstructors"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{DefaultLifetime: LifetimePerScope}
}

// LoadConfig reads .env files (default ".env", missing files are ignored) and then
// the AUTOREG_* environment variables on top of DefaultConfig.
func LoadConfig(envFiles ...string) (Config, error) {
	loadEnvFiles(envFiles)
	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file and applies the environment on top.
func LoadConfigFile(path string, envFiles ...string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("autoreg config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("autoreg config: parse %s: %w", path, err)
	}
	loadEnvFiles(envFiles)
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env files are optional
	_ = godotenv.Load(files...)
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDefaultLifetime); ok && v != "" {
		l, err := ParseLifetime(v)
		if err != nil {
			return fmt.Errorf("autoreg config: %s: %w", EnvDefaultLifetime, err)
		}
		c.DefaultLifetime = l
	}
	if v, ok := os.LookupEnv(EnvDefaultTags); ok && v != "" {
		c.DefaultTags = splitList(v)
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("autoreg config: %s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := os.LookupEnv(EnvVerifyConstructors); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("autoreg config: %s: %w", EnvVerifyConstructors, err)
		}
		c.VerifyConstructors = b
	}
	return nil
}

// DefaultChoice converts the configured default into a LifetimeChoice.
// per-owned cannot be a configured default since no owner type can be named here.
func (c Config) DefaultChoice() (LifetimeChoice, error) {
	l, err := ParseLifetime(string(c.DefaultLifetime))
	if err != nil {
		return LifetimeChoice{}, fmt.Errorf("autoreg config: default lifetime: %w", err)
	}
	if l == LifetimePerOwned {
		return LifetimeChoice{}, fmt.Errorf("autoreg config: %s cannot be used as the default lifetime", l)
	}
	choice := LifetimeChoice{Lifetime: l}
	if l == LifetimePerMatchingScope {
		for _, tag := range c.DefaultTags {
			choice.Tags = append(choice.Tags, tag)
		}
	}
	if err := choice.Validate(); err != nil {
		return LifetimeChoice{}, fmt.Errorf("autoreg config: default lifetime: %w", err)
	}
	return choice, nil
}

// Options converts the configuration into engine options.
func (c Config) Options() ([]Option, error) {
	choice, err := c.DefaultChoice()
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithDefaultLifetime(choice),
		WithConstructorVerification(c.VerifyConstructors),
	}
	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
