// Package configloader merges layered configuration sources into a typed struct.
package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Validator is implemented by configuration roots checked after loading.
type Validator interface {
	Validate() error
}

type options struct {
	configFile string
	envFile    string
	defaults   map[string]any
}

// Option customizes where Load reads configuration from.
type Option func(*options)

// WithConfigFile overrides the default "config.yaml" location.
func WithConfigFile(path string) Option {
	return func(o *options) {
		if path != "" {
			o.configFile = path
		}
	}
}

// WithEnvFile overrides the default ".env" location.
func WithEnvFile(path string) Option {
	return func(o *options) {
		if path != "" {
			o.envFile = path
		}
	}
}

// WithDefaults registers values used when no other source sets the key.
// Keys use the koanf "." delimiter, e.g. "hydration.timeout".
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// Load fills a T from, in increasing priority: defaults, the YAML config file,
// <SERVICE>_ keys of the .env file and <SERVICE>_ environment variables.
// Env keys are lower-cased and "_" becomes the "." delimiter, so
// CART_HYDRATION_TIMEOUT sets hydration.timeout. Missing files are skipped.
func Load[T Validator](serviceName string, opts ...Option) (T, error) {
	var cfg T
	o := options{configFile: "config.yaml", envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	prefix := strings.ToUpper(serviceName) + "_"
	for _, src := range sources(o, prefix) {
		if err := src.load(k); err != nil {
			slog.Warn("skipping config source", "source", src.name, "error", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

type source struct {
	name string
	load func(k *koanf.Koanf) error
}

func sources(o options, prefix string) []source {
	toKey := envKey(prefix)
	return []source{
		{name: "defaults", load: func(k *koanf.Koanf) error {
			if len(o.defaults) == 0 {
				return nil
			}
			return k.Load(confmap.Provider(o.defaults, "."), nil)
		}},
		{name: o.configFile, load: func(k *koanf.Koanf) error {
			err := k.Load(file.Provider(o.configFile), yaml.Parser())
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}},
		{name: o.envFile, load: func(k *koanf.Koanf) error {
			values, err := godotenv.Read(o.envFile)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			scoped := make(map[string]any, len(values))
			for key, value := range values {
				if strings.HasPrefix(strings.ToUpper(key), prefix) {
					scoped[toKey(key)] = value
				}
			}
			return k.Load(confmap.Provider(scoped, "."), nil)
		}},
		{name: "environment", load: func(k *koanf.Koanf) error {
			return k.Load(env.Provider(prefix, ".", toKey), nil)
		}},
	}
}

func envKey(prefix string) func(string) string {
	lower := strings.ToLower(prefix)
	return func(key string) string {
		key = strings.TrimPrefix(strings.ToLower(key), lower)
		return strings.ReplaceAll(key, "_", ".")
	}
}
