package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoaderOptions configures config loading.
type LoaderOptions struct {
	// Path to the YAML config file.
	Path string

	// Watch reloads the config when the file changes.
	Watch bool

	// OnChange is invoked with the reloaded config. Errors are logged, not
	// propagated; the previous config stays in effect on a bad reload.
	OnChange func(*Config) error
}

// Loader loads and optionally watches the YAML config file.
type Loader struct {
	options LoaderOptions
	parser  *yaml.YAML
}

// NewLoader creates a config loader.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	return &Loader{
		options: opts,
		parser:  yaml.Parser(),
	}, nil
}

// Load reads, expands, validates, and unmarshals the config file.
func (l *Loader) Load() (*Config, error) {
	provider := file.Provider(l.options.Path)

	cfg, err := l.loadFrom(provider)
	if err != nil {
		return nil, err
	}

	if l.options.Watch {
		l.watch(provider)
	}

	return cfg, nil
}

// loadFrom parses the file into a fresh koanf tree. Each (re)load starts
// empty so keys removed from the file actually disappear instead of
// surviving a merge over the previous tree.
func (l *Loader) loadFrom(provider *file.File) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(provider, l.parser); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.options.Path, err)
	}

	k, err := expandEnvVars(k)
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return unmarshalAndProcess(k)
}

func (l *Loader) watch(provider *file.File) {
	err := provider.Watch(func(event interface{}, err error) {
		if err != nil {
			slog.Warn("config watch error", "error", err)
			return
		}

		newCfg, err := l.loadFrom(provider)
		if err != nil {
			slog.Warn("reloaded config is invalid, keeping previous", "error", err)
			return
		}

		if l.options.OnChange != nil {
			if err := l.options.OnChange(newCfg); err != nil {
				slog.Warn("config change callback failed", "error", err)
			} else {
				slog.Info("configuration reloaded", "path", l.options.Path)
			}
		}
	})
	if err != nil {
		slog.Warn("config watcher could not start", "error", err)
	}
}

func unmarshalAndProcess(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// expandEnvVars substitutes ${VAR} references throughout the loaded tree so
// secrets like database passwords can stay out of the file.
func expandEnvVars(k *koanf.Koanf) (*koanf.Koanf, error) {
	expanded, ok := expandEnvInValue(k.Raw()).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected type after env var expansion")
	}

	fresh := koanf.New(".")
	if err := fresh.Load(confmap.Provider(expanded, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load expanded config: %w", err)
	}
	return fresh, nil
}

func expandEnvInValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = expandEnvInValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = expandEnvInValue(item)
		}
		return out
	default:
		return v
	}
}

// LoadConfig is the one-shot convenience entry point.
func LoadConfig(opts LoaderOptions) (*Config, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
