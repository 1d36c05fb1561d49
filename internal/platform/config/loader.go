package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HIRELANE_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. Defaults()
//  2. file (YAML) if HIRELANE_CONFIG is set
//  3. env (prefix HIRELANE_; double underscore separates sections,
//     e.g. HIRELANE_SERVER__JWT_SIGNING_KEY -> server.jwt_signing_key)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		// Broker lists arrive comma separated.
		if key == "kafka.brokers" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn must not be empty")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers must not be empty")
	}
	if c.Kafka.MaxAttempts < 1 {
		return errors.New("kafka.max_attempts must be at least 1")
	}
	if c.Documents.SigningKey == "" {
		return errors.New("documents.signing_key must not be empty")
	}
	if c.Worker.BatchSize < 1 {
		return errors.New("worker.batch_size must be at least 1")
	}
	return nil
}
