package pipesql

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the pipeline settings.
//
//	databaseType: openGauss
//	schema: public
//	conditionColumns:
//	  t_order: [user_id]
//	pageSize: 500
//	lanes: 4
//	requireUpsert: true
//	redact: [password]
type Config struct {
	DatabaseType     string              `yaml:"databaseType"`
	Schema           string              `yaml:"schema"`
	ConditionColumns map[string][]string `yaml:"conditionColumns"`
	PageSize         int                 `yaml:"pageSize"`
	Lanes            int                 `yaml:"lanes"`
	RequireUpsert    bool                `yaml:"requireUpsert"`
	Redact           []string            `yaml:"redact"`
}

const redacted = "[REDACTED]"

// LoadConfig decodes YAML settings, rejecting unknown keys, and fills defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("pipesql: failed to decode config: %w", err)
	}
	if cfg.DatabaseType == "" {
		return Config{}, fmt.Errorf("pipesql: config: databaseType is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.Lanes <= 0 {
		cfg.Lanes = 1
	}
	return cfg, nil
}

// LoadConfigFile reads settings from a YAML file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("pipesql: failed to open config: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return LoadConfig(f)
}

// Engine returns the engine of the configured database type.
func (c Config) Engine() (*Engine, error) {
	return NewEngineFor(c.DatabaseType)
}

func (c Config) ApplierConfig(logger *zap.Logger) ApplierConfig {
	redact := make(RedactMap, len(c.Redact))
	for _, col := range c.Redact {
		redact[col] = func(string, any) any { return redacted }
	}
	return ApplierConfig{
		Schema:           c.Schema,
		ConditionColumns: c.ConditionColumns,
		RequireUpsert:    c.RequireUpsert,
		Lanes:            c.Lanes,
		Redact:           redact,
		Logger:           logger,
	}
}

func (c Config) DumperConfig(logger *zap.Logger) DumperConfig {
	return DumperConfig{
		Schema:   c.Schema,
		PageSize: c.PageSize,
		Logger:   logger,
	}
}
