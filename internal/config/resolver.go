package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// DefaultAddr is where `galign serve` listens unless configured.
const DefaultAddr = "127.0.0.1:5000"

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIAddr    string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath ResolvedValue `json:"db_path"`
	Addr   ResolvedValue `json:"addr"`

	ResolutionField ResolvedValue `json:"resolution_field"`
	EntityField     ResolvedValue `json:"entity_field"`
	VoteField       ResolvedValue `json:"vote_field"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Fields struct {
		Resolution string `yaml:"resolution"`
		Entity     string `yaml:"entity"`
		Vote       string `yaml:"vote"`
	} `yaml:"fields"`
}

// envConfig lists every environment override.
type envConfig struct {
	DBPath          string `env:"GALIGN_DB"`
	Addr            string `env:"GALIGN_ADDR"`
	ResolutionField string `env:"GALIGN_FIELD_RESOLUTION"`
	EntityField     string `env:"GALIGN_FIELD_ENTITY"`
	VoteField       string `env:"GALIGN_FIELD_VOTE"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".galign", "config.yaml")
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	defaults := alignment.DefaultFields()
	out := ResolvedConfig{
		ConfigPath:      path,
		Addr:            ResolvedValue{Value: DefaultAddr, Source: SourceDefault, From: "built-in default"},
		ResolutionField: ResolvedValue{Value: defaults.Resolution, Source: SourceDefault, From: "built-in default"},
		EntityField:     ResolvedValue{Value: defaults.Entity, Source: SourceDefault, From: "built-in default"},
		VoteField:       ResolvedValue{Value: defaults.Vote, Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Addr, cfg.Server.Addr, SourceConfig, path)
		apply(&out.ResolutionField, cfg.Fields.Resolution, SourceConfig, path)
		apply(&out.EntityField, cfg.Fields.Entity, SourceConfig, path)
		apply(&out.VoteField, cfg.Fields.Vote, SourceConfig, path)
	}

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return out, fmt.Errorf("parse env: %w", err)
	}
	apply(&out.DBPath, ec.DBPath, SourceEnv, "GALIGN_DB")
	apply(&out.Addr, ec.Addr, SourceEnv, "GALIGN_ADDR")
	apply(&out.ResolutionField, ec.ResolutionField, SourceEnv, "GALIGN_FIELD_RESOLUTION")
	apply(&out.EntityField, ec.EntityField, SourceEnv, "GALIGN_FIELD_ENTITY")
	apply(&out.VoteField, ec.VoteField, SourceEnv, "GALIGN_FIELD_VOTE")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.Addr, opts.CLIAddr, SourceCLI, "--addr")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// Fields returns the resolved column names.
func (r ResolvedConfig) Fields() alignment.Fields {
	return alignment.Fields{
		Resolution: r.ResolutionField.Value,
		Entity:     r.EntityField.Value,
		Vote:       r.VoteField.Value,
	}.WithDefaults()
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
