// Package config loads merge run settings from a TOML file.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/dannyswat/xmlmerge"
)

const (
	DefaultWorkers  = 4
	DefaultLogLevel = "info"
)

// Config describes one merge run.
type Config struct {
	Original string
	Mods     []string
	Output   string
	Strategy xmlmerge.Strategy
	Workers  int
	Report   string
	LogLevel string
}

type fileConfig struct {
	Original string   `toml:"original"`
	Mods     []string `toml:"mods"`
	Output   string   `toml:"output"`
	Strategy string   `toml:"strategy"`
	Workers  int      `toml:"workers"`
	Report   string   `toml:"report"`
	LogLevel string   `toml:"log_level"`
}

func Default() Config {
	return Config{
		Strategy: xmlmerge.LastWins,
		Workers:  DefaultWorkers,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads path from fs and applies the keys it defines over the defaults.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	var raw fileConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	if meta.IsDefined("original") {
		cfg.Original = strings.TrimSpace(raw.Original)
	}
	if meta.IsDefined("mods") {
		cfg.Mods = normalizeDirs(raw.Mods)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("strategy") {
		s, err := xmlmerge.ParseStrategy(strings.TrimSpace(raw.Strategy))
		if err != nil {
			return Config{}, errors.Wrap(err, "parse strategy")
		}
		cfg.Strategy = s
	}
	if meta.IsDefined("workers") {
		cfg.Workers = raw.Workers
	}
	if meta.IsDefined("report") {
		cfg.Report = strings.TrimSpace(raw.Report)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}

func normalizeDirs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, dir := range in {
		if v := strings.TrimSpace(dir); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports every missing or out-of-range setting at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Original == "" {
		result = multierror.Append(result, errors.New("original directory is required"))
	}
	if len(c.Mods) == 0 {
		result = multierror.Append(result, errors.New("at least one mod directory is required"))
	}
	if c.Output == "" {
		result = multierror.Append(result, errors.New("output directory is required"))
	}
	if c.Workers < 1 {
		result = multierror.Append(result, errors.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	return result.ErrorOrNil()
}
