package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/perfmon/internal/procs"
)

// fileConfig mirrors Config for YAML. Nil fields were not set in the file.
type fileConfig struct {
	Interval  *string `yaml:"interval"`
	Top       *int    `yaml:"top"`
	SortBy    *string `yaml:"sort_by"`
	Processes *bool   `yaml:"processes"`
	DiskIO    *bool   `yaml:"disk_io"`
	Battery   *bool   `yaml:"battery"`
	Compact   *bool   `yaml:"compact"`
	Clear     *bool   `yaml:"clear"`

	Temperature struct {
		Enabled *bool   `yaml:"enabled"`
		TTL     *string `yaml:"ttl"`
	} `yaml:"temperature"`

	History *int `yaml:"history"`

	Log struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`
}

// applyFile overlays a YAML file on cfg. A missing file is not an error.
func applyFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if fc.Interval != nil {
		d, err := parseSeconds(*fc.Interval)
		if err != nil {
			return fmt.Errorf("config: %s: interval: %w", path, err)
		}
		cfg.Interval = d
	}
	if fc.Temperature.TTL != nil {
		d, err := parseSeconds(*fc.Temperature.TTL)
		if err != nil {
			return fmt.Errorf("config: %s: temperature.ttl: %w", path, err)
		}
		cfg.TempTTL = d
	}
	setIf(&cfg.Top, fc.Top)
	setIf(&cfg.History, fc.History)
	setIf(&cfg.Processes, fc.Processes)
	setIf(&cfg.DiskIO, fc.DiskIO)
	setIf(&cfg.Battery, fc.Battery)
	setIf(&cfg.Compact, fc.Compact)
	setIf(&cfg.Clear, fc.Clear)
	setIf(&cfg.Temps, fc.Temperature.Enabled)
	setIf(&cfg.LogLevel, fc.Log.Level)
	setIf(&cfg.LogFormat, fc.Log.Format)
	if fc.SortBy != nil {
		cfg.Sort = procs.ParseSortKey(*fc.SortBy)
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
