package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk YAML layout. Pointer fields distinguish "unset"
// from zero values so the file only overrides what it names.
type fileConfig struct {
	Executable      *string  `yaml:"executable"`
	Args            []string `yaml:"args"`
	Stdin           *string  `yaml:"stdin"`
	Stdout          *string  `yaml:"stdout"`
	Stderr          *string  `yaml:"stderr"`
	DelayMS         *int64   `yaml:"delay_ms"`
	LogFormat       *string  `yaml:"log_format"`
	LogLevel        *string  `yaml:"log_level"`
	MetricsAddr     *string  `yaml:"metrics_addr"`
	MetricsTextfile *string  `yaml:"metrics_textfile"`
}

// LoadFile reads the YAML config file at path and applies it on top of cfg.
func LoadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := decode(cfg, f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// decode applies YAML from r to cfg. Unknown fields are rejected.
func decode(cfg *Config, r io.Reader) error {
	var fc fileConfig

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if fc.Executable != nil {
		cfg.Executable = *fc.Executable
	}
	if fc.Args != nil {
		cfg.Args = append([]string(nil), fc.Args...)
	}
	setString(&cfg.Stdin, fc.Stdin)
	setString(&cfg.Stdout, fc.Stdout)
	setString(&cfg.Stderr, fc.Stderr)
	if fc.DelayMS != nil {
		cfg.Delay = time.Duration(*fc.DelayMS) * time.Millisecond
	}
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.MetricsTextfile, fc.MetricsTextfile)

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
