package goasidecache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

var methodToken = regexp.MustCompile(`^[A-Za-z]+$`)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// FileConfig is the YAML form of Config. Fields left out of the file keep
// their defaults. Durations are whole seconds.
type FileConfig struct {
	Methods     []string       `yaml:"methods"`
	Expire      *int           `yaml:"expire"`
	TTL         *int           `yaml:"ttl"`
	Overrides   []FileOverride `yaml:"overrides"`
	LogLevel    string         `yaml:"log_level"`
	LogTemplate string         `yaml:"log_template"`
}

type FileOverride struct {
	URI    string `yaml:"uri"`
	Expire int    `yaml:"expire"`
}

func (o FileOverride) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.URI, validation.Required),
	)
}

// Validate checks the file values before they are turned into options.
func (fc FileConfig) Validate() error {
	return validation.ValidateStruct(&fc,
		validation.Field(&fc.Methods, validation.Each(validation.Required, validation.Match(methodToken))),
		validation.Field(&fc.TTL, validation.By(func(any) error {
			if fc.TTL != nil && fc.Expire != nil {
				return errors.New("cannot be set together with expire")
			}
			return nil
		})),
		validation.Field(&fc.Overrides),
		validation.Field(&fc.LogLevel, validation.In("debug", "info", "warn", "error")),
	)
}

// Options returns the options described by the file.
func (fc FileConfig) Options() []Option {
	var opts []Option

	if fc.Methods != nil {
		opts = append(opts, WithMethods(fc.Methods...))
	}

	expire := fc.Expire
	if expire == nil {
		expire = fc.TTL
	}
	if expire != nil {
		opts = append(opts, WithExpire(time.Duration(*expire)*time.Second))
	}

	for _, o := range fc.Overrides {
		opts = append(opts, WithExpireOverride(o.URI, time.Duration(o.Expire)*time.Second))
	}

	if fc.LogLevel != "" {
		opts = append(opts, WithLogLevel(logLevels[strings.ToLower(fc.LogLevel)]))
	}

	if fc.LogTemplate != "" {
		opts = append(opts, WithLogTemplate(fc.LogTemplate))
	}

	return opts
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(b []byte) (FileConfig, error) {
	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}

	if err := fc.Validate(); err != nil {
		return fc, fmt.Errorf("invalid config: %w", err)
	}

	return fc, nil
}

// LoadConfig reads the YAML configuration at filename.
func LoadConfig(filename string) (FileConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return FileConfig{}, err
	}
	return ParseConfig(b)
}
