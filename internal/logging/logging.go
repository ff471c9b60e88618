// Package logging builds the zap loggers used across tokenshelf.
package logging

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// Config holds logging configuration.
type Config struct {
	Level       string            `json:"level" yaml:"level" mapstructure:"level"`
	Format      string            `json:"format" yaml:"format" mapstructure:"format"` // "json", "console" or empty for auto
	OutputPath  string            `json:"output_path" yaml:"output_path,omitempty" mapstructure:"output_path"`
	Fields      map[string]string `json:"fields" yaml:"fields,omitempty" mapstructure:"fields"`
	Development bool              `json:"development" yaml:"development,omitempty" mapstructure:"development"`
}

// New creates a logger from config. An unparsable level falls back to
// info. With no format set, console output is used when stderr is a
// terminal and JSON otherwise.
func New(config Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level
	zapConfig.Encoding = encoding(config.Format, term.IsTerminal(int(os.Stderr.Fd())))

	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	fields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return logger.With(fields...), nil
}

// NewDefault returns an info level logger, or a no-op logger if the zap
// configuration cannot be built.
func NewDefault() *zap.Logger {
	logger, err := New(Config{Level: "info"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func encoding(format string, tty bool) string {
	switch format {
	case "json", "console":
		return format
	}
	if tty {
		return "console"
	}
	return "json"
}
