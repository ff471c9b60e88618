package types

import (
	"errors"
	"fmt"
)

// Config holds backend selection and parameters for Storage.Attach.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres,omitempty" mapstructure:"postgres"`
	S3       S3Config       `json:"s3" yaml:"s3,omitempty" mapstructure:"s3"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	DSN   string `json:"dsn" yaml:"dsn,omitempty" mapstructure:"dsn"`
	Table string `json:"table" yaml:"table,omitempty" mapstructure:"table"`
}

// S3Config configures the s3 backend. Endpoint is optional and enables
// path-style addressing for MinIO and other S3 compatible stores.
type S3Config struct {
	Bucket          string `json:"bucket" yaml:"bucket,omitempty" mapstructure:"bucket"`
	Prefix          string `json:"prefix" yaml:"prefix,omitempty" mapstructure:"prefix"`
	Region          string `json:"region" yaml:"region,omitempty" mapstructure:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrMissingSetting = errors.New("missing backend setting")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendFile:     true,
	BackendMemory:   true,
	BackendPostgres: true,
	BackendS3:       true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure, wrapped with the offending field where one
// applies.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn: %w", ErrMissingSetting)
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket: %w", ErrMissingSetting)
		}
	}
	return nil
}
