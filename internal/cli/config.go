package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tokenshelf/internal/logging"
	"github.com/mesh-intelligence/tokenshelf/internal/migrate"
	"github.com/mesh-intelligence/tokenshelf/internal/paths"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "TOKENSHELF"
)

// Config keys.
const (
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyDM           = "dm"
	cfgKeyLogLevel     = "log.level"
	cfgKeyLogFormat    = "log.format"
	cfgKeyFetchTimeout = "migration.fetch_timeout"
	cfgKeyServeAddr    = "serve.addr"
)

const defaultServeAddr = "127.0.0.1:9095"

// settings is the decoded form of config.yaml plus environment overrides.
type settings struct {
	Backend   string               `mapstructure:"backend"`
	DataDir   string               `mapstructure:"data_dir"`
	DM        bool                 `mapstructure:"dm"`
	Log       logging.Config       `mapstructure:"log"`
	Postgres  types.PostgresConfig `mapstructure:"postgres"`
	S3        types.S3Config       `mapstructure:"s3"`
	Monsters  monsterSettings      `mapstructure:"monsters"`
	Migration migrationSettings    `mapstructure:"migration"`
	Players   []types.Player       `mapstructure:"players"`
	Serve     serveSettings        `mapstructure:"serve"`
}

type monsterSettings struct {
	Endpoint string            `mapstructure:"endpoint"`
	Names    map[string]string `mapstructure:"names"`
}

type migrationSettings struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type serveSettings struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// fileConfig is what a fresh config.yaml contains.
type fileConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir,omitempty"`
	DM      bool   `yaml:"dm"`
	Log     struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

const configHeader = "# tokenshelf configuration\n" +
	"# Keys may be overridden with TOKENSHELF_<KEY> environment variables,\n" +
	"# for example TOKENSHELF_LOG_LEVEL=debug.\n\n"

// load resolves the configuration directory, creates a default config.yaml
// on first run and reads it with Viper.
func (a *app) load() error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError("%w", err)
	}
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return userError("decode config: %w", err)
	}
	a.configDir = configDir
	a.settings = s
	return nil
}

func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDM, true)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "")
	v.SetDefault(cfgKeyFetchTimeout, migrate.DefaultFetchTimeout)
	v.SetDefault(cfgKeyServeAddr, defaultServeAddr)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "")
	for _, key := range []string{"bucket", "prefix", "region", "endpoint", "access_key_id", "secret_access_key"} {
		v.SetDefault("s3."+key, "")
	}
	v.SetDefault("monsters.endpoint", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := fileConfig{Backend: types.BackendSQLite, DataDir: dataDir, DM: true}
	cfg.Log.Level = "warn"
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

// storageConfig builds the backend configuration, resolving the data
// directory with flag > config > env > platform default precedence.
func (a *app) storageConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.settings.DataDir)
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend:  a.settings.Backend,
		DataDir:  dataDir,
		Postgres: a.settings.Postgres,
		S3:       a.settings.S3,
	}, nil
}
