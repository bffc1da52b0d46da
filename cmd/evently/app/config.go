package app

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
)

// State backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "EVENTLY"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose  bool
	Quiet    bool
	NoColor  bool
	Format   string
	LogLevel string

	// Config file
	ConfigFile string

	// API
	APIURL    string
	SocketURL string
	Timeout   time.Duration

	// State
	StateDir     string
	StateBackend string

	// Logging
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. EVENTLY_* environment variables
//  3. .env and .env.local files
//  4. Config file (~/.evently.yaml or ./.evently.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", constants.DefaultAPIURL)
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("state_backend", BackendFile)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".evently")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.WrapParse("yaml", v.ConfigFileUsed(), err)
		}
	}

	config := &Config{
		Verbose:  v.GetBool("verbose"),
		Quiet:    v.GetBool("quiet"),
		NoColor:  v.GetBool("no_color"),
		Format:   v.GetString("format"),
		LogLevel: v.GetString("log_level"),

		ConfigFile: v.ConfigFileUsed(),

		APIURL:    v.GetString("api_url"),
		SocketURL: v.GetString("ws_url"),
		Timeout:   v.GetDuration("timeout"),

		StateDir:     v.GetString("state_dir"),
		StateBackend: strings.ToLower(v.GetString("state_backend")),

		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if config.StateDir == "" {
		config.StateDir = defaultStateDir()
	}
	config.StateDir = expandHome(config.StateDir)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that flags or the environment may have broken.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return errors.NewConfigError("state_backend",
			"unknown state backend "+c.StateBackend+" (want file, sqlite or memory)", nil)
	}
	if c.APIURL == "" {
		return errors.NewConfigError("api_url", "API URL must not be empty", nil)
	}
	if c.Timeout <= 0 {
		return errors.NewConfigError("timeout", "timeout must be positive", nil)
	}
	return nil
}

// UpdateFromFlags applies parsed global flags. Flag values take precedence
// over the config file and environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env files; .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.DefaultStateDir
	}
	return filepath.Join(home, constants.DefaultStateDir)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
