package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeServe = "serve"
	ModeLoad  = "load"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
	DefaultRefDB       = "data/reference.db"
	DefaultClientDB    = "data/client.db"
)

// Config holds all configuration for the record extraction service.
type Config struct {
	// Mode selects the HTTP server ("serve") or the batch loader ("load").
	Mode string
	Host string
	Port int

	// Database paths. Reference and client records never share a file.
	RefDB    string
	ClientDB string

	// DataDir is the directory the batch loader scans for paired
	// PDF/metadata files.
	DataDir string

	Version     string
	LogLevel    string
	MaxFileSize int64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeServe,
		Host:        DefaultHost,
		Port:        DefaultPort,
		RefDB:       DefaultRefDB,
		ClientDB:    DefaultClientDB,
		DataDir:     "",
		Version:     "1.0.0",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.DataDir != "" {
		if expandedPath, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults.
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("DEUNGDAE")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("refdb", cfg.RefDB)
	viper.SetDefault("clientdb", cfg.ClientDB)
	viper.SetDefault("datadir", cfg.DataDir)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags.
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'serve' for the HTTP server, 'load' for the batch loader")
	pflag.String("host", cfg.Host, "Server host address (serve mode only)")
	pflag.Int("port", cfg.Port, "Server port (serve mode only)")
	pflag.String("refdb", cfg.RefDB, "Path to the reference record database")
	pflag.String("clientdb", cfg.ClientDB, "Path to the client record database")
	pflag.String("datadir", cfg.DataDir, "Directory with paired .pdf/.yaml files (load mode only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration.
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("refdb", pflag.Lookup("refdb"))
	_ = viper.BindPFlag("clientdb", pflag.Lookup("clientdb"))
	_ = viper.BindPFlag("datadir", pflag.Lookup("datadir"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message.
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDeungdae - school record extraction service\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         # HTTP server on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=serve --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=load --datadir=./records         # batch-load paired files\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_MODE        Run mode\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_REFDB       Reference database path\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_CLIENTDB    Client database path\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_DATADIR     Batch loader directory\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  DEUNGDAE_MAXFILESIZE Maximum file size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper.
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.RefDB = viper.GetString("refdb")
	cfg.ClientDB = viper.GetString("clientdb")
	cfg.DataDir = viper.GetString("datadir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Mode != ModeServe && c.Mode != ModeLoad {
		return errors.New("mode must be either 'serve' or 'load'")
	}

	if c.Mode == ModeServe && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.RefDB == "" || c.ClientDB == "" {
		return errors.New("database paths cannot be empty")
	}
	if c.RefDB == c.ClientDB {
		return errors.New("reference and client databases must be separate files")
	}

	if c.Mode == ModeLoad {
		if c.DataDir == "" {
			return errors.New("datadir is required in load mode")
		}
		info, err := os.Stat(c.DataDir)
		if err != nil {
			return fmt.Errorf("cannot access data directory %s: %w", c.DataDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("data directory %s is not a directory", c.DataDir)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, RefDB: %s, ClientDB: %s, DataDir: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.RefDB, c.ClientDB, c.DataDir, c.LogLevel, c.MaxFileSize)
}

// IsServeMode returns true when running as the HTTP server.
func (c *Config) IsServeMode() bool {
	return c.Mode == ModeServe
}

// IsLoadMode returns true when running as the batch loader.
func (c *Config) IsLoadMode() bool {
	return c.Mode == ModeLoad
}
