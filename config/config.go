// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2017-2023 The Spacemesh developers

package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"

	"github.com/spacemeshos/fragpow/gate"
)

const (
	defaultConfigFilename = "fragpow.conf"
	defaultLogFilename    = "fragpow.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
)

// Config defines the configuration options for the fragpow tools.
type Config struct {
	ConfigFile     string `long:"configfile"     description:"Path to configuration file"                        short:"c"`
	LogDir         string `long:"logdir"         description:"Directory to log output (disabled if empty)"`
	DebugLog       bool   `long:"debuglog"       description:"Enable debug logs"`
	JSONLog        bool   `long:"jsonlog"        description:"Whether to log in JSON format"`
	MaxLogFiles    int    `long:"maxlogfiles"    description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MetricsListen  string `long:"metrics-listen" description:"Address to expose prometheus metrics on (disabled if empty)"`
	CPUProfile     string `long:"cpuprofile"     description:"Write CPU profile to the specified file"`

	Gate gate.Config `group:"Gate"`
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	return &Config{
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		Gate:           gate.DefaultConfig(),
	}
}

// DefaultConfigFile is the config file looked up in the working directory.
func DefaultConfigFile() string {
	return defaultConfigFilename
}

// LogFile returns the path of the log file, or "" if file logging is disabled.
func (c *Config) LogFile() string {
	if c.LogDir == "" {
		return ""
	}
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// ParseFlags reads values from command line arguments.
func ParseFlags(preCfg *Config) (*Config, error) {
	return parseArgs(preCfg, os.Args[1:])
}

func parseArgs(preCfg *Config, args []string) (*Config, error) {
	if _, err := flags.ParseArgs(preCfg, args); err != nil {
		return nil, err
	}
	return preCfg, nil
}

// ReadConfigFile reads config from an ini file.
// It uses the provided `cfg` as a base config and overrides it with the values
// from the config file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	cfg.ConfigFile = cleanAndExpandPath(cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}

	return cfg, nil
}

// SetupConfig expands paths and creates the log directory.
func SetupConfig(cfg *Config) (*Config, error) {
	// As soon as we're done parsing configuration options, ensure all paths
	// to directories and files are cleaned and expanded before attempting
	// to use them later on.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.CPUProfile = cleanAndExpandPath(cfg.CPUProfile)

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", cfg.LogDir, err)
		}
	}
	return cfg, nil
}

// Validate reports every invalid option at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.MaxLogFiles < 0 {
		result = multierror.Append(result, fmt.Errorf("maxlogfiles must not be negative, got %d", c.MaxLogFiles))
	}
	if c.MaxLogFileSize < 0 {
		result = multierror.Append(result, fmt.Errorf("maxlogfilesize must not be negative, got %d", c.MaxLogFileSize))
	}
	if err := c.Gate.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
