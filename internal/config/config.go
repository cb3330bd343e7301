package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	EnvHistoryFile = "PIPESH_HISTFILE"
	EnvHistorySize = "PIPESH_HISTSIZE"
	EnvDebug       = "PIPESH_DEBUG"
)

type Config struct {
	Command     string
	ReadStdin   bool
	Debug       bool
	Interactive bool

	HistorySize int `validate:"gte=0"`
	HistoryFile string

	PS1 string `validate:"required"`

	EnableColors bool
}

func New() *Config {
	return &Config{
		HistorySize: 1000,
		HistoryFile: "~/.pipesh_history",

		PS1: "\\u@\\h:\\w\\$ ",

		EnableColors: true,
	}
}

// LoadEnv applies the PIPESH_* overrides found through getenv.
func (c *Config) LoadEnv(getenv func(string) string) error {
	if file, ok := lookup(getenv, EnvHistoryFile); ok {
		c.HistoryFile = file
	}

	if size, ok := lookup(getenv, EnvHistorySize); ok {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHistorySize, err)
		}
		c.HistorySize = n
	}

	if debug, ok := lookup(getenv, EnvDebug); ok {
		on, err := strconv.ParseBool(debug)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		c.Debug = on
	}

	return nil
}

func lookup(getenv func(string) string, key string) (string, bool) {
	value := strings.TrimSpace(getenv(key))
	return value, value != ""
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// HistoryPath returns the history file with a leading ~ replaced by home. An
// empty result disables persistent history, as does a ~ path without a home.
func (c *Config) HistoryPath(home string) string {
	file := c.HistoryFile
	switch {
	case home == "" && strings.HasPrefix(file, "~"):
		return ""
	case file == "~":
		return home
	case strings.HasPrefix(file, "~/"):
		return filepath.Join(home, file[2:])
	default:
		return file
	}
}
