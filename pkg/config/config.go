// Package config loads typed configuration structs from the
// environment, optionally seeded from a dotenv-style file. Every
// component declares its own struct with envconfig tags and a prefix.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFileFlag string
	flagOnce    sync.Once
)

// MustNew loads T from the environment under prefix and panics on
// failure. Use it only at process startup, where a missing required
// variable should stop the binary.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(fmt.Sprintf("config: load %s: %v", prefix, err))
	}
	return conf
}

// New loads T from the environment under prefix. An env file given via
// the -env flag or the ENV_FILE variable is exported first; without
// either, a ./.env file is picked up when present.
func New[T any](prefix string) (*T, error) {
	if path := envFilePath(); path != "" {
		if err := exportEnvFile(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	} else if err := exportEnvFileIfExists(".env"); err != nil {
		return nil, fmt.Errorf("load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func envFilePath() string {
	flagOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFileFlag, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	if path := strings.TrimSpace(envFileFlag); path != "" {
		return path
	}
	return strings.TrimSpace(os.Getenv("ENV_FILE"))
}

func exportEnvFileIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvFile(path)
}

// exportEnvFile copies the file's settings into the process
// environment so envconfig sees one uniform source. Variables already
// set in the environment win over file values.
func exportEnvFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for key, val := range v.AllSettings() {
		name := strings.ToUpper(key)
		if _, present := os.LookupEnv(name); present {
			continue
		}
		if err := os.Setenv(name, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
