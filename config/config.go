// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels      = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageDrivers = []string{"sqlite", "postgres"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("storage.driver", "storage_driver")
	v.BindEnv("storage.dsn", "storage_dsn")

	v.BindEnv("uploads.dir", "uploads_dir")
	v.BindEnv("uploads.max_size", "uploads_max_size")

	v.BindEnv("analysis.ffmpeg_path", "analysis_ffmpeg_path")
	v.BindEnv("analysis.python_path", "analysis_python_path")
	v.BindEnv("analysis.script_path", "analysis_script_path")
	v.BindEnv("analysis.timeout", "analysis_timeout")
	v.BindEnv("analysis.repair_timeout", "analysis_repair_timeout")

	v.BindEnv("archive.enabled", "archive_enabled")
	v.BindEnv("archive.account_id", "archive_account_id")
	v.BindEnv("archive.access_key_id", "archive_access_key_id")
	v.BindEnv("archive.secret_access_key", "archive_secret_access_key")
	v.BindEnv("archive.bucket", "archive_bucket")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "database.db")

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_size", 100)

	v.SetDefault("analysis.ffmpeg_path", "ffmpeg")
	v.SetDefault("analysis.python_path", "python3")
	v.SetDefault("analysis.script_path", "scripts/audio_analysis.py")
	v.SetDefault("analysis.timeout", time.Hour)
	v.SetDefault("analysis.repair_timeout", 2*time.Minute)

	v.SetDefault("archive.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validStorageDrivers, v.GetString("storage.driver")) {
		return errors.New("invalid storage driver provided")
	}

	if v.GetString("jwt.secret") == "" {
		return errors.New("no JWT secret provided, set jwt.secret in config.toml or the jwt_secret environment variable")
	}

	if v.GetInt("uploads.max_size") <= 0 {
		return errors.New("uploads.max_size must be bigger than 0")
	}

	if v.GetBool("archive.enabled") {
		if v.GetString("archive.account_id") == "" {
			return errors.New("archive account id can't be empty")
		}
		if v.GetString("archive.access_key_id") == "" {
			return errors.New("archive access key id can't be empty")
		}
		if v.GetString("archive.secret_access_key") == "" {
			return errors.New("archive secret access key can't be empty")
		}
		if v.GetString("archive.bucket") == "" {
			return errors.New("archive bucket can't be empty")
		}
	}

	if err := os.MkdirAll(v.GetString("uploads.dir"), 0o755); err != nil {
		return fmt.Errorf("failed to create uploads directory, %w", err)
	}

	v.Set("uploads.max_size", v.GetInt64("uploads.max_size")<<20)
	return nil
}
