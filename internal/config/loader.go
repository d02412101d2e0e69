package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "GEOFINDER"

// Load builds configuration from defaults, an optional YAML file, and
// GEOFINDER_* env vars (a .env file next to the binary is honored too).
// Precedence: defaults < config file < env vars < caller flag overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, error) {
	// Credentials like GEOFINDER_BYPASS_APP_CHECK usually live in .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debug().Err(err).Msg("no .env loaded")
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("room_api_url", cfg.RoomAPIURL)
	v.SetDefault("ws_base_url", cfg.WSBaseURL)
	v.SetDefault("bypass_app_check", cfg.BypassAppCheck)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("transcript_path", cfg.TranscriptPath)
	v.SetDefault("auth_delay", cfg.AuthDelay)
	v.SetDefault("auth_check_delay", cfg.AuthCheckDelay)
	v.SetDefault("session_timeout", cfg.SessionTimeout)
	v.SetDefault("answer_delay_min", cfg.AnswerDelayMin)
	v.SetDefault("answer_delay_max", cfg.AnswerDelayMax)
	v.SetDefault("game_end_grace", cfg.GameEndGrace)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
			if writeErr := writeDefaultConfig(explicitPath, cfg); writeErr != nil {
				logger.Warn().Err(writeErr).Str("path", explicitPath).Msg("failed to write default config")
			} else {
				logger.Info().Str("path", explicitPath).Msg("created default config")
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
