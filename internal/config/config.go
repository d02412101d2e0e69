package config

import (
	"fmt"
	"time"
)

// Harness modes selecting which deployment the session runs against.
const (
	ModeDeployed = "deployed"
	ModeLocal    = "local"
)

// Config holds harness configuration values.
type Config struct {
	Mode           string        `mapstructure:"mode" yaml:"mode"`
	RoomAPIURL     string        `mapstructure:"room_api_url" yaml:"room_api_url"`
	WSBaseURL      string        `mapstructure:"ws_base_url" yaml:"ws_base_url"`
	BypassAppCheck string        `mapstructure:"bypass_app_check" yaml:"bypass_app_check"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	TranscriptPath string        `mapstructure:"transcript_path" yaml:"transcript_path"`
	AuthDelay      time.Duration `mapstructure:"auth_delay" yaml:"auth_delay"`
	AuthCheckDelay time.Duration `mapstructure:"auth_check_delay" yaml:"auth_check_delay"`
	SessionTimeout time.Duration `mapstructure:"session_timeout" yaml:"session_timeout"`
	AnswerDelayMin time.Duration `mapstructure:"answer_delay_min" yaml:"answer_delay_min"`
	AnswerDelayMax time.Duration `mapstructure:"answer_delay_max" yaml:"answer_delay_max"`
	GameEndGrace   time.Duration `mapstructure:"game_end_grace" yaml:"game_end_grace"`
}

// Default returns configuration pointed at the deployed service, with the
// stock session timings.
func Default() Config {
	return Config{
		Mode:           ModeDeployed,
		RoomAPIURL:     "https://geo.api.oof2510.space/1v1/new",
		WSBaseURL:      "wss://geofinder-1v1-ws.onrender.com",
		BypassAppCheck: "NEED THIS",
		LogLevel:       "info",
		AuthDelay:      1 * time.Second,
		AuthCheckDelay: 3 * time.Second,
		SessionTimeout: 2 * time.Minute,
		AnswerDelayMin: 5 * time.Second,
		AnswerDelayMax: 25 * time.Second,
		GameEndGrace:   2 * time.Second,
	}
}

// ApplyMode rewrites the endpoint URLs for an explicitly selected mode. An
// empty mode keeps whatever URLs the config already carries, from file or
// environment.
func (c *Config) ApplyMode(mode string) error {
	switch mode {
	case "":
		return nil
	case ModeDeployed:
		d := Default()
		c.RoomAPIURL = d.RoomAPIURL
		c.WSBaseURL = d.WSBaseURL
	case ModeLocal:
		c.RoomAPIURL = "http://localhost:8080/1v1/new"
		c.WSBaseURL = "ws://localhost:8080"
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	c.Mode = mode
	return nil
}

// Validate rejects configurations the session cannot run with.
func (c Config) Validate() error {
	if c.RoomAPIURL == "" || c.WSBaseURL == "" {
		return fmt.Errorf("room_api_url and ws_base_url must be set")
	}
	if c.AnswerDelayMax < c.AnswerDelayMin {
		return fmt.Errorf("answer_delay_max %v is below answer_delay_min %v", c.AnswerDelayMax, c.AnswerDelayMin)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive")
	}
	return nil
}
