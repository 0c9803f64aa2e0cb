// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required Twitch API credentials, use ValidateCatalogReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Twitch
	TwitchChannel      string
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string

	// Chat command surface
	ChatCommand     string
	AuthorizedUsers []string
	CommandCooldown time.Duration

	// Playback
	PlayerAppNames []string
	SettleDelay    time.Duration
	AcquireTimeout time.Duration
	ClipQuality    string

	// Storage / server
	DataDir  string
	HTTPAddr string
}

// Load reads environment variables and applies defaults. Missing Twitch API creds
// don't fail here; use ValidateCatalogReady() when a component needs Helix access.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.ChatCommand = os.Getenv("CHAT_COMMAND")
	if cfg.ChatCommand == "" {
		cfg.ChatCommand = "!show"
	}
	if !strings.HasPrefix(cfg.ChatCommand, "!") {
		return nil, fmt.Errorf("CHAT_COMMAND must start with '!', got %q", cfg.ChatCommand)
	}

	// Authorized users bypass the cooldown and may use privileged commands.
	// Twitch logins are lower case; normalize so chat-reported names always match.
	cfg.AuthorizedUsers = splitList(os.Getenv("AUTHORIZED_USERS"))
	for i, u := range cfg.AuthorizedUsers {
		cfg.AuthorizedUsers[i] = strings.ToLower(u)
	}

	cfg.CommandCooldown = 30 * time.Second
	if v := os.Getenv("COMMAND_COOLDOWN"); v != "" {
		d, err := parseSeconds(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid COMMAND_COOLDOWN %q", v)
		}
		cfg.CommandCooldown = d
	}

	cfg.PlayerAppNames = splitList(os.Getenv("PLAYER_APP_NAMES"))

	cfg.SettleDelay = time.Second
	if v := os.Getenv("SETTLE_DELAY"); v != "" {
		if d, err := parseSeconds(v); err == nil && d >= 0 {
			cfg.SettleDelay = d
		}
	}

	cfg.AcquireTimeout = 2 * time.Minute
	if v := os.Getenv("ACQUIRE_TIMEOUT"); v != "" {
		if d, err := parseSeconds(v); err == nil && d > 0 {
			cfg.AcquireTimeout = d
		}
	}

	cfg.ClipQuality = os.Getenv("CLIP_QUALITY")
	if cfg.ClipQuality == "" {
		cfg.ClipQuality = "360"
	}

	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8000"
	}

	return cfg, nil
}

// ValidateCatalogReady checks required fields for Helix clip lookups.
func (c *Config) ValidateCatalogReady() error {
	if c.TwitchClientID == "" || c.TwitchClientSecret == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET")
	}
	return nil
}

// ValidateChatReady checks required fields for joining chat. A bot username/token
// pair is optional (anonymous read-only connections can ingest commands), but
// the channel itself is not.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL")
	}
	return nil
}

// parseSeconds reads a duration given either as a bare number of seconds
// ("30") or as a Go duration string ("45s", "1m30s").
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
