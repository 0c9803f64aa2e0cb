package chat

import (
	"context"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/clip-roulette/backend/config"
	"github.com/onnwee/clip-roulette/backend/playback"
)

// ParseCommand extracts a command token and its arguments from one chat line.
// ok is false for lines that are not commands (no leading "!").
func ParseCommand(text string) (command string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") || len(text) == 1 {
		return "", nil, false
	}
	fields := strings.Fields(text)
	return fields[0], fields[1:], true
}

// StartChatListener connects to Twitch IRC for the configured channel and
// feeds parsed commands into dispatch. It blocks until ctx is cancelled.
// With bot creds present it authenticates; otherwise it connects anonymously,
// which is enough for reading commands.
func StartChatListener(ctx context.Context, cfg *config.Config, dispatch func(playback.ChatCommand)) {
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("chat listener disabled", slog.Any("reason", err))
		return
	}

	var client *twitch.Client
	if cfg.TwitchBotUsername != "" && cfg.TwitchOAuthToken != "" {
		client = twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	} else {
		client = twitch.NewAnonymousClient()
	}

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		command, args, ok := ParseCommand(msg.Message)
		if !ok {
			return
		}
		slog.Debug("chat command received",
			slog.String("user", msg.User.Name),
			slog.String("command", command),
			slog.Any("args", args),
			slog.String("component", "chat"))
		dispatch(playback.ChatCommand{Username: msg.User.Name, Command: command, Args: args})
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			slog.Debug("twitch chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	client.Join(cfg.TwitchChannel)
	slog.Info("joining twitch chat", slog.String("channel", cfg.TwitchChannel), slog.Bool("anonymous", cfg.TwitchBotUsername == ""))
	if err := client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}
