// Command backend is the main entrypoint for the clip-roulette overlay server.
// It:
//   - Loads configuration and initializes structured logging.
//   - Verifies Twitch API credentials and warms an app access token.
//   - Joins Twitch chat and dispatches viewer commands to the playback engine.
//   - Exposes an HTTP server with the overlay websocket, the cached clip file,
//     /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/clip-roulette/backend/audio"
	"github.com/onnwee/clip-roulette/backend/chat"
	"github.com/onnwee/clip-roulette/backend/clip"
	"github.com/onnwee/clip-roulette/backend/config"
	"github.com/onnwee/clip-roulette/backend/overlay"
	"github.com/onnwee/clip-roulette/backend/playback"
	"github.com/onnwee/clip-roulette/backend/server"
	"github.com/onnwee/clip-roulette/backend/telemetry"
	"github.com/onnwee/clip-roulette/backend/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateCatalogReady(); err != nil {
		slog.Error("twitch api credentials missing", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("clip-roulette", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Clip storage directory; also the HTTP static root the overlay loads from.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", slog.String("dir", cfg.DataDir), slog.Any("err", err))
		os.Exit(1)
	}

	// Warm a Twitch app access token (client-credentials) so the first play
	// command doesn't pay the token round-trip.
	tokenSource := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
	{
		ctx2, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		if tok, err := tokenSource.Get(ctx2); err != nil {
			slog.Warn("twitch app token fetch failed", slog.Any("err", err))
		} else if len(tok) > 6 {
			masked := "***" + tok[len(tok)-6:]
			slog.Info("twitch app token acquired", slog.String("tail", masked))
		}
		cancel()
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Playback engine wiring.
	helix := &twitchapi.HelixClient{AppTokenSource: tokenSource, ClientID: cfg.TwitchClientID}
	fetcher := clip.NewFetcher(helix, clip.CmdDownloader{Quality: cfg.ClipQuality}, cfg.DataDir, cfg.AcquireTimeout)
	muter := &audio.Muter{Apps: cfg.PlayerAppNames}
	registry := overlay.NewRegistry(5 * time.Second)
	orchestrator := playback.NewOrchestrator(registry, fetcher, muter, cfg.SettleDelay)
	gate := playback.NewCooldownGate(cfg.CommandCooldown, cfg.AuthorizedUsers)
	dispatcher := playback.NewDispatcher(ctx, cfg.ChatCommand, gate, orchestrator, registry)

	// Chat listener: authenticated when bot creds are set, anonymous otherwise.
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Warn("chat commands disabled", slog.Any("reason", err))
	}
	go chat.StartChatListener(ctx, cfg, dispatcher.Dispatch)

	// HTTP server (overlay websocket, clip file, health/status/metrics)
	deps := server.Deps{
		Registry:     registry,
		Orchestrator: orchestrator,
		Gate:         gate,
		DataDir:      cfg.DataDir,
	}
	go func() {
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
