package playback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/onnwee/clip-roulette/backend/overlay"
	"github.com/onnwee/clip-roulette/backend/telemetry"
)

// Controller is the orchestrator surface the dispatcher drives. BeginPlay
// reserves a cycle generation; Play runs the reserved cycle.
type Controller interface {
	BeginPlay() uint64
	Play(ctx context.Context, gen uint64, channel string)
	Skip()
	ToggleMuting() bool
	SetVolume(level int)
}

// Dispatcher maps parsed chat commands onto playback actions, applying
// authorization and cooldown rules. No command outcome may stop the chat
// stream: every path here either acts or logs and returns.
type Dispatcher struct {
	playToken   string
	gate        *CooldownGate
	controller  Controller
	broadcaster Broadcaster

	// now is the gate's clock; overridable in tests.
	now func() time.Time
	// baseCtx parents the async play cycles.
	baseCtx context.Context
}

// NewDispatcher builds a dispatcher. playToken is the configurable chat
// command that triggers playback (e.g. "!show").
func NewDispatcher(ctx context.Context, playToken string, gate *CooldownGate, controller Controller, broadcaster Broadcaster) *Dispatcher {
	return &Dispatcher{
		playToken:   playToken,
		gate:        gate,
		controller:  controller,
		broadcaster: broadcaster,
		now:         time.Now,
		baseCtx:     ctx,
	}
}

// Dispatch routes one chat command. Side effects only; it never returns an
// error and never panics out to the caller.
func (d *Dispatcher) Dispatch(cmd ChatCommand) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("command dispatch panicked", slog.Any("panic", r), slog.String("command", cmd.Command), slog.String("component", "dispatch"))
		}
	}()

	logger := slog.Default().With(slog.String("user", cmd.Username), slog.String("command", cmd.Command), slog.String("component", "dispatch"))

	switch cmd.Command {
	case d.playToken:
		d.dispatchPlay(cmd, logger)

	case "!skip":
		if !d.gate.Authorized(cmd.Username) {
			telemetry.UnauthorizedCommands.Inc()
			logger.Debug("unauthorized skip dropped")
			return
		}
		logger.Info("skipping current clip")
		d.controller.Skip()

	case "!mute":
		if !d.gate.Authorized(cmd.Username) {
			telemetry.UnauthorizedCommands.Inc()
			logger.Debug("unauthorized mute toggle dropped")
			return
		}
		enabled := d.controller.ToggleMuting()
		stateWord := "disabled"
		if enabled {
			stateWord = "enabled"
		}
		logger.Info("muting toggled", slog.Bool("enabled", enabled))
		d.broadcaster.Broadcast(overlay.Info("muting " + stateWord))

	case "!vol":
		if !d.gate.Authorized(cmd.Username) {
			telemetry.UnauthorizedCommands.Inc()
			logger.Debug("unauthorized volume dropped")
			return
		}
		level, ok := parseVolume(cmd.Args)
		if !ok {
			logger.Debug("invalid volume argument dropped", slog.Any("args", cmd.Args))
			return
		}
		logger.Info("setting volume", slog.Int("level", level))
		d.controller.SetVolume(level)

	default:
		// Not a command we know; the chat stream is full of these.
	}
}

func (d *Dispatcher) dispatchPlay(cmd ChatCommand, logger *slog.Logger) {
	ok, remaining := d.gate.Allow(cmd.Username, d.now())
	if !ok {
		telemetry.CooldownRejections.Inc()
		logger.Info("play command on cooldown", slog.Duration("remaining", remaining))
		d.broadcaster.Broadcast(overlay.Info(fmt.Sprintf("cooldown %.1fs @%s", remaining.Seconds(), cmd.Username)))
		return
	}

	if len(cmd.Args) == 0 || cmd.Args[0] == "" {
		logger.Info("play command missing channel argument")
		return
	}
	channel := cmd.Args[0]

	telemetry.PlayCommands.Inc()
	logger.Info("play command accepted", slog.String("channel", channel))
	// Stamp the cycle's generation here, still on the dispatch path, so
	// generations follow chat arrival order. The slow acquisition then runs
	// on its own goroutine so chat keeps flowing; serialization happens
	// inside the acquisition pipeline.
	gen := d.controller.BeginPlay()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("playback cycle panicked", slog.Any("panic", r), slog.String("channel", channel), slog.String("component", "dispatch"))
			}
		}()
		d.controller.Play(d.baseCtx, gen, channel)
	}()
}

// parseVolume validates an integer volume in [0,100].
func parseVolume(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}
