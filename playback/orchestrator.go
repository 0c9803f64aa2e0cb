package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/clip-roulette/backend/overlay"
	"github.com/onnwee/clip-roulette/backend/telemetry"
)

// State is the orchestrator's position in one playback cycle.
type State int

const (
	StateIdle State = iota
	StateAcquiring
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateAcquiring:
		return "acquiring"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Broadcaster fans a message out to all connected overlay clients.
type Broadcaster interface {
	Broadcast(msg overlay.Message)
}

// Acquirer produces a ready local clip artifact for a channel.
type Acquirer interface {
	Acquire(ctx context.Context, channel string) (string, error)
}

// Muter mutes or unmutes the configured player applications, best effort.
type Muter interface {
	SetMuted(ctx context.Context, mute bool)
}

// Orchestrator drives the mute → acquire → play → unmute cycle and handles
// the live control commands. At most one playback cycle is tracked; a newer
// Play call preempts an older one, whose result is then discarded.
type Orchestrator struct {
	broadcaster Broadcaster
	acquirer    Acquirer
	muter       Muter
	settleDelay time.Duration

	mu            sync.Mutex
	state         State
	gen           uint64
	mutingEnabled bool
}

// NewOrchestrator builds an orchestrator. Muting starts enabled, matching the
// toggle's documented default.
func NewOrchestrator(b Broadcaster, a Acquirer, m Muter, settleDelay time.Duration) *Orchestrator {
	telemetry.UpdateMutingGauge(true)
	return &Orchestrator{
		broadcaster:   b,
		acquirer:      a,
		muter:         m,
		settleDelay:   settleDelay,
		mutingEnabled: true,
	}
}

// State returns the current playback state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// MutingEnabled reports the mute toggle.
func (o *Orchestrator) MutingEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mutingEnabled
}

// ToggleMuting flips the toggle and returns the new value.
func (o *Orchestrator) ToggleMuting() bool {
	o.mu.Lock()
	o.mutingEnabled = !o.mutingEnabled
	enabled := o.mutingEnabled
	o.mu.Unlock()
	telemetry.UpdateMutingGauge(enabled)
	return enabled
}

// Skip broadcasts a stop-playback instruction to all clients.
func (o *Orchestrator) Skip() {
	o.broadcaster.Broadcast(overlay.SkipClip())
}

// SetVolume broadcasts a volume level to all clients. The dispatcher has
// already validated the range.
func (o *Orchestrator) SetVolume(level int) {
	o.broadcaster.Broadcast(overlay.Volume(level))
}

// BeginPlay reserves the next playback cycle and returns its generation
// token. The dispatcher calls it synchronously, in chat arrival order, so a
// later command always carries a higher generation than an earlier one no
// matter how their cycle goroutines end up scheduled.
func (o *Orchestrator) BeginPlay() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.state = StateAcquiring
	return o.gen
}

// Play runs the playback cycle reserved by BeginPlay. It blocks for the
// duration of the acquisition; callers run it on its own goroutine so the
// dispatch loop keeps flowing. A cycle that is overtaken by a newer one
// never broadcasts a play instruction and never touches mute state it no
// longer owns.
func (o *Orchestrator) Play(ctx context.Context, gen uint64, channel string) {
	o.mu.Lock()
	current := gen == o.gen
	muting := o.mutingEnabled
	o.mu.Unlock()

	logger := slog.Default().With(slog.String("channel", channel), slog.String("component", "playback"))

	if !current {
		// Preempted before this cycle even started; the newer request owns
		// the cache slot and the mute state.
		logger.Debug("stale playback request dropped before start")
		return
	}

	// Mute before acquisition starts so the download window is covered too.
	if muting {
		o.muter.SetMuted(ctx, true)
	}
	o.broadcaster.Broadcast(overlay.Info("looking for " + channel + "..."))

	path, err := o.acquirer.Acquire(ctx, channel)
	if err != nil {
		logger.Error("clip acquisition failed", slog.Any("err", err))
		o.broadcaster.Broadcast(overlay.ErrorMsg("no clip for " + channel))
		o.finishFailed(ctx, gen)
		return
	}

	// Give clients a moment to prepare before instructing playback.
	if o.settleDelay > 0 {
		select {
		case <-time.After(o.settleDelay):
		case <-ctx.Done():
			o.finishFailed(ctx, gen)
			return
		}
	}

	o.mu.Lock()
	if gen != o.gen {
		// A newer play preempted this one while it settled; its clip owns
		// the cache slot now, so stay quiet.
		o.mu.Unlock()
		logger.Debug("stale playback result discarded", slog.String("path", path))
		return
	}
	o.state = StatePlaying
	o.mu.Unlock()

	logger.Info("clip ready, starting playback", slog.String("path", path))
	o.broadcaster.Broadcast(overlay.PlayClip(channel))
}

// finishFailed returns to idle after a failed cycle, unmuting if this request
// still owns the cycle. Audio must never stay muted with nothing pending.
func (o *Orchestrator) finishFailed(ctx context.Context, gen uint64) {
	o.mu.Lock()
	current := gen == o.gen
	muting := o.mutingEnabled
	if current {
		o.state = StateIdle
	}
	o.mu.Unlock()
	if current && muting {
		// The unmute must run even when the triggering context is already
		// dead (acquire timeout, cancelled settle); audio must never stay
		// muted with nothing pending.
		o.muter.SetMuted(context.WithoutCancel(ctx), false)
	}
}

// ClipFinished handles a client-reported end of playback. It is accepted in
// any state and is idempotent: client and server state can desynchronize
// (server restart, late event from a stale client), so unmuting when already
// unmuted must be harmless.
func (o *Orchestrator) ClipFinished(ctx context.Context) {
	o.mu.Lock()
	muting := o.mutingEnabled
	if o.state == StatePlaying {
		o.state = StateIdle
	}
	o.mu.Unlock()
	slog.Info("clip finished", slog.String("component", "playback"))
	if muting {
		// The reporting client may have disconnected right after sending the
		// event; unmute under a context that survives its connection.
		o.muter.SetMuted(context.WithoutCancel(ctx), false)
	}
}
