package playback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeController records orchestrator calls without running a real cycle.
type fakeController struct {
	mu      sync.Mutex
	gen     uint64
	plays   []string
	skips   int
	toggles int
	volumes []int
	enabled bool

	played chan string
}

func newFakeController() *fakeController {
	return &fakeController{enabled: true, played: make(chan string, 8)}
}

func (c *fakeController) BeginPlay() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

func (c *fakeController) Play(ctx context.Context, gen uint64, channel string) {
	c.mu.Lock()
	c.plays = append(c.plays, channel)
	c.mu.Unlock()
	c.played <- channel
}

func (c *fakeController) Skip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skips++
}

func (c *fakeController) ToggleMuting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toggles++
	c.enabled = !c.enabled
	return c.enabled
}

func (c *fakeController) SetVolume(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volumes = append(c.volumes, level)
}

func (c *fakeController) snapshot() (plays []string, skips, toggles int, volumes []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.plays...), c.skips, c.toggles, append([]int(nil), c.volumes...)
}

func newTestDispatcher(authorized []string) (*Dispatcher, *fakeController, *recordingBroadcaster) {
	gate := NewCooldownGate(30*time.Second, authorized)
	ctrl := newFakeController()
	b := &recordingBroadcaster{}
	d := NewDispatcher(context.Background(), "!show", gate, ctrl, b)
	return d, ctrl, b
}

func awaitPlay(t *testing.T, ctrl *fakeController) string {
	t.Helper()
	select {
	case ch := <-ctrl.played:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("play was never invoked")
		return ""
	}
}

func TestDispatchPlay(t *testing.T) {
	d, ctrl, b := newTestDispatcher(nil)

	d.Dispatch(ChatCommand{Username: "viewer", Command: "!show", Args: []string{"somechannel"}})

	if got := awaitPlay(t, ctrl); got != "somechannel" {
		t.Errorf("Play called with %q, want somechannel", got)
	}
	if msgs := b.messages(); len(msgs) != 0 {
		t.Errorf("accepted play produced dispatcher broadcasts: %v", msgs)
	}
}

func TestDispatchPlayCooldownMessage(t *testing.T) {
	d, ctrl, b := newTestDispatcher(nil)
	base := time.Now()
	clock := base
	var clockMu sync.Mutex
	d.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	d.Dispatch(ChatCommand{Username: "viewer1", Command: "!show", Args: []string{"somechannel"}})
	awaitPlay(t, ctrl)

	clockMu.Lock()
	clock = base.Add(10 * time.Second)
	clockMu.Unlock()
	d.Dispatch(ChatCommand{Username: "viewer2", Command: "!show", Args: []string{"other"}})

	infos := b.byCommand("info")
	if len(infos) != 1 {
		t.Fatalf("info broadcasts = %v, want one cooldown message", infos)
	}
	want := fmt.Sprintf("cooldown %.1fs @viewer2", 20.0)
	if infos[0].Payload != want {
		t.Errorf("cooldown message = %v, want %q", infos[0].Payload, want)
	}
	if plays, _, _, _ := ctrl.snapshot(); len(plays) != 1 {
		t.Errorf("plays = %v, want only the first", plays)
	}
}

func TestDispatchPlayAuthorizedBypassesCooldown(t *testing.T) {
	d, ctrl, _ := newTestDispatcher([]string{"streamer"})

	d.Dispatch(ChatCommand{Username: "streamer", Command: "!show", Args: []string{"one"}})
	awaitPlay(t, ctrl)
	d.Dispatch(ChatCommand{Username: "streamer", Command: "!show", Args: []string{"two"}})
	awaitPlay(t, ctrl)

	if plays, _, _, _ := ctrl.snapshot(); len(plays) != 2 {
		t.Errorf("plays = %v, want 2 (authorized user never blocked)", plays)
	}
}

func TestDispatchPlayMissingChannel(t *testing.T) {
	d, ctrl, b := newTestDispatcher(nil)

	d.Dispatch(ChatCommand{Username: "viewer", Command: "!show"})

	time.Sleep(20 * time.Millisecond)
	if plays, _, _, _ := ctrl.snapshot(); len(plays) != 0 {
		t.Errorf("plays = %v, want none without a channel argument", plays)
	}
	if msgs := b.messages(); len(msgs) != 0 {
		t.Errorf("broadcasts = %v, want none", msgs)
	}
}

func TestDispatchSkipAuthorization(t *testing.T) {
	d, ctrl, b := newTestDispatcher([]string{"streamer"})

	d.Dispatch(ChatCommand{Username: "viewer", Command: "!skip"})
	if _, skips, _, _ := ctrl.snapshot(); skips != 0 {
		t.Error("unauthorized skip reached the orchestrator")
	}
	if msgs := b.messages(); len(msgs) != 0 {
		t.Errorf("unauthorized skip produced broadcasts: %v", msgs)
	}

	d.Dispatch(ChatCommand{Username: "Streamer", Command: "!skip"})
	if _, skips, _, _ := ctrl.snapshot(); skips != 1 {
		t.Error("authorized skip (case-insensitive) was dropped")
	}
}

func TestDispatchMuteToggle(t *testing.T) {
	d, ctrl, b := newTestDispatcher([]string{"streamer"})

	d.Dispatch(ChatCommand{Username: "streamer", Command: "!mute"})
	infos := b.byCommand("info")
	if len(infos) != 1 || infos[0].Payload != "muting disabled" {
		t.Fatalf("info broadcasts = %v, want [muting disabled]", infos)
	}

	d.Dispatch(ChatCommand{Username: "streamer", Command: "!mute"})
	infos = b.byCommand("info")
	if len(infos) != 2 || infos[1].Payload != "muting enabled" {
		t.Fatalf("info broadcasts = %v, want muting enabled second", infos)
	}

	d.Dispatch(ChatCommand{Username: "viewer", Command: "!mute"})
	if _, _, toggles, _ := ctrl.snapshot(); toggles != 2 {
		t.Errorf("toggles = %d, want 2 (viewer must not toggle)", toggles)
	}
}

func TestDispatchVolumeValidation(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSent []int
	}{
		{"valid", []string{"42"}, []int{42}},
		{"zero", []string{"0"}, []int{0}},
		{"hundred", []string{"100"}, []int{100}},
		{"over range", []string{"150"}, nil},
		{"negative", []string{"-1"}, nil},
		{"not a number", []string{"abc"}, nil},
		{"missing", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ctrl, b := newTestDispatcher([]string{"streamer"})
			d.Dispatch(ChatCommand{Username: "streamer", Command: "!vol", Args: tt.args})

			_, _, _, volumes := ctrl.snapshot()
			if len(volumes) != len(tt.wantSent) {
				t.Fatalf("volumes = %v, want %v", volumes, tt.wantSent)
			}
			for i := range tt.wantSent {
				if volumes[i] != tt.wantSent[i] {
					t.Errorf("volumes[%d] = %d, want %d", i, volumes[i], tt.wantSent[i])
				}
			}
			if len(tt.wantSent) == 0 {
				if msgs := b.messages(); len(msgs) != 0 {
					t.Errorf("invalid volume produced broadcasts: %v", msgs)
				}
			}
		})
	}
}

func TestDispatchVolumeUnauthorized(t *testing.T) {
	d, ctrl, _ := newTestDispatcher([]string{"streamer"})
	d.Dispatch(ChatCommand{Username: "viewer", Command: "!vol", Args: []string{"42"}})
	if _, _, _, volumes := ctrl.snapshot(); len(volumes) != 0 {
		t.Errorf("volumes = %v, want none for unauthorized user", volumes)
	}
}

func TestDispatchUnrecognizedIgnored(t *testing.T) {
	d, ctrl, b := newTestDispatcher(nil)
	d.Dispatch(ChatCommand{Username: "viewer", Command: "!dance"})
	d.Dispatch(ChatCommand{Username: "viewer", Command: "hello"})

	plays, skips, toggles, volumes := ctrl.snapshot()
	if len(plays)+skips+toggles+len(volumes) != 0 {
		t.Error("unrecognized command reached the orchestrator")
	}
	if msgs := b.messages(); len(msgs) != 0 {
		t.Errorf("unrecognized command produced broadcasts: %v", msgs)
	}
}

// Back-to-back play commands must resolve in arrival order regardless of how
// the cycle goroutines get scheduled: the second command's clip is always the
// one that ends up playing. Repeated because the failure mode is a scheduling
// race.
func TestDispatchBackToBackPlaysNewestWins(t *testing.T) {
	for i := 0; i < 100; i++ {
		b := &recordingBroadcaster{}
		o := NewOrchestrator(b, newScriptedAcquirer(), &recordingMuter{}, 0)
		gate := NewCooldownGate(time.Second, []string{"streamer"})
		d := NewDispatcher(context.Background(), "!show", gate, o, b)

		d.Dispatch(ChatCommand{Username: "streamer", Command: "!show", Args: []string{"alpha"}})
		d.Dispatch(ChatCommand{Username: "streamer", Command: "!show", Args: []string{"beta"}})

		waitFor(t, func() bool {
			plays := b.byCommand("play_clip")
			return len(plays) > 0 && plays[len(plays)-1].Payload == "beta" && o.State() == StatePlaying
		})

		// A stale alpha result must never land after beta's broadcast.
		time.Sleep(2 * time.Millisecond)
		plays := b.byCommand("play_clip")
		if last := plays[len(plays)-1]; last.Payload != "beta" {
			t.Fatalf("iteration %d: final play_clip = %v, want beta", i, last.Payload)
		}
	}
}

// panickyController panics on every call to prove dispatch isolates it.
type panickyController struct{}

func (panickyController) BeginPlay() uint64 { panic("begin") }
func (panickyController) Play(ctx context.Context, gen uint64, channel string) {
	panic("play")
}
func (panickyController) Skip()               { panic("skip") }
func (panickyController) ToggleMuting() bool  { panic("toggle") }
func (panickyController) SetVolume(level int) { panic("volume") }

func TestDispatchSurvivesPanickingController(t *testing.T) {
	gate := NewCooldownGate(time.Second, []string{"streamer"})
	b := &recordingBroadcaster{}
	d := NewDispatcher(context.Background(), "!show", gate, panickyController{}, b)

	// Must not propagate the panic to the chat loop
	d.Dispatch(ChatCommand{Username: "streamer", Command: "!skip"})
	d.Dispatch(ChatCommand{Username: "streamer", Command: "!vol", Args: []string{"10"}})
}
