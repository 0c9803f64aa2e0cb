// Package overlay tracks connected display clients and the JSON messages
// exchanged with them. Transport lives in the server package; this package
// only knows about registration, fan-out, and message shapes.
package overlay

// Message is one outbound overlay message. Payload is a string for
// info/error/play_clip, an int for volume, and absent for skip_clip.
type Message struct {
	Command string `json:"command"`
	Payload any    `json:"payload,omitempty"`
}

// Inbound is a client-reported lifecycle event.
type Inbound struct {
	Command string `json:"command"`
}

// CommandClipFinished is the only inbound command clients report.
const CommandClipFinished = "clip_finished"

func Info(text string) Message { return Message{Command: "info", Payload: text} }

func ErrorMsg(text string) Message { return Message{Command: "error", Payload: text} }

// PlayClip instructs clients to start playback of the cached clip for channel.
func PlayClip(channel string) Message { return Message{Command: "play_clip", Payload: channel} }

// SkipClip instructs clients to stop the current clip.
func SkipClip() Message { return Message{Command: "skip_clip"} }

// Volume sets the playback volume, 0..100.
func Volume(level int) Message { return Message{Command: "volume", Payload: level} }
