// Package playback is the command dispatch and playback orchestration engine:
// it decides whether a chat command executes (authorization + cooldown),
// serializes clip playback against concurrent requests, and processes
// client-reported lifecycle events to restore mute state.
package playback

// ChatCommand is one parsed chat line: who said it, the command token
// (including the leading "!"), and any arguments in order.
type ChatCommand struct {
	Username string
	Command  string
	Args     []string
}
