// Package chat connects to Twitch IRC and turns chat lines into commands.
//
// StartChatListener joins the configured channel (authenticated when a bot
// username and OAuth token are provided, anonymously otherwise — anonymous
// read access is enough for command ingestion) and forwards anything that
// parses as a "!command arg..." line to the command dispatcher. Transport
// concerns, including PING/PONG keepalive, are handled by the IRC library.
package chat
