package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/onnwee/clip-roulette/backend/overlay"
	"github.com/onnwee/clip-roulette/backend/playback"
)

// writeTimeout bounds a single outbound websocket write.
const writeTimeout = 5 * time.Second

// WSHandler upgrades overlay connections and bridges them to the client registry.
type WSHandler struct {
	registry     *overlay.Registry
	orchestrator *playback.Orchestrator
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The overlay is a local browser source; origin checking is the
		// reverse proxy's concern when one exists.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Error("ws accept error", slog.Any("err", err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := overlay.NewClient(uuid.New().String())
	h.registry.Register(client)
	defer h.registry.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			status = websocket.StatusInternalError
			reason = "read/write error"
			slog.Warn("ws connection closed with error", slog.String("client_id", client.ID), slog.Any("err", err))
		}
	}
	conn.Close(status, reason)
}

// readLoop consumes client lifecycle reports. Anything that is not a
// well-formed clip_finished message is logged and skipped; only transport
// errors end the connection.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *overlay.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var inbound overlay.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			slog.Debug("invalid ws message ignored", slog.String("client_id", client.ID), slog.Any("err", err))
			continue
		}
		switch inbound.Command {
		case overlay.CommandClipFinished:
			h.orchestrator.ClipFinished(ctx)
		default:
			slog.Debug("unknown ws command ignored", slog.String("client_id", client.ID), slog.String("command", inbound.Command))
		}
	}
}

// writeLoop drains the client's outbound buffer onto the socket, preserving
// send order for this client.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *overlay.Client) error {
	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return nil
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				slog.Warn("ws write failed", slog.String("client_id", client.ID), slog.Any("err", err))
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
