package overlay

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/clip-roulette/backend/telemetry"
)

// ErrClientStalled is returned when a client's outbound buffer stays full
// past the per-send allowance.
var ErrClientStalled = errors.New("client send buffer stalled")

// Client is one connected display client. Messages are delivered through a
// buffered channel drained by the connection's write loop, so broadcast
// never blocks on the socket itself.
type Client struct {
	ID string

	out       chan Message
	closeOnce sync.Once
}

// NewClient constructs a client with an initialized outbound buffer.
func NewClient(id string) *Client {
	return &Client{ID: id, out: make(chan Message, 16)}
}

// Messages is drained by the connection's write loop. The channel is closed
// when the client is unregistered.
func (c *Client) Messages() <-chan Message { return c.out }

// Close closes the outbound channel. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.out) })
}

// send enqueues msg, waiting at most allowance for buffer space.
func (c *Client) send(msg Message, allowance time.Duration) (err error) {
	// A send on a closed channel panics; unregistration can race a broadcast
	// snapshot, so fold that into a normal send failure.
	defer func() {
		if recover() != nil {
			err = ErrClientStalled
		}
	}()
	select {
	case c.out <- msg:
		return nil
	default:
	}
	timer := time.NewTimer(allowance)
	defer timer.Stop()
	select {
	case c.out <- msg:
		return nil
	case <-timer.C:
		return ErrClientStalled
	}
}

// Registry tracks live clients and fans messages out to them.
type Registry struct {
	mu      sync.Mutex
	clients map[*Client]struct{}

	// sendAllowance bounds how long one broadcast waits on a single client.
	sendAllowance time.Duration
}

// NewRegistry builds an empty registry with the given per-send allowance.
func NewRegistry(sendAllowance time.Duration) *Registry {
	if sendAllowance <= 0 {
		sendAllowance = time.Second
	}
	return &Registry{
		clients:       make(map[*Client]struct{}),
		sendAllowance: sendAllowance,
	}
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	n := len(r.clients)
	r.mu.Unlock()
	telemetry.SetConnectedClients(n)
	slog.Info("overlay client connected", slog.String("client_id", c.ID), slog.Int("clients", n))
}

func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	_, present := r.clients[c]
	delete(r.clients, c)
	n := len(r.clients)
	r.mu.Unlock()
	if !present {
		return
	}
	c.Close()
	telemetry.SetConnectedClients(n)
	slog.Info("overlay client disconnected", slog.String("client_id", c.ID), slog.Int("clients", n))
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Broadcast sends msg to every currently-registered client concurrently.
// It snapshots the membership first so registration churn can't corrupt the
// loop; a failed or stalled client is logged, counted, and unregistered
// after the fan-out without affecting delivery to the others.
func (r *Registry) Broadcast(msg Message) {
	r.mu.Lock()
	snapshot := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.Unlock()

	if len(snapshot) == 0 {
		slog.Debug("broadcast with no connected clients", slog.String("command", msg.Command))
		return
	}

	var (
		failedMu sync.Mutex
		failed   []*Client
		wg       sync.WaitGroup
	)
	for _, c := range snapshot {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if err := c.send(msg, r.sendAllowance); err != nil {
				telemetry.BroadcastSendFailures.Inc()
				slog.Warn("broadcast send failed", slog.String("client_id", c.ID), slog.String("command", msg.Command), slog.Any("err", err))
				failedMu.Lock()
				failed = append(failed, c)
				failedMu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	for _, c := range failed {
		r.Unregister(c)
	}
}
