package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 25 * time.Second
	joinTimeout       = 10 * time.Second
)

// ChangeFilter selects the database changes delivered on a channel
type ChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// ObjectInserts selects inserts into the storage objects table of one bucket.
func ObjectInserts(bucket string) ChangeFilter {
	return ChangeFilter{
		Event:  "INSERT",
		Schema: "storage",
		Table:  "objects",
		Filter: "bucket_id=eq." + bucket,
	}
}

// Change is one row change pushed by the feed
type Change struct {
	Type   string         `json:"type"`
	Schema string         `json:"schema"`
	Table  string         `json:"table"`
	Record map[string]any `json:"record"`
}

// Field returns a string column of the changed record.
func (c Change) Field(name string) string {
	if v, ok := c.Record[name].(string); ok {
		return v
	}
	return ""
}

type phxMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// Channel is a live subscription to the change feed. Close releases it.
type Channel struct {
	topic   string
	conn    *websocket.Conn
	writeMu sync.Mutex
	refs    atomic.Int64
	closed  atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// Subscribe opens the realtime socket, joins a channel named name for the given
// filter and calls handler for every change until the channel is closed.
func (c *Client) Subscribe(ctx context.Context, name string, filter ChangeFilter, handler func(Change)) (*Channel, error) {
	if c.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := c.wsDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime: %w", err)
	}

	ch := &Channel{
		topic: "realtime:" + name,
		conn:  conn,
		done:  make(chan struct{}),
	}

	if err := ch.join(filter, c.APIKey); err != nil {
		conn.Close()
		return nil, err
	}

	go ch.readLoop(handler)
	go ch.heartbeat()

	slog.Debug("Subscribed to change feed", "topic", ch.topic, "table", filter.Table, "filter", filter.Filter)
	return ch, nil
}

func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid storage URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime/v1/websocket"
	q := u.Query()
	q.Set("apikey", c.APIKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (ch *Channel) nextRef() string {
	return strconv.FormatInt(ch.refs.Add(1), 10)
}

func (ch *Channel) send(topic, event string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	msg := phxMessage{Topic: topic, Event: event, Payload: raw, Ref: ch.nextRef()}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return msg.Ref, ch.conn.WriteJSON(msg)
}

func (ch *Channel) join(filter ChangeFilter, apiKey string) error {
	ref, err := ch.send(ch.topic, "phx_join", map[string]any{
		"config": map[string]any{
			"postgres_changes": []ChangeFilter{filter},
		},
		"access_token": apiKey,
	})
	if err != nil {
		return fmt.Errorf("failed to join %s: %w", ch.topic, err)
	}

	if err := ch.conn.SetReadDeadline(time.Now().Add(joinTimeout)); err != nil {
		return err
	}
	defer ch.conn.SetReadDeadline(time.Time{})

	for {
		var msg phxMessage
		if err := ch.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read join reply: %w", err)
		}
		if msg.Event != "phx_reply" || msg.Ref != ref {
			continue
		}
		var reply struct {
			Status   string          `json:"status"`
			Response json.RawMessage `json:"response"`
		}
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("failed to decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("join %s rejected: %s %s", ch.topic, reply.Status, string(reply.Response))
		}
		return nil
	}
}

func (ch *Channel) readLoop(handler func(Change)) {
	for {
		var msg phxMessage
		if err := ch.conn.ReadJSON(&msg); err != nil {
			if !ch.closed.Load() {
				slog.Error("Change feed read failed", "topic", ch.topic, "err", err)
			}
			return
		}
		if msg.Event != "postgres_changes" || msg.Topic != ch.topic {
			continue
		}
		var payload struct {
			Data Change `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			slog.Warn("Ignoring malformed change", "topic", ch.topic, "err", err)
			continue
		}
		if ch.closed.Load() {
			return
		}
		handler(payload.Data)
	}
}

func (ch *Channel) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			if _, err := ch.send("phoenix", "heartbeat", map[string]any{}); err != nil {
				slog.Warn("Change feed heartbeat failed", "topic", ch.topic, "err", err)
				return
			}
		}
	}
}

// Close leaves the channel and closes the socket, after which no further
// changes are dispatched. It is safe to call more than once.
func (ch *Channel) Close() error {
	var err error
	ch.once.Do(func() {
		ch.closed.Store(true)
		close(ch.done)
		if _, leaveErr := ch.send(ch.topic, "phx_leave", map[string]any{}); leaveErr != nil {
			slog.Debug("Failed to send leave", "topic", ch.topic, "err", leaveErr)
		}
		err = ch.conn.Close()
	})
	return err
}
