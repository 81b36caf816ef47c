package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/ludo-arena/api"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/syncer"
)

// Feed keeps a replica of one game current from the server's WebSocket
// stream. Changes fires whenever an event moved the local view.
type Feed struct {
	conn    *websocket.Conn
	replica *syncer.Replica
	log     logrus.FieldLogger

	changes chan struct{}
	done    chan struct{}
	once    sync.Once

	applied  atomic.Int64
	resynced atomic.Int64
}

// feedURL turns the REST base URL into the /ws endpoint for gameID
func feedURL(baseURL, gameID, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	q := url.Values{}
	q.Set("game", gameID)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DialFeed connects to gameID's stream and loads the first snapshot. The
// snapshot is fetched after the socket is attached so no commit falls in
// between.
func DialFeed(ctx context.Context, client *api.Client, gameID, token string, log logrus.FieldLogger) (*Feed, error) {
	wsURL, err := feedURL(client.BaseURL(), gameID, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", gameID, err)
	}

	f := &Feed{
		conn:    conn,
		replica: syncer.NewReplica(gameID, client),
		log:     log.WithField("game_id", gameID),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if err := f.replica.Resync(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go f.readLoop(ctx)
	go func() {
		select {
		case <-ctx.Done():
			f.Close()
		case <-f.done:
		}
	}()
	return f, nil
}

func (f *Feed) readLoop(ctx context.Context) {
	defer f.Close()
	for {
		_, message, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.log.WithError(err).Warn("Feed closed")
			}
			return
		}

		var ev syncer.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			f.log.WithError(err).Debug("Skipping malformed event")
			continue
		}
		out, err := f.replica.Handle(ctx, ev)
		if err != nil {
			f.log.WithError(err).WithField("event", ev.Name).Warn("Resync failed")
			continue
		}
		switch out {
		case syncer.Applied:
			f.applied.Add(1)
		case syncer.Resynced:
			f.resynced.Add(1)
		default:
			continue
		}
		f.notify()
	}
}

func (f *Feed) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// Changes signals after the local view moved
func (f *Feed) Changes() <-chan struct{} { return f.changes }

// Done is closed once the stream has ended
func (f *Feed) Done() <-chan struct{} { return f.done }

// Alive reports whether events are still arriving
func (f *Feed) Alive() bool {
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

// Snapshot returns the local view
func (f *Feed) Snapshot() *session.Game { return f.replica.Snapshot() }

// Refresh pulls the authoritative record into the replica
func (f *Feed) Refresh(ctx context.Context) error {
	return f.replica.Resync(ctx)
}

// Stats returns how many events were applied as deltas and how many
// triggered a refetch
func (f *Feed) Stats() (applied, resynced int64) {
	return f.applied.Load(), f.resynced.Load()
}

// Close ends the stream
func (f *Feed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.conn.Close()
	})
	return err
}
