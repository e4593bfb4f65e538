// Package feed streams the live room directory to lobby clients over a
// websocket: one full snapshot on connect, then one per change.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RoomSummary is the directory entry pushed to lobby clients. Passwords
// never leave the server.
type RoomSummary struct {
	ID               domain.RoomID `json:"id"`
	Name             string        `json:"name"`
	Topic            string        `json:"topic,omitempty"`
	BackgroundImage  string        `json:"backgroundImage,omitempty"`
	CreatorName      string        `json:"creatorName,omitempty"`
	ParticipantCount int           `json:"participantCount"`
	HasPassword      bool          `json:"hasPassword"`
}

// Summarize converts the room documents into directory entries,
// dropping inactive rooms and private call rooms.
func Summarize(rooms []*domain.Room) []RoomSummary {
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		if !r.Active || r.IsDirectCall {
			continue
		}
		out = append(out, RoomSummary{
			ID:               r.ID,
			Name:             r.Name,
			Topic:            r.Topic,
			BackgroundImage:  r.BackgroundImage,
			CreatorName:      r.CreatorName,
			ParticipantCount: len(r.Participants),
			HasPassword:      r.Password != "",
		})
	}
	return out
}

// Controller serves the directory feed endpoint.
type Controller struct {
	Rooms core.RoomStore
}

func NewController(rooms core.RoomStore) *Controller {
	return &Controller{Rooms: rooms}
}

type feedConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *feedConn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *feedConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleFeed upgrades the request and streams directory snapshots until
// the client goes away.
func (ctl *Controller) HandleFeed(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "feed").Msg("ws upgrade")
		return
	}

	conn := &feedConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	err = ctl.Rooms.WatchList(ctx, func(rooms []*domain.Room) {
		b, err := json.Marshal(Summarize(rooms))
		if err != nil {
			log.Error().Err(err).Str("module", "feed").Msg("marshal summary")
			return
		}
		if err := conn.TrySend(b); err != nil {
			// Slow consumer misses this snapshot; the next one is full.
			log.Warn().Str("module", "feed").Msg("feed backpressure")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("module", "feed").Msg("watch list")
		cancel()
		conn.Close()
		return
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(cancel, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *feedConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "feed").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "feed").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(cancel context.CancelFunc, c *feedConn) {
	defer func() {
		cancel()
		c.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
