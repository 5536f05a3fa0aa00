package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

const (
	ActionJoinBooking  = "join_booking"
	ActionLeaveBooking = "leave_booking"
)

// Command is a message sent by the client over the socket.
type Command struct {
	Action    string    `json:"action"`
	BookingID uuid.UUID `json:"booking_id"`
}

// JoinAuthorizer decides whether the connected user may follow a booking room.
type JoinAuthorizer func(ctx context.Context, bookingID uuid.UUID) error

// Client is one websocket connection registered with the hub.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger

	UserID uuid.UUID
	Role   string
}

func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID, role string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With("user_id", userID, "role", role),
		UserID: userID,
		Role:   role,
	}
}

func (c *Client) MemberID() uuid.UUID { return c.UserID }

func (c *Client) MemberRole() string { return c.Role }

// Deliver queues a frame without blocking. A full queue drops the frame.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Serve joins the given rooms and pumps messages until the connection closes or ctx ends.
func (c *Client) Serve(ctx context.Context, rooms []string, authorize JoinAuthorizer) {
	for _, room := range rooms {
		c.hub.Join(room, c)
	}
	defer c.Close()

	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.readPump(ctx, authorize)
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.LeaveAll(c)
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readPump(ctx context.Context, authorize JoinAuthorizer) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Websocket closed unexpectedly", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.reply("error", map[string]string{"message": "malformed command"})
			continue
		}
		c.handle(ctx, cmd, authorize)
	}
}

func (c *Client) handle(ctx context.Context, cmd Command, authorize JoinAuthorizer) {
	if cmd.BookingID == uuid.Nil {
		c.reply("error", map[string]string{"message": "booking_id is required"})
		return
	}
	room := BookingRoom(cmd.BookingID)

	switch cmd.Action {
	case ActionJoinBooking:
		if authorize == nil {
			c.reply("error", map[string]string{"message": "joining bookings is not supported"})
			return
		}
		if err := authorize(ctx, cmd.BookingID); err != nil {
			c.logger.Debug("Booking room join refused", "booking_id", cmd.BookingID, "error", err)
			c.reply("error", map[string]string{"message": "not allowed to follow this booking"})
			return
		}
		c.hub.Join(room, c)
		c.reply("joined", map[string]string{"room": room})
	case ActionLeaveBooking:
		c.hub.Leave(room, c)
		c.reply("left", map[string]string{"room": room})
	default:
		c.reply("error", map[string]string{"message": "unknown action"})
	}
}

// reply sends a frame to this client only.
func (c *Client) reply(event string, payload any) {
	env, err := NewEnvelope("", event, payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.Deliver(frame)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Warn("Websocket write failed", "error", err)
				}
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
