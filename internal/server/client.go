package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/studystream/study-stream/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is one live authenticated websocket session. A client is a
// member of at most one room at a time.
type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *ServerMessage
	room       *Room
	roomLock   sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerMessage, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.UserId = c.user.Id
		msg.Timestamp = Now()

		switch {
		case msg.Join != nil:
			c.joinRoom(&msg)
		case msg.Leave != nil:
			c.leaveRoom(&msg)
		case msg.Publish != nil:
			c.publish(&msg)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

// joinRoom requests membership in a room. A session already joined to a
// room leaves it first, and the join only proceeds once the old
// membership is fully removed.
func (c *Client) joinRoom(msg *ClientMessage) {
	if cur := c.currentRoom(); cur != nil {
		if cur.externalId == msg.Join.RoomId {
			c.queueMessage(NoErrOK(msg.Id, nil))
			return
		}
		if !c.leaveAndWait(cur) {
			c.queueMessage(ErrServiceUnavailable(msg.Id))
			return
		}
	}

	select {
	case c.chatServer.joinChan <- msg:
	default:
		c.log.Println("join channel full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) leaveRoom(msg *ClientMessage) {
	r := c.currentRoom()
	if r == nil || r.externalId != msg.Leave.RoomId {
		c.queueMessage(ErrNotJoined(msg.Id))
		return
	}

	select {
	case r.leaveChan <- msg:
	default:
		c.log.Printf("leave channel full for room %q", r.externalId)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) publish(msg *ClientMessage) {
	r := c.currentRoom()
	if r == nil || r.externalId != msg.Publish.RoomId {
		c.queueMessage(ErrNotJoined(msg.Id))
		return
	}

	select {
	case r.clientMsgChan <- msg:
	default:
		c.log.Printf("message channel full for room %q", r.externalId)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

// leaveAndWait removes this session from a room and blocks until the
// membership is gone or the room has shut down.
func (c *Client) leaveAndWait(r *Room) bool {
	leave := &ClientMessage{
		Leave:  &Leave{RoomId: r.externalId},
		UserId: c.user.Id,
		client: c,
		done:   make(chan struct{}),
	}

	select {
	case r.leaveChan <- leave:
	default:
		c.log.Printf("leave channel full for room %q", r.externalId)
		return false
	}

	select {
	case <-leave.done:
	case <-r.done:
	}
	return true
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send channel full for %q, dropping message", c.user.Username)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// forceLeave removes this session from a room on disconnect. Unlike
// the user-initiated paths it blocks on the leave channel: the room
// always drains it or closes done, so a dead connection can never be
// left in the member set.
func (c *Client) forceLeave(r *Room) {
	leave := &ClientMessage{
		Leave:  &Leave{RoomId: r.externalId},
		UserId: c.user.Id,
		client: c,
		done:   make(chan struct{}),
	}

	select {
	case r.leaveChan <- leave:
	case <-r.done:
		return
	}

	select {
	case <-leave.done:
	case <-r.done:
	}
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	if r := c.currentRoom(); r != nil {
		c.forceLeave(r)
	}

	// skip deregistration when the server is already tearing the
	// connection down
	select {
	case c.chatServer.deRegisterChan <- c:
	case <-c.stop:
	}

	c.stopClient()
}

func (c *Client) setRoom(r *Room) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.room = r
}

func (c *Client) detachRoom(id string) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()

	if c.room != nil && c.room.externalId == id {
		c.room = nil
	}
}

func (c *Client) currentRoom() *Room {
	c.roomLock.RLock()
	defer c.roomLock.RUnlock()
	return c.room
}
