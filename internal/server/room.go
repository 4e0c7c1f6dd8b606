package server

import (
	"log"
	"sync"
	"time"

	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/types"
)

const idleRoomTimeout = time.Minute * 5

type exitReq struct {
	closed bool
}

type Room struct {
	id            int
	externalId    string
	title         string
	createdAt     time.Time
	cs            *ChatServer
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	notifyChan    chan *ServerMessage
	clients       map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// killTimer unloads the room once no clients remain
	killTimer *time.Timer
	exit      chan exitReq
	done      chan struct{}
}

func newRoom(cs *ChatServer, dbRoom database.Room) *Room {
	return &Room{
		id:            dbRoom.Id,
		externalId:    dbRoom.ExternalId,
		title:         dbRoom.Title,
		createdAt:     dbRoom.CreatedAt,
		cs:            cs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		notifyChan:    make(chan *ServerMessage, 256),
		clients:       make(map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
		done:          make(chan struct{}),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			if msg.Publish != nil {
				r.saveAndBroadcast(msg)
			}
		case msg := <-r.notifyChan:
			r.broadcast(msg)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	r.addClient(c)

	roomInfo := types.Room{
		Id:         r.id,
		ExternalId: r.externalId,
		Title:      r.title,
		IsActive:   true,
		CreatedAt:  r.createdAt,
	}
	c.queueMessage(NoErrOK(join.Id, roomInfo))

	// notify members that the user has joined
	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			Presence: &Presence{
				Present:  true,
				Username: c.user.Username,
				RoomId:   r.externalId,
			},
		},
		SkipClient: c,
	})
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	c := leaveMsg.client
	r.removeClient(c)

	// unblock a pending join that is waiting on this leave
	if leaveMsg.done != nil {
		close(leaveMsg.done)
	}

	if leaveMsg.Id != 0 {
		c.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			Presence: &Presence{
				Present:  false,
				Username: c.user.Username,
				RoomId:   r.externalId,
			},
		},
		SkipClient: c,
	})
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.externalId)
	select {
	case r.cs.unloadRoomChan <- unloadRoomRequest{roomId: r.externalId}:
	default:
		r.log.Printf("unload channel full, retrying room %q later", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.externalId)
	if e.closed {
		// tell members the room is now closed
		r.broadcast(&ServerMessage{
			BaseMessage: BaseMessage{
				Timestamp: Now(),
			},
			Notification: &Notification{
				RoomClosed: &RoomClosed{RoomId: r.externalId},
			},
		})
	}

	r.clientLock.Lock()
	for c := range r.clients {
		c.detachRoom(r.externalId)
	}
	clear(r.clients)
	r.clientLock.Unlock()

	close(r.done)
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.setRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		r.log.Printf("client %q not found in room %q", c.user.Username, r.externalId)
		return
	}

	delete(r.clients, c)
	c.detachRoom(r.externalId)

	r.log.Printf("removed client %q from room %q", c.user.Username, r.externalId)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// saveAndBroadcast persists the message with its attachments, then
// fans the materialized message out to the room's current members.
// Persistence is the durability boundary: a delivery failure after a
// successful save does not fail the request.
func (r *Room) saveAndBroadcast(msg *ClientMessage) {
	params := database.CreateMessageParams{
		RoomId:   r.id,
		SenderId: msg.UserId,
		Content:  msg.Publish.Content,
	}
	for _, att := range msg.Publish.Attachments {
		params.Attachments = append(params.Attachments, database.AttachmentParams{
			Url:      att.Url,
			FileType: att.FileType,
		})
	}

	dbMsg, err := r.cs.db.CreateMessage(params)
	if err != nil {
		r.log.Println("error saving message:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))

	apiMsg := MaterializeMessage(dbMsg, r.externalId)
	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        msg.Id,
			Timestamp: dbMsg.CreatedAt,
		},
		Message: &apiMsg,
	})
	r.cs.stats.Incr("messages_broadcast")
}

func (r *Room) broadcast(msg *ServerMessage) {
	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		if !client.queueMessage(msg) {
			r.cs.stats.Incr("dropped_deliveries")
		}
	}
}

func MaterializeMessage(dbMsg database.Message, roomExternalId string) types.Message {
	msg := types.Message{
		Id:     dbMsg.Id,
		RoomId: roomExternalId,
		Sender: types.User{
			Id:           dbMsg.SenderId,
			Username:     dbMsg.SenderName,
			EmailAddress: dbMsg.SenderEmail,
		},
		Content:   dbMsg.Content,
		Timestamp: dbMsg.CreatedAt,
	}

	for _, att := range dbMsg.Attachments {
		msg.Attachments = append(msg.Attachments, types.Attachment{
			Id:       att.Id,
			Url:      att.Url,
			FileType: att.FileType,
		})
	}

	return msg
}
