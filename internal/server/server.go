package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"

	"github.com/studystream/study-stream/internal/database"
	"github.com/studystream/study-stream/internal/stats"
	"github.com/studystream/study-stream/internal/types"
)

type unloadRoomRequest struct {
	roomId string
	closed bool
	done   chan struct{}
}

type stopReq struct {
	done chan struct{}
}

// RoomBroadcast carries a payload produced outside a live session (the
// HTTP ingest path) to the members of a loaded room.
type RoomBroadcast struct {
	RoomId  string
	Message *ServerMessage
}

type ChatServer struct {
	log            *log.Logger
	db             database.Repository
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *ClientMessage
	registerChan   chan *Client
	deRegisterChan chan *Client
	broadcastChan  chan *RoomBroadcast
	unloadRoomChan chan unloadRoomRequest
	rooms          map[string]*Room
	stop           chan stopReq
}

func NewChatServer(logger *log.Logger, db database.Repository, su stats.StatsProvider) (*ChatServer, error) {
	su.RegisterMetric("connections")
	su.RegisterMetric("active_rooms")
	su.RegisterMetric("messages_broadcast")
	su.RegisterMetric("dropped_deliveries")

	return &ChatServer{
		log:            logger,
		db:             db,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		joinChan:       make(chan *ClientMessage, 256),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		broadcastChan:  make(chan *RoomBroadcast, 256),
		unloadRoomChan: make(chan unloadRoomRequest, 256),
		rooms:          make(map[string]*Room),
		stop:           make(chan stopReq),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			cs.handleJoin(joinMsg)
		case client := <-cs.registerChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
			cs.stats.Incr("connections")
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
			cs.stats.Decr("connections")
		case rb := <-cs.broadcastChan:
			if room, ok := cs.rooms[rb.RoomId]; ok {
				select {
				case room.notifyChan <- rb.Message:
				default:
					cs.log.Printf("notify channel full on room %q", rb.RoomId)
				}
			}
		case req := <-cs.unloadRoomChan:
			if room, ok := cs.rooms[req.roomId]; ok {
				cs.unloadRoom(room.externalId)
				room.exit <- exitReq{closed: req.closed}
				<-room.done
			}
			if req.done != nil {
				close(req.done)
			}
		case req := <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, room := range cs.rooms {
				cs.log.Printf("shutting down room %q", room.externalId)
				room.exit <- exitReq{}
				<-room.done
			}

			close(req.done)
			return
		}
	}
}

// handleJoin routes a join request to the target room, loading the room
// from the database first if it is not live. Joins to closed rooms are
// refused.
func (cs *ChatServer) handleJoin(joinMsg *ClientMessage) {
	if room, ok := cs.rooms[joinMsg.Join.RoomId]; ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			cs.log.Printf("join channel full on room %q", room.externalId)
			joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
		}
		return
	}

	dbRoom, err := cs.db.GetRoomByExternalId(joinMsg.Join.RoomId)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			cs.log.Println("GetRoomByExternalId:", err)
			joinMsg.client.queueMessage(ErrInternalError(joinMsg.Id))
			return
		}
		joinMsg.client.queueMessage(ErrRoomNotFound(joinMsg.Id))
		return
	}

	if !dbRoom.IsActive {
		joinMsg.client.queueMessage(ErrRoomClosed(joinMsg.Id))
		return
	}

	room := newRoom(cs, dbRoom)
	cs.rooms[room.externalId] = room
	cs.stats.Incr("active_rooms")
	room.joinChan <- joinMsg

	go room.start()
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

func (cs *ChatServer) unloadRoom(roomId string) {
	if room, ok := cs.rooms[roomId]; ok {
		cs.log.Printf("unloading room %q", room.externalId)
		delete(cs.rooms, roomId)
		cs.stats.Decr("active_rooms")
	}
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.registerChan <- c
}

// Broadcast delivers a materialized message to the members of a room,
// best-effort. A room that is not live has no members to deliver to.
func (cs *ChatServer) Broadcast(roomId string, msg *types.Message) {
	rb := &RoomBroadcast{
		RoomId: roomId,
		Message: &ServerMessage{
			BaseMessage: BaseMessage{
				Timestamp: msg.Timestamp,
			},
			Message: msg,
		},
	}

	select {
	case cs.broadcastChan <- rb:
	default:
		cs.log.Printf("broadcast channel full, dropping message for room %q", roomId)
	}
}

// UnloadRoom removes a live room, notifying members when the room was
// closed, and waits for the room to finish cleaning up.
func (cs *ChatServer) UnloadRoom(ctx context.Context, roomId string, closed bool) error {
	req := unloadRoomRequest{
		roomId: roomId,
		closed: closed,
		done:   make(chan struct{}),
	}

	select {
	case cs.unloadRoomChan <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	req := stopReq{done: make(chan struct{})}
	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
