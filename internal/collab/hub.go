package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dxfview/dxfview/internal/engine"
	"github.com/dxfview/dxfview/internal/session"
)

// Sessions resolves the session a room is attached to.
type Sessions interface {
	Get(id string) (*session.Session, error)
}

// Room holds the clients viewing one session.
type Room struct {
	sessionID string
	clients   map[string]*Client // clientID -> client
	roster    *Roster
	seq       atomic.Int64
}

func NewRoom(sessionID string) *Room {
	return &Room{
		sessionID: sessionID,
		clients:   make(map[string]*Client),
		roster:    NewRoster(),
	}
}

// Hub routes websocket messages to session engines and fans engine events
// out to every client in the session's room.
type Hub struct {
	sessions Sessions

	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(sessions Sessions) *Hub {
	return &Hub{
		sessions:   sessions,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for id, room := range h.rooms {
			for _, c := range room.clients {
				c.close()
			}
			delete(h.rooms, id)
		}
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	sess, err := h.sessions.Get(client.SessionID)
	if err != nil {
		client.SendError("session not found")
		client.close()
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		room = NewRoom(client.SessionID)
		h.rooms[client.SessionID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	eng := sess.Engine
	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:  client.ClientID,
		Layers:    eng.Layers(),
		View:      eng.ViewState(),
		Selection: eng.Selection(),
	}))

	// Send current presence state to new client
	if stateMsg := room.roster.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	h.broadcastToRoom(client.SessionID, newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
	}), client.ClientID)

	slog.Info("client joined", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.roster.Drop(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()

	h.broadcastToRoom(client.SessionID, newMessage(TypePresenceLeave, PresenceLeavePayload{
		ClientID: client.ClientID,
	}), "")

	slog.Info("client left", "client", client.ClientID, "session", client.SessionID)
}

// SelectionChanged broadcasts a selection change to the session's room. A
// selection made on the canvas also asks the trees to reveal the row.
func (h *Hub) SelectionChanged(sessionID string, f *engine.SelectedFeature, src engine.SelectionSource) {
	payload := SelectionChangedPayload{Feature: f, Source: src}
	if f != nil {
		payload.Key = f.Key()
	}
	h.broadcastToRoom(sessionID, newMessage(TypeSelectionChanged, payload), "")

	if f != nil && src == engine.SourceCanvas {
		h.broadcastToRoom(sessionID, newMessage(TypeTreeExpand, TreeExpandPayload{Path: engine.TreePath(*f)}), "")
	}
}

// ViewChanged broadcasts view changes made outside a client request.
func (h *Hub) ViewChanged(sessionID string, v engine.ViewState) {
	h.broadcastToRoom(sessionID, newMessage(TypeViewState, v), "")
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	sess, err := h.sessions.Get(sender.SessionID)
	if err != nil {
		sender.SendError("session not found")
		return
	}
	eng := sess.Engine

	switch msg.Type {
	case TypeSelectionRequest:
		var f *engine.SelectedFeature
		if err := json.Unmarshal(msg.Payload, &f); err != nil {
			sender.SendError("invalid selection payload")
			return
		}
		if _, err := eng.SetSelection(f); err != nil {
			sender.SendError(err.Error())
		}

	case TypeCanvasClick:
		var p ClickPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.SendError("invalid click payload")
			return
		}
		eng.PointerDown(p.X, p.Y)
		eng.PointerUp(p.X, p.Y)
		sender.Send(frameMessage(eng))

	case TypeLayerVisibility:
		var p LayerVisibilityPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Layer == "" {
			sender.SendError("invalid layer payload")
			return
		}
		eng.SetLayerVisible(p.Layer, p.Visible)
		h.broadcastToRoom(sender.SessionID, newMessage(TypeLayers, eng.Layers()), "")
		sender.Send(frameMessage(eng))

	case TypeFrameRequest:
		sender.Send(frameMessage(eng))

	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)

	default:
		action, ok := viewActions[msg.Type]
		if !ok {
			slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
			sender.SendError("unknown message type: " + msg.Type)
			return
		}
		var va session.ViewAction
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &va); err != nil {
				sender.SendError("invalid view payload")
				return
			}
		}
		va.Action = action
		if err := va.Apply(eng); err != nil {
			sender.SendError(err.Error())
			return
		}
		h.broadcastToRoom(sender.SessionID, newMessage(TypeViewState, eng.ViewState()), "")
		sender.Send(frameMessage(eng))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName
	presence.Hover = ""

	h.mu.RLock()
	room, ok := h.rooms[sender.SessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if presence.Cursor != nil {
		if sess, err := h.sessions.Get(sender.SessionID); err == nil {
			presence.Hover = hoverKey(sess.Engine, *presence.Cursor)
		}
	}
	room.roster.Set(sender.ClientID, presence)

	out := newMessage(TypePresenceUpdate, presence)
	out.ClientID = sender.ClientID
	h.broadcastToRoom(sender.SessionID, out, sender.ClientID)
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	msg.SessionID = sessionID
	msg.Seq = room.seq.Add(1)
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func frameMessage(eng *engine.Engine) *Message {
	return newMessage(TypeFrame, FramePayload{
		View:      eng.ViewState(),
		Container: eng.Container(),
		Commands:  eng.RenderCommands(),
	})
}
