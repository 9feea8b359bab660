package collab

import (
	"sort"
	"sync"

	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/engine"
)

// Roster tracks the viewers of one room and where each is pointing.
type Roster struct {
	mu      sync.RWMutex
	viewers map[string]PresencePayload // clientID -> last known presence
}

func NewRoster() *Roster {
	return &Roster{viewers: make(map[string]PresencePayload)}
}

func (r *Roster) Set(clientID string, p PresencePayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewers[clientID] = p
}

func (r *Roster) Drop(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.viewers, clientID)
}

// Snapshot copies the roster. Clients are listed in id order.
func (r *Roster) Snapshot() (map[string]*PresencePayload, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*PresencePayload, len(r.viewers))
	ids := make([]string, 0, len(r.viewers))
	for id, p := range r.viewers {
		out[id] = &p
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return out, ids
}

// StateMessage is sent to a joining client; nil when nobody has reported a
// cursor yet.
func (r *Roster) StateMessage() *Message {
	all, order := r.Snapshot()
	if len(all) == 0 {
		return nil
	}
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all, Order: order})
}

// hoverKey names the entity under a drawing-space cursor, "" if none.
func hoverKey(eng *engine.Engine, cursor drawing.Vec2) string {
	p := engine.DrawingToScreen(cursor, eng.ViewState(), eng.Container())
	if hit := eng.HitTest(p.X, p.Y); hit != nil {
		return hit.ObjectID
	}
	return ""
}
