package collab

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/engine"
	"github.com/dxfview/dxfview/internal/session"
)

type noTimers struct{}

func (noTimers) AfterFunc(time.Duration, func()) {}

type sampleParser struct{}

func (sampleParser) Parse(context.Context, string, any) (*drawing.LayeredDrawing, error) {
	return drawing.NewSampleDrawing(), nil
}

func (sampleParser) RenderMarkup(context.Context, string, any) (string, error) { return "", nil }

func newTestHub(t *testing.T) (*Hub, *session.Session) {
	t.Helper()
	svc := session.NewService(sampleParser{}, session.Options{Scheduler: noTimers{}})
	hub := NewHub(svc)
	svc.SetNotifier(hub)

	sess, err := svc.Open(context.Background(), "part.dxf")
	require.NoError(t, err)
	sess.Engine.Resize(800, 600)
	return hub, sess
}

func join(h *Hub, sessionID, clientID string) *Client {
	c := NewClient(h, nil, clientID, sessionID, clientID)
	h.addClient(c)
	return c
}

// drain returns the queued messages of c.
func drain(t *testing.T, c *Client) []Message {
	t.Helper()
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Type
	}
	return out
}

func find(msgs []Message, typ string) *Message {
	for i := range msgs {
		if msgs[i].Type == typ {
			return &msgs[i]
		}
	}
	return nil
}

func send(h *Hub, c *Client, typ string, payload any) {
	data, _ := json.Marshal(payload)
	h.handleMessage(c, &Message{Type: typ, Payload: data})
}

func TestJoinSendsWelcomeAndPresence(t *testing.T) {
	h, sess := newTestHub(t)

	a := join(h, sess.ID, "client_a")
	msgs := drain(t, a)
	require.Equal(t, []string{TypeWelcome}, types(msgs))

	var welcome WelcomePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &welcome))
	assert.Equal(t, "client_a", welcome.ClientID)
	assert.NotEmpty(t, welcome.Layers)
	assert.Nil(t, welcome.Selection)

	join(h, sess.ID, "client_b")
	assert.Equal(t, []string{TypePresenceJoin}, types(drain(t, a)))
}

func TestJoinUnknownSession(t *testing.T) {
	h, _ := newTestHub(t)
	c := join(h, "sess_missing", "client_a")

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeError, msgs[0].Type)
}

func TestTreeSelectionBroadcastsWithoutExpand(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	b := join(h, sess.ID, "client_b")
	drain(t, a)
	drain(t, b)

	send(h, a, TypeSelectionRequest, engine.SelectedFeature{LayerName: "Holes", EntityType: drawing.TypeCircle, EntityIndex: 1})

	for _, c := range []*Client{a, b} {
		msgs := drain(t, c)
		require.Equal(t, []string{TypeSelectionChanged}, types(msgs))

		var p SelectionChangedPayload
		require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
		require.NotNil(t, p.Feature)
		assert.Equal(t, engine.SourceTree, p.Source)
		assert.Equal(t, "Holes:CIRCLE:1", p.Key)
		assert.Equal(t, "2B", p.Feature.Handle())
	}
}

func TestCanvasClickExpandsTree(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	drain(t, a)

	p := engine.DrawingToScreen(drawing.Vec2{X: 52, Y: 30}, sess.Engine.ViewState(), sess.Engine.Container())
	send(h, a, TypeCanvasClick, ClickPayload{X: p.X, Y: p.Y})

	msgs := drain(t, a)
	assert.Equal(t, []string{TypeSelectionChanged, TypeTreeExpand, TypeFrame}, types(msgs))

	var expand TreeExpandPayload
	require.NoError(t, json.Unmarshal(find(msgs, TypeTreeExpand).Payload, &expand))
	assert.Equal(t, []string{"Holes", "CIRCLE", "Holes:CIRCLE:0"}, expand.Path)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)

	// Clicking again deselects; nothing to expand.
	send(h, a, TypeCanvasClick, ClickPayload{X: p.X, Y: p.Y})
	msgs = drain(t, a)
	assert.Equal(t, []string{TypeSelectionChanged, TypeFrame}, types(msgs))
}

func TestSelectionRequestErrors(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	drain(t, a)

	send(h, a, TypeSelectionRequest, engine.SelectedFeature{LayerName: "Nope", EntityType: drawing.TypeLine})
	assert.Equal(t, []string{TypeError}, types(drain(t, a)))

	h.handleMessage(a, &Message{Type: TypeSelectionRequest, Payload: json.RawMessage(`{`)})
	assert.Equal(t, []string{TypeError}, types(drain(t, a)))

	send(h, a, "view.spin", nil)
	assert.Equal(t, []string{TypeError}, types(drain(t, a)))
}

func TestViewMessages(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	b := join(h, sess.ID, "client_b")
	drain(t, a)
	drain(t, b)

	before := sess.Engine.ViewState()
	send(h, a, TypeViewPan, map[string]float64{"dx": 25, "dy": 0})

	assert.Equal(t, []string{TypeViewState, TypeFrame}, types(drain(t, a)))
	msgs := drain(t, b)
	require.Equal(t, []string{TypeViewState}, types(msgs))

	var v engine.ViewState
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &v))
	assert.InDelta(t, before.OffsetX+25, v.OffsetX, 1e-9)

	send(h, a, TypeViewFit, nil)
	drain(t, b)
	assert.InDelta(t, before.OffsetX, sess.Engine.ViewState().OffsetX, 1e-9)
}

func TestLayerVisibilityBroadcastsLayers(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	b := join(h, sess.ID, "client_b")
	drain(t, a)
	drain(t, b)

	send(h, a, TypeLayerVisibility, LayerVisibilityPayload{Layer: "Fill", Visible: false})

	msgs := drain(t, b)
	require.Equal(t, []string{TypeLayers}, types(msgs))
	var layers []engine.LayerInfo
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &layers))
	for _, l := range layers {
		if l.Name == "Fill" {
			assert.False(t, l.Visible)
		}
	}
	assert.Equal(t, []string{TypeLayers, TypeFrame}, types(drain(t, a)))
}

func TestPresenceAndLeave(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	b := join(h, sess.ID, "client_b")
	drain(t, a)
	drain(t, b)

	send(h, a, TypePresenceUpdate, PresencePayload{Cursor: &drawing.Vec2{X: 1, Y: 2}})
	assert.Empty(t, drain(t, a))
	msgs := drain(t, b)
	require.Equal(t, []string{TypePresenceUpdate}, types(msgs))
	assert.Equal(t, "client_a", msgs[0].ClientID)

	c := join(h, sess.ID, "client_c")
	msgs = drain(t, c)
	assert.Equal(t, []string{TypeWelcome, TypePresenceState}, types(msgs))
	var state PresenceStatePayload
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &state))
	assert.Equal(t, []string{"client_a"}, state.Order)

	h.removeClient(a)
	drain(t, a)
	_, ok := <-a.send
	assert.False(t, ok, "send channel closed")
	assert.Equal(t, []string{TypePresenceJoin, TypePresenceLeave}, types(drain(t, b)))
	a.Send(newMessage(TypeError, ErrorPayload{Message: "late"}))
}

func TestPresenceReportsHoveredEntity(t *testing.T) {
	h, sess := newTestHub(t)
	a := join(h, sess.ID, "client_a")
	b := join(h, sess.ID, "client_b")
	drain(t, a)
	drain(t, b)

	send(h, a, TypePresenceUpdate, PresencePayload{Cursor: &drawing.Vec2{X: 52, Y: 30}, Hover: "spoofed"})
	msgs := drain(t, b)
	require.Len(t, msgs, 1)

	var p PresencePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &p))
	assert.Equal(t, "2A", p.Hover)
	assert.Equal(t, "client_a", p.DisplayName)

	send(h, a, TypePresenceUpdate, PresencePayload{Cursor: &drawing.Vec2{X: -500, Y: -500}})
	msgs = drain(t, b)
	require.Len(t, msgs, 1)
	var miss PresencePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &miss))
	require.NotNil(t, miss.Cursor)
	assert.Empty(t, miss.Hover)
}
