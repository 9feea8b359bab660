// Package session keeps one viewer Engine per opened drawing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dxfview/dxfview/internal/config"
	"github.com/dxfview/dxfview/internal/drawing"
	"github.com/dxfview/dxfview/internal/engine"
	"github.com/dxfview/dxfview/internal/logbuf"
	"github.com/dxfview/dxfview/internal/typeid"
)

var ErrNotFound = errors.New("session not found")

// Parser produces drawings and pre-rendered markup for a DXF path.
type Parser interface {
	Parse(ctx context.Context, path string, cfg any) (*drawing.LayeredDrawing, error)
	RenderMarkup(ctx context.Context, path string, cfg any) (string, error)
}

// Notifier receives every selection change of every session. It is called
// with the session's engine locked and must not call back into it.
type Notifier interface {
	SelectionChanged(sessionID string, f *engine.SelectedFeature, src engine.SelectionSource)
	ViewChanged(sessionID string, v engine.ViewState)
}

type Session struct {
	ID       string
	Path     string
	OpenedAt time.Time
	Engine   *engine.Engine
	Ring     *logbuf.Ring
}

// Info is the JSON summary of a session.
type Info struct {
	ID        string                  `json:"id"`
	Path      string                  `json:"path"`
	OpenedAt  time.Time               `json:"openedAt"`
	Layers    []engine.LayerInfo      `json:"layers"`
	Entities  int                     `json:"entities"`
	View      engine.ViewState        `json:"view"`
	Visible   engine.BoundingBox      `json:"visible"` // drawing-space region on screen
	Bounds    engine.BoundingBox      `json:"bounds"`
	Selection *engine.SelectedFeature `json:"selection"`
	Error     string                  `json:"error,omitempty"`
}

type Options struct {
	Renderer     config.Renderer
	DebugLogSize int
	Markup       bool             // also run the SVG renderer for markup highlights
	Scheduler    engine.Scheduler // deferred centering timer; nil uses real timers
	Logger       *slog.Logger
}

type Service struct {
	parser   Parser
	renderer config.Renderer
	logSize  int
	markup   bool
	sched    engine.Scheduler
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	notifier Notifier
}

func NewService(parser Parser, opts Options) *Service {
	s := &Service{
		parser:   parser,
		renderer: opts.Renderer.Normalize(),
		logSize:  opts.DebugLogSize,
		markup:   opts.Markup,
		sched:    opts.Scheduler,
		log:      opts.Logger,
		sessions: make(map[string]*Session),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// SetNotifier installs the selection observer for sessions opened later.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Open parses path and starts a session on it.
func (s *Service) Open(ctx context.Context, path string) (*Session, error) {
	d, err := s.parser.Parse(ctx, path, s.renderer)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	id := typeid.NewSessionID()
	ring := logbuf.NewRing(s.logSize)
	opts := []engine.Option{
		engine.WithDebugLog(ring, s.log.With("session", id).Handler()),
		engine.WithSettings(s.renderer.EngineSettings()),
	}
	if s.sched != nil {
		opts = append(opts, engine.WithScheduler(s.sched))
	}
	eng := engine.NewEngine(opts...)

	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n != nil {
		eng.OnSelectionChange(func(f *engine.SelectedFeature, src engine.SelectionSource) {
			n.SelectionChanged(id, f, src)
		})
		eng.OnViewChange(func(v engine.ViewState) {
			n.ViewChanged(id, v)
		})
	}

	eng.LoadDrawing(d)
	s.loadMarkup(ctx, eng, path)

	sess := &Session{
		ID:       id,
		Path:     path,
		OpenedAt: time.Now(),
		Engine:   eng,
		Ring:     ring,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Info("session opened", "session", id, "path", path, "entities", d.EntityCount())
	return sess, nil
}

// Reload re-parses the session's file. On failure the last good drawing
// stays loaded and the error is returned.
func (s *Service) Reload(ctx context.Context, id string) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	d, err := s.parser.Parse(ctx, sess.Path, s.renderer)
	if err != nil {
		sess.Engine.FailLoad(err)
		return sess, fmt.Errorf("reload %s: %w", sess.Path, err)
	}
	sess.Engine.LoadDrawing(d)
	s.loadMarkup(ctx, sess.Engine, sess.Path)

	s.log.Info("session reloaded", "session", id)
	return sess, nil
}

func (s *Service) loadMarkup(ctx context.Context, eng *engine.Engine, path string) {
	if !s.markup {
		return
	}
	svg, err := s.parser.RenderMarkup(ctx, path, s.renderer)
	if err != nil {
		s.log.Warn("render markup failed", "path", path, "error", err)
		return
	}
	if err := eng.LoadMarkup(svg); err != nil {
		s.log.Warn("index markup failed", "path", path, "error", err)
	}
}

func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	s.log.Info("session closed", "session", id)
	return nil
}

// List returns all sessions, oldest first.
func (s *Service) List() []Info {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].OpenedAt.Before(all[j].OpenedAt) })

	out := make([]Info, len(all))
	for i, sess := range all {
		out[i] = sess.Info()
	}
	return out
}

func (sess *Session) Info() Info {
	eng := sess.Engine
	info := Info{
		ID:        sess.ID,
		Path:      sess.Path,
		OpenedAt:  sess.OpenedAt,
		Layers:    eng.Layers(),
		View:      eng.ViewState(),
		Selection: eng.Selection(),
		Error:     eng.Error(),
	}
	info.Bounds, _ = eng.Bounds()
	info.Visible = engine.VisibleRegion(info.View, eng.Container())
	if d := eng.Drawing(); d != nil {
		info.Entities = d.EntityCount()
	}
	return info
}
