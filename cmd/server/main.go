package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dxfview/dxfview/internal/auth"
	"github.com/dxfview/dxfview/internal/collab"
	"github.com/dxfview/dxfview/internal/config"
	"github.com/dxfview/dxfview/internal/export"
	mw "github.com/dxfview/dxfview/internal/middleware"
	"github.com/dxfview/dxfview/internal/parser"
	"github.com/dxfview/dxfview/internal/session"
	"github.com/dxfview/dxfview/internal/store"
	"github.com/dxfview/dxfview/internal/typeid"
	"github.com/dxfview/dxfview/internal/upload"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	renderer, err := config.LoadRenderer(cfg.RendererConfig)
	if err != nil {
		slog.Error("load renderer config", "error", err, "path", cfg.RendererConfig)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Parsed drawings are cached in Postgres when configured, in memory otherwise.
	var cache store.Store = store.NewMemoryStore(cfg.CacheEntries)
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("ensure schema", "error", err)
			os.Exit(1)
		}
		cache = pg
	}

	parserClient := parser.NewClient(parser.Options{
		Python:       cfg.PythonPath,
		ParserScript: cfg.ParserScript,
		RenderScript: cfg.RenderScript,
		Cache:        cache,
	})
	slog.Info("parser configured", "python", parserClient.Python(), "script", cfg.ParserScript)

	sessionService := session.NewService(parserClient, session.Options{
		Renderer:     renderer,
		DebugLogSize: cfg.DebugLogSize,
		Markup:       cfg.RenderMarkup,
	})
	sessionHandler := session.NewHandler(sessionService, cfg.DrawingDir)

	hub := collab.NewHub(sessionService)
	sessionService.SetNotifier(hub)
	go hub.Run()

	authService := auth.NewService(cfg.JWTSecret, cfg.PassphraseHash)
	authHandler := auth.NewHandler(authService, func(sessionID string) bool {
		_, err := sessionService.Get(sessionID)
		return err == nil
	})

	uploadHandler := upload.NewHandler(cfg.DrawingDir)
	exportHandler := export.NewHandler(sessionService)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/drawings/upload", uploadHandler.Upload).Methods("POST", "OPTIONS")
	r.HandleFunc("/drawings/{drawingId}", uploadHandler.Remove).Methods("DELETE", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	sessionHandler.Register(api)
	api.HandleFunc("/sessions/{sessionId}/export.svg", exportHandler.ExportSVG).Methods("GET")

	r.HandleFunc("/ws/session/{sessionId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "drawings", cfg.DrawingDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	sessionID := mux.Vars(r)["sessionId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	subject, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if !auth.Allows(subject, sessionID) {
		http.Error(w, "token does not cover this session", http.StatusForbidden)
		return
	}

	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = "viewer-" + uuid.New().String()[:8]
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, displayName, sessionID, typeid.NewClientID())
	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns strips the scheme; websocket.Accept matches on host.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
