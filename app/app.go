// Package app wires configuration, storage, the game service and the
// transports into a runnable server.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/ludo-arena/api"
	"github.com/wricardo/ludo-arena/auth"
	"github.com/wricardo/ludo-arena/game/config"
	"github.com/wricardo/ludo-arena/game/presence"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/syncer"
	"github.com/wricardo/ludo-arena/storage/bolt"
	"github.com/wricardo/ludo-arena/storage/sqlite"
	"github.com/wricardo/ludo-arena/transport/mcp"
	"github.com/wricardo/ludo-arena/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// App holds every long-lived dependency of the server
type App struct {
	Config     Config
	Log        logrus.FieldLogger
	Boards     *config.Manager
	Store      session.Store
	Registry   *session.Registry
	Transactor *session.Transactor
	Presence   *presence.Registry
	Hub        *websocket.Hub
	Directory  *auth.StaticDirectory
	Verifier   *auth.JWTVerifier
	Service    service.GameService

	closeStore func() error
}

// New builds the dependency graph described by cfg
func New(cfg Config, log logrus.FieldLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	boards, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create board manager: %w", err)
	}

	verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := OpenStore(cfg.StoreKind, cfg.StorePath)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Log:        log,
		Boards:     boards,
		Store:      store,
		Registry:   session.NewRegistry(store, log),
		Presence:   presence.NewRegistry(),
		Directory:  auth.NewStaticDirectory(nil),
		Verifier:   verifier,
		closeStore: closeStore,
	}
	a.Transactor = session.NewTransactor(store, boards,
		session.WithMaxAttempts(cfg.MaxAttempts),
		session.WithLogger(log),
	)
	a.Hub = websocket.NewHub(
		websocket.WithPresence(a.Presence),
		websocket.WithLogger(log),
	)
	a.Service = service.NewGameService(a.Registry, a.Transactor, boards,
		service.WithPublisher(syncer.NewPublisher(a.Hub, log)),
		service.WithDirectory(a.Directory),
		service.WithAutoPassDelay(cfg.AutoPassDelay),
		service.WithLogger(log),
	)

	log.WithFields(logrus.Fields{
		"store":      cfg.StoreKind,
		"config_dir": cfg.ConfigDir,
		"board":      boards.GetDefault().Name(),
	}).Info("Services initialized")

	return a, nil
}

// OpenStore opens the game store of the given kind under path
func OpenStore(kind, path string) (session.Store, func() error, error) {
	nop := func() error { return nil }

	switch kind {
	case StoreMemory:
		return session.NewMemoryStore(), nop, nil

	case StoreFile:
		s, err := session.NewFileStore(filepath.Join(path, "games"))
		if err != nil {
			return nil, nil, err
		}
		return s, nop, nil

	case StoreBolt:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		s, err := bolt.Open(filepath.Join(path, "ludo.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case StoreSQLite:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		s, err := sqlite.Open(filepath.Join(path, "ludo.sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store %q", kind)
}

// Handler mounts the REST API, the WebSocket endpoint and /mcp. MCP tools
// proxy to the REST API at baseURL.
func (a *App) Handler(baseURL string) http.Handler {
	verifier := auth.RememberingVerifier{Verifier: a.Verifier, Directory: a.Directory}
	apiServer := api.NewServer(a.Service, a.Hub, verifier, api.WithLogger(a.Log))
	mcpClient := mcp.NewClient(baseURL, a.Config.MCPToken)

	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// Run listens on the configured address and serves until ctx is done
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Config.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the hub, the HTTP server on ln, the optional ngrok tunnel and
// the finished-game janitor. It returns when ctx is done or any of them fails.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	addr := ln.Addr().String()
	handler := a.Handler("http://" + addr)

	httpServer := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		a.Log.Infof("HTTP server listening on %s", addr)
		a.Log.Infof("REST API: http://%s/api", addr)
		a.Log.Infof("WebSocket: ws://%s/ws?game=<game_id>&token=<jwt>", addr)
		a.Log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.Log.WithError(err).Warn("HTTP server shutdown error")
		}
		return nil
	})

	if a.Config.Ngrok.Enabled {
		g.Go(func() error {
			return a.runNgrok(ctx, handler)
		})
	}

	if a.Config.CleanupInterval > 0 {
		g.Go(func() error {
			a.runJanitor(ctx)
			return nil
		})
	}

	return g.Wait()
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func (a *App) runNgrok(ctx context.Context, handler http.Handler) error {
	if a.Config.Ngrok.AuthToken == "" {
		a.Log.Warn("Ngrok enabled but no auth token provided (use NGROK_AUTHTOKEN)")
		return nil
	}

	a.Log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if a.Config.Ngrok.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(a.Config.Ngrok.Domain))
		a.Log.Infof("Using custom ngrok domain: %s", a.Config.Ngrok.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(a.Config.Ngrok.AuthToken))
	if err != nil {
		// The local server keeps running without the tunnel
		a.Log.WithError(err).Error("Failed to start ngrok tunnel")
		return nil
	}

	ngrokURL := tun.URL()
	a.Log.Infof("Ngrok tunnel established: %s", ngrokURL)
	a.Log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	a.Log.Infof("  WebSocket (ngrok): %s/ws?game=<game_id>&token=<jwt>", ngrokURL)

	tunnelServer := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		tunnelServer.Close()
	}()

	if err := tunnelServer.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Log.WithError(err).Warn("Ngrok server error")
	}
	a.Log.Info("Ngrok tunnel closed")
	return nil
}

// runJanitor periodically removes finished games past the retention window
func (a *App) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(a.Config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Cleanup(ctx)
		}
	}
}

// Cleanup runs one janitor pass and returns how many games were removed
func (a *App) Cleanup(ctx context.Context) int {
	removed, err := a.Registry.CleanupFinished(ctx, a.Config.FinishedRetention)
	if err != nil {
		a.Log.WithError(err).Warn("Cleanup of finished games failed")
	}
	if removed > 0 {
		a.Log.Infof("Cleaned up %d finished games", removed)
	}
	return removed
}

// IssueToken signs a player credential with the server secret
func (a *App) IssueToken(playerID, name string, ttl time.Duration) (string, error) {
	return a.Verifier.Issue(auth.Identity{PlayerID: playerID, Name: name}, ttl)
}

// Close stops background work and releases the store
func (a *App) Close() error {
	a.Service.Close()
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}
