// Command ludo-arena starts the Ludo Arena game server.
//
// It supports several commands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp-stdio" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "boards" – validates and lists board presets
//  4. "token" – signs a player credential with the server secret
//
// Settings come from the environment (see app.Config); flags override them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/ludo-arena/api"
	"github.com/wricardo/ludo-arena/app"
	"github.com/wricardo/ludo-arena/auth"
	"github.com/wricardo/ludo-arena/game/config"
	"github.com/wricardo/ludo-arena/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ludo Arena Server"
)

const defaultAPIURL = "http://localhost:8080"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("ludo-arena failed")
	}
}

// newCommand builds the command tree
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "ludo-arena",
		Usage:   AppName,
		Version: Version,
		Flags:   serveFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Flags:   serveFlags(),
				Action:  runServe,
			},
			{
				Name:    "mcp-stdio",
				Aliases: []string{"stdio-mcp", "mcp"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server when none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: defaultAPIURL, Usage: "Game API to proxy to"},
					&cli.StringFlag{Name: "token", Usage: "Player credential used by tools that take no token argument"},
				},
				Action: runMCPStdio,
			},
			{
				Name:  "boards",
				Usage: "Inspect board presets",
				Commands: []*cli.Command{
					{
						Name:      "validate",
						Usage:     "Validate preset files or directories",
						ArgsUsage: "[path ...]",
						Action:    runValidateBoards,
					},
					{
						Name:   "list",
						Usage:  "List available boards",
						Flags:  []cli.Flag{configDirFlag()},
						Action: runListBoards,
					},
				},
			},
			{
				Name:  "token",
				Usage: "Issue a player credential",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "player", Required: true, Usage: "Player id (token subject)"},
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "Token lifetime"},
				},
				Action: runIssueToken,
			},
		},
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "config-dir", Usage: "Directory containing board presets (overrides CONFIG_DIR)"}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host (overrides LUDO_HOST)"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port (overrides LUDO_PORT)"},
		configDirFlag(),
		&cli.StringFlag{Name: "store", Usage: "Game store: memory, file, bolt or sqlite (overrides LUDO_STORE)"},
		&cli.StringFlag{Name: "store-path", Usage: "Directory for persistent stores (overrides LUDO_STORE_PATH)"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
	}
}

// loadConfig reads the environment and applies any flags that were set
func loadConfig(cmd *cli.Command) (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	applyFlags(cmd, &cfg)
	return cfg, nil
}

func applyFlags(cmd *cli.Command, cfg *app.Config) {
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("config-dir") {
		cfg.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("store") {
		cfg.StoreKind = cmd.String("store")
	}
	if cmd.IsSet("store-path") {
		cfg.StorePath = cmd.String("store-path")
	}
	if cmd.IsSet("debug") && cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := app.NewLogger(cfg)
	log.Infof("Starting %s v%s", AppName, Version)

	shutdown, err := app.SetupTracing(ctx, cfg.OTelEndpoint, "ludo-arena")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}

// runMCPStdio runs an MCP stdio server. It reuses the API at --api-url when
// it answers a health check; otherwise it starts an internal HTTP API bound
// to a random loopback port and targets that.
func runMCPStdio(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP protocol
	log := logrus.New()
	log.SetOutput(os.Stderr)

	baseURL := cmd.String("api-url")
	token := cmd.String("token")

	log.Infof("Checking for external API server at %s...", baseURL)
	if externalAvailable(ctx, baseURL) {
		log.Infof("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		url, internalToken, err := startInternal(ctx, log)
		if err != nil {
			return err
		}
		baseURL = url
		if token == "" {
			token = internalToken
		}
	}

	mcpClient := mcp.NewClient(baseURL, token)
	log.Infof("MCP stdio server ready (API %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func externalAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return api.NewClient(baseURL).Health(ctx) == nil
}

// startInternal serves an in-memory app on loopback. When no secret is
// configured it signs with a random one and returns a token for an "mcp"
// player so the tools work out of the box.
func startInternal(ctx context.Context, log logrus.FieldLogger) (string, string, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return "", "", err
	}
	cfg.StoreKind = app.StoreMemory
	cfg.Ngrok.Enabled = false
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return "", "", fmt.Errorf("failed to initialize services: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		a.Close()
		return "", "", fmt.Errorf("failed to get available port: %w", err)
	}
	log.Infof("Starting internal HTTP server on %s for MCP stdio", ln.Addr())

	go func() {
		defer a.Close()
		if err := a.Serve(ctx, ln); err != nil {
			log.WithError(err).Error("Internal HTTP server error")
		}
	}()

	token, err := a.IssueToken("mcp", "MCP", 24*time.Hour)
	if err != nil {
		return "", "", err
	}
	return "http://" + ln.Addr().String(), token, nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func runValidateBoards(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		paths = []string{cfg.ConfigDir}
	}

	w := output(cmd)
	invalid := 0
	for _, p := range paths {
		results, err := validatePath(p)
		if err != nil {
			return err
		}
		for _, r := range results {
			status := "OK"
			if !r.Valid {
				status = "INVALID"
				invalid++
			}
			fmt.Fprintf(w, "%s: %s\n", r.File, status)
			for _, m := range r.Messages {
				fmt.Fprintf(w, "  - %s\n", m)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d invalid board preset(s)", invalid)
	}
	return nil
}

func validatePath(path string) ([]config.ValidationResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return config.ValidateDir(path)
	}
	return []config.ValidationResult{config.ValidateFile(path)}, nil
}

func runListBoards(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	manager, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return err
	}
	boards, err := manager.ListBoards()
	if err != nil {
		return err
	}

	w := output(cmd)
	for _, b := range boards {
		fmt.Fprintf(w, "%-10s %3d cells, home column %d  %s\n",
			b.BoardID, b.MainTrackLength, b.HomeColumnLength, b.Description)
	}
	return nil
}

func runIssueToken(ctx context.Context, cmd *cli.Command) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("LUDO_JWT_SECRET is required to issue tokens")
	}

	verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return err
	}
	token, err := verifier.Issue(auth.Identity{
		PlayerID: cmd.String("player"),
		Name:     cmd.String("name"),
	}, cmd.Duration("ttl"))
	if err != nil {
		return err
	}

	fmt.Fprintln(output(cmd), token)
	return nil
}
