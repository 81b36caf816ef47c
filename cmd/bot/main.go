// Command bot plays Ludo Arena games against a running server. Several bots
// pointed at the same game id make a complete match, which is handy for
// load testing and for watching the WebSocket feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/ludo-arena/api"
	"github.com/wricardo/ludo-arena/game/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("bot failed")
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Play a Ludo Arena game through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "token", Required: true, Usage: "Player credential", Sources: cli.EnvVars("LUDO_TOKEN")},
			&cli.StringFlag{Name: "player", Required: true, Usage: "Player id the token was issued for"},
			&cli.StringFlag{Name: "game", Usage: "Game to join; a new one is created when empty"},
			&cli.StringFlag{Name: "board", Usage: "Board for a new game"},
			&cli.IntFlag{Name: "start-at", Value: 2, Usage: "Start the game once this many players joined (0 = never)"},
			&cli.StringFlag{Name: "strategy", Value: "greedy", Usage: "greedy or first"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing board presets"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay after each action"},
			&cli.BoolFlag{Name: "no-feed", Usage: "Poll the REST API instead of following the WebSocket feed"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log := logrus.New()
	if cmd.Bool("v") {
		log.SetLevel(logrus.DebugLevel)
	}

	strategy, ok := strategyByName(cmd.String("strategy"))
	if !ok {
		return fmt.Errorf("unknown strategy %q", cmd.String("strategy"))
	}
	boards, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	log.Infof("Connecting to game server at %s", cmd.String("url"))
	client := api.NewClient(cmd.String("url"), api.WithToken(cmd.String("token")))

	gameID := cmd.String("game")
	if gameID == "" {
		game, err := client.CreateGame(ctx, cmd.String("board"), "")
		if err != nil {
			return fmt.Errorf("failed to create game: %w", err)
		}
		gameID = game.ID
		log.Infof("Game created: %s", gameID)
	}

	bot := NewBot(client, cmd.String("player"), boards, strategy, log)
	bot.StartAt = int(cmd.Int("start-at"))
	bot.Delay = cmd.Duration("delay")
	bot.NoFeed = cmd.Bool("no-feed")

	started := time.Now()
	out, err := bot.Play(ctx, gameID)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"game_id":  gameID,
		"winner":   out.Winner,
		"rolls":    out.Rolls,
		"moves":    out.Moves,
		"applied":  out.Applied,
		"resynced": out.Resynced,
		"duration": time.Since(started).Round(time.Millisecond),
	}).Info("Game over")
	return nil
}
