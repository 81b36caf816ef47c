package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/ludo-arena/api"
	"github.com/wricardo/ludo-arena/game/config"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/session"
)

// Bot plays one seat of a game through the REST API. While its WebSocket
// feed is up it acts on the replicated view; otherwise it polls.
type Bot struct {
	client   *api.Client
	playerID string
	boards   *config.Manager
	strategy Strategy
	log      logrus.FieldLogger

	// StartAt is the player count at which the bot starts a waiting game;
	// zero leaves starting to someone else
	StartAt int
	// Delay is slept after each of the bot's own actions
	Delay time.Duration
	// MinPoll and MaxPoll bound the wait between polls while it is not
	// the bot's turn. With a live feed MaxPoll caps the wait for an event.
	MinPoll time.Duration
	MaxPoll time.Duration
	// NoFeed disables the WebSocket feed
	NoFeed bool
}

// NewBot creates a bot acting as playerID with client's credential
func NewBot(client *api.Client, playerID string, boards *config.Manager, strategy Strategy, log logrus.FieldLogger) *Bot {
	return &Bot{
		client:   client,
		playerID: playerID,
		boards:   boards,
		strategy: strategy,
		log:      log.WithField("player_id", playerID),
		MinPoll:  100 * time.Millisecond,
		MaxPoll:  2 * time.Second,
	}
}

// Outcome summarizes a finished run
type Outcome struct {
	Winner string
	Moves  int
	Rolls  int
	// Applied and Resynced count feed events folded in as deltas and
	// events that forced a refetch
	Applied  int64
	Resynced int64
}

// Play joins gameID when not already seated and plays until the game
// finishes, the bot resigns or ctx is done
func (b *Bot) Play(ctx context.Context, gameID string) (*Outcome, error) {
	poll := &backoff.Backoff{Min: b.MinPoll, Max: b.MaxPoll, Factor: 1.5, Jitter: true}
	out := &Outcome{}

	feed := b.openFeed(ctx, gameID)
	if feed != nil {
		defer func() {
			out.Applied, out.Resynced = feed.Stats()
			feed.Close()
		}()
	}

	var lastVersion, committed int64
	for {
		game, err := b.view(ctx, gameID, feed, committed)
		if err != nil {
			return out, fmt.Errorf("failed to get game: %w", err)
		}
		if game.Version != lastVersion {
			lastVersion = game.Version
			poll.Reset()
		}

		state := game.State
		me, seated := state.Player(b.playerID)

		switch {
		case state.Status == engine.StatusFinished:
			out.Winner = state.Winner
			return out, nil

		case state.Status == engine.StatusWaiting && !seated:
			res, err := b.client.Join(ctx, gameID)
			if err != nil {
				return out, fmt.Errorf("failed to join: %w", err)
			}
			committed = res.Game.Version
			b.log.WithField("game_id", gameID).Info("Joined game")
			continue

		case state.Status == engine.StatusWaiting:
			if b.StartAt > 0 && len(state.Players) >= b.StartAt {
				res, err := b.client.Start(ctx, gameID)
				if err == nil {
					committed = res.Game.Version
					continue
				}
				if !stale(err) {
					return out, fmt.Errorf("failed to start: %w", err)
				}
			}

		case !seated:
			return out, fmt.Errorf("player %s is not in game %s", b.playerID, gameID)

		case me.Resigned:
			return out, nil

		case state.CurrentTurn == b.playerID:
			version, err := b.takeTurn(ctx, game, out)
			if err == nil {
				committed = version
				if b.Delay > 0 {
					sleep(ctx, b.Delay)
				}
				continue
			}
			if !stale(err) {
				return out, err
			}
		}

		if err := b.wait(ctx, feed, poll); err != nil {
			return out, err
		}
	}
}

// openFeed attaches to the game's WebSocket stream, nil when disabled or
// unreachable
func (b *Bot) openFeed(ctx context.Context, gameID string) *Feed {
	if b.NoFeed {
		return nil
	}
	feed, err := DialFeed(ctx, b.client, gameID, b.client.Token(), b.log)
	if err != nil {
		b.log.WithError(err).Warn("Feed unavailable, polling instead")
		return nil
	}
	return feed
}

// view returns the game as the bot should see it. The replica is used
// while the feed is up; it is refreshed when it trails a version the bot
// itself committed.
func (b *Bot) view(ctx context.Context, gameID string, feed *Feed, committed int64) (*service.GameInfo, error) {
	if feed == nil || !feed.Alive() {
		return b.client.GetGame(ctx, gameID)
	}
	snap := feed.Snapshot()
	if snap == nil || snap.Version < committed {
		if err := feed.Refresh(ctx); err != nil {
			return nil, err
		}
		snap = feed.Snapshot()
	}
	return b.decorate(snap), nil
}

// decorate computes the current player's legal pawns for a replicated record
func (b *Bot) decorate(g *session.Game) *service.GameInfo {
	gi := &service.GameInfo{Game: g}
	st := g.State
	if st == nil || st.Status != engine.StatusPlaying || st.Dice == 0 {
		return gi
	}
	p, ok := st.Player(st.CurrentTurn)
	if !ok {
		return gi
	}
	topology, err := b.boards.Topology(g.Board)
	if err != nil {
		b.log.WithError(err).WithField("board", g.Board).Warn("Cannot compute valid moves")
		return gi
	}
	gi.ValidMoves = engine.New(topology).ValidMoves(*p, st.Dice)
	return gi
}

// wait blocks until the feed reports a change or the poll interval passes.
// A feed that stays quiet for MaxPoll is refreshed in case an event was
// dropped.
func (b *Bot) wait(ctx context.Context, feed *Feed, poll *backoff.Backoff) error {
	if feed == nil || !feed.Alive() {
		return sleep(ctx, poll.Duration())
	}

	t := time.NewTimer(b.MaxPoll)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-feed.Changes():
	case <-feed.Done():
		b.log.Warn("Feed ended, polling instead")
	case <-t.C:
		if err := feed.Refresh(ctx); err != nil {
			b.log.WithError(err).Debug("Feed refresh failed")
		}
	}
	return nil
}

// takeTurn rolls when needed, then moves or passes. It returns the version
// of the bot's last commit.
func (b *Bot) takeTurn(ctx context.Context, game *service.GameInfo, out *Outcome) (int64, error) {
	dice := game.State.Dice
	valid := game.ValidMoves
	version := game.Version

	if dice == 0 {
		res, err := b.client.Roll(ctx, game.ID)
		if err != nil {
			return 0, err
		}
		out.Rolls++
		game = res.Game
		dice = game.State.Dice
		valid = game.ValidMoves
		version = game.Version
		b.log.WithField("dice", dice).Debug("Rolled")

		// Auto-pass may already have handed the turn on
		if game.State.CurrentTurn != b.playerID || dice == 0 {
			return version, nil
		}
	}

	if len(valid) == 0 {
		res, err := b.client.Pass(ctx, game.ID)
		if err != nil {
			return 0, err
		}
		return res.Game.Version, nil
	}

	topology, err := b.boards.Topology(game.Board)
	if err != nil {
		return 0, err
	}
	me, _ := game.State.Player(b.playerID)
	pawn := b.strategy.Choose(engine.New(topology), game.State, me, dice, valid)

	res, err := b.client.Move(ctx, game.ID, pawn)
	if err != nil {
		return 0, err
	}
	out.Moves++
	b.log.WithFields(logrus.Fields{"dice": dice, "pawn": pawn}).Debug("Moved")
	return res.Game.Version, nil
}

// stale reports errors caused by the game moving on between our read and
// our action
func stale(err error) bool {
	return errors.Is(err, gameerr.ErrValidation) || errors.Is(err, gameerr.ErrState)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
