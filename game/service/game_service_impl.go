package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/game/syncer"
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithRoller replaces the random dice source
func WithRoller(r Roller) Option {
	return func(s *gameServiceImpl) { s.roller = r }
}

// WithPublisher broadcasts committed events
func WithPublisher(p *syncer.Publisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// WithDirectory resolves display names on join
func WithDirectory(d Directory) Option {
	return func(s *gameServiceImpl) { s.directory = d }
}

// WithAutoPassDelay makes the service pass the turn by itself after a roll
// that leaves no legal move. Zero passes immediately; a negative delay
// leaves passing to the player.
func WithAutoPassDelay(d time.Duration) Option {
	return func(s *gameServiceImpl) { s.autoPassDelay = d }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *gameServiceImpl) { s.log = log }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	registry      *session.Registry
	tx            *session.Transactor
	boards        BoardManager
	roller        Roller
	publisher     *syncer.Publisher
	directory     Directory
	autoPassDelay time.Duration
	log           logrus.FieldLogger

	mu     sync.Mutex
	timers map[string]scheduledPass
	closed bool
}

// scheduledPass is a pending auto-pass pinned to the roll's version
type scheduledPass struct {
	timer   *time.Timer
	version int64
}

// NewGameService creates a new game service instance
func NewGameService(registry *session.Registry, tx *session.Transactor, boards BoardManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		registry:      registry,
		tx:            tx,
		boards:        boards,
		roller:        RandomRoller{},
		autoPassDelay: -1,
		log:           logrus.StandardLogger(),
		timers:        make(map[string]scheduledPass),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame creates a new waiting game on boardName (default board when empty)
func (s *gameServiceImpl) CreateGame(ctx context.Context, boardName, gameID string) (*GameInfo, error) {
	if boardName == "" {
		boardName = s.boards.GetDefault().Name()
	}

	if _, err := s.boards.Topology(boardName); err != nil {
		// Provide helpful error message with available options
		if boards, listErr := s.boards.ListBoards(); listErr == nil && len(boards) > 0 {
			ids := make([]string, 0, len(boards))
			for _, b := range boards {
				ids = append(ids, b.BoardID)
			}
			return nil, gameerr.Validation("board '%s' not available (%v). Available boards: %s",
				boardName, err, strings.Join(ids, ", "))
		}
		return nil, gameerr.Validation("board '%s' not available: %v", boardName, err)
	}

	g, err := s.registry.Create(ctx, gameID, boardName)
	if err != nil {
		return nil, err
	}
	return s.info(g), nil
}

// GetGame retrieves a game
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	g, err := s.registry.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.info(g), nil
}

// ListGames returns all games
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	games, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*GameInfo, 0, len(games))
	for _, g := range games {
		result = append(result, s.info(g))
	}
	return result, nil
}

// DeleteGame removes a finished game or an empty waiting one
func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID string) error {
	gameID = session.NormalizeID(gameID)
	if err := s.registry.Delete(ctx, gameID); err != nil {
		return err
	}
	s.cancelAutoPass(gameID, math.MaxInt64)
	return nil
}

// Join seats playerID with the next free color
func (s *gameServiceImpl) Join(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	name := playerID
	if s.directory != nil {
		if n, err := s.directory.DisplayName(ctx, playerID); err == nil && n != "" {
			name = n
		} else if err != nil {
			s.log.WithError(err).WithField("player_id", playerID).Debug("Display name lookup failed")
		}
	}
	return s.do(ctx, gameID, session.Action{Kind: session.ActionJoin, PlayerID: playerID, Name: name})
}

// Start begins play
func (s *gameServiceImpl) Start(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	return s.do(ctx, gameID, session.Action{Kind: session.ActionStart, PlayerID: playerID})
}

// Roll rolls the die for the current player. The value is drawn once, so a
// retried transaction commits the same roll.
func (s *gameServiceImpl) Roll(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	res, err := s.do(ctx, gameID, session.Action{Kind: session.ActionRoll, PlayerID: playerID, Dice: s.roller.Roll()})
	if err != nil {
		return nil, err
	}
	if noLegalMove(res) {
		return s.afterDeadRoll(ctx, res, playerID)
	}
	return res, nil
}

// Move moves one of the current player's pawns
func (s *gameServiceImpl) Move(ctx context.Context, gameID, playerID string, pawnIndex int) (*ActionResult, error) {
	return s.do(ctx, gameID, session.Action{Kind: session.ActionMove, PlayerID: playerID, PawnIndex: pawnIndex})
}

// Resign leaves a game
func (s *gameServiceImpl) Resign(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	return s.do(ctx, gameID, session.Action{Kind: session.ActionResign, PlayerID: playerID})
}

// Pass hands on the turn after a roll with no legal move
func (s *gameServiceImpl) Pass(ctx context.Context, gameID, playerID string) (*ActionResult, error) {
	return s.do(ctx, gameID, session.Action{Kind: session.ActionPass, PlayerID: playerID})
}

// ListBoards returns the available board presets
func (s *gameServiceImpl) ListBoards(ctx context.Context) ([]*BoardInfo, error) {
	return s.boards.ListBoards()
}

// Close stops scheduled passes
func (s *gameServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, id)
	}
}

// do runs one action through the transactor and publishes the commit
func (s *gameServiceImpl) do(ctx context.Context, gameID string, action session.Action) (*ActionResult, error) {
	if strings.TrimSpace(action.PlayerID) == "" {
		return nil, gameerr.Validation("player id is required")
	}

	actionID := ActionIDFromContext(ctx)
	if actionID == "" {
		actionID = uuid.NewString()
	}

	res, err := s.tx.Do(ctx, gameID, action)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"game_id": gameID,
			"action":  action.String(),
			"kind":    gameerr.KindOf(err),
		}).Debugf("Action rejected: %v", err)
		return nil, err
	}

	gameID = res.Game.ID
	if action.Kind != session.ActionRoll {
		s.cancelAutoPass(gameID, res.Game.Version)
	}

	var events []syncer.Event
	if s.publisher != nil {
		events = s.publisher.Publish(gameID, res.Game.Version, actionID, res.Events)
	}

	fields := logrus.Fields{"game_id": gameID, "action": action.String(), "version": res.Game.Version}
	if res.Deleted {
		s.log.WithFields(fields).Info("Game removed after last player left")
	} else {
		s.log.WithFields(fields).Debug("Action committed")
	}

	out := &ActionResult{
		Game:     s.info(res.Game),
		Events:   events,
		ActionID: actionID,
		Deleted:  res.Deleted,
	}
	for _, ev := range res.Events {
		if ev.NoLegalMove {
			out.noLegalMove = true
		}
	}
	return out, nil
}

func noLegalMove(res *ActionResult) bool {
	return res.noLegalMove
}

// afterDeadRoll applies the auto-pass policy. The pass goes through the same
// transactional checks as any action and is pinned to the roll's version, so
// anything that lands first wins.
func (s *gameServiceImpl) afterDeadRoll(ctx context.Context, res *ActionResult, playerID string) (*ActionResult, error) {
	switch {
	case s.autoPassDelay < 0:
		return res, nil
	case s.autoPassDelay == 0:
		passed, err := s.autoPass(context.WithoutCancel(ctx), res.Game.ID, playerID, res.Game.Version)
		if err != nil {
			return res, nil
		}
		passed.Events = append(res.Events, passed.Events...)
		return passed, nil
	default:
		s.scheduleAutoPass(res.Game.ID, playerID, res.Game.Version)
		return res, nil
	}
}

func (s *gameServiceImpl) autoPass(ctx context.Context, gameID, playerID string, version int64) (*ActionResult, error) {
	res, err := s.do(ctx, gameID, session.Action{Kind: session.ActionPass, PlayerID: playerID, IfVersion: version})
	if err != nil {
		if !gameerr.IsTerminal(err) {
			s.log.WithError(err).WithField("game_id", gameID).Warn("Auto-pass failed")
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"game_id": gameID, "player_id": playerID}).Info("Turn passed automatically")
	return res, nil
}

func (s *gameServiceImpl) scheduleAutoPass(gameID, playerID string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if p, ok := s.timers[gameID]; ok {
		if p.version > version {
			return
		}
		p.timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.autoPassDelay, func() {
		s.mu.Lock()
		if s.timers[gameID].timer == timer {
			delete(s.timers, gameID)
		}
		s.mu.Unlock()
		s.autoPass(context.Background(), gameID, playerID, version)
	})
	s.timers[gameID] = scheduledPass{timer: timer, version: version}
}

// cancelAutoPass stops a scheduled pass made stale by a commit at version.
// A pass pinned to a later roll belongs to a newer turn and is kept.
func (s *gameServiceImpl) cancelAutoPass(gameID string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.timers[gameID]; ok && p.version <= version {
		p.timer.Stop()
		delete(s.timers, gameID)
	}
}

// info decorates a record with the current player's legal pawns
func (s *gameServiceImpl) info(g *session.Game) *GameInfo {
	gi := &GameInfo{Game: g}
	st := g.State
	if st == nil || st.Status != engine.StatusPlaying || st.Dice == 0 {
		return gi
	}
	p, ok := st.Player(st.CurrentTurn)
	if !ok {
		return gi
	}
	eng, err := s.tx.Engine(g.Board)
	if err != nil {
		s.log.WithError(err).WithField("board", g.Board).Warn("Cannot compute valid moves")
		return gi
	}
	gi.ValidMoves = eng.ValidMoves(*p, st.Dice)
	return gi
}
