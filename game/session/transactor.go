package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/ludo-arena/game/board"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/gameerr"
)

// DefaultMaxAttempts bounds how often a transaction is recomputed on conflict
const DefaultMaxAttempts = 8

// BoardResolver turns a board name into its topology
type BoardResolver interface {
	Topology(name string) (*board.Topology, error)
}

// Result is a committed transaction
type Result struct {
	Game    *Game
	Events  []engine.Event
	Deleted bool
}

// TransactorOption configures a Transactor
type TransactorOption func(*Transactor)

// WithMaxAttempts sets the retry bound
func WithMaxAttempts(n int) TransactorOption {
	return func(t *Transactor) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithBackoff sets the pause range between attempts
func WithBackoff(min, max time.Duration) TransactorOption {
	return func(t *Transactor) {
		t.minBackoff, t.maxBackoff = min, max
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) TransactorOption {
	return func(t *Transactor) { t.now = now }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) TransactorOption {
	return func(t *Transactor) { t.log = log }
}

// Transactor runs read-transform-commit cycles against a Store. Each
// attempt reads the latest record and recomputes the action from scratch,
// so concurrent actions are serialised by the store's version check.
type Transactor struct {
	store       Store
	boards      BoardResolver
	engines     map[string]*engine.Engine
	enginesMu   sync.RWMutex
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
	log         logrus.FieldLogger
	tracer      trace.Tracer
}

// NewTransactor creates a transactor over store
func NewTransactor(store Store, boards BoardResolver, opts ...TransactorOption) *Transactor {
	t := &Transactor{
		store:       store,
		boards:      boards,
		engines:     make(map[string]*engine.Engine),
		maxAttempts: DefaultMaxAttempts,
		minBackoff:  5 * time.Millisecond,
		maxBackoff:  200 * time.Millisecond,
		now:         time.Now,
		log:         logrus.StandardLogger(),
		tracer:      otel.Tracer("github.com/wricardo/ludo-arena/game/session"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store returns the underlying store
func (t *Transactor) Store() Store { return t.store }

// Engine returns the move engine for a board. Engines are cached per board;
// topologies are immutable so one engine serves every game on it.
func (t *Transactor) Engine(boardName string) (*engine.Engine, error) {
	t.enginesMu.RLock()
	eng, ok := t.engines[boardName]
	t.enginesMu.RUnlock()
	if ok {
		return eng, nil
	}

	topology, err := t.boards.Topology(boardName)
	if err != nil {
		return nil, fmt.Errorf("failed to load board %q: %w", boardName, err)
	}
	eng = engine.New(topology)

	t.enginesMu.Lock()
	t.engines[boardName] = eng
	t.enginesMu.Unlock()
	return eng, nil
}

// Do applies action to game id and commits it. Version conflicts re-read the
// game and recompute; rule violations are returned without retrying.
func (t *Transactor) Do(ctx context.Context, id string, action Action) (*Result, error) {
	id = NormalizeID(id)
	ctx, span := t.tracer.Start(ctx, "session.Transact", trace.WithAttributes(
		attribute.String("game.id", id),
		attribute.String("game.action", string(action.Kind)),
		attribute.String("game.player", action.PlayerID),
	))
	defer span.End()

	b := &backoff.Backoff{
		Min:    t.minBackoff,
		Max:    t.maxBackoff,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		res, err := t.attempt(ctx, id, action)
		if err == nil {
			span.SetAttributes(
				attribute.Int("game.attempts", attempt),
				attribute.Int64("game.version", res.Game.Version),
			)
			return res, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			span.SetStatus(codes.Error, err.Error())
			return nil, translate(err, id)
		}

		wait := b.Duration()
		t.log.WithFields(logrus.Fields{
			"game_id": id,
			"action":  action.String(),
			"attempt": attempt,
		}).Debugf("Version conflict, retrying in %s", wait)

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, ctx.Err().Error())
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	span.SetStatus(codes.Error, "retries exhausted")
	return nil, gameerr.Conflict(
		fmt.Sprintf("game %s is too busy, gave up after %d attempts", id, t.maxAttempts),
		ErrVersionConflict,
	)
}

func (t *Transactor) attempt(ctx context.Context, id string, action Action) (*Result, error) {
	current, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	eng, err := t.Engine(current.Board)
	if err != nil {
		return nil, err
	}

	out, err := Apply(eng, current, action, t.now())
	if err != nil {
		return nil, err
	}

	if out.Delete {
		if err := t.store.Delete(ctx, id, current.Version); err != nil {
			return nil, err
		}
		return &Result{Game: out.Game, Events: out.Events, Deleted: true}, nil
	}

	if err := t.store.Update(ctx, out.Game, current.Version); err != nil {
		return nil, err
	}
	return &Result{Game: out.Game, Events: out.Events}, nil
}

// translate maps store errors onto the game error taxonomy
func translate(err error, id string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return gameerr.NotFound("game %s not found", id)
	case errors.Is(err, ErrAlreadyExists):
		return gameerr.Conflict(fmt.Sprintf("game %s already exists", id), err)
	default:
		return err
	}
}
