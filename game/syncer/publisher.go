package syncer

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/ludo-arena/game/engine"
)

// Broadcaster delivers advisory events to everyone watching a game. Delivery
// is best effort: a slow or absent receiver simply misses the event.
type Broadcaster interface {
	Broadcast(gameID string, ev Event)
}

// Publisher turns committed domain events into wire events
type Publisher struct {
	out Broadcaster
	now func() time.Time
	log logrus.FieldLogger
}

// NewPublisher creates a publisher writing to out
func NewPublisher(out Broadcaster, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{out: out, now: time.Now, log: log}
}

// Publish broadcasts the events of one commit. Every event carries the
// committed version so receivers can spot gaps. It returns what was sent.
func (p *Publisher) Publish(gameID string, version int64, actionID string, events []engine.Event) []Event {
	var sent []Event
	for _, de := range events {
		ev, ok := p.translate(gameID, version, de)
		if !ok {
			continue
		}
		ev.ActionID = actionID
		if p.out != nil {
			p.out.Broadcast(gameID, ev)
		}
		sent = append(sent, ev)
	}
	return sent
}

func (p *Publisher) translate(gameID string, version int64, de engine.Event) (Event, bool) {
	var (
		name string
		data any
	)
	switch de.Kind {
	case engine.EventPlayerJoined:
		name = EventJoinGame
		data = RosterData{GameID: gameID, PlayerID: de.PlayerID, Color: de.Color, Version: version}
	case engine.EventPlayerLeft:
		name = EventLeaveGame
		data = RosterData{GameID: gameID, PlayerID: de.PlayerID, NextTurn: de.NextTurn, Version: version}
	case engine.EventGameStarted:
		name = EventGameStarted
		data = RosterData{GameID: gameID, PlayerID: de.PlayerID, NextTurn: de.NextTurn, Version: version}
	case engine.EventDiceRolled:
		name = EventDiceRolled
		data = DiceRolledData{
			GameID:      gameID,
			PlayerID:    de.PlayerID,
			Value:       de.Dice,
			NoLegalMove: de.NoLegalMove,
			Timestamp:   p.now(),
			Version:     version,
		}
	case engine.EventPawnMoved:
		name = EventPawnMove
		move := PawnMoveData{
			GameID:    gameID,
			PlayerID:  de.PlayerID,
			PawnIndex: de.PawnIndex,
			Captures:  de.Captures,
			Timestamp: p.now(),
			IsWin:     de.Win,
			NextTurn:  de.NextTurn,
			Version:   version,
		}
		if de.To != nil {
			move.NewPosition = *de.To
		}
		data = move
	case engine.EventTurnPassed:
		name = EventTurnPassed
		data = TurnPassedData{GameID: gameID, PlayerID: de.PlayerID, NextTurn: de.NextTurn, Version: version}
	default:
		p.log.WithField("kind", de.Kind).Warn("No wire event for domain event")
		return Event{}, false
	}

	ev, err := NewEvent(name, gameID, version, data)
	if err != nil {
		p.log.WithError(err).Error("Failed to encode event")
		return Event{}, false
	}
	return ev, true
}
