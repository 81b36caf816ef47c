// Package service provides the business logic layer for Ludo Arena.
//
// The service package implements:
//   - Game creation, lookup, listing and deletion
//   - Player actions (join, start, roll, move, resign, pass)
//   - Dice rolling and the auto-pass policy
//   - Publishing committed events to connected clients
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// BoardManager resolves board presets. Directory supplies display names.
// Roller supplies dice values.
//
// Architecture:
//
// The service sits between the transports (HTTP, WebSocket, MCP) and the
// session layer. Every action runs through session.Transactor, which reads
// the latest record, applies the turn rules and commits with a version check.
// Only after a commit does the service hand the resulting events to the
// syncer.Publisher, so clients never hear about a change that did not happen.
//
// Usage:
//
//	store := session.NewMemoryStore()
//	boards, _ := config.NewManager("configs")
//	svc := service.NewGameService(
//		session.NewRegistry(store, logger),
//		session.NewTransactor(store, boards),
//		boards,
//		service.WithPublisher(syncer.NewPublisher(hub, logger)),
//		service.WithAutoPassDelay(2*time.Second),
//	)
//
//	game, err := svc.CreateGame(ctx, "classic", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc.Join(ctx, game.ID, "ana")
//
// Auto-pass:
//
// A roll that leaves the player nothing to move can be passed by the player
// or, with WithAutoPassDelay, by the service. The scheduled pass is pinned to
// the version of the roll, so any action that commits first makes it a no-op.
package service
