// Package session provides game records, their persistence and the
// transaction loop that mutates them for Ludo Arena.
//
// The session package implements:
//   - The Game record (turn state plus version and timestamps)
//   - Actions and the pure Apply transform
//   - The Store contract with optimistic version checks
//   - In-memory and JSON-file stores
//   - The Transactor retry loop and the Registry lifecycle helpers
//
// Core Types:
//
// Game is what every store persists. Version starts at 1 and grows by
// exactly one per committed change.
//
// Action describes one player request. Apply turns (game, action) into the
// next game and its domain events without touching its input.
//
// Transactor reads the latest game, applies the action and commits with
// Store.Update(next, readVersion). When another writer committed in between
// the store reports ErrVersionConflict and the whole cycle runs again, up to
// a bounded number of attempts paced by jittered exponential backoff.
//
// Registry creates games with generated ids, deletes them and cleans up
// finished ones.
//
// Concurrency:
//
// Stores are safe for concurrent use. Two actions racing on the same turn
// both compute against version N; exactly one commits N+1 and the other is
// recomputed against N+1, where the turn rules usually reject it.
//
// Usage:
//
//	store := session.NewMemoryStore()
//	registry := session.NewRegistry(store, logger)
//	tx := session.NewTransactor(store, boards)
//
//	game, err := registry.Create(ctx, "", "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := tx.Do(ctx, game.ID, session.Action{Kind: session.ActionJoin, PlayerID: "ana"})
//
// Other Store implementations live under storage/ and are checked against
// the same contract suite in storetest.
package session
