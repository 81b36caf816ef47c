// Package storage holds durable session.Store implementations.
//
// Subpackages:
//   - bolt: single-file BoltDB store, one JSON document per game
//   - sqlite: SQLite store with the version check in the UPDATE statement
//
// Both satisfy the contract suite in game/session/storetest.
package storage
