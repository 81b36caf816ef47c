// Package websocket provides the WebSocket transport for Ludo Arena.
//
// The websocket package implements:
//   - Advisory event broadcast per game
//   - Inbound player actions over the socket
//   - Presence tracking per (game, player)
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine; the hub loop owns registration and fan-out.
//
// Message Protocol:
//
// Messages are JSON-encoded:
//   - Incoming: {"action": "move", "pawn_index": 2, "action_id": "c1f0..."}
//   - Outgoing: syncer.Event envelopes such as
//     {"event": "pawn-move", "game_id": "ab12cd34", "version": 9, "data": {...}}
//
// Outgoing events are advisory. Clients apply them only when the version is
// exactly one past what they hold and re-fetch the game otherwise. A failed
// action produces a move-error sent to the originating socket only.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithPresence(presence.NewRegistry()))
//	go hub.Run(ctx)
//
//	publisher := syncer.NewPublisher(hub, log)
//	// ... after authenticating the player:
//	hub.ServeWS(w, r, gameID, playerID, gameService)
//
// Connection Lifecycle:
//
// 1. Client connects with game id and credential
// 2. Connection registered with hub and presence
// 3. Client sends actions, receives events
// 4. When the player's last socket closes the others get player-disconnected
//
// Concurrency:
//
// Broadcast never blocks. A client whose queue is full is disconnected and
// must reconnect and re-fetch.
package websocket
