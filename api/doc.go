// Package api provides the HTTP REST API for Ludo Arena.
//
// The api package implements:
//   - Game lifecycle endpoints
//   - Player action endpoints acting as the authenticated caller
//   - Board preset listing
//   - WebSocket upgrade handling
//   - A Go client for the same endpoints
//
// Endpoints:
//
// Games:
//   - POST /api/games - Create a game ({"board_id": "classic", "game_id": "friday"}, both optional)
//   - GET /api/games - List games (?status=waiting|playing|finished, ?limit=n)
//   - GET /api/games/{id} - Get a game with the current player's valid moves
//   - DELETE /api/games/{id} - Delete a game
//   - GET /api/games/{id}/presence - Players with an open socket
//
// Player actions (POST, bearer credential required):
//   - /api/games/{id}/join
//   - /api/games/{id}/start
//   - /api/games/{id}/roll
//   - /api/games/{id}/move with {"pawn_index": 0..3}
//   - /api/games/{id}/pass
//   - /api/games/{id}/resign
//
// Other:
//   - GET /api/boards - List board presets
//   - GET /ws?game={id}&token={jwt} - Event stream and socket actions
//   - GET /health - Liveness
//
// Identity:
//
// The acting player is always the subject of the verified credential in the
// Authorization header. Request bodies never name the actor. An optional
// X-Action-ID header is echoed on the resulting events so clients can match
// them to optimistic updates.
//
// Usage:
//
//	server := api.NewServer(gameService, hub, verifier, api.WithLogger(log))
//	http.ListenAndServe(":8080", server)
//
//	client := api.NewClient("http://localhost:8080", api.WithToken(token))
//	result, err := client.Roll(ctx, "friday")
//
// Error Handling:
//
// Errors are returned as JSON with a status derived from the error kind:
//
//	{
//	  "error": "it is not ana's turn",
//	  "kind": "state"
//	}
//
// validation maps to 400, not_found to 404, conflict and state to 409 and
// credential failures to 401.
package api
