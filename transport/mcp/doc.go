// Package mcp provides a Model Context Protocol server for Ludo Arena.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions that proxy the REST API
//   - Per-call player credentials
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_game: Create a game with optional board and id
//   - list_games: List games, optionally by status
//   - game_state: Board, turn, pending roll and movable pawns
//   - join_game, start_game, roll_dice, move_pawn, pass_turn, resign_game
//   - list_boards: List board presets
//   - game_rules: Rules summary
//
// Identity:
//
// The client is created with a default credential. Action tools accept a
// token argument so one agent can drive several seats in the same game.
// The server decides who acts from the credential alone.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", token)
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
