package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/ludo-arena/api"
	"github.com/wricardo/ludo-arena/game/engine"
	"github.com/wricardo/ludo-arena/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	api       *api.Client
	mcpServer *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL.
// token is the default credential for player actions; each action tool also
// accepts a token argument to act as another player.
func NewClient(baseURL, token string) *Client {
	c := &Client{
		api: api.NewClient(baseURL, api.WithToken(token)),
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ludo Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ludo Arena - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Move all four of your pawns around the track and into your home column before the other players.

AVAILABLE TOOLS:
- create_game: Create a new game on a board preset
- list_games: List games
- game_state: Get a game's board, turn and valid moves
- join_game: Take a seat in a waiting game
- start_game: Start a waiting game with at least two players
- roll_dice: Roll the die on your turn
- move_pawn: Move one of your pawns by the rolled value
- pass_turn: Give up a turn when no pawn can move
- resign_game: Leave a game
- list_boards: List board presets
- game_rules: Rules and strategy notes

Every action tool takes an optional token to act as a different player.`),
	)

	// Register all tools
	c.registerTools()
}

func gameIDProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Game ID",
	}
}

func tokenProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Player credential (optional, defaults to the server-configured player)",
	}
}

func actionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProp(),
				"token":   tokenProp(),
			},
			Required: []string{"game_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Game management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game with optional board and game id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"board_id": map[string]interface{}{
					"type":        "string",
					"description": "Board preset to use (optional)",
				},
				"game_id": map[string]interface{}{
					"type":        "string",
					"description": "Game id to use (optional, generated when empty)",
				},
				"token": tokenProp(),
			},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List games, optionally filtered by status",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "waiting, playing or finished (optional)",
				},
			},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current state of a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProp(),
			},
			Required: []string{"game_id"},
		},
	}, c.handleGameState)

	// Player actions
	c.mcpServer.AddTool(actionTool("join_game", "Join a waiting game"), c.action((*api.Client).Join))
	c.mcpServer.AddTool(actionTool("start_game", "Start a waiting game"), c.action((*api.Client).Start))
	c.mcpServer.AddTool(actionTool("roll_dice", "Roll the die on your turn"), c.action((*api.Client).Roll))
	c.mcpServer.AddTool(actionTool("pass_turn", "Pass when the rolled value allows no move"), c.action((*api.Client).Pass))
	c.mcpServer.AddTool(actionTool("resign_game", "Resign from a game"), c.action((*api.Client).Resign))

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_pawn",
		Description: "Move one of your pawns by the rolled value",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game_id": gameIDProp(),
				"pawn_index": map[string]interface{}{
					"type":        "integer",
					"description": "Pawn to move (0-3)",
					"minimum":     0,
					"maximum":     engine.PawnsPerPlayer - 1,
				},
				"token": tokenProp(),
			},
			Required: []string{"game_id", "pawn_index"},
		},
	}, c.handleMovePawn)

	// Boards
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_boards",
		Description: "List available board presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListBoards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the game rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// apiFor returns the REST client acting with the request's token, if any
func (c *Client) apiFor(args map[string]interface{}) *api.Client {
	if token, _ := args["token"].(string); token != "" {
		return c.api.As(token)
	}
	return c.api
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	boardID, _ := args["board_id"].(string)
	gameID, _ := args["game_id"].(string)

	game, err := c.apiFor(args).CreateGame(ctx, boardID, gameID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game: %s\nBoard: %s\n", game.ID, game.Board)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, _ := arguments(request)["status"].(string)

	response, err := c.api.ListGames(ctx, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		fmt.Fprintf(&result, "- %s (Board: %s, Status: %s, Players: %d, Created: %s)\n",
			g.ID, g.Board, g.Status(), len(g.State.Players), g.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, _ := arguments(request)["game_id"].(string)

	game, err := c.api.GetGame(ctx, gameID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGame(game)), nil
}

// actionFunc is a REST client method expression such as (*api.Client).Roll
type actionFunc func(c *api.Client, ctx context.Context, gameID string) (*service.ActionResult, error)

// action adapts a REST client method to a tool handler acting as the
// request's token holder
func (c *Client) action(fn actionFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(request)
		gameID, _ := args["game_id"].(string)

		result, err := fn(c.apiFor(args), ctx, gameID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatActionResult(result)), nil
	}
}

func (c *Client) handleMovePawn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, _ := args["game_id"].(string)
	raw, ok := args["pawn_index"].(float64)
	if !ok {
		return mcp.NewToolResultError("pawn_index is required"), nil
	}

	result, err := c.apiFor(args).Move(ctx, gameID, int(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(result)), nil
}

func (c *Client) handleListBoards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards, err := c.api.ListBoards(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Boards:\n\n")
	for _, b := range boards {
		fmt.Fprintf(&result, "• %s\n  %s\n  Track: %d cells, Home column: %d\n\n",
			b.BoardID, b.Description, b.MainTrackLength, b.HomeColumnLength)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `Ludo Arena - Rules

SETUP:
• 2 to 4 players, seated in the order green, blue, red, yellow
• Each player has 4 pawns that start at Home

TURNS:
• Roll the die on your turn, then move one pawn by the rolled value
• A pawn leaves Home only on a 6 and lands on its color's start cell
• Rolling a 6 gives you another turn after moving
• If no pawn can move, pass the turn

MOVEMENT:
• Pawns travel the main track, then turn into their own home column
• The last home column cell is Finish and must be reached by exact count
• Landing on an opponent's pawn on an unsafe cell sends it back Home
• Start cells and home column entry cells protect every pawn on them

WINNING:
• The first player with all four pawns on Finish wins

STRATEGY NOTES:
• Spread risk: a pawn just outside an opponent's start cell is exposed
• Prefer moves that capture or reach a safe cell
• Keep one pawn close to Finish for exact rolls late in the game`

	return mcp.NewToolResultText(rules), nil
}

// Formatting helpers

func formatGame(game *service.GameInfo) string {
	if game == nil || game.Game == nil || game.State == nil {
		return "No game state available"
	}
	s := game.State

	var result strings.Builder
	fmt.Fprintf(&result, "Game: %s | Board: %s | Status: %s | Version: %d\n",
		game.ID, game.Board, s.Status, game.Version)
	if s.CurrentTurn != "" {
		fmt.Fprintf(&result, "Turn: %s", s.CurrentTurn)
		if s.Dice != 0 {
			fmt.Fprintf(&result, " | Rolled: %d", s.Dice)
		}
		result.WriteString("\n")
	}
	result.WriteString("\n")

	for _, p := range s.Players {
		marker := " "
		if p.ID == s.CurrentTurn {
			marker = "▶"
		}
		resigned := ""
		if p.Resigned {
			resigned = " (resigned)"
		}
		fmt.Fprintf(&result, "%s %s [%s]%s\n", marker, p.Name, p.Color, resigned)
		for _, pawn := range p.Pawns {
			fmt.Fprintf(&result, "    pawn %d: %s\n", pawn.Index, pawn.Position)
		}
	}

	if s.Dice != 0 {
		if len(game.ValidMoves) == 0 {
			result.WriteString("\nNo legal move: pass the turn\n")
		} else {
			fmt.Fprintf(&result, "\nMovable pawns: %v\n", game.ValidMoves)
		}
	}

	if s.Status == engine.StatusFinished && s.Winner != "" {
		fmt.Fprintf(&result, "\n🎉 WINNER: %s\n", s.Winner)
	}

	return result.String()
}

func formatActionResult(result *service.ActionResult) string {
	if result == nil {
		return "No result"
	}
	if result.Deleted {
		return "Game removed: no active players remain"
	}

	var out strings.Builder
	if len(result.Events) > 0 {
		names := make([]string, 0, len(result.Events))
		for _, ev := range result.Events {
			names = append(names, ev.Name)
		}
		fmt.Fprintf(&out, "✓ %s\n\n", strings.Join(names, ", "))
	}
	out.WriteString(formatGame(result.Game))
	return out.String()
}
