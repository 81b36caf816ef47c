package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/ludo-arena/auth"
	"github.com/wricardo/ludo-arena/game/gameerr"
	"github.com/wricardo/ludo-arena/game/service"
	"github.com/wricardo/ludo-arena/game/session"
	"github.com/wricardo/ludo-arena/transport/websocket"
)

// ActionIDHeader carries a client-chosen id echoed back on the broadcast
const ActionIDHeader = "X-Action-ID"

// Server represents the REST API server
type Server struct {
	service  service.GameService
	hub      *websocket.Hub
	verifier auth.Verifier
	router   *mux.Router
	log      logrus.FieldLogger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer creates a new API server. hub may be nil, in which case /ws
// is unavailable.
func NewServer(gameService service.GameService, hub *websocket.Hub, verifier auth.Verifier, opts ...Option) *Server {
	s := &Server{
		service:  gameService,
		hub:      hub,
		verifier: verifier,
		router:   mux.NewRouter(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Game management
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}/presence", s.handlePresence).Methods("GET")

	// Boards
	api.HandleFunc("/boards", s.handleListBoards).Methods("GET")

	// Player actions act on behalf of the authenticated caller
	api.Handle("/games", s.requireIdentity(http.HandlerFunc(s.handleCreateGame))).Methods("POST")
	api.Handle("/games/{id}", s.requireIdentity(http.HandlerFunc(s.handleDeleteGame))).Methods("DELETE")
	api.Handle("/games/{id}/join", s.requireIdentity(s.action(s.service.Join))).Methods("POST")
	api.Handle("/games/{id}/start", s.requireIdentity(s.action(s.service.Start))).Methods("POST")
	api.Handle("/games/{id}/roll", s.requireIdentity(s.action(s.service.Roll))).Methods("POST")
	api.Handle("/games/{id}/resign", s.requireIdentity(s.action(s.service.Resign))).Methods("POST")
	api.Handle("/games/{id}/pass", s.requireIdentity(s.action(s.service.Pass))).Methods("POST")
	api.Handle("/games/{id}/move", s.requireIdentity(http.HandlerFunc(s.handleMove))).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string            `json:"error"`
	Kind     string            `json:"kind,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// respondServiceError maps an error to its HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Kind: string(gameerr.KindOf(err))}
	var ge *gameerr.Error
	if errors.As(err, &ge) {
		resp.Metadata = ge.Metadata
	}
	respondJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch gameerr.KindOf(err) {
	case gameerr.KindValidation:
		return http.StatusBadRequest
	case gameerr.KindNotFound:
		return http.StatusNotFound
	case gameerr.KindConflict, gameerr.KindState:
		return http.StatusConflict
	}
	switch {
	case errors.Is(err, auth.ErrMissingCredential),
		errors.Is(err, auth.ErrInvalidCredential),
		errors.Is(err, auth.ErrExpiredCredential):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type identityKey struct{}

// identityFrom returns the identity set by requireIdentity
func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey{}).(auth.Identity)
	return id
}

// requireIdentity verifies the bearer credential
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.verifier.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		if actionID := r.Header.Get(ActionIDHeader); actionID != "" {
			ctx = service.WithActionID(ctx, actionID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logRequests writes one debug line per request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}

// Game Handlers

// CreateGameRequest is the body of POST /api/games
type CreateGameRequest struct {
	BoardID string `json:"board_id,omitempty"`
	GameID  string `json:"game_id,omitempty"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	game, err := s.service.CreateGame(r.Context(), req.BoardID, req.GameID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, game)
}

// ListGamesResponse is the body of GET /api/games
type ListGamesResponse struct {
	Count int                 `json:"count"`
	Total int                 `json:"total"`
	Games []*service.GameInfo `json:"games"`
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(games)

	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		filtered := games[:0]
		for _, g := range games {
			if strings.EqualFold(string(g.Status()), status) {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}

	// Apply limit if specified
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(games) {
			games = games[:l]
		}
	}

	respondJSON(w, http.StatusOK, ListGamesResponse{
		Count: len(games),
		Total: total,
		Games: games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game, err := s.service.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	if err := s.service.DeleteGame(r.Context(), gameID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Game %s deleted", session.NormalizeID(gameID)),
	})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "presence is not available")
		return
	}
	gameID := session.NormalizeID(mux.Vars(r)["id"])
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"game_id": gameID,
		"online":  s.hub.Online(gameID),
	})
}

// Action Handlers

type actionFunc func(ctx context.Context, gameID, playerID string) (*service.ActionResult, error)

// action adapts a player action to a handler acting as the caller
func (s *Server) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r.Context())
		result, err := fn(r.Context(), mux.Vars(r)["id"], id.PlayerID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// MoveRequest is the body of POST /api/games/{id}/move
type MoveRequest struct {
	PawnIndex *int `json:"pawn_index"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PawnIndex == nil {
		respondError(w, http.StatusBadRequest, "pawn_index is required")
		return
	}

	id := identityFrom(r.Context())
	result, err := s.service.Move(r.Context(), mux.Vars(r)["id"], id.PlayerID, *req.PawnIndex)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Board Handlers

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.service.ListBoards(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, boards)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket is not available", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	gameID := session.NormalizeID(query.Get("game"))
	if gameID == "" {
		http.Error(w, "game parameter required", http.StatusBadRequest)
		return
	}

	// Browsers cannot set headers on the upgrade request
	credential := query.Get("token")
	if credential == "" {
		credential = r.Header.Get("Authorization")
	}
	id, err := s.verifier.Verify(r.Context(), credential)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	// Verify game exists
	if _, err := s.service.GetGame(r.Context(), gameID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	s.hub.ServeWS(w, r, gameID, id.PlayerID, s.service)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
