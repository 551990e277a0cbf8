// internal/httpserver/routes_game.go
//
// HTTP routes for playing a match.
//   - POST   /game/new          → create a match, return its ID, token and first view
//   - GET    /game/{id}         → controller snapshot + current view
//   - POST   /game/{id}/start   → begin presenting (202)
//   - POST   /game/{id}/input   → replace the typed digits
//   - POST   /game/{id}/check   → compare input with the target (202)
//   - POST   /game/{id}/restart → back to the initial session
//   - DELETE /game/{id}         → close the match
//
// Wrong-phase calls map to 409 with the controller's reason as the error code.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/digitspan/internal/game"
	"github.com/robalobadob/digitspan/internal/play"
	"github.com/robalobadob/digitspan/internal/view"
)

type newGameReq struct {
	Mode string `json:"mode"` // "normal" | "daily"
}

type newGameRes struct {
	GameID    string    `json:"gameId"`
	Mode      play.Mode `json:"mode"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	View      view.View `json:"view"`
}

type stateRes struct {
	State game.Snapshot `json:"state"`
	View  view.View     `json:"view"`
}

type inputReq struct {
	Value string `json:"value"`
}

type inputRes struct {
	Value        string `json:"value"`
	CheckEnabled bool   `json:"checkEnabled"`
}

type checkRes struct {
	Outcome game.Outcome  `json:"outcome"`
	State   game.Snapshot `json:"state"`
}

// handleNewGame creates a match, stores it and hands out its token.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body means normal mode

	mode, err := play.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, `{"error":"unknown_mode"}`, http.StatusBadRequest)
		return
	}
	m, err := play.New(play.Options{
		Mode:      mode,
		DailySalt: s.opts.DailySalt,
		Clock:     s.clock,
		Logger:    log.Logger,
	})
	if err != nil {
		log.Error().Err(err).Msg("new match")
		http.Error(w, `{"error":"create_failed"}`, http.StatusInternalServerError)
		return
	}
	if err := s.store.Save(r.Context(), m); err != nil {
		log.Error().Err(err).Msg("save match")
		m.Close()
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	tok, exp, err := s.signGameToken(m.ID)
	if err != nil {
		log.Error().Err(err).Str("gameId", m.ID).Msg("sign token")
		_ = s.store.Delete(r.Context(), m.ID)
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	setTokenCookie(w, r, m.ID, tok, exp)
	log.Info().Str("gameId", m.ID).Str("mode", string(mode)).Int("live", s.store.Len()).Msg("match created")

	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:    m.ID,
		Mode:      mode,
		Token:     tok,
		ExpiresAt: exp,
		View:      m.Board.Current(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)
	_ = json.NewEncoder(w).Encode(stateRes{State: m.Controller.Snapshot(), View: m.Board.Current()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)
	// The presentation outlives the request; it runs under the match context.
	if _, err := m.Controller.Start(m.Context()); err != nil {
		writeGameError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(stateRes{State: m.Controller.Snapshot(), View: m.Board.Current()})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)
	var req inputReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	value, err := m.Controller.Input(req.Value)
	if err != nil {
		writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(inputRes{Value: value, CheckEnabled: m.Board.Current().CheckEnabled})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)
	outcome, _, err := m.Controller.Check(m.Context())
	if err != nil {
		writeGameError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(checkRes{Outcome: outcome, State: m.Controller.Snapshot()})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)
	if err := m.Controller.Restart(); err != nil {
		writeGameError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(stateRes{State: m.Controller.Snapshot(), View: m.Board.Current()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	m := matchFrom(r)
	if err := s.store.Delete(r.Context(), m.ID); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeGameError maps controller sentinel errors to 409 codes.
func writeGameError(w http.ResponseWriter, err error) {
	code := "conflict"
	switch {
	case errors.Is(err, game.ErrNotIdle):
		code = "not_idle"
	case errors.Is(err, game.ErrNotAwaitingInput):
		code = "not_awaiting_input"
	case errors.Is(err, game.ErrIncompleteInput):
		code = "incomplete_input"
	case errors.Is(err, game.ErrInputDisabled):
		code = "input_disabled"
	case errors.Is(err, game.ErrBusy):
		code = "busy"
	case errors.Is(err, game.ErrClosed):
		code = "closed"
	default:
		log.Warn().Err(err).Msg("unmapped game error")
	}
	http.Error(w, `{"error":"`+code+`"}`, http.StatusConflict)
}
